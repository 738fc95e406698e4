package session

import "train-chat/internal/domain/motion"

// RoomLatch picks the room to chat in. The first room seen while riding
// is kept for the whole ride even as the raw room id drifts along the
// track; the latch clears when the ride ends.
type RoomLatch struct {
	room string
}

// Update feeds one motion state and returns the latched room.
func (l *RoomLatch) Update(s motion.MotionState) string {
	switch {
	case !s.IsRiding:
		l.room = ""
	case l.room == "":
		l.room = s.RoomID
	}
	return l.room
}
