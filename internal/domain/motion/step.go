package motion

import "train-chat/internal/domain/geo"

// Step computes the motion state for a new sample. prev is the
// immediately preceding sample (nil for the first one); deltas are never
// taken against anything older. The caller stores sample as the next prev.
func Step(prev *PositionSample, rs RideState, sample PositionSample, p Params) (MotionState, RideState) {
	var speed, heading float64

	if prev != nil {
		dt := float64(sample.TimestampMs-prev.TimestampMs) / 1000
		dist := geo.DistanceMeters(prev.Point(), sample.Point())
		// duplicate or reordered timestamps carry no speed information
		if dt > 0 {
			speed = dist / dt
		}
		if dist > 0 {
			heading = geo.BearingDegrees(prev.Point(), sample.Point())
		}
	}

	next := Advance(rs, speed, sample.TimestampMs, p)

	return MotionState{
		Lat:        sample.Lat,
		Lng:        sample.Lng,
		SpeedMps:   speed,
		HeadingDeg: heading,
		RoomID:     RoomID(sample.Lat, sample.Lng, heading, p.GeohashPrecision),
		IsRiding:   next.IsRiding(),
	}, next
}
