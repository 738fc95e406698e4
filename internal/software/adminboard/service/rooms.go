package service

import (
	"context"
	"strconv"
	"strings"

	"train-chat/internal/domain/presence"
	"train-chat/internal/ports"
)

// ListRooms reports live occupancy from the roster mirror.
func (s *adminService) ListRooms(ctx context.Context) (ports.RoomsResult, error) {
	rooms, err := s.roster.Rooms(ctx)
	if err != nil {
		return ports.RoomsResult{}, err
	}

	res := ports.RoomsResult{
		Timestamp:  s.now().UTC(),
		TotalRooms: len(rooms),
		Rooms:      rooms,
	}
	for _, r := range rooms {
		res.TotalUsers += r.Count
	}
	if res.Rooms == nil {
		res.Rooms = []ports.RoomOccupancy{}
	}
	return res, nil
}

// RoomEvents returns the newest journal entries of a room. An empty limit
// means DefaultEventsLimit.
func (s *adminService) RoomEvents(ctx context.Context, roomID, limit string) (ports.RoomEventsResult, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return ports.RoomEventsResult{}, presence.ErrEmptyRoomID
	}

	n := DefaultEventsLimit
	if limit = strings.TrimSpace(limit); limit != "" {
		v, err := strconv.Atoi(limit)
		if err != nil || v < 1 {
			return ports.RoomEventsResult{}, ErrInvalidLimit
		}
		n = v
	}

	events, err := s.events.ListByRoom(ctx, roomID, n)
	if err != nil {
		return ports.RoomEventsResult{}, err
	}

	res := ports.RoomEventsResult{RoomID: roomID, Events: make([]ports.PresenceEventRow, 0, len(events))}
	for _, e := range events {
		res.Events = append(res.Events, ports.PresenceEventRow{
			ID:           e.ID,
			Kind:         string(e.Kind),
			ConnectionID: e.ConnectionID,
			Nickname:     e.Nickname,
			OccurredAt:   e.OccurredAt,
		})
	}
	return res, nil
}
