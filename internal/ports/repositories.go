package ports

import (
	"context"

	"train-chat/internal/domain/presence"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PresenceEventRepository appends and reads the presence journal.
type PresenceEventRepository interface {
	Append(ctx context.Context, e *presence.Event) error
	ListByRoom(ctx context.Context, roomID string, limit int) ([]presence.Event, error)
}

// RosterStore mirrors live room membership for the dashboard.
type RosterStore interface {
	Join(ctx context.Context, roomID, connectionID, nickname string) error
	Leave(ctx context.Context, roomID, connectionID string) error
	Rooms(ctx context.Context) ([]RoomOccupancy, error)
}
