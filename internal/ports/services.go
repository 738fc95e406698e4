package ports

import (
	"context"
	"errors"
	"time"

	"train-chat/internal/general/contracts"
)

// ----- Gateway -----

// Conn is the gateway's view of one client connection.
type Conn interface {
	ID() string
	// Send queues a frame without blocking and reports whether it was accepted.
	Send(frame []byte) bool
}

// Gateway is what the WebSocket transport drives for each connection.
type Gateway interface {
	Connect(ctx context.Context, conn Conn) error
	Dispatch(ctx context.Context, conn Conn, raw []byte) error
	Disconnect(ctx context.Context, connID string)
}


// PresencePublisher receives every membership transition the gateway
// makes. Implementations must not block the caller.
type PresencePublisher interface {
	Publish(ctx context.Context, msg contracts.PresenceMessage)
}

// MessagePublisher sends a raw body to a broker exchange.
type MessagePublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// ErrPoisonMessage marks a message that can never be processed, such as an
// undecodable or invalid body. Consumers drop it; any other handler error
// sends the message back to the queue.
var ErrPoisonMessage = errors.New("message cannot be processed")

// QueueConsumer reads a broker queue. A nil handler result acks the
// message; see ErrPoisonMessage for errors.
type QueueConsumer interface {
	Consume(ctx context.Context, queue, tag string, prefetch int, handler func(ctx context.Context, body []byte) error) error
}

// ---------------------------------------------------------------------------------------------------------------

// ----- DTOs for Admin Service -----

// RoomMember is one live member of a room.
type RoomMember struct {
	ConnectionID string `json:"connection_id"`
	Nickname     string `json:"nickname"`
}

// RoomOccupancy is a live room with its members.
type RoomOccupancy struct {
	RoomID  string       `json:"room_id"`
	Count   int          `json:"count"`
	Members []RoomMember `json:"members"`
}

// RoomsResult is returned by AdminService.ListRooms().
type RoomsResult struct {
	Timestamp  time.Time       `json:"timestamp"`
	TotalRooms int             `json:"total_rooms"`
	TotalUsers int             `json:"total_users"`
	Rooms      []RoomOccupancy `json:"rooms"`
}

// PresenceEventRow is one journal entry as exposed over HTTP.
type PresenceEventRow struct {
	ID           int64     `json:"id"`
	Kind         string    `json:"kind"`
	ConnectionID string    `json:"connection_id"`
	Nickname     string    `json:"nickname"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// RoomEventsResult is returned by AdminService.RoomEvents().
type RoomEventsResult struct {
	RoomID string             `json:"room_id"`
	Events []PresenceEventRow `json:"events"`
}

// ----- Admin Service Interface -----

// AdminService records presence events and serves the read models.
type AdminService interface {
	RecordPresence(ctx context.Context, msg contracts.PresenceMessage) error
	ListRooms(ctx context.Context) (RoomsResult, error)
	RoomEvents(ctx context.Context, roomID, limit string) (RoomEventsResult, error)
	RunBackgroundConsumer(ctx context.Context) error
}
