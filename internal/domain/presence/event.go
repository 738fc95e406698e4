package presence

import (
	"errors"
	"strings"
	"time"
)

// Event is the domain entity corresponding to the `presence_events` table.
type Event struct {
	ID           int64
	Kind         Kind
	RoomID       string
	ConnectionID string
	Nickname     string
	OccurredAt   time.Time
	// MessageID is the broker message the event arrived in, if any. A
	// redelivered message carries the same id.
	MessageID string
}

var (
	ErrInvalidKind          = errors.New("invalid presence kind")
	ErrConnectionIDRequired = errors.New("connection id is required")
	ErrOccurredAtZero       = errors.New("occurred_at must be a valid timestamp")
	ErrDuplicateEvent       = errors.New("presence event already recorded")
)

// NewEvent constructs a validated presence Event.
func NewEvent(kind Kind, roomID, connectionID, nickname string, at time.Time) (*Event, error) {
	e := &Event{
		Kind:         kind,
		RoomID:       strings.TrimSpace(roomID),
		ConnectionID: strings.TrimSpace(connectionID),
		Nickname:     strings.TrimSpace(nickname),
		OccurredAt:   at.UTC(),
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate mirrors the table constraints.
func (e *Event) Validate() error {
	if !e.Kind.Valid() {
		return ErrInvalidKind
	}
	if e.RoomID == "" {
		return ErrEmptyRoomID
	}
	if e.ConnectionID == "" {
		return ErrConnectionIDRequired
	}
	if e.OccurredAt.IsZero() {
		return ErrOccurredAtZero
	}
	return nil
}
