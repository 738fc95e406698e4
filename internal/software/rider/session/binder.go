// Package session keeps the rider's room membership and nickname in step
// with the gateway over a single long-lived connection.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"train-chat/internal/general/contracts"
	"train-chat/internal/general/logger"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrNoRoom       = errors.New("not in a room")
)

// Emitter sends one event over the connection. It must not block on the
// network for long; a failure means the event is lost.
type Emitter interface {
	Emit(eventType string, payload any) error
}

// Binder turns nickname and room changes into paired join/leave events.
// Emission is synchronous and never retried; a failed emit is logged and
// the local state still moves on. Resync re-sends the current binding.
type Binder struct {
	mu       sync.Mutex
	emitter  Emitter
	logger   *logger.Logger
	nickname string
	roomID   string
}

// NewBinder binds to emitter for the lifetime of the process.
func NewBinder(emitter Emitter, log *logger.Logger) *Binder {
	return &Binder{emitter: emitter, logger: log}
}

// Nickname returns the current nickname.
func (b *Binder) Nickname() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nickname
}

// Room returns the joined room, or "" when outside any room.
func (b *Binder) Room() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.roomID
}

// SetNickname announces nick. When already in a room the membership is
// cycled so the other members only ever see the current name.
func (b *Binder) SetNickname(ctx context.Context, nick string) {
	nick = strings.TrimSpace(nick)
	if nick == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if nick == b.nickname {
		return
	}
	old := b.nickname
	if b.roomID != "" {
		b.emit(ctx, contracts.EventLeaveRoom, contracts.RoomRequest{RoomID: b.roomID, Nickname: old})
	}
	b.nickname = nick
	b.emit(ctx, contracts.EventSetNickname, nick)
	if b.roomID != "" {
		b.emit(ctx, contracts.EventJoinRoom, contracts.RoomRequest{RoomID: b.roomID, Nickname: nick})
	}
}

// SetRoom moves to roomID. An empty roomID leaves the current room.
func (b *Binder) SetRoom(ctx context.Context, roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if roomID == b.roomID {
		return
	}
	if b.roomID != "" {
		b.emit(ctx, contracts.EventLeaveRoom, contracts.RoomRequest{RoomID: b.roomID, Nickname: b.nickname})
	}
	b.roomID = roomID
	if roomID != "" {
		b.emit(ctx, contracts.EventJoinRoom, contracts.RoomRequest{RoomID: roomID, Nickname: b.nickname})
	}
}

// Close leaves the current room, if any.
func (b *Binder) Close(ctx context.Context) {
	b.SetRoom(ctx, "")
}

// Resync re-sends the nickname and the room join. Both are idempotent at
// the gateway, so it is safe after every reconnect.
func (b *Binder) Resync(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.nickname != "" {
		b.emit(ctx, contracts.EventSetNickname, b.nickname)
	}
	if b.roomID != "" {
		b.emit(ctx, contracts.EventJoinRoom, contracts.RoomRequest{RoomID: b.roomID, Nickname: b.nickname})
	}
}

// Send posts text to the current room after trimming it.
func (b *Binder) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.roomID == "" {
		return ErrNoRoom
	}
	return b.emitter.Emit(contracts.EventChatMessage, contracts.ChatRequest{RoomID: b.roomID, Message: text})
}

func (b *Binder) emit(ctx context.Context, eventType string, payload any) {
	if err := b.emitter.Emit(eventType, payload); err != nil {
		b.logger.Warn(ctx, "emit_dropped", "Event dropped, transport unavailable", map[string]any{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}
