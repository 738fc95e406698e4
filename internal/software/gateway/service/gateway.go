package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"train-chat/internal/domain/presence"
	"train-chat/internal/general/contracts"
	"train-chat/internal/general/logger"
	"train-chat/internal/ports"
)

// Options tunes a Gateway. Zero values are replaced with defaults.
type Options struct {
	MaxMessageChars int
	Presence        ports.PresencePublisher
	Now             func() time.Time
}

type member struct {
	session presence.Session
	conn    ports.Conn
}

// Gateway owns the session table and the room index. One mutex guards
// both and is held across every broadcast.
type Gateway struct {
	mu       sync.Mutex
	sessions map[string]*member
	rooms    map[string]map[string]*member

	logger   *logger.Logger
	presence ports.PresencePublisher
	now      func() time.Time
	maxChars int
}

// NewGateway creates an empty gateway.
func NewGateway(logger *logger.Logger, opts Options) *Gateway {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxMessageChars <= 0 {
		opts.MaxMessageChars = 1000
	}
	return &Gateway{
		sessions: make(map[string]*member),
		rooms:    make(map[string]map[string]*member),
		logger:   logger,
		presence: opts.Presence,
		now:      opts.Now,
		maxChars: opts.MaxMessageChars,
	}
}

// Connect creates the session for a new connection.
func (g *Gateway) Connect(ctx context.Context, conn ports.Conn) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := conn.ID()
	if _, ok := g.sessions[id]; ok {
		return presence.ErrDuplicateSession
	}
	g.sessions[id] = &member{session: presence.Session{ConnectionID: id}, conn: conn}
	g.logger.Info(ctx, "user_connected", "A user connected", map[string]any{"sessions": len(g.sessions)})
	return nil
}

// SetNickname binds nick to the connection.
func (g *Gateway) SetNickname(ctx context.Context, connID, nick string) error {
	nick, err := presence.NormalizeNickname(nick)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.sessions[connID]
	if !ok {
		return presence.ErrUnknownSession
	}
	m.session.Nickname = nick
	g.logger.Info(ctx, "nickname_set", "Connection is now known as "+nick, nil)
	return nil
}

// JoinRoom adds the connection to roomID and tells the other members.
// A non-empty nick rebinds the nickname for the new membership. Joining the current room
// again changes nothing; joining another room leaves the current one first.
func (g *Gateway) JoinRoom(ctx context.Context, connID, roomID, nick string) error {
	if roomID == "" {
		return presence.ErrEmptyRoomID
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.sessions[connID]
	if !ok {
		return presence.ErrUnknownSession
	}
	if m.session.RoomID != "" && !m.session.InRoom(roomID) {
		g.leaveLocked(ctx, m, m.session.DisplayName(), presence.KindLeft)
	}
	// the old room heard the old name; rebind only now
	if n, err := presence.NormalizeNickname(nick); err == nil {
		m.session.Nickname = n
	}
	if m.session.InRoom(roomID) {
		return nil
	}

	room, ok := g.rooms[roomID]
	if !ok {
		room = make(map[string]*member)
		g.rooms[roomID] = room
	}
	room[connID] = m
	m.session.RoomID = roomID

	name := m.session.DisplayName()
	ts := g.now()
	g.broadcastLocked(ctx, roomID, connID, contracts.EventUserJoined, contracts.PresenceNotice{
		UserID:    connID,
		Nickname:  name,
		Timestamp: ts.UnixMilli(),
	})
	g.publish(ctx, presence.KindJoined, roomID, connID, name, ts)

	g.logger.Info(g.logger.WithRoomID(ctx, roomID), "room_joined", name+" joined", map[string]any{"members": len(room)})
	return nil
}

// LeaveRoom removes the connection from roomID and tells the remaining
// members. Leaving a room the connection is not in is a no-op. A
// non-empty nick is used as the name in the notice.
func (g *Gateway) LeaveRoom(ctx context.Context, connID, roomID, nick string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.sessions[connID]
	if !ok {
		return presence.ErrUnknownSession
	}
	if !m.session.InRoom(roomID) {
		return nil
	}

	name := m.session.DisplayName()
	if n, err := presence.NormalizeNickname(nick); err == nil {
		name = n
	}
	g.leaveLocked(ctx, m, name, presence.KindLeft)
	return nil
}

// ChatMessage delivers text to every member of roomID, sender included.
// Empty text, oversized text, and rooms the sender has not joined are dropped.
func (g *Gateway) ChatMessage(ctx context.Context, connID, roomID, text string) error {
	text, err := presence.NormalizeMessage(text, g.maxChars)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.sessions[connID]
	if !ok {
		return presence.ErrUnknownSession
	}
	if !m.session.InRoom(roomID) {
		return ErrNotInRoom
	}

	name := m.session.DisplayName()
	g.broadcastLocked(ctx, roomID, "", contracts.EventChatMessage, contracts.ChatBroadcast{
		Sender:    connID,
		Nickname:  name,
		Message:   text,
		Timestamp: g.now().UnixMilli(),
	})
	g.logger.Debug(g.logger.WithRoomID(ctx, roomID), "chat_message", name+" sent a message", map[string]any{"chars": len([]rune(text))})
	return nil
}

// Disconnect tears down the session. The nickname is resolved before the
// record is removed, and the remaining room members get a user-left.
// Calling it twice for one connection is harmless.
func (g *Gateway) Disconnect(ctx context.Context, connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.sessions[connID]
	if !ok {
		return
	}
	g.disconnectLocked(ctx, m)
}

// DisconnectAll tears down every remaining session, announcing each
// implicit leave, and reports how many were closed. It is the shutdown
// path for connections whose transport did not clean up in time.
func (g *Gateway) DisconnectAll(ctx context.Context) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for _, m := range g.sessions {
		g.disconnectLocked(ctx, m)
		n++
	}
	return n
}

// disconnectLocked resolves the name before the record goes away. g.mu must be held.
func (g *Gateway) disconnectLocked(ctx context.Context, m *member) {
	name := m.session.DisplayName()
	if m.session.RoomID != "" {
		g.leaveLocked(ctx, m, name, presence.KindDisconnected)
	}
	delete(g.sessions, m.session.ConnectionID)

	g.logger.Info(g.logger.WithConnID(ctx, m.session.ConnectionID), "user_disconnected", name+" disconnected", map[string]any{"sessions": len(g.sessions)})
}

// Session returns a copy of the session record.
func (g *Gateway) Session(connID string) (presence.Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.sessions[connID]
	if !ok {
		return presence.Session{}, false
	}
	return m.session, true
}

// Members returns the sorted connection ids in roomID.
func (g *Gateway) Members(roomID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.rooms[roomID]))
	for id := range g.rooms[roomID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stats returns the number of sessions and non-empty rooms.
func (g *Gateway) Stats() (sessions, rooms int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions), len(g.rooms)
}

// leaveLocked removes m from its room and notifies the rest. g.mu must be held.
func (g *Gateway) leaveLocked(ctx context.Context, m *member, name string, kind presence.Kind) {
	roomID := m.session.RoomID
	connID := m.session.ConnectionID

	if room, ok := g.rooms[roomID]; ok {
		delete(room, connID)
		if len(room) == 0 {
			delete(g.rooms, roomID)
		}
	}
	m.session.RoomID = ""

	ts := g.now()
	g.broadcastLocked(ctx, roomID, connID, contracts.EventUserLeft, contracts.PresenceNotice{
		UserID:    connID,
		Nickname:  name,
		Timestamp: ts.UnixMilli(),
	})
	g.publish(ctx, kind, roomID, connID, name, ts)

	g.logger.Info(g.logger.WithRoomID(ctx, roomID), "room_left", name+" left", map[string]any{"reason": string(kind)})
}

// broadcastLocked sends one frame to every member of roomID except
// exclude. A receiver whose queue is full misses the frame; the loop
// carries on. g.mu must be held.
func (g *Gateway) broadcastLocked(ctx context.Context, roomID, exclude, eventType string, payload any) {
	frame, err := contracts.EncodeFrame(eventType, payload)
	if err != nil {
		g.logger.Error(ctx, "frame_encode_failed", "Failed to encode broadcast frame", err, map[string]any{"type": eventType})
		return
	}
	for id, m := range g.rooms[roomID] {
		if id == exclude {
			continue
		}
		if !m.conn.Send(frame) {
			g.logger.Warn(ctx, "ws_send_dropped", "Receiver queue full, frame dropped", map[string]any{
				"receiver": id,
				"type":     eventType,
			})
		}
	}
}

func (g *Gateway) publish(ctx context.Context, kind presence.Kind, roomID, connID, name string, at time.Time) {
	if g.presence == nil {
		return
	}
	g.presence.Publish(ctx, contracts.PresenceMessage{
		Kind:         string(kind),
		RoomID:       roomID,
		ConnectionID: connID,
		Nickname:     name,
		Timestamp:    at.UTC(),
	})
}
