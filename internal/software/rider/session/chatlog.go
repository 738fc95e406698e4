package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"train-chat/internal/domain/presence"
	"train-chat/internal/general/contracts"
)

// DefaultLogSize is how many entries a ChatLog keeps.
const DefaultLogSize = 500

// ChatLog is the rider's ordered display log for the current room.
type ChatLog struct {
	mu      sync.Mutex
	entries []presence.ChatMessage
	max     int
}

func NewChatLog(max int) *ChatLog {
	if max < 1 {
		max = DefaultLogSize
	}
	return &ChatLog{max: max}
}

// Apply appends the entry a server frame stands for. Frames that are
// not chat or presence events are ignored and reported with ok=false.
func (l *ChatLog) Apply(f contracts.Frame) (entry presence.ChatMessage, ok bool, err error) {
	switch f.Type {
	case contracts.EventChatMessage:
		var m contracts.ChatBroadcast
		if err := json.Unmarshal(f.Data, &m); err != nil {
			return entry, false, fmt.Errorf("decode %s: %w", f.Type, err)
		}
		entry = presence.ChatMessage{Sender: m.Sender, Nickname: m.Nickname, Message: m.Message, Timestamp: m.Timestamp}

	case contracts.EventUserJoined, contracts.EventUserLeft:
		var n contracts.PresenceNotice
		if err := json.Unmarshal(f.Data, &n); err != nil {
			return entry, false, fmt.Errorf("decode %s: %w", f.Type, err)
		}
		kind := presence.KindJoined
		if f.Type == contracts.EventUserLeft {
			kind = presence.KindLeft
		}
		entry = presence.Notice(kind, n.UserID, n.Nickname, n.Timestamp)

	default:
		return entry, false, nil
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if over := len(l.entries) - l.max; over > 0 {
		l.entries = append(l.entries[:0:0], l.entries[over:]...)
	}
	l.mu.Unlock()
	return entry, true, nil
}

// Entries returns a copy of the log, oldest first.
func (l *ChatLog) Entries() []presence.ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]presence.ChatMessage(nil), l.entries...)
}

// Reset empties the log, e.g. when the rider leaves the room.
func (l *ChatLog) Reset() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}
