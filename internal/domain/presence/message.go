package presence

import "fmt"

// Kind classifies a presence transition.
type Kind string

const (
	KindJoined       Kind = "joined"
	KindLeft         Kind = "left"
	KindDisconnected Kind = "disconnected"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindJoined, KindLeft, KindDisconnected:
		return true
	}
	return false
}

// ChatMessage is one entry of a client's display log. System entries are
// presence notices rendered as text ("X joined").
type ChatMessage struct {
	Sender    string `json:"sender"`
	Nickname  string `json:"nickname"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	System    bool   `json:"system"`
}

// Notice renders a presence transition as a system ChatMessage.
func Notice(kind Kind, userID, nickname string, timestamp int64) ChatMessage {
	verb := "joined"
	if kind != KindJoined {
		verb = "left"
	}
	return ChatMessage{
		Sender:    userID,
		Nickname:  nickname,
		Message:   fmt.Sprintf("%s %s", nickname, verb),
		Timestamp: timestamp,
		System:    true,
	}
}
