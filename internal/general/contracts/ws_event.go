package contracts

import (
	"bytes"
	"encoding/json"
	"errors"
)

// RoomRequest is the payload of join-room and leave-room. Clients may send
// a bare room id string or an object carrying the nickname as well.
type RoomRequest struct {
	RoomID   string `json:"roomId"`
	Nickname string `json:"nickname,omitempty"`
}

var errBadRoomRequest = errors.New("room request must be a string or an object")

// UnmarshalJSON accepts both "room" and {"roomId":"room","nickname":"n"}.
func (r *RoomRequest) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return errBadRoomRequest
	}
	switch b[0] {
	case '"':
		r.Nickname = ""
		return json.Unmarshal(b, &r.RoomID)
	case '{':
		type plain RoomRequest
		var p plain
		if err := json.Unmarshal(b, &p); err != nil {
			return err
		}
		*r = RoomRequest(p)
		return nil
	default:
		return errBadRoomRequest
	}
}

// ChatRequest is the client->server chat-message payload.
type ChatRequest struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

// PresenceNotice is the payload of user-joined and user-left.
type PresenceNotice struct {
	UserID    string `json:"userId"`
	Nickname  string `json:"nickname"`
	Timestamp int64  `json:"timestamp"`
}

// ChatBroadcast is the server->clients chat-message payload.
type ChatBroadcast struct {
	Sender    string `json:"sender"`
	Nickname  string `json:"nickname"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorNotice is sent back to a single client for frames it cannot use.
type ErrorNotice struct {
	Error string `json:"error"`
}
