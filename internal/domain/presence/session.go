// Package presence holds the server-side view of a connected chat user
// and the chat message entity shared with clients.
package presence

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// FallbackNicknameLen is how many characters of the connection id stand in
// for a nickname that was never set.
const FallbackNicknameLen = 4

var (
	ErrEmptyMessage     = errors.New("message is empty")
	ErrMessageTooLong   = errors.New("message is too long")
	ErrEmptyRoomID      = errors.New("room id is empty")
	ErrEmptyNickname    = errors.New("nickname is empty")
	ErrUnknownSession   = errors.New("unknown connection")
	ErrDuplicateSession = errors.New("connection already registered")
)

// Session is the per-connection record. RoomID is empty when the
// connection is not in any room.
type Session struct {
	ConnectionID string
	Nickname     string
	RoomID       string
}

// DisplayName returns the bound nickname, or the fallback derived from the
// connection id so a message is never unattributable.
func (s Session) DisplayName() string {
	if s.Nickname != "" {
		return s.Nickname
	}
	return FallbackNickname(s.ConnectionID)
}

// InRoom reports whether the session is currently a member of roomID.
func (s Session) InRoom(roomID string) bool {
	return s.RoomID != "" && s.RoomID == roomID
}

// FallbackNickname returns the first FallbackNicknameLen characters of id.
func FallbackNickname(id string) string {
	if utf8.RuneCountInString(id) <= FallbackNicknameLen {
		return id
	}
	return string([]rune(id)[:FallbackNicknameLen])
}

// NormalizeMessage trims text and enforces 1..maxChars characters.
// maxChars <= 0 disables the upper bound.
func NormalizeMessage(text string, maxChars int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if maxChars > 0 && utf8.RuneCountInString(text) > maxChars {
		return "", ErrMessageTooLong
	}
	return text, nil
}

// NormalizeNickname trims a nickname and rejects blanks.
func NormalizeNickname(nick string) (string, error) {
	nick = strings.TrimSpace(nick)
	if nick == "" {
		return "", ErrEmptyNickname
	}
	return nick, nil
}
