package contracts

import "time"

// PresenceMessage is published by the gateway on ExchangePresenceFanout for
// every membership transition. Chat content is never published.
type PresenceMessage struct {
	Kind         string    `json:"kind"` // joined|left|disconnected
	RoomID       string    `json:"room_id"`
	ConnectionID string    `json:"connection_id"`
	Nickname     string    `json:"nickname"`
	Timestamp    time.Time `json:"timestamp"`
	Envelope
}
