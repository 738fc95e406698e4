package contracts

// WebSocket event types
const (
	EventSetNickname = "set-nickname"
	EventJoinRoom    = "join-room"
	EventLeaveRoom   = "leave-room"
	EventChatMessage = "chat-message"
	EventUserJoined  = "user-joined"
	EventUserLeft    = "user-left"
	EventError       = "error"
)

// Exchanges
const (
	ExchangePresenceFanout = "presence_fanout"
)

// Queues
const (
	QueuePresenceEvents = "presence_events"
)
