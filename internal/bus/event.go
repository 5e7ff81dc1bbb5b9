package bus

import "time"

// Event kinds published by the engine. Subscribers filter by namespace
// prefix, e.g. "transport." matches both online and offline.
const (
	KindTransportOnline  = "transport.online"
	KindTransportOffline = "transport.offline"
	KindLiveMessage      = "live.message"
	KindMessageQueued    = "message.queued"
	KindMessageFlushed   = "message.flushed"
	KindChatInvalidated  = "chat.invalidated"
	KindChatListUpdated  = "chatlist.updated"
	KindToastShown       = "toast.shown"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// LiveMessage is the payload for live.message events: an inbound push
// from the live transport, before any store ingestion.
type LiveMessage struct {
	ConversationID string
	MessageID      string
	SenderID       string
	SenderName     string
	Content        string
	SentAt         time.Time
}
