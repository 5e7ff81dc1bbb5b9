package store

// Conversation is a locally cached conversation.
type Conversation struct {
	ID              string
	CounterpartID   string
	CounterpartName string
	LastMessage     string
	LastMessageAt   int64
	UnreadCount     int
	Pinned          bool
}

// Message is a locally cached server-confirmed message.
type Message struct {
	ID             int64
	ConversationID string
	MsgID          string
	SenderID       string
	SenderName     string
	Body           string
	SentAt         int64
}

// Contact is a cached contact directory entry.
type Contact struct {
	UserID      string
	Email       string
	FullName    string
	ContactType string
}
