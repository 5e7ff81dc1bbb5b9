package rest

import "time"

// Participant is one member of a conversation.
type Participant struct {
	UserID   string `json:"userId"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// Conversation is a server-side conversation record.
type Conversation struct {
	ID           string         `json:"id"`
	Participants []Participant  `json:"participants"`
	LastMessage  *MessageRecord `json:"lastMessage,omitempty"`
	UnreadCount  int            `json:"unreadCount"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// MessageRecord is a server-confirmed message, ordered oldest-first
// in history responses.
type MessageRecord struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	SenderName     string    `json:"senderName"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Contact is a directory entry used for category derivation and
// display-name fallback.
type Contact struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	FullName    string `json:"fullName"`
	ContactType string `json:"contactType"`
}

// User identifies the authenticated user.
type User struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// CreateConversationRequest starts a new conversation with a counterpart.
type CreateConversationRequest struct {
	ParticipantUserID   string `json:"participantUserId"`
	ParticipantEmail    string `json:"participantEmail,omitempty"`
	ParticipantFullName string `json:"participantFullName,omitempty"`
}

type tokenResponse struct {
	Token string `json:"token"`
}
