// Package reconcile builds the render-ready views of the chat data: one
// ordered message list per conversation, and the categorized chat list.
// Views are derived on every call from the local cache plus the outbox's
// pending entries; nothing here is persisted.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/outbox"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/store"
)

// Chat list categories.
const (
	CategoryTenants     = "Tenants"
	CategoryProviders   = "Service Providers"
	CategoryMaintenance = "Maintenance Requests"
	CategoryLeads       = "Leads"
)

const (
	StatusActive  = "Active"
	StatusOffline = "Offline"
)

const timeLayout = "3:04 PM"

// Message is one rendered message bubble.
type Message struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
	Time       string `json:"time"`
	IsPending  bool   `json:"isPending"`
}

// Chat is one rendered conversation list entry.
type Chat struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	LastMessage string `json:"lastMessage"`
	Time        string `json:"time"`
	UnreadCount int    `json:"unreadCount"`
	IsPinned    bool   `json:"isPinned"`
}

// PendingSource exposes the outbox entries that have not reached the server.
type PendingSource interface {
	PendingFor(conversationID string) []outbox.QueuedMessage
}

// Connectivity reports whether the live transport is currently usable.
type Connectivity interface {
	Connected() bool
}

// Identity resolves the authenticated user.
type Identity interface {
	CurrentUserID(ctx context.Context) (string, error)
}

// Reconciler merges cached history with pending outbox entries and derives
// the categorized chat list.
type Reconciler struct {
	db      *store.DB
	pending PendingSource
	conn    Connectivity
	id      Identity

	mu          sync.Mutex
	pendingChat *Chat
}

// New creates a reconciler over the given sources.
func New(db *store.DB, pending PendingSource, conn Connectivity, id Identity) *Reconciler {
	return &Reconciler{db: db, pending: pending, conn: conn, id: id}
}

// Messages returns the ordered render list for one conversation: the cached
// server history oldest first, then any still-pending outbox entries in
// insertion order.
func (r *Reconciler) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	userID, err := r.id.CurrentUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve current user: %w", err)
	}

	history, err := r.db.ListMessages(conversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	out := make([]Message, 0, len(history))
	for _, m := range history {
		senderID := m.SenderID
		if senderID == userID {
			senderID = "me"
		}
		out = append(out, Message{
			ID:         m.MsgID,
			SenderID:   senderID,
			SenderName: m.SenderName,
			Text:       m.Body,
			Time:       formatTime(m.SentAt),
		})
	}

	for _, q := range r.pending.PendingFor(conversationID) {
		id := q.ID
		if id == "" {
			id = pendingID(conversationID, q.Content)
		}
		out = append(out, Message{
			ID:        id,
			SenderID:  "me",
			Text:      q.Content,
			IsPending: true,
		})
	}
	return out, nil
}

// Chats returns the visible chat list for one category. The filter matches
// case-insensitively against chat name or last-message text, and pinned
// chats sort first with relative order otherwise preserved.
func (r *Reconciler) Chats(ctx context.Context, category, filter string) ([]Chat, error) {
	if category == "" {
		category = CategoryLeads
	}

	convs, err := r.db.ListConversations()
	if err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}

	chats := make([]Chat, 0, len(convs))
	for _, c := range convs {
		chat := Chat{
			ID:          c.ID,
			Name:        c.CounterpartName,
			Category:    r.categoryOf(c.CounterpartID),
			Status:      r.status(),
			LastMessage: c.LastMessage,
			Time:        formatTime(c.LastMessageAt),
			UnreadCount: c.UnreadCount,
			IsPinned:    c.Pinned,
		}
		if chat.Name == "" {
			if contact, err := r.db.GetContact(c.CounterpartID); err == nil && contact != nil {
				chat.Name = contact.FullName
			}
		}
		chats = append(chats, chat)
	}

	if override := r.resolvePendingChat(chats); override != nil {
		override.Status = r.status()
		chats = append([]Chat{*override}, chats...)
	}

	visible := chats[:0]
	for _, chat := range chats {
		if chat.Category != category {
			continue
		}
		if !matchesFilter(chat, filter) {
			continue
		}
		visible = append(visible, chat)
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].IsPinned && !visible[j].IsPinned
	})
	return visible, nil
}

// SetPendingChat installs the transient entry for a locally created
// conversation that the server has not confirmed yet.
func (r *Reconciler) SetPendingChat(chat Chat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingChat = &chat
}

// ClearPendingChat drops the override.
func (r *Reconciler) ClearPendingChat() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingChat = nil
}

// resolvePendingChat returns the override to display, discarding it
// permanently once the server-confirmed list contains the same id.
func (r *Reconciler) resolvePendingChat(confirmed []Chat) *Chat {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pendingChat == nil {
		return nil
	}
	for _, c := range confirmed {
		if c.ID == r.pendingChat.ID {
			r.pendingChat = nil
			return nil
		}
	}
	cp := *r.pendingChat
	return &cp
}

func (r *Reconciler) categoryOf(counterpartID string) string {
	contact, err := r.db.GetContact(counterpartID)
	if err != nil || contact == nil {
		return CategoryLeads
	}
	return CategoryFor(contact.ContactType)
}

// CategoryFor maps a contact type to its chat list category. Unrecognized
// types file under Leads.
func CategoryFor(contactType string) string {
	switch contactType {
	case "TENANT":
		return CategoryTenants
	case "SERVICE_PROVIDER":
		return CategoryProviders
	case "MAINTENANCE":
		return CategoryMaintenance
	default:
		return CategoryLeads
	}
}

func (r *Reconciler) status() string {
	if r.conn.Connected() {
		return StatusActive
	}
	return StatusOffline
}

func matchesFilter(chat Chat, filter string) bool {
	if filter == "" {
		return true
	}
	needle := strings.ToLower(filter)
	return strings.Contains(strings.ToLower(chat.Name), needle) ||
		strings.Contains(strings.ToLower(chat.LastMessage), needle)
}

func formatTime(unixMilli int64) string {
	if unixMilli == 0 {
		return ""
	}
	return time.UnixMilli(unixMilli).Local().Format(timeLayout)
}

func pendingID(conversationID, content string) string {
	prefix := content
	if len(prefix) > 16 {
		prefix = prefix[:16]
	}
	return fmt.Sprintf("pending:%s:%s", conversationID, prefix)
}
