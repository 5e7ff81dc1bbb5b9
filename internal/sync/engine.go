// Package sync keeps the local cache convergent with the backend. Live
// push events do not carry authoritative state into the cache directly;
// they invalidate it, and invalidation is implemented as a refetch through
// the REST boundary.
package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/bus"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/rest"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/store"
)

// Engine ingests live events and refreshes the cache from REST.
type Engine struct {
	db     *store.DB
	rest   *rest.Client
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc

	mu     sync.RWMutex
	active string
	userID string
}

// NewEngine creates a sync engine.
func NewEngine(db *store.DB, restClient *rest.Client, b *bus.Bus, logger *zap.Logger) *Engine {
	return &Engine{
		db:     db,
		rest:   restClient,
		bus:    b,
		logger: logger,
	}
}

// Start subscribes to live push and connectivity events.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	liveCh, unsubLive := e.bus.Subscribe("live.", 256)
	onlineCh, unsubOnline := e.bus.Subscribe(bus.KindTransportOnline, 16)

	go func() {
		defer unsubLive()
		defer unsubOnline()
		for {
			select {
			case evt := <-liveCh:
				if msg, ok := evt.Payload.(bus.LiveMessage); ok {
					e.handleLive(ctx, msg)
				}
			case <-onlineCh:
				// Reconnect may have missed pushes; resync everything.
				if err := e.RefreshAll(ctx); err != nil {
					e.logger.Error("resync after reconnect failed", zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

// SetActive records which conversation the UI is currently viewing and
// refreshes its history so the view starts from fresh data.
func (e *Engine) SetActive(ctx context.Context, conversationID string) error {
	e.mu.Lock()
	e.active = conversationID
	e.mu.Unlock()
	if conversationID == "" {
		return nil
	}
	return e.RefreshMessages(ctx, conversationID)
}

// Active returns the currently viewed conversation id.
func (e *Engine) Active() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

// CurrentUserID returns the authenticated user's id, fetching it on first use.
func (e *Engine) CurrentUserID(ctx context.Context) (string, error) {
	e.mu.RLock()
	id := e.userID
	e.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	user, err := e.rest.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("current user: %w", err)
	}
	e.mu.Lock()
	e.userID = user.UserID
	e.mu.Unlock()
	return user.UserID, nil
}

// RefreshAll refetches contacts and the conversation list.
func (e *Engine) RefreshAll(ctx context.Context) error {
	contacts, err := e.rest.ListContacts(ctx)
	if err != nil {
		return fmt.Errorf("refresh contacts: %w", err)
	}
	cached := make([]store.Contact, 0, len(contacts))
	for _, c := range contacts {
		cached = append(cached, store.Contact{
			UserID:      c.UserID,
			Email:       c.Email,
			FullName:    c.FullName,
			ContactType: c.ContactType,
		})
	}
	if err := e.db.BulkUpsertContacts(cached); err != nil {
		return fmt.Errorf("cache contacts: %w", err)
	}

	return e.RefreshConversations(ctx)
}

// RefreshConversations refetches the conversation list into the cache.
func (e *Engine) RefreshConversations(ctx context.Context) error {
	userID, err := e.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	convs, err := e.rest.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("refresh conversations: %w", err)
	}

	for _, conv := range convs {
		cached := store.Conversation{
			ID:          conv.ID,
			UnreadCount: conv.UnreadCount,
		}
		for _, p := range conv.Participants {
			if p.UserID != userID {
				cached.CounterpartID = p.UserID
				cached.CounterpartName = p.FullName
				break
			}
		}
		if conv.LastMessage != nil {
			cached.LastMessage = conv.LastMessage.Content
			cached.LastMessageAt = conv.LastMessage.CreatedAt.UnixMilli()
		} else {
			cached.LastMessageAt = conv.UpdatedAt.UnixMilli()
		}
		if err := e.db.UpsertConversation(&cached); err != nil {
			return fmt.Errorf("cache conversation %q: %w", conv.ID, err)
		}
	}

	e.bus.Publish(bus.Event{Kind: bus.KindChatListUpdated, Timestamp: time.Now()})
	return nil
}

// RefreshMessages refetches one conversation's full history into the cache.
func (e *Engine) RefreshMessages(ctx context.Context, conversationID string) error {
	msgs, err := e.rest.ListMessages(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("refresh messages: %w", err)
	}

	cached := make([]store.Message, 0, len(msgs))
	for _, m := range msgs {
		cached = append(cached, store.Message{
			ConversationID: conversationID,
			MsgID:          m.ID,
			SenderID:       m.SenderID,
			SenderName:     m.SenderName,
			Body:           m.Content,
			SentAt:         m.CreatedAt.UnixMilli(),
		})
	}
	if err := e.db.ReplaceMessages(conversationID, cached); err != nil {
		return fmt.Errorf("cache messages: %w", err)
	}

	e.bus.Publish(bus.Event{
		Kind:      bus.KindChatInvalidated,
		Timestamp: time.Now(),
		Payload:   conversationID,
	})
	return nil
}

// handleLive applies the invalidation rules for an inbound push: a push
// for the active conversation from someone else invalidates that
// conversation's history; any push invalidates the conversation list for
// unread counts and previews.
func (e *Engine) handleLive(ctx context.Context, msg bus.LiveMessage) {
	userID, err := e.CurrentUserID(ctx)
	if err != nil {
		e.logger.Error("cannot resolve current user for live event", zap.Error(err))
		return
	}

	if msg.ConversationID == e.Active() && msg.SenderID != userID {
		if err := e.RefreshMessages(ctx, msg.ConversationID); err != nil {
			e.logger.Error("history refresh failed",
				zap.String("conversation_id", msg.ConversationID), zap.Error(err))
		}
	}

	if err := e.RefreshConversations(ctx); err != nil {
		e.logger.Error("conversation list refresh failed", zap.Error(err))
	}
}
