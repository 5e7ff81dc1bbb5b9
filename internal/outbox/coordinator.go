package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/bus"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/toast"
)

// Sender is the capability the coordinator needs from the live transport:
// a fire-and-forget send with a synchronous success/failure signal and a
// connectivity flag. Any transport satisfying this is swappable.
type Sender interface {
	Send(conversationID, content string) bool
	Connected() bool
}

// Coordinator decides, per outgoing message, whether to hand it to the
// transport immediately or queue it for the next reconnect, and flushes
// the queue exactly once per offline→online transition.
type Coordinator struct {
	mu    sync.Mutex
	queue []QueuedMessage

	store  *FileStore
	sender Sender
	bus    *bus.Bus
	toasts *toast.Notifier
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewCoordinator creates a coordinator seeded from the persisted queue.
func NewCoordinator(store *FileStore, sender Sender, b *bus.Bus, toasts *toast.Notifier, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		queue:  store.Load(),
		store:  store,
		sender: sender,
		bus:    b,
		toasts: toasts,
		logger: logger,
	}
}

// Start subscribes to transport.online events; each one triggers a flush
// when the queue is non-empty at that instant.
func (c *Coordinator) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	ch, unsub := c.bus.Subscribe(bus.KindTransportOnline, 16)

	go func() {
		defer unsub()
		for {
			select {
			case <-ch:
				c.Flush()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the flush listener.
func (c *Coordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// TrySend hands the message directly to the transport. On failure (or while
// disconnected) the message is queued and false is returned; the caller
// treats both outcomes as accepted.
func (c *Coordinator) TrySend(conversationID, content string) bool {
	if c.sender.Connected() && c.sender.Send(conversationID, content) {
		return true
	}
	c.Enqueue(conversationID, content)
	if c.toasts != nil {
		c.toasts.ShowInfo("Message saved, will send when back online")
	}
	return false
}

// Enqueue unconditionally appends a message to the queue, independent of
// transport state.
func (c *Coordinator) Enqueue(conversationID, content string) {
	msg := QueuedMessage{
		ConversationID: conversationID,
		Content:        content,
		ID:             uuid.NewString(),
	}

	c.mu.Lock()
	c.queue = append(c.queue, msg)
	c.store.Save(c.queue)
	c.mu.Unlock()

	c.logger.Info("message queued",
		zap.String("conversation_id", conversationID),
		zap.String("queued_id", msg.ID))
	c.bus.Publish(bus.Event{Kind: bus.KindMessageQueued, Timestamp: time.Now(), Payload: msg})
}

// Flush resubmits every queued message through the transport in insertion
// order. The queue is cleared before resubmission, so an enqueue racing the
// flush is neither lost nor sent twice. Hand-off is terminal: a send that
// fails during flush is not re-queued. That keeps flush idempotent per
// reconnect at the cost of best-effort delivery.
func (c *Coordinator) Flush() {
	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		return
	}
	snapshot := c.queue
	c.queue = nil
	c.store.Save(nil)
	c.mu.Unlock()

	for _, msg := range snapshot {
		if !c.sender.Send(msg.ConversationID, msg.Content) {
			c.logger.Warn("flush send failed, message dropped",
				zap.String("conversation_id", msg.ConversationID),
				zap.String("queued_id", msg.ID))
			continue
		}
		c.bus.Publish(bus.Event{Kind: bus.KindMessageFlushed, Timestamp: time.Now(), Payload: msg})
	}
	c.logger.Info("outbox flushed", zap.Int("count", len(snapshot)))
}

// PendingFor returns the queued messages for one conversation, in insertion
// order. Read-only; used by the reconciler for rendering.
func (c *Coordinator) PendingFor(conversationID string) []QueuedMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var pending []QueuedMessage
	for _, msg := range c.queue {
		if msg.ConversationID == conversationID {
			pending = append(pending, msg)
		}
	}
	return pending
}

// PendingCount returns the total number of queued messages.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
