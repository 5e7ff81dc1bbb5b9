// Package toast is the process-wide, single-slot user-facing notification
// channel. A new toast silently replaces the current one; only the most
// recent request is ever visible.
package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/bus"
)

// Type classifies a toast for rendering.
type Type string

const (
	TypeError   Type = "error"
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
)

// Toast is the currently visible notification.
type Toast struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Type    Type   `json:"type"`
}

// Notifier holds at most one live toast and auto-dismisses it after a
// fixed duration. The timer restarts on every replacement, it never stacks.
type Notifier struct {
	mu      sync.Mutex
	current *Toast
	timer   *time.Timer
	ttl     time.Duration
	bus     *bus.Bus
}

// NewNotifier creates a notifier with the given auto-dismiss duration.
func NewNotifier(ttl time.Duration, b *bus.Bus) *Notifier {
	return &Notifier{ttl: ttl, bus: b}
}

// ShowError replaces the current toast with an error toast.
func (n *Notifier) ShowError(message string) { n.show(message, TypeError) }

// ShowInfo replaces the current toast with an informational toast.
func (n *Notifier) ShowInfo(message string) { n.show(message, TypeInfo) }

// ShowSuccess replaces the current toast with a success toast.
func (n *Notifier) ShowSuccess(message string) { n.show(message, TypeSuccess) }

func (n *Notifier) show(message string, typ Type) {
	t := &Toast{ID: uuid.NewString(), Message: message, Type: typ}

	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.current = t
	id := t.ID
	n.timer = time.AfterFunc(n.ttl, func() { n.dismissIf(id) })
	n.mu.Unlock()

	if n.bus != nil {
		n.bus.Publish(bus.Event{Kind: bus.KindToastShown, Timestamp: time.Now(), Payload: *t})
	}
}

// Dismiss clears the current toast immediately and cancels its timer.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.current = nil
}

// dismissIf clears the toast only if it is still the one the timer was
// armed for; a toast shown after the timer fired must survive.
func (n *Notifier) dismissIf(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current != nil && n.current.ID == id {
		n.current = nil
		n.timer = nil
	}
}

// Current returns a copy of the visible toast, or nil if none.
func (n *Notifier) Current() *Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return nil
	}
	t := *n.current
	return &t
}
