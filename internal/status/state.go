package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/bus"
)

// State represents the live transport connectivity state.
type State string

const (
	Starting     State = "STARTING"
	AuthRequired State = "AUTH_REQUIRED"
	Connecting   State = "CONNECTING"
	Online       State = "ONLINE"
	Reconnecting State = "RECONNECTING"
	Error        State = "ERROR"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Starting:     {Connecting, AuthRequired, Error},
	AuthRequired: {Connecting, Error},
	Connecting:   {Online, AuthRequired, Reconnecting, Error},
	Online:       {Reconnecting, AuthRequired, Error},
	Reconnecting: {Connecting, Error},
	Error:        {Starting},
}

// Machine tracks and enforces connectivity state transitions. Entering
// Online publishes transport.online; leaving it publishes transport.offline.
// The send coordinator keys its flush off those two events, which makes
// "flush exactly once per offline→online transition" a property of the
// machine rather than of whoever polls connectivity.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a state machine starting in Starting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Starting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Connected reports whether the transport is currently online.
func (m *Machine) Connected() bool {
	return m.Current() == Online
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		from := m.current
		m.mu.Unlock()
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	from := m.current
	m.current = to
	m.mu.Unlock()

	if m.bus == nil {
		return nil
	}
	change := StatusChange{From: from, To: to}
	switch {
	case to == Online:
		m.bus.Publish(bus.Event{Kind: bus.KindTransportOnline, Timestamp: time.Now(), Payload: change})
	case from == Online:
		m.bus.Publish(bus.Event{Kind: bus.KindTransportOffline, Timestamp: time.Now(), Payload: change})
	}
	return nil
}

// StatusChange is the payload for transport status events.
type StatusChange struct {
	From State
	To   State
}
