package engine

import (
	"sync"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
)

// EventType identifies a remote property update emitted by the engine.
type EventType uint8

const (
	// EventCurrentState carries a committed current mode.
	EventCurrentState EventType = iota + 1
	// EventTargetState carries a target mode the engine pushes to remote properties.
	EventTargetState
	// EventArming carries the arming flag.
	EventArming
	// EventDelayArming carries the delay-arming flag.
	EventDelayArming
	// EventSirenActive carries the siren-active property.
	EventSirenActive
	// EventSirenPulse carries each edge of the siren pulse.
	EventSirenPulse
	// EventSirenReset asks siren switches to return to off.
	EventSirenReset
)

//nolint:gochecknoglobals // Read-only lookup table.
var eventTypeNames = map[EventType]string{
	EventCurrentState: "current_state",
	EventTargetState:  "target_state",
	EventArming:       "arming",
	EventDelayArming:  "delay_arming",
	EventSirenActive:  "siren_active",
	EventSirenPulse:   "siren_pulse",
	EventSirenReset:   "siren_reset",
}

// String returns the snake_case event name.
func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}

	return "unknown"
}

// Event is a single property update.
type Event struct {
	// Type identifies the property.
	Type EventType
	// Mode is set for EventCurrentState and EventTargetState.
	Mode security.Mode
	// Value is set for the boolean properties.
	Value bool
}

// Handler receives events. Handlers run under the engine lock: they must not
// block and must not call back into the engine synchronously.
type Handler func(Event)

// subscribers is a registry of event handlers.
type subscribers struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]Handler
}

func (s *subscribers) add(h Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handlers == nil {
		s.handlers = make(map[uint64]Handler)
	}

	s.nextID++
	id := s.nextID
	s.handlers[id] = h

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.handlers, id)
	}
}

func (s *subscribers) emit(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, h := range s.handlers {
		h(e)
	}
}
