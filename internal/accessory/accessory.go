package accessory

import (
	"context"
	"sync"

	"github.com/bdrydyk/homebridge-securitysystem/internal/engine"
)

// Engine is the part of the state engine accessories talk to.
type Engine interface {
	SensorTriggered(ctx context.Context, active bool) error
	SetSirenActive(ctx context.Context, active bool) error
	Subscribe(h engine.Handler) func()
}

// binary is a mirrored boolean value with change listeners.
type binary struct {
	mu        sync.RWMutex
	value     bool
	listeners []func(bool)
}

// Value returns the mirrored value.
func (b *binary) Value() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.value
}

// OnChange registers fn to run with the new value after every change.
// Listeners may run under the engine lock and must not block.
func (b *binary) OnChange(fn func(bool)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listeners = append(b.listeners, fn)
}

func (b *binary) set(v bool) {
	b.mu.Lock()

	if b.value == v {
		b.mu.Unlock()

		return
	}

	b.value = v
	listeners := append([]func(bool)(nil), b.listeners...)
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(v)
	}
}

// SirenSwitch is the writable siren property. Turning it on reports an
// active sensor, turning it off a cleared one. It returns to off whenever
// the engine handles a state change.
type SirenSwitch struct {
	binary

	eng         Engine
	unsubscribe func()
}

// NewSirenSwitch creates a siren switch bound to eng.
func NewSirenSwitch(eng Engine) *SirenSwitch {
	s := &SirenSwitch{eng: eng}
	s.unsubscribe = eng.Subscribe(s.handle)

	return s
}

// Set writes the switch. A rejected write leaves the switch unchanged and
// returns the engine error.
func (s *SirenSwitch) Set(ctx context.Context, on bool) error {
	return s.eng.SetSirenActive(ctx, on)
}

// Close detaches the switch from the engine.
func (s *SirenSwitch) Close() {
	s.unsubscribe()
}

func (s *SirenSwitch) handle(e engine.Event) {
	switch e.Type { //nolint:exhaustive // Other events do not concern the switch.
	case engine.EventSirenActive:
		s.set(e.Value)
	case engine.EventSirenReset:
		s.set(false)
	}
}

// MotionSensor is a read-only sensor that follows the siren pulse, so
// automations can react to the alarm as if it were motion.
type MotionSensor struct {
	binary

	unsubscribe func()
}

// NewMotionSensor creates a motion sensor bound to eng.
func NewMotionSensor(eng Engine) *MotionSensor {
	m := new(MotionSensor)
	m.unsubscribe = eng.Subscribe(func(e engine.Event) {
		if e.Type == engine.EventSirenPulse {
			m.set(e.Value)
		}
	})

	return m
}

// Close detaches the sensor from the engine.
func (m *MotionSensor) Close() {
	m.unsubscribe()
}

// Sensor is an external sensor input feeding the engine.
type Sensor struct {
	binary

	name string
	eng  Engine
}

// NewSensor creates a sensor input named name.
func NewSensor(name string, eng Engine) *Sensor {
	return &Sensor{name: name, eng: eng}
}

// Name returns the sensor name.
func (s *Sensor) Name() string {
	return s.name
}

// Set reports the sensor state. The value is mirrored only when the engine
// accepts it.
func (s *Sensor) Set(ctx context.Context, active bool) error {
	if err := s.eng.SensorTriggered(ctx, active); err != nil {
		return err
	}

	s.set(active)

	return nil
}
