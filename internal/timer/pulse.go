package timer

import (
	"sync"
	"time"
)

// DefaultPulseWidth is how long each pulse stays high.
const DefaultPulseWidth = 750 * time.Millisecond

// Pulse raises a boolean signal every interval and lowers it again after
// the pulse width, until stopped. Edge-triggered observers therefore see a
// fresh notification on every pulse instead of a single static value.
type Pulse struct {
	// next schedules the following rising edge.
	next *Timer
	// fall schedules the falling edge of the current pulse.
	fall *Timer
	// width is how long the signal stays high.
	width time.Duration
	// interval is the period between rising edges.
	interval time.Duration
	// level is the last value handed to fn.
	level bool
	// fn receives every edge.
	fn func(level bool)
}

// NewPulse returns a stopped pulse bound to the owner's lock.
func NewPulse(mu sync.Locker, width time.Duration) *Pulse {
	if width <= 0 {
		width = DefaultPulseWidth
	}

	return &Pulse{
		next:  New(mu),
		fall:  New(mu),
		width: width,
	}
}

// Start begins pulsing with the given period; the first rising edge comes
// after one interval. Intervals shorter than twice the pulse width are
// raised so the signal stays low at least as long as it stays high.
// Starting a running pulse restarts it.
func (p *Pulse) Start(interval time.Duration, fn func(level bool)) {
	p.Stop()

	if interval < 2*p.width {
		interval = 2 * p.width
	}

	p.interval = interval
	p.fn = fn
	p.next.Schedule(interval, p.rise)
}

// Stop cancels pulsing. A pulse that is currently high is lowered first.
func (p *Pulse) Stop() {
	p.next.Cancel()
	p.fall.Cancel()

	if p.level && p.fn != nil {
		p.level = false
		p.fn(false)
	}

	p.fn = nil
}

// Running reports whether the pulse is active.
func (p *Pulse) Running() bool {
	return p.next.Pending() || p.fall.Pending()
}

func (p *Pulse) rise() {
	p.level = true
	p.fn(true)

	// fn may have stopped the pulse.
	if p.fn == nil {
		return
	}

	p.fall.Schedule(p.width, func() {
		p.level = false
		p.fn(false)
	})
	p.next.Schedule(p.interval, p.rise)
}
