package timer

import (
	"sync"
	"time"
)

// Timer is a cancellable single-shot countdown.
type Timer struct {
	// mu is the owner's lock; it guards every field below.
	mu sync.Locker
	// gen identifies the live countdown; callbacks carrying an older value are dropped.
	gen uint64
	// t is the runtime timer of the live countdown, nil when idle.
	t *time.Timer
}

// New returns an idle timer bound to the owner's lock.
func New(mu sync.Locker) *Timer {
	return &Timer{mu: mu}
}

// Schedule starts a countdown that runs fn once after d, replacing any
// pending countdown. A non-positive d still fires asynchronously.
// The timer is already idle when fn runs, so fn may reschedule it.
func (t *Timer) Schedule(d time.Duration, fn func()) {
	t.Cancel()

	if d < 0 {
		d = 0
	}

	gen := t.gen
	t.t = time.AfterFunc(d, func() {
		t.mu.Lock()
		defer t.mu.Unlock()

		if t.gen != gen || t.t == nil {
			return
		}

		t.t = nil
		t.gen++

		fn()
	})
}

// Cancel stops the pending countdown. It is a no-op when idle.
func (t *Timer) Cancel() bool {
	if t.t == nil {
		return false
	}

	t.t.Stop()
	t.t = nil
	t.gen++

	return true
}

// Pending reports whether a countdown is scheduled and has not run yet.
func (t *Timer) Pending() bool {
	return t.t != nil
}
