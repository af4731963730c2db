package timer

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
)

// counter counts callback invocations under the owner's lock.
type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() { c.n++ }

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.n
}

// TestTimer_FiresOnce verifies a scheduled countdown runs exactly once after its delay.
func TestTimer_FiresOnce(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		c := new(counter)
		tm := New(&c.mu)

		c.mu.Lock()
		tm.Schedule(5*time.Second, c.inc)
		require.True(t, tm.Pending())
		c.mu.Unlock()

		time.Sleep(4 * time.Second)
		synctest.Wait()
		require.Equal(t, 0, c.get())

		time.Sleep(time.Second)
		synctest.Wait()
		require.Equal(t, 1, c.get())

		c.mu.Lock()
		require.False(t, tm.Pending())
		c.mu.Unlock()
	})
}

// TestTimer_ZeroDelayIsAsynchronous ensures a zero countdown never runs inside Schedule.
func TestTimer_ZeroDelayIsAsynchronous(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		c := new(counter)
		tm := New(&c.mu)

		c.mu.Lock()
		tm.Schedule(0, c.inc)
		require.Equal(t, 0, c.n)
		c.mu.Unlock()

		synctest.Wait()
		require.Equal(t, 1, c.get())
	})
}

// TestTimer_CancelPreventsFiring checks cancelled and replaced countdowns never run.
func TestTimer_CancelPreventsFiring(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		c := new(counter)
		tm := New(&c.mu)

		var replaced bool

		c.mu.Lock()
		tm.Schedule(time.Second, c.inc)
		require.True(t, tm.Cancel())
		require.False(t, tm.Cancel())

		tm.Schedule(time.Second, c.inc)
		tm.Schedule(2*time.Second, func() { replaced = true })
		c.mu.Unlock()

		time.Sleep(3 * time.Second)
		synctest.Wait()

		c.mu.Lock()
		defer c.mu.Unlock()

		require.Equal(t, 0, c.n)
		require.True(t, replaced)
	})
}

// TestTimer_CancelRacingCallback closes the race where the runtime fired a
// countdown whose callback is still waiting for the owner's lock: exactly one
// of "callback ran" and "cancel found it pending" must hold.
func TestTimer_CancelRacingCallback(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		var (
			mu        sync.Mutex
			ran       bool
			cancelled bool
		)

		victim := New(&mu)
		canceller := New(&mu)

		mu.Lock()
		victim.Schedule(time.Second, func() { ran = true })
		canceller.Schedule(time.Second, func() { cancelled = victim.Cancel() })
		mu.Unlock()

		time.Sleep(2 * time.Second)
		synctest.Wait()

		mu.Lock()
		defer mu.Unlock()

		require.NotEqual(t, ran, cancelled)
		require.False(t, victim.Pending())
	})
}

// TestPulse_TogglesUntilStopped verifies the rising and falling edges and that Stop lowers the signal.
func TestPulse_TogglesUntilStopped(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		var (
			mu    sync.Mutex
			edges []bool
		)

		p := NewPulse(&mu, 0)

		mu.Lock()
		p.Start(5*time.Second, func(level bool) { edges = append(edges, level) })
		mu.Unlock()

		time.Sleep(5*time.Second + 100*time.Millisecond)
		synctest.Wait()

		mu.Lock()
		require.Equal(t, []bool{true}, edges)
		mu.Unlock()

		time.Sleep(time.Second)
		synctest.Wait()

		mu.Lock()
		require.Equal(t, []bool{true, false}, edges)
		mu.Unlock()

		// Second pulse starts at t=10s; stop while it is high.
		time.Sleep(4 * time.Second)
		synctest.Wait()

		mu.Lock()
		require.Equal(t, []bool{true, false, true}, edges)
		p.Stop()
		require.False(t, p.Running())
		require.Equal(t, []bool{true, false, true, false}, edges)
		mu.Unlock()

		time.Sleep(time.Minute)
		synctest.Wait()

		mu.Lock()
		require.Len(t, edges, 4)
		mu.Unlock()
	})
}

// TestPulse_ShortIntervalRaisedToWidth ensures a zero interval does not spin.
func TestPulse_ShortIntervalRaisedToWidth(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		var (
			mu    sync.Mutex
			rises int
		)

		p := NewPulse(&mu, 0)

		mu.Lock()
		p.Start(0, func(level bool) {
			if level {
				rises++
			}
		})
		mu.Unlock()

		// Rising edges at 1.5s and 3s.
		time.Sleep(4 * time.Second)
		synctest.Wait()

		mu.Lock()
		defer mu.Unlock()

		require.Equal(t, 2, rises)
		p.Stop()
	})
}
