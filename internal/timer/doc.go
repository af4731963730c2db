// Package timer provides cancellable countdowns whose callbacks run under
// the owner's lock.
//
// Every Timer and Pulse is bound to a sync.Locker supplied by its owner. All
// methods must be called with that lock held, and every callback is invoked
// with it held. Cancellation bumps a generation counter, so a countdown that
// the runtime already fired but that has not yet acquired the lock finds a
// stale generation and returns without running its callback.
package timer
