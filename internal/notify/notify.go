package notify

import (
	"context"
	"sync"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/logger"
)

// DefaultQueueSize is the number of notifications buffered per notifier.
const DefaultQueueSize = 16

// Notifier performs one kind of side effect. Notify may block; it runs on
// the notifier's own worker.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n security.Notification) error
}

// Table maps notification names ("home", "away", "night", "off",
// "triggered", "alert") to a per-notifier value such as a command or path,
// separately for current and target notifications.
type Table struct {
	Current map[string]string
	Target  map[string]string
}

// Lookup returns the entry for n. Audio cues never have an entry.
func (t Table) Lookup(n security.Notification) (string, bool) {
	if n.Cue {
		return "", false
	}

	entries := t.Current
	if n.Kind == security.KindTarget {
		entries = t.Target
	}

	value, ok := entries[n.Name()]
	if !ok || value == "" {
		return "", false
	}

	return value, true
}

// job is a queued notification.
type job struct {
	ctx context.Context
	n   security.Notification
}

// worker runs one notifier in queue order.
type worker struct {
	notifier Notifier
	queue    chan job
}

// Dispatcher fans notifications out to notifiers without blocking.
type Dispatcher struct {
	mu      sync.RWMutex
	closed  bool
	workers []*worker
	wg      sync.WaitGroup
}

// NewDispatcher starts one worker per notifier.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	d := &Dispatcher{workers: make([]*worker, 0, len(notifiers))}

	for _, notifier := range notifiers {
		w := &worker{
			notifier: notifier,
			queue:    make(chan job, DefaultQueueSize),
		}

		d.workers = append(d.workers, w)
		d.wg.Add(1)

		go d.run(w)
	}

	return d
}

// Notify queues n for every notifier. A full queue drops the notification
// for that notifier.
func (d *Dispatcher) Notify(ctx context.Context, n security.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return
	}

	for _, w := range d.workers {
		select {
		case w.queue <- job{ctx: ctx, n: n}:
		default:
			logger.WarnKV(ctx, "Notification dropped, queue full",
				"notifier", w.notifier.Name(), "kind", n.Kind, "name", n.Name())
		}
	}
}

// Close stops accepting notifications and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()

	if d.closed {
		d.mu.Unlock()

		return
	}

	d.closed = true

	for _, w := range d.workers {
		close(w.queue)
	}

	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) run(w *worker) {
	defer d.wg.Done()

	for j := range w.queue {
		if err := w.notifier.Notify(j.ctx, j.n); err != nil {
			logger.ErrorKV(j.ctx, "Notification failed",
				"notifier", w.notifier.Name(), "kind", j.n.Kind, "name", j.n.Name(), "error", err)
		}
	}
}
