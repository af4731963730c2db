package state

import (
	"context"
	"sync"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/logger"
)

// Writer saves states on a background goroutine. Persist never blocks; when
// states arrive faster than they are written only the newest is kept.
type Writer struct {
	repo Repository
	ctx  context.Context

	mu      sync.Mutex
	pending *security.State
	closed  bool

	wake chan struct{}
	done chan struct{}
}

// NewWriter starts a writer saving to repo.
func NewWriter(ctx context.Context, repo Repository) *Writer {
	w := &Writer{
		repo: repo,
		ctx:  logger.WithName(ctx, "state"),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	go w.run()

	return w
}

// Persist queues state for saving.
func (w *Writer) Persist(_ context.Context, state security.State) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	w.pending = &state

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Close writes the last queued state and stops the writer.
func (w *Writer) Close() {
	w.mu.Lock()

	if w.closed {
		w.mu.Unlock()

		return
	}

	w.closed = true
	close(w.wake)
	w.mu.Unlock()

	<-w.done
}

func (w *Writer) run() {
	defer close(w.done)

	for range w.wake {
		w.flush()
	}

	w.flush()
}

func (w *Writer) flush() {
	w.mu.Lock()
	state := w.pending
	w.pending = nil
	w.mu.Unlock()

	if state == nil {
		return
	}

	// A failed write is not retried; the next change saves the full state again.
	if err := w.repo.Save(w.ctx, state); err != nil {
		logger.ErrorKV(w.ctx, "Unable to save state", "error", err)

		return
	}

	logger.DebugKV(w.ctx, "State saved",
		"current", state.CurrentMode, "target", state.TargetMode, "delay_arming", state.DelayArming)
}
