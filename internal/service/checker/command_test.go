package checker

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
)

var errUnreachable = errors.New("unreachable")

// scriptedReader returns the queued snapshots in order.
type scriptedReader struct {
	snaps []security.Snapshot
	err   error
}

func (r *scriptedReader) GetState(context.Context) (security.Snapshot, error) {
	if r.err != nil {
		return security.Snapshot{}, r.err
	}

	snap := r.snaps[0]
	if len(r.snaps) > 1 {
		r.snaps = r.snaps[1:]
	}

	return snap, nil
}

func snapshot(current, target security.Mode) security.Snapshot {
	return security.Snapshot{State: security.State{CurrentMode: current, TargetMode: target}}
}

// TestWatcher_PrintsChangesOnly verifies repeated states are printed once.
func TestWatcher_PrintsChangesOnly(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	w := &watcher{out: &out}
	reader := &scriptedReader{snaps: []security.Snapshot{
		snapshot(security.ModeOff, security.ModeOff),
		snapshot(security.ModeOff, security.ModeOff),
		snapshot(security.ModeAway, security.ModeAway),
	}}

	for range 3 {
		require.NoError(t, w.check(t.Context(), reader))
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasSuffix(lines[0], "current: Off, target: Off"))
	require.True(t, strings.HasSuffix(lines[1], "current: Away, target: Away"))
}

// TestWatcher_ExitOnTriggered verifies the alarm ends the watch only when requested.
func TestWatcher_ExitOnTriggered(t *testing.T) {
	t.Parallel()

	reader := &scriptedReader{snaps: []security.Snapshot{snapshot(security.ModeTriggered, security.ModeAway)}}

	w := &watcher{out: new(bytes.Buffer)}
	require.NoError(t, w.check(t.Context(), reader))

	w = &watcher{out: new(bytes.Buffer), exitOnTriggered: true}
	require.ErrorIs(t, w.check(t.Context(), reader), ErrTriggered)
}

// TestWatcher_ReportsErrors verifies read failures are returned without printing.
func TestWatcher_ReportsErrors(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	w := &watcher{out: &out}
	require.ErrorIs(t, w.check(t.Context(), &scriptedReader{err: errUnreachable}), errUnreachable)
	require.Zero(t, out.Len())
}
