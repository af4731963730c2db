package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestActorClone verifies that Clone returns a copy and handles nil safely.
func TestActorClone(t *testing.T) {
	t.Parallel()

	require.Nil(t, (*Actor)(nil).Clone())
	require.Equal(t, "unknown", (*Actor)(nil).String())

	original := &Actor{Hostname: "hall-panel", Username: "alice"}
	cloned := original.Clone()

	require.Equal(t, original, cloned)
	require.NotSame(t, original, cloned)
	require.Equal(t, "alice@hall-panel", cloned.String())
}

// TestStateClone verifies State.Clone copies and handles nil.
func TestStateClone(t *testing.T) {
	t.Parallel()

	require.Nil(t, (*State)(nil).Clone())

	original := &State{CurrentMode: ModeAway, TargetMode: ModeAway, DelayArming: true}
	cloned := original.Clone()

	require.Equal(t, original, cloned)
	require.NotSame(t, original, cloned)
}
