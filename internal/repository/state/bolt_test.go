package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
)

func newTestBolt(t *testing.T, path string) *BoltRepository {
	t.Helper()

	repo, err := NewBoltRepository(path)
	require.NoError(t, err)

	return repo
}

// TestBoltRepository_SaveLoadAcrossReopen verifies the state survives closing the database.
func TestBoltRepository_SaveLoadAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.db")
	repo := newTestBolt(t, path)

	_, err := repo.Load(t.Context())
	require.ErrorIs(t, err, ErrNotFound)

	want := &security.State{
		CurrentMode: security.ModeHome,
		TargetMode:  security.ModeAway,
		DelayArming: true,
	}

	require.NoError(t, repo.Save(t.Context(), want))
	require.NoError(t, repo.Close())

	reopened := newTestBolt(t, path)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Load(t.Context())
	require.NoError(t, err)
	require.Equal(t, want, got)
}
