package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.json"))
	s, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, s)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load returns equal state.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "state.json")
	repo := NewFileRepository(file)

	want := &security.State{
		CurrentMode: security.ModeTriggered,
		TargetMode:  security.ModeNight,
		DelayArming: true,
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = os.Stat(file + ".tmp")
	require.ErrorIs(t, err, os.ErrNotExist)
	require.NoError(t, repo.Close())
}

// TestFileRepository_ReadsNumericModes checks documents written with numeric
// modes and without the delay flag.
func TestFileRepository_ReadsNumericModes(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"currentState": 1, "targetState": 3}`), 0o600))

	got, err := NewFileRepository(file).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, &security.State{
		CurrentMode: security.ModeAway,
		TargetMode:  security.ModeOff,
	}, got)
}

// TestFileRepository_Corrupted rejects documents that do not describe a state.
func TestFileRepository_Corrupted(t *testing.T) {
	t.Parallel()

	for name, contents := range map[string]string{
		"missing target": `{"currentState": 1}`,
		"unknown mode":   `{"currentState": 9, "targetState": 3}`,
		"fraction":       `{"currentState": 1.5, "targetState": 3}`,
		"string mode":    `{"currentState": "away", "targetState": 3}`,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			file := filepath.Join(t.TempDir(), "state.json")
			require.NoError(t, os.WriteFile(file, []byte(contents), 0o600))

			_, err := NewFileRepository(file).Load(context.Background())
			require.ErrorIs(t, err, ErrCorrupted)
		})
	}

	file := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(file, []byte(`not json`), 0o600))

	_, err := NewFileRepository(file).Load(context.Background())
	require.Error(t, err)
}

// TestOpen_Drivers covers driver selection.
func TestOpen_Drivers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	repo, err := Open(DriverFile, filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	require.IsType(t, &FileRepository{}, repo)

	repo, err = Open(DriverBolt, filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	require.IsType(t, &BoltRepository{}, repo)
	require.NoError(t, repo.Close())

	_, err = Open("redis", "")
	require.ErrorIs(t, err, ErrUnknownDriver)
}
