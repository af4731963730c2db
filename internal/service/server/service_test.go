package server

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bdrydyk/homebridge-securitysystem/internal/config"
	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	repo "github.com/bdrydyk/homebridge-securitysystem/internal/repository/state"
)

var errTestLoad = errors.New("test load error")

// memoryRepository is a minimal in-memory Repository implementation for tests.
type memoryRepository struct {
	// state is the state to return from Load operations.
	state *security.State
	// loadErr is the error to return from Load operations.
	loadErr error
}

func (m *memoryRepository) Load(context.Context) (*security.State, error) {
	return m.state, m.loadErr
}

func (m *memoryRepository) Save(context.Context, *security.State) error { return nil }

func (m *memoryRepository) Close() error { return nil }

// TestLoadState_RestoresOrDefaults asserts loadState behavior on existing, missing, and unreadable states.
func TestLoadState_RestoresOrDefaults(t *testing.T) {
	t.Parallel()

	saved := &security.State{
		CurrentMode: security.ModeAway,
		TargetMode:  security.ModeAway,
		DelayArming: true,
	}

	require.Equal(t, saved, loadState(t.Context(), &memoryRepository{state: saved}))
	require.Nil(t, loadState(t.Context(), &memoryRepository{loadErr: repo.ErrNotFound}))
	require.Nil(t, loadState(t.Context(), &memoryRepository{loadErr: errTestLoad}))
}

// TestEngineOptions verifies settings are converted to engine timings.
func TestEngineOptions(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		ArmSeconds:        30,
		TriggerSeconds:    10,
		DisabledModeNames: []string{"night"},
		OverrideOff:       true,
	}
	require.NoError(t, config.Validate(cfg))

	opts := engineOptions(cfg)
	require.Equal(t, 30*time.Second, opts.ArmDelay)
	require.Equal(t, 10*time.Second, opts.TriggerDelay)
	require.Equal(t, 5*time.Second, opts.SirenPulseInterval)
	require.Equal(t, 10*time.Minute, opts.ResetDelay)
	require.Equal(t, []security.Mode{security.ModeNight}, opts.DisabledTargets)
	require.True(t, opts.IgnoreOffMode)
	require.Equal(t, security.ModeOff, opts.DefaultMode)
}

// TestBuildNotifiers verifies only configured notifiers are created.
func TestBuildNotifiers(t *testing.T) {
	t.Parallel()

	ns, err := buildNotifiers(t.Context(), config.Default())
	require.NoError(t, err)
	require.Empty(t, ns.list)
	ns.close()

	cfg := config.Default()
	cfg.Commands.Target = map[string]string{"away": "echo away"}
	cfg.Webhook.Host = "http://localhost:1880"

	ns, err = buildNotifiers(t.Context(), cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"command", "webhook"}, ns.names())
	ns.close()

	cfg.Script.Path = filepath.Join(t.TempDir(), "missing.lua")

	_, err = buildNotifiers(t.Context(), cfg)
	require.Error(t, err)
}

// TestResolveListenAddress validates listen address resolution.
func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	address, err := resolveListenAddress("alarm.local:8080", "")
	require.NoError(t, err)
	require.Equal(t, ":8080", address)

	address, err = resolveListenAddress("alarm.local:8080", "127.0.0.1:9090")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9090", address)

	_, err = resolveListenAddress("", "")
	require.ErrorIs(t, err, ErrNoServerAddress)

	_, err = resolveListenAddress("alarm.local", "")
	require.Error(t, err)
}

// TestRun_StopsOnCancel starts every server and verifies an expired context
// shuts the daemon down cleanly. It replaces the global logger, so it does
// not run in parallel.
//
//nolint:paralleltest // Mutates the global logger.
func TestRun_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.db")
	configPath := filepath.Join(dir, config.DefaultConfigFilename)

	settings := `save_state: true
storage:
  driver: bolt
  path: ` + statePath + `
server:
  grpc_addr: 127.0.0.1:0
  http_addr: 127.0.0.1:0
log:
  level: error
`
	require.NoError(t, os.WriteFile(configPath, []byte(settings), 0o600))

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, Run(ctx, &Options{ConfigPath: configPath}))
	require.FileExists(t, statePath)
}

// TestRun_InvalidConfig verifies configuration errors stop start-up.
func TestRun_InvalidConfig(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, os.WriteFile(configPath, []byte("default_mode: triggered\n"), 0o600))

	err := Run(t.Context(), &Options{ConfigPath: configPath})
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}
