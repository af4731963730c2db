package client

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	api "github.com/bdrydyk/homebridge-securitysystem/internal/api/grpc/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/config"
	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/engine"
	"github.com/bdrydyk/homebridge-securitysystem/internal/service/common"
)

// flakyAction fails with code for the first failures calls.
func flakyAction(calls *int, failures int, code codes.Code) Action {
	return func(context.Context, *common.Client) (security.Snapshot, error) {
		*calls++
		if *calls <= failures {
			return security.Snapshot{}, fmt.Errorf("get state: %w", status.Error(code, "down"))
		}

		return security.Snapshot{State: security.State{CurrentMode: security.ModeAway}}, nil
	}
}

// TestPerform_RetriesWhileUnavailable verifies unreachable daemons are retried.
func TestPerform_RetriesWhileUnavailable(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		var calls int

		snap, err := perform(t.Context(), nil, flakyAction(&calls, 3, codes.Unavailable), true, time.Second)
		require.NoError(t, err)
		require.Equal(t, security.ModeAway, snap.CurrentMode)
		require.Equal(t, 4, calls)
	})
}

// TestPerform_DoesNotRetryFinalErrors verifies business errors and disabled retries return at once.
func TestPerform_DoesNotRetryFinalErrors(t *testing.T) {
	t.Parallel()

	var calls int

	_, err := perform(t.Context(), nil, flakyAction(&calls, 1, codes.FailedPrecondition), true, time.Second)
	require.Equal(t, codes.FailedPrecondition, status.Code(err))
	require.Equal(t, 1, calls)

	calls = 0

	_, err = perform(t.Context(), nil, flakyAction(&calls, 1, codes.Unavailable), false, time.Second)
	require.Equal(t, codes.Unavailable, status.Code(err))
	require.Equal(t, 1, calls)
}

// TestPerform_StopsOnCancel verifies retries end with the context.
func TestPerform_StopsOnCancel(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second+time.Millisecond)
		defer cancel()

		var calls int

		_, err := perform(ctx, nil, flakyAction(&calls, 100, codes.Unavailable), true, time.Second)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, 6, calls)
	})
}

// TestFormatState verifies the readable state line.
func TestFormatState(t *testing.T) {
	t.Parallel()

	require.Equal(t, "current: Off, target: Off", FormatState(security.Snapshot{
		State: security.State{CurrentMode: security.ModeOff, TargetMode: security.ModeOff},
	}))

	require.Equal(t, "current: Off, target: Away (arming, delay arming)", FormatState(security.Snapshot{
		State:  security.State{CurrentMode: security.ModeOff, TargetMode: security.ModeAway, DelayArming: true},
		Arming: true,
	}))
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

// TestRun_RequiresServerAddress verifies a missing address is reported.
func TestRun_RequiresServerAddress(t *testing.T) {
	t.Parallel()

	_, err := Run(t.Context(), &Options{ConfigPath: writeConfig(t, "name: test\n")}, GetState())
	require.ErrorIs(t, err, errNoServerAddress)
}

// TestRun_AgainstDaemon performs actions against a served engine.
func TestRun_AgainstDaemon(t *testing.T) {
	t.Parallel()

	eng, err := engine.New(t.Context(), engine.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	lc := net.ListenConfig{}
	lis, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	api.RegisterSecuritySystemServer(srv, api.NewServer(eng, false))

	go func() { _ = srv.Serve(lis) }()

	t.Cleanup(srv.Stop)

	opts := &Options{
		ConfigPath:    writeConfig(t, "name: test\n"),
		ServerAddress: lis.Addr().String(),
	}

	snap, err := Run(t.Context(), opts, SetMode("away"))
	require.NoError(t, err)
	require.Equal(t, security.ModeAway, snap.TargetMode)

	_, err = Run(t.Context(), opts, SetMode("panic"))
	require.ErrorIs(t, err, security.ErrInvalidMode)

	_, err = Run(t.Context(), opts, SetDelayArming(true))
	require.NoError(t, err)

	snap, err = Run(t.Context(), opts, GetState())
	require.NoError(t, err)
	require.True(t, snap.DelayArming)

	snap, err = Run(t.Context(), opts, Trigger())
	require.NoError(t, err)
	require.Equal(t, security.ModeTriggered, snap.CurrentMode)

	_, err = Run(t.Context(), opts, SetMode("off"))
	require.NoError(t, err)
}
