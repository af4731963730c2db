//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	api "github.com/bdrydyk/homebridge-securitysystem/internal/api/grpc/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/engine"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestClient_AgainstEngine drives a real engine through the client.
func TestClient_AgainstEngine(t *testing.T) {
	t.Parallel()

	eng, err := engine.New(t.Context(), engine.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	api.RegisterSecuritySystemServer(srv, api.NewServer(eng, false))

	go func() { _ = srv.Serve(lis) }()

	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	client := &Client{conn: conn, api: api.NewSecuritySystemClient(conn), callTimeout: time.Second}
	WithActor(&security.Actor{Hostname: "test-host", Username: "test-user"})(client)

	t.Cleanup(func() { _ = client.Close() })

	snap, err := client.GetState(t.Context())
	require.NoError(t, err)
	require.Equal(t, security.ModeOff, snap.CurrentMode)

	_, err = client.ReportSensor(t.Context(), true)
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	snap, err = client.SetDelayArming(t.Context(), true)
	require.NoError(t, err)
	require.True(t, snap.DelayArming)

	snap, err = client.SetTargetMode(t.Context(), security.ModeHome)
	require.NoError(t, err)
	require.Equal(t, security.ModeHome, snap.TargetMode)

	require.Eventually(t, func() bool {
		snap, err := client.GetState(t.Context())

		return err == nil && snap.CurrentMode == security.ModeHome
	}, time.Second, 10*time.Millisecond)

	_, err = client.SetSirenActive(t.Context(), false)
	require.NoError(t, err)

	snap, err = client.Trigger(t.Context())
	require.NoError(t, err)
	require.Equal(t, security.ModeTriggered, snap.CurrentMode)
}
