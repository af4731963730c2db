//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/bdrydyk/homebridge-securitysystem/internal/api/grpc/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/config"
	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
)

// Client wraps the gRPC SecuritySystem client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the security system daemon.
	conn *grpc.ClientConn
	// api is the SecuritySystem client interface.
	api api.SecuritySystemClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// actor is sent with every call for the audit trail; may be nil.
	actor *security.Actor
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor sends actor with every call.
func WithActor(actor *security.Actor) Option {
	return func(c *Client) {
		c.actor = actor.Clone()
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the security system daemon.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial security system: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewSecuritySystemClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetState retrieves the current state.
func (c *Client) GetState(ctx context.Context) (security.Snapshot, error) {
	return c.call(ctx, "get state", func(ctx context.Context) (*structpb.Struct, error) {
		return c.api.GetState(ctx, new(emptypb.Empty))
	})
}

// SetTargetMode requests a new target mode.
func (c *Client) SetTargetMode(ctx context.Context, mode security.Mode) (security.Snapshot, error) {
	return c.call(ctx, "set target mode", func(ctx context.Context) (*structpb.Struct, error) {
		return c.api.SetTargetMode(ctx, wrapperspb.String(mode.String()))
	})
}

// SetDelayArming toggles the arm delay.
func (c *Client) SetDelayArming(ctx context.Context, enabled bool) (security.Snapshot, error) {
	return c.call(ctx, "set delay arming", func(ctx context.Context) (*structpb.Struct, error) {
		return c.api.SetDelayArming(ctx, wrapperspb.Bool(enabled))
	})
}

// SetSirenActive writes the siren-active property.
func (c *Client) SetSirenActive(ctx context.Context, active bool) (security.Snapshot, error) {
	return c.call(ctx, "set siren active", func(ctx context.Context) (*structpb.Struct, error) {
		return c.api.SetSirenActive(ctx, wrapperspb.Bool(active))
	})
}

// ReportSensor reports a sensor becoming active or inactive.
func (c *Client) ReportSensor(ctx context.Context, active bool) (security.Snapshot, error) {
	return c.call(ctx, "report sensor", func(ctx context.Context) (*structpb.Struct, error) {
		return c.api.ReportSensor(ctx, wrapperspb.Bool(active))
	})
}

// Trigger sounds the alarm immediately.
func (c *Client) Trigger(ctx context.Context) (security.Snapshot, error) {
	return c.call(ctx, "trigger", func(ctx context.Context) (*structpb.Struct, error) {
		return c.api.Trigger(ctx, new(emptypb.Empty))
	})
}

// call runs one RPC with the call timeout and the actor attached.
func (c *Client) call(
	ctx context.Context,
	name string,
	rpc func(ctx context.Context) (*structpb.Struct, error),
) (security.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := rpc(api.WithActor(callCtx, c.actor))
	if err != nil {
		return security.Snapshot{}, fmt.Errorf("%s: %w", name, err)
	}

	snap, err := api.FromStruct(resp)
	if err != nil {
		return security.Snapshot{}, fmt.Errorf("%s: decode response: %w", name, err)
	}

	return snap, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
