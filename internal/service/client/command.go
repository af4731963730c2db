package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bdrydyk/homebridge-securitysystem/internal/config"
	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/logger"
	"github.com/bdrydyk/homebridge-securitysystem/internal/service/common"
)

// Options configures securityctl calls.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides server address from config when specified.
	ServerAddress string
	// Retry repeats calls while the daemon is unreachable.
	Retry bool
}

// Action performs one call on a connected client.
type Action func(ctx context.Context, c *common.Client) (security.Snapshot, error)

// defaultRetryInterval defines the delay between attempts when Retry is set.
const defaultRetryInterval = 1 * time.Second

// errNoServerAddress is returned when neither settings nor flags name the daemon.
var errNoServerAddress = errors.New("no server address configured")

// GetState reads the state.
func GetState() Action {
	return func(ctx context.Context, c *common.Client) (security.Snapshot, error) {
		return c.GetState(ctx)
	}
}

// SetMode requests the target mode named name.
func SetMode(name string) Action {
	return func(ctx context.Context, c *common.Client) (security.Snapshot, error) {
		mode, err := security.ParseMode(name)
		if err != nil {
			return security.Snapshot{}, err
		}

		return c.SetTargetMode(ctx, mode)
	}
}

// SetDelayArming toggles the arm delay.
func SetDelayArming(enabled bool) Action {
	return func(ctx context.Context, c *common.Client) (security.Snapshot, error) {
		return c.SetDelayArming(ctx, enabled)
	}
}

// SetSiren writes the siren switch.
func SetSiren(active bool) Action {
	return func(ctx context.Context, c *common.Client) (security.Snapshot, error) {
		return c.SetSirenActive(ctx, active)
	}
}

// ReportSensor reports a sensor event.
func ReportSensor(active bool) Action {
	return func(ctx context.Context, c *common.Client) (security.Snapshot, error) {
		return c.ReportSensor(ctx, active)
	}
}

// Trigger sounds the alarm.
func Trigger() Action {
	return func(ctx context.Context, c *common.Client) (security.Snapshot, error) {
		return c.Trigger(ctx)
	}
}

// Run connects to the daemon and performs action.
func Run(ctx context.Context, opts *Options, action Action) (security.Snapshot, error) {
	ctx = logger.WithName(ctx, "securityctl")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return security.Snapshot{}, err
	}

	serverAddress := cfg.Server.GRPCAddr
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	if serverAddress == "" {
		return security.Snapshot{}, errNoServerAddress
	}

	// Identify current user and hostname for the daemon's audit log.
	actor, err := common.DetectActor()
	if err != nil {
		return security.Snapshot{}, err
	}

	client, err := common.Dial(ctx, serverAddress,
		common.WithCallTimeout(cfg.Server.Timeout),
		common.WithActor(actor))
	if err != nil {
		return security.Snapshot{}, err
	}

	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Calling security system", "server_address", serverAddress, "actor", actor)

	return perform(ctx, client, action, opts.Retry, defaultRetryInterval)
}

// perform runs action, retrying while the daemon is unreachable when retry is set.
func perform(
	ctx context.Context,
	client *common.Client,
	action Action,
	retry bool,
	interval time.Duration,
) (security.Snapshot, error) {
	snap, err := action(ctx, client)
	if err == nil || !retry || !isUnavailable(err) {
		return snap, err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		logger.WarnKV(ctx, "Security system unreachable, retrying", "error", err)

		select {
		case <-ctx.Done():
			return security.Snapshot{}, ctx.Err()
		case <-ticker.C:
			snap, err = action(ctx, client)
			if err == nil || !isUnavailable(err) {
				return snap, err
			}
		}
	}
}

// isUnavailable reports whether err means the daemon could not be reached.
func isUnavailable(err error) bool {
	switch status.Code(err) { //nolint:exhaustive // Every other code is final.
	case codes.Unavailable, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}

// FormatState converts a snapshot to a readable line.
func FormatState(snap security.Snapshot) string {
	var flags []string

	if snap.Arming {
		flags = append(flags, "arming")
	}

	if snap.DelayArming {
		flags = append(flags, "delay arming")
	}

	if snap.SirenActive {
		flags = append(flags, "siren on")
	}

	if snap.TriggerPending {
		flags = append(flags, "trigger pending")
	}

	line := fmt.Sprintf("current: %s, target: %s", snap.CurrentMode.Title(), snap.TargetMode.Title())
	if len(flags) > 0 {
		line += " (" + strings.Join(flags, ", ") + ")"
	}

	return line
}
