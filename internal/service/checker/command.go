package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bdrydyk/homebridge-securitysystem/internal/config"
	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/logger"
	"github.com/bdrydyk/homebridge-securitysystem/internal/service/client"
	"github.com/bdrydyk/homebridge-securitysystem/internal/service/common"
)

// Options controls the checker polling behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// PollInterval defines the interval between state checks.
	PollInterval time.Duration
	// ExitOnTriggered stops polling with ErrTriggered once the alarm sounds.
	ExitOnTriggered bool
	// Output receives one line per state change, stdout when nil.
	Output io.Writer
}

// DefaultPollInterval defines the polling interval when none is given.
const DefaultPollInterval = 5 * time.Second

var (
	// ErrTriggered is returned when ExitOnTriggered is set and the alarm sounds.
	ErrTriggered = errors.New("alarm triggered")
	// errNoServerAddress is returned when neither settings nor flags name the daemon.
	errNoServerAddress = errors.New("no server address configured")
)

// Run polls the state until ctx is cancelled, printing every change.
//
//nolint:cyclop // Flow is straightforward and readable; splitting would reduce clarity.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "securityctl-watch")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	serverAddress := cfg.Server.GRPCAddr
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	if serverAddress == "" {
		return errNoServerAddress
	}

	actor, err := common.DetectActor()
	if err != nil {
		return fmt.Errorf("detect actor: %w", err)
	}

	c, err := common.Dial(ctx, serverAddress,
		common.WithCallTimeout(cfg.Server.Timeout),
		common.WithActor(actor))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	defer func() {
		_ = c.Close()
	}()

	logger.InfoKV(ctx, "Polling security system state", "server_address", serverAddress, "interval", interval.String())

	w := &watcher{out: out, exitOnTriggered: opts.ExitOnTriggered}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.check(ctx, c); err != nil {
			if errors.Is(err, ErrTriggered) {
				return err
			}

			logger.ErrorKV(ctx, "Check state failed", "error", err)
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-ticker.C:
		}
	}
}

// stateReader is the client call the watcher polls.
type stateReader interface {
	GetState(ctx context.Context) (security.Snapshot, error)
}

// watcher remembers the last printed state.
type watcher struct {
	out             io.Writer
	exitOnTriggered bool
	last            *security.Snapshot
}

// check reads the state and prints it when it changed.
func (w *watcher) check(ctx context.Context, reader stateReader) error {
	snap, err := reader.GetState(ctx)
	if err != nil {
		return err
	}

	if w.last == nil || *w.last != snap {
		w.last = &snap

		_, _ = fmt.Fprintf(w.out, "%s %s\n", time.Now().Format(time.RFC3339), client.FormatState(snap))
	}

	if w.exitOnTriggered && snap.CurrentMode == security.ModeTriggered {
		return ErrTriggered
	}

	return nil
}
