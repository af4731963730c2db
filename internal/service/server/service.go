package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/bdrydyk/homebridge-securitysystem/internal/config"
	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/engine"
	"github.com/bdrydyk/homebridge-securitysystem/internal/logger"
	"github.com/bdrydyk/homebridge-securitysystem/internal/notify"
	repo "github.com/bdrydyk/homebridge-securitysystem/internal/repository/state"
)

// loadState reads the saved state. A missing state yields nil; an unreadable
// one is logged and ignored so the system still starts from its defaults.
func loadState(ctx context.Context, repository repo.Repository) *security.State {
	state, err := repository.Load(ctx)

	switch {
	case err == nil:
		logger.InfoKV(ctx, "Saved state restored",
			"current_mode", state.CurrentMode,
			"target_mode", state.TargetMode,
			"delay_arming", state.DelayArming)

		return state
	case errors.Is(err, repo.ErrNotFound):
		logger.Debug(ctx, "No saved state, using defaults")
	default:
		logger.ErrorKV(ctx, "Unable to restore saved state, using defaults", "error", err)
	}

	return nil
}

// engineOptions converts the settings into engine options.
func engineOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		ArmDelay:           cfg.ArmDelay(),
		TriggerDelay:       cfg.TriggerDelay(),
		SirenPulseInterval: cfg.SirenPulseInterval(),
		ResetDelay:         cfg.ResetDelay(),
		DisabledTargets:    cfg.DisabledModes,
		IgnoreOffMode:      cfg.IgnoreOffMode,
		DefaultMode:        cfg.DefaultMode,
	}
}

// notifiers holds the configured notifiers and the resources they own.
type notifiers struct {
	list   []notify.Notifier
	audio  *notify.Audio
	script *notify.Script
}

// buildNotifiers creates every notifier enabled in the settings.
func buildNotifiers(ctx context.Context, cfg *config.Config) (*notifiers, error) {
	n := new(notifiers)

	if cfg.Audio.Enabled {
		// Players orphaned by a previous run would keep sounding.
		killed, err := notify.TerminateStalePlayers(cfg.Audio.Player)
		if err != nil {
			logger.WarnKV(ctx, "Unable to terminate stale players", "error", err)
		} else if killed > 0 {
			logger.InfoKV(ctx, "Stale players terminated", "count", killed)
		}

		n.audio = notify.NewAudio(notify.AudioOptions{
			Directory:   cfg.Audio.Directory,
			Language:    cfg.Audio.Language,
			AlertLooped: cfg.Audio.AlertLooped,
			Player:      cfg.Audio.Player,
		})
		n.list = append(n.list, n.audio)
	}

	if len(cfg.Commands.Current) > 0 || len(cfg.Commands.Target) > 0 {
		n.list = append(n.list, notify.NewCommand(notify.Table(cfg.Commands)))
	}

	if cfg.Webhook.Host != "" {
		n.list = append(n.list, notify.NewWebhook(notify.WebhookOptions{
			Host:    cfg.Webhook.Host,
			Paths:   notify.Table(cfg.Webhook.Paths()),
			Timeout: cfg.Webhook.Timeout,
		}))
	}

	if cfg.Script.Path != "" {
		script, err := notify.LoadScript(ctx, cfg.Script.Path)
		if err != nil {
			n.close()

			return nil, fmt.Errorf("load notification script: %w", err)
		}

		n.script = script
		n.list = append(n.list, script)
	}

	return n, nil
}

// close stops sound playback and releases the script.
func (n *notifiers) close() {
	if n.audio != nil {
		n.audio.Stop()
	}

	if n.script != nil {
		n.script.Close()
	}
}

// names lists the notifier names for logging.
func (n *notifiers) names() []string {
	names := make([]string, 0, len(n.list))
	for _, notifier := range n.list {
		names = append(names, notifier.Name())
	}

	return names
}
