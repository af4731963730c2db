package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/mitchellh/go-ps"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/logger"
)

// DefaultPlayer is the audio player executable.
const DefaultPlayer = "ffplay"

// ErrSoundNotFound is returned when no sound file exists for a notification.
var ErrSoundNotFound = errors.New("sound file not found")

// AudioOptions configures the audio notifier.
type AudioOptions struct {
	// Directory holds one subdirectory of sounds per language.
	Directory string
	// Language selects the sound subdirectory, for example "en-US".
	Language string
	// AlertLooped repeats the alert sound until the next notification.
	AlertLooped bool
	// Player is the player executable, ffplay by default.
	Player string
}

// Audio plays a sound per current notification and per entering-mode cue.
// Each sound stops the previous one.
type Audio struct {
	opts AudioOptions

	mu     sync.Mutex
	player *exec.Cmd
}

// NewAudio creates an audio notifier.
func NewAudio(opts AudioOptions) *Audio {
	if opts.Player == "" {
		opts.Player = DefaultPlayer
	}

	return &Audio{opts: opts}
}

// Name implements Notifier.
func (a *Audio) Name() string {
	return "audio"
}

// Notify implements Notifier. The player is started and left running; it is
// stopped by the next sound or by Stop.
func (a *Audio) Notify(ctx context.Context, n security.Notification) error {
	// Target requests are heard only through the entering-mode cue, and
	// disarming is always silent.
	if n.Kind == security.KindTarget && (!n.Cue || n.Mode == security.ModeOff) {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked()

	path := a.SoundPath(n)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrSoundNotFound, path)
	}

	//nolint:gosec // The player is configured by the operator.
	cmd := exec.Command(a.opts.Player, a.playerArgs(n, path)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", a.opts.Player, err)
	}

	a.player = cmd
	logger.DebugKV(ctx, "Playing sound", "file", path)

	go a.reap(ctx, cmd)

	return nil
}

// Stop stops the current sound.
func (a *Audio) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked()
}

// SoundPath returns the file played for n.
func (a *Audio) SoundPath(n security.Notification) string {
	return filepath.Join(a.opts.Directory, a.opts.Language, n.Kind.String()+"-"+n.Name()+".mp3")
}

func (a *Audio) playerArgs(n security.Notification, path string) []string {
	args := []string{"-loglevel", "error", "-nodisp"}

	looped := n.Kind == security.KindCurrent &&
		(n.Mode == security.ModeTriggered && !n.Alert || n.Alert && a.opts.AlertLooped)
	if looped {
		args = append(args, "-loop", "0")
	} else {
		args = append(args, "-autoexit")
	}

	return append(args, path)
}

func (a *Audio) stopLocked() {
	if a.player == nil || a.player.Process == nil {
		return
	}

	_ = a.player.Process.Kill()
	a.player = nil
}

// reap waits for the player to exit and forgets it if it is still current.
func (a *Audio) reap(ctx context.Context, cmd *exec.Cmd) {
	err := cmd.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.player != cmd {
		return
	}

	a.player = nil

	if err != nil {
		logger.WarnKV(ctx, "Audio player failed", "error", err)
	}
}

// TerminateStalePlayers kills orphaned player processes left behind by a
// previous run. Only processes adopted by init are considered.
func TerminateStalePlayers(player string) (int, error) {
	if player == "" {
		player = DefaultPlayer
	}

	processList, err := ps.Processes()
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}

	executable := filepath.Base(player)
	thisProcessID := os.Getpid()
	killed := 0

	for _, process := range processList {
		if process.Pid() == thisProcessID || process.PPid() != 1 {
			continue
		}

		if process.Executable() != executable {
			continue
		}

		runningProcess, err := os.FindProcess(process.Pid())
		if err != nil {
			return killed, fmt.Errorf("find process %d: %w", process.Pid(), err)
		}

		if err = runningProcess.Kill(); err != nil {
			return killed, fmt.Errorf("kill process %d: %w", process.Pid(), err)
		}

		killed++
	}

	return killed, nil
}
