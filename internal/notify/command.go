package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/logger"
)

// ErrCommandFailed is returned when a command exits with an error or writes to stderr.
var ErrCommandFailed = errors.New("command failed")

// Command runs a shell command per notification.
type Command struct {
	commands Table
}

// NewCommand creates a command notifier.
func NewCommand(commands Table) *Command {
	return &Command{commands: commands}
}

// Name implements Notifier.
func (c *Command) Name() string {
	return "command"
}

// Notify implements Notifier. The command runs through the system shell and
// is killed when ctx is done.
func (c *Command) Notify(ctx context.Context, n security.Notification) error {
	line, ok := c.commands.Lookup(n)
	if !ok {
		return nil
	}

	var stdout, stderr bytes.Buffer

	cmd := shellCommand(ctx, line)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %q: %w: %s", ErrCommandFailed, line, err, strings.TrimSpace(stderr.String()))
	}

	if stderr.Len() > 0 {
		return fmt.Errorf("%w: %q: %s", ErrCommandFailed, line, strings.TrimSpace(stderr.String()))
	}

	logger.InfoKV(ctx, "Command output", "command", line, "output", strings.TrimSpace(stdout.String()))

	return nil
}

// shellCommand builds a command running line through the platform shell:
// - Windows: `cmd.exe /C line`
// - elsewhere: `sh -c line`
func shellCommand(ctx context.Context, line string) *exec.Cmd {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return exec.CommandContext(ctx, "cmd.exe", "/C", line)
	}

	return exec.CommandContext(ctx, "sh", "-c", line)
}
