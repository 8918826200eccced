// Package lock locks the desktop session.
package lock

import (
	"context"
	"fmt"

	"github.com/bryanchriswhite/DisplaySwitcher/internal/command"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/config"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/logger"
)

// Locker locks the current session
type Locker interface {
	Lock(ctx context.Context) error
}

// CommandLocker runs "<command> lock-session" (loginctl by default)
type CommandLocker struct {
	runner  command.Runner
	command string
}

// NewCommandLocker creates a locker invoking tool through runner
func NewCommandLocker(runner command.Runner, tool string) *CommandLocker {
	return &CommandLocker{runner: runner, command: tool}
}

// Lock implements Locker
func (l *CommandLocker) Lock(ctx context.Context) error {
	if _, err := l.runner.Run(ctx, l.command, "lock-session"); err != nil {
		logger.WithComponent("lock").Error().Err(err).Msg("Failed to lock the screen")
		return fmt.Errorf("failed to lock the screen: %w", err)
	}
	logger.WithComponent("lock").Info().Msg("Locked the screen")
	return nil
}

// ForBackend picks the locker named by a config lock_backend value
func ForBackend(backend string, cmdLocker, busLocker Locker) (Locker, error) {
	switch backend {
	case config.LockBackendLoginctl:
		return cmdLocker, nil
	case config.LockBackendDBus:
		if busLocker == nil {
			return nil, fmt.Errorf("lock backend %q requires a session bus", backend)
		}
		return busLocker, nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", backend)
	}
}
