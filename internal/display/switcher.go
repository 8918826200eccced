// Package display resolves a monitor by its human-readable name and makes
// it the sole primary logical monitor through the monitor-configuration
// tool (gnome-monitor-config).
package display

import (
	"context"
	"fmt"

	"github.com/bryanchriswhite/DisplaySwitcher/internal/command"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/logger"
)

// Switcher drives the monitor-configuration command
type Switcher struct {
	runner  command.Runner
	command string
}

// NewSwitcher creates a switcher that invokes tool through runner
func NewSwitcher(runner command.Runner, tool string) *Switcher {
	return &Switcher{
		runner:  runner,
		command: tool,
	}
}

// listing returns the raw output of "<tool> list"
func (s *Switcher) listing(ctx context.Context) (string, error) {
	res, err := s.runner.Run(ctx, s.command, "list")
	if err != nil {
		return "", fmt.Errorf("failed to get monitor list: %w", err)
	}
	return res.Stdout, nil
}

// ResolvePort finds the port (DP-2, HDMI-1, ...) of the monitor named name
func (s *Switcher) ResolvePort(ctx context.Context, name string) (string, error) {
	out, err := s.listing(ctx)
	if err != nil {
		return "", err
	}

	port, err := FindPort(out, name)
	if err != nil {
		return "", err
	}

	logger.WithComponent("display").Info().
		Str("monitor", name).
		Str("port", port).
		Msg("Found monitor")
	return port, nil
}

// ListMonitors returns every monitor in the current listing
func (s *Switcher) ListMonitors(ctx context.Context) ([]Monitor, error) {
	out, err := s.listing(ctx)
	if err != nil {
		return nil, err
	}
	return ParseMonitors(out), nil
}

// Switch makes the monitor named name the only, primary logical monitor
// at the origin using mode. Both commands are idempotent, so nothing is
// rolled back when the second one fails.
func (s *Switcher) Switch(ctx context.Context, name, mode string) error {
	log := logger.WithComponent("display")

	port, err := s.ResolvePort(ctx, name)
	if err != nil {
		log.Error().Err(err).Str("monitor", name).Msg("Could not find port for monitor")
		return fmt.Errorf("failed to resolve port for %q: %w", name, err)
	}

	if _, err := s.runner.Run(ctx, s.command, SetArgs(port, mode)...); err != nil {
		log.Error().Err(err).Str("port", port).Str("mode", mode).Msg("Failed to switch display")
		return fmt.Errorf("failed to switch display to %s: %w", port, err)
	}

	log.Info().
		Str("monitor", name).
		Str("port", port).
		Str("mode", mode).
		Msg("Switched display")
	return nil
}

// SetArgs builds the "set" arguments for a single primary logical monitor
func SetArgs(port, mode string) []string {
	return []string{
		"set",
		"--logical-monitor",
		"--x=0",
		"--y=0",
		"--primary",
		"--monitor=" + port,
		"--mode=" + mode,
	}
}
