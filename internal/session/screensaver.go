package session

import (
	"context"
	"fmt"

	"github.com/bryanchriswhite/DisplaySwitcher/internal/logger"
)

// ScreenSaver is a client for org.gnome.ScreenSaver
type ScreenSaver struct {
	obj caller
}

// GetActive reports whether the lock screen is currently shown
func (s *ScreenSaver) GetActive(ctx context.Context) (bool, error) {
	active, err := call[bool](ctx, s.obj, screenSaverInterface+".GetActive")
	if err != nil {
		return false, fmt.Errorf("failed to get screensaver state: %w", err)
	}
	return active, nil
}

// Lock asks the shell to lock the session immediately
func (s *ScreenSaver) Lock(ctx context.Context) error {
	if err := s.obj.CallWithContext(ctx, screenSaverInterface+".Lock", 0).Store(); err != nil {
		logger.WithComponent("session").Error().Err(err).Msg("Failed to lock the screen")
		return fmt.Errorf("failed to lock the screen: %w", err)
	}
	logger.WithComponent("session").Info().Msg("Locked the screen")
	return nil
}
