// Package session talks to the GNOME session bus: the Mutter idle monitor,
// the GNOME screensaver and their signals.
package session

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// D-Bus constants
const (
	idleMonitorService   = "org.gnome.Mutter.IdleMonitor"
	idleMonitorPath      = "/org/gnome/Mutter/IdleMonitor/Core"
	idleMonitorInterface = "org.gnome.Mutter.IdleMonitor"

	screenSaverService   = "org.gnome.ScreenSaver"
	screenSaverPath      = "/org/gnome/ScreenSaver"
	screenSaverInterface = "org.gnome.ScreenSaver"

	watchFiredSignal    = idleMonitorInterface + ".WatchFired"
	activeChangedSignal = screenSaverInterface + ".ActiveChanged"
)

// caller is the subset of dbus.BusObject used for method calls
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Session is a connection to the user's session bus
type Session struct {
	conn *dbus.Conn
}

// Connect opens the session bus
func Connect() (*Session, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Session{conn: conn}, nil
}

// Close closes the bus connection
func (s *Session) Close() error {
	return s.conn.Close()
}

// IdleMonitor returns a client for the Mutter idle monitor core object
func (s *Session) IdleMonitor() *IdleMonitor {
	return &IdleMonitor{obj: s.conn.Object(idleMonitorService, idleMonitorPath)}
}

// ScreenSaver returns a client for the GNOME screensaver
func (s *Session) ScreenSaver() *ScreenSaver {
	return &ScreenSaver{obj: s.conn.Object(screenSaverService, screenSaverPath)}
}

func call[T any](ctx context.Context, obj caller, method string, args ...interface{}) (T, error) {
	var v T
	if err := obj.CallWithContext(ctx, method, 0, args...).Store(&v); err != nil {
		return v, fmt.Errorf("%s: %w", method, err)
	}
	return v, nil
}
