package session

import (
	"context"
	"fmt"
	"time"
)

// IdleMonitor is a client for org.gnome.Mutter.IdleMonitor
type IdleMonitor struct {
	obj caller
}

// AddIdleWatch registers a watch that fires once the session has been
// idle for threshold milliseconds, and returns its handle.
func (m *IdleMonitor) AddIdleWatch(ctx context.Context, threshold uint64) (uint32, error) {
	id, err := call[uint32](ctx, m.obj, idleMonitorInterface+".AddIdleWatch", threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to add idle watch: %w", err)
	}
	return id, nil
}

// AddUserActiveWatch registers a one-shot watch that fires the next time
// the user becomes active.
func (m *IdleMonitor) AddUserActiveWatch(ctx context.Context) (uint32, error) {
	id, err := call[uint32](ctx, m.obj, idleMonitorInterface+".AddUserActiveWatch")
	if err != nil {
		return 0, fmt.Errorf("failed to add user active watch: %w", err)
	}
	return id, nil
}

// RemoveWatch removes a watch by handle
func (m *IdleMonitor) RemoveWatch(ctx context.Context, id uint32) error {
	if err := m.obj.CallWithContext(ctx, idleMonitorInterface+".RemoveWatch", 0, id).Store(); err != nil {
		return fmt.Errorf("failed to remove watch %d: %w", id, err)
	}
	return nil
}

// GetIdletime returns how long the session has been idle
func (m *IdleMonitor) GetIdletime(ctx context.Context) (time.Duration, error) {
	ms, err := call[uint64](ctx, m.obj, idleMonitorInterface+".GetIdletime")
	if err != nil {
		return 0, fmt.Errorf("failed to get idle time: %w", err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
