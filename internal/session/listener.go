package session

import (
	"context"
	"fmt"

	"github.com/bryanchriswhite/DisplaySwitcher/internal/event"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/logger"
	"github.com/godbus/dbus/v5"
)

// Listen subscribes to the idle monitor WatchFired and screensaver
// ActiveChanged signals and forwards them as events on out until ctx is
// done. It must be called before any watch is registered so that no
// WatchFired is missed.
func (s *Session) Listen(ctx context.Context, out chan<- event.Event) error {
	log := logger.WithComponent("session")

	if err := s.conn.AddMatchSignal(
		dbus.WithMatchInterface(idleMonitorInterface),
		dbus.WithMatchMember("WatchFired"),
		dbus.WithMatchObjectPath(idleMonitorPath),
	); err != nil {
		return fmt.Errorf("failed to subscribe to WatchFired: %w", err)
	}
	log.Debug().Msg("Subscribed to IdleMonitor.WatchFired signal")

	if err := s.conn.AddMatchSignal(
		dbus.WithMatchInterface(screenSaverInterface),
		dbus.WithMatchMember("ActiveChanged"),
		dbus.WithMatchObjectPath(screenSaverPath),
	); err != nil {
		return fmt.Errorf("failed to subscribe to ActiveChanged: %w", err)
	}
	log.Debug().Msg("Subscribed to ScreenSaver.ActiveChanged signal")

	signals := make(chan *dbus.Signal, 10)
	s.conn.Signal(signals)

	go func() {
		defer s.conn.RemoveSignal(signals)
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					log.Warn().Msg("Session bus signal channel closed")
					return
				}
				ev, ok := translate(sig)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return nil
}

// translate maps a bus signal onto an event. Signals from other senders
// and malformed bodies are dropped.
func translate(sig *dbus.Signal) (event.Event, bool) {
	if sig == nil {
		return nil, false
	}
	log := logger.WithComponent("session")

	switch sig.Name {
	case watchFiredSignal:
		if len(sig.Body) < 1 {
			log.Debug().Msg("Dropping WatchFired without a body")
			return nil, false
		}
		id, ok := sig.Body[0].(uint32)
		if !ok {
			log.Debug().Interface("body", sig.Body).Msg("Dropping malformed WatchFired")
			return nil, false
		}
		return event.WatchFired{ID: id}, true

	case activeChangedSignal:
		if len(sig.Body) < 1 {
			log.Debug().Msg("Dropping ActiveChanged without a body")
			return nil, false
		}
		locked, ok := sig.Body[0].(bool)
		if !ok {
			log.Debug().Interface("body", sig.Body).Msg("Dropping malformed ActiveChanged")
			return nil, false
		}
		return event.LockStateChanged{Locked: locked}, true
	}

	return nil, false
}
