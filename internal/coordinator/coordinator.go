// Package coordinator turns idle, activity and lock notifications into
// display switches and screen locks.
//
// A Coordinator owns the two watch handles and the display-switched flag.
// They are only touched from the goroutine running Run (or directly
// calling Handle in tests), so no locking protects them. Other goroutines
// talk to it by sending requests through its inbox.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bryanchriswhite/DisplaySwitcher/internal/event"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/logger"
)

// IdleMonitor registers and removes idle-monitor watches
type IdleMonitor interface {
	AddIdleWatch(ctx context.Context, threshold uint64) (uint32, error)
	AddUserActiveWatch(ctx context.Context) (uint32, error)
	RemoveWatch(ctx context.Context, id uint32) error
}

// Switcher makes the named monitor primary at mode
type Switcher interface {
	Switch(ctx context.Context, name, mode string) error
}

// Locker locks the session
type Locker interface {
	Lock(ctx context.Context) error
}

// ErrStopped is returned by requests made after Run has returned
var ErrStopped = errors.New("coordinator stopped")

const historySize = 64

// Options carries the settings the coordinator acts on
type Options struct {
	IdleThreshold    uint64 // milliseconds
	MonitorName      string
	MonitorMode      string
	RearmActiveWatch bool
}

// Coordinator is the idle/display-switch state machine
type Coordinator struct {
	opts     Options
	idle     IdleMonitor
	switcher Switcher
	locker   Locker
	now      func() time.Time

	// Loop-owned state
	idleWatch       *uint32
	activeWatch     *uint32
	activeConsumed  bool
	displaySwitched bool
	history         []Transition

	inbox   chan request
	stopped chan struct{}

	mu        sync.RWMutex
	listeners []chan Transition
}

// New creates a coordinator in the Active state
func New(opts Options, idle IdleMonitor, switcher Switcher, locker Locker) *Coordinator {
	return &Coordinator{
		opts:      opts,
		idle:      idle,
		switcher:  switcher,
		locker:    locker,
		now:       time.Now,
		inbox:     make(chan request),
		stopped:   make(chan struct{}),
		listeners: make([]chan Transition, 0),
	}
}

// Setup registers the idle watch and the user-active watch. When either
// registration fails, whatever was registered is removed again and the
// error returned.
func (c *Coordinator) Setup(ctx context.Context) error {
	log := logger.WithComponent("coordinator")

	idleID, err := c.idle.AddIdleWatch(ctx, c.opts.IdleThreshold)
	if err != nil {
		return fmt.Errorf("failed to set up idle watch: %w", err)
	}
	c.idleWatch = &idleID
	log.Info().
		Uint32("watch_id", idleID).
		Uint64("threshold_ms", c.opts.IdleThreshold).
		Msg("Set up idle watch")

	if err := c.armActiveWatch(ctx); err != nil {
		c.Shutdown(ctx)
		return fmt.Errorf("failed to set up activity watch: %w", err)
	}
	return nil
}

func (c *Coordinator) armActiveWatch(ctx context.Context) error {
	activeID, err := c.idle.AddUserActiveWatch(ctx)
	if err != nil {
		return err
	}
	c.activeWatch = &activeID
	c.activeConsumed = false
	logger.WithComponent("coordinator").Info().
		Uint32("watch_id", activeID).
		Msg("Set up activity watch")
	return nil
}

// Shutdown removes each registered watch once. Failures are logged only.
func (c *Coordinator) Shutdown(ctx context.Context) {
	log := logger.WithComponent("coordinator")

	for _, w := range []**uint32{&c.idleWatch, &c.activeWatch} {
		if *w == nil {
			continue
		}
		id := **w
		*w = nil
		if err := c.idle.RemoveWatch(ctx, id); err != nil {
			log.Error().Err(err).Uint32("watch_id", id).Msg("Error removing watch")
			continue
		}
		log.Info().Uint32("watch_id", id).Msg("Removed watch")
	}
}

// Run dispatches events one at a time until ctx is done or events is
// closed. Requests made through the coordinator's methods are served by
// the same loop.
func (c *Coordinator) Run(ctx context.Context, events <-chan event.Event) error {
	defer close(c.stopped)

	log := logger.WithComponent("coordinator")
	log.Info().Uint64("threshold_ms", c.opts.IdleThreshold).Msg("Monitoring idle time")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				log.Info().Msg("Event source closed")
				return nil
			}
			c.Handle(ctx, ev)
		case req := <-c.inbox:
			req.serve(ctx, c)
		}
	}
}

// Handle applies one event to the state machine
func (c *Coordinator) Handle(ctx context.Context, ev event.Event) {
	switch e := ev.(type) {
	case event.WatchFired:
		c.handleWatchFired(ctx, e.ID)
	case event.LockStateChanged:
		c.handleLockStateChanged(ctx, e.Locked)
	default:
		logger.WithComponent("coordinator").Debug().
			Interface("event", ev).
			Msg("Ignoring unknown event")
	}
}

func (c *Coordinator) handleWatchFired(ctx context.Context, id uint32) {
	log := logger.WithComponent("coordinator")

	switch {
	case c.idleWatch != nil && id == *c.idleWatch:
		log.Info().Uint32("watch_id", id).Msg("Idle watch triggered")
		// Switch even when already switched
		if err := c.switcher.Switch(ctx, c.opts.MonitorName, c.opts.MonitorMode); err != nil {
			log.Error().Err(err).Msg("Display switch failed, staying active")
			return
		}
		if err := c.locker.Lock(ctx); err != nil {
			log.Error().Err(err).Msg("Screen lock failed")
		}
		c.setSwitched(true, ReasonIdleWatch, id)
		if c.activeConsumed && c.opts.RearmActiveWatch {
			if err := c.armActiveWatch(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to re-arm activity watch")
			}
		}

	case c.activeWatch != nil && id == *c.activeWatch:
		log.Info().Uint32("watch_id", id).Msg("User became active")
		// Mutter drops user-active watches once they fire
		c.activeConsumed = true
		c.setSwitched(false, ReasonActiveWatch, id)

	default:
		log.Debug().Uint32("watch_id", id).Msg("Ignoring unrecognized watch")
	}
}

func (c *Coordinator) handleLockStateChanged(ctx context.Context, locked bool) {
	log := logger.WithComponent("coordinator")

	if locked {
		log.Info().Msg("Screen locked, ensuring display configuration")
		if err := c.switcher.Switch(ctx, c.opts.MonitorName, c.opts.MonitorMode); err != nil {
			log.Error().Err(err).Msg("Display re-assertion failed")
		}
		return
	}

	log.Info().Msg("Screen unlocked, resetting display state")
	c.setSwitched(false, ReasonUnlock, 0)
}

func (c *Coordinator) setSwitched(switched bool, reason Reason, watchID uint32) {
	if c.displaySwitched == switched {
		return
	}

	t := Transition{
		Time:    c.now(),
		From:    stateOf(c.displaySwitched),
		To:      stateOf(switched),
		Reason:  reason,
		WatchID: watchID,
	}
	c.displaySwitched = switched

	c.history = append(c.history, t)
	if len(c.history) > historySize {
		c.history = c.history[len(c.history)-historySize:]
	}

	logger.WithComponent("coordinator").Info().
		Str("from", string(t.From)).
		Str("to", string(t.To)).
		Str("reason", string(t.Reason)).
		Msg("Display state changed")

	c.notifyListeners(t)
}

// DisplaySwitched reports the flag. Only safe from the loop goroutine or
// when Run is not running.
func (c *Coordinator) DisplaySwitched() bool {
	return c.displaySwitched
}

// snapshot copies the loop-owned state
func (c *Coordinator) snapshot() Snapshot {
	s := Snapshot{
		State:           stateOf(c.displaySwitched),
		DisplaySwitched: c.displaySwitched,
		MonitorName:     c.opts.MonitorName,
		MonitorMode:     c.opts.MonitorMode,
		IdleThresholdMS: c.opts.IdleThreshold,
		ActiveConsumed:  c.activeConsumed,
	}
	if c.idleWatch != nil {
		id := *c.idleWatch
		s.IdleWatchID = &id
	}
	if c.activeWatch != nil {
		id := *c.activeWatch
		s.ActiveWatchID = &id
	}
	if n := len(c.history); n > 0 {
		last := c.history[n-1]
		s.LastTransition = &last
	}
	return s
}

// Subscribe returns a channel receiving every state transition
func (c *Coordinator) Subscribe() chan Transition {
	ch := make(chan Transition, 10)
	c.mu.Lock()
	c.listeners = append(c.listeners, ch)
	c.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe
func (c *Coordinator) Unsubscribe(ch chan Transition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, listener := range c.listeners {
		if listener == ch {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

func (c *Coordinator) notifyListeners(t Transition) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, listener := range c.listeners {
		select {
		case listener <- t:
		default:
			// Skip if channel is full
		}
	}
}
