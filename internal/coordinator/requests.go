package coordinator

import (
	"context"

	"github.com/bryanchriswhite/DisplaySwitcher/internal/logger"
)

// request is work submitted by another goroutine and served by Run
type request interface {
	serve(ctx context.Context, c *Coordinator)
}

type stateRequest struct{ reply chan Snapshot }

func (r stateRequest) serve(_ context.Context, c *Coordinator) {
	r.reply <- c.snapshot()
}

type historyRequest struct{ reply chan []Transition }

func (r historyRequest) serve(_ context.Context, c *Coordinator) {
	r.reply <- append([]Transition(nil), c.history...)
}

// switchRequest runs a manual switch. It does not change the flag.
type switchRequest struct{ reply chan error }

func (r switchRequest) serve(ctx context.Context, c *Coordinator) {
	logger.WithComponent("coordinator").Info().Msg("Manual display switch requested")
	r.reply <- c.switcher.Switch(ctx, c.opts.MonitorName, c.opts.MonitorMode)
}

type lockRequest struct{ reply chan error }

func (r lockRequest) serve(ctx context.Context, c *Coordinator) {
	logger.WithComponent("coordinator").Info().Msg("Manual screen lock requested")
	r.reply <- c.locker.Lock(ctx)
}

// submit hands req to the loop. Replies are buffered so the loop never
// blocks on a caller that gave up.
func (c *Coordinator) submit(ctx context.Context, req request) error {
	select {
	case c.inbox <- req:
		return nil
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, reply chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// State returns a snapshot taken by the loop
func (c *Coordinator) State(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := c.submit(ctx, stateRequest{reply: reply}); err != nil {
		return Snapshot{}, err
	}
	return await(ctx, reply)
}

// History returns the recent transitions, oldest first
func (c *Coordinator) History(ctx context.Context) ([]Transition, error) {
	reply := make(chan []Transition, 1)
	if err := c.submit(ctx, historyRequest{reply: reply}); err != nil {
		return nil, err
	}
	return await(ctx, reply)
}

// RequestSwitch runs the display switch on the loop and waits for it
func (c *Coordinator) RequestSwitch(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := c.submit(ctx, switchRequest{reply: reply}); err != nil {
		return err
	}
	err, waitErr := await(ctx, reply)
	if waitErr != nil {
		return waitErr
	}
	return err
}

// RequestLock runs the screen lock on the loop and waits for it
func (c *Coordinator) RequestLock(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := c.submit(ctx, lockRequest{reply: reply}); err != nil {
		return err
	}
	err, waitErr := await(ctx, reply)
	if waitErr != nil {
		return waitErr
	}
	return err
}
