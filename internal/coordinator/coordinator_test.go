package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bryanchriswhite/DisplaySwitcher/internal/command"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/command/commandtest"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/display"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/event"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdleMonitor struct {
	nextID     uint32
	thresholds []uint64
	activeAdds int
	removed    []uint32

	idleErr   error
	activeErr error
	removeErr error
}

func newFakeIdleMonitor() *fakeIdleMonitor {
	return &fakeIdleMonitor{nextID: 1}
}

func (f *fakeIdleMonitor) AddIdleWatch(_ context.Context, threshold uint64) (uint32, error) {
	if f.idleErr != nil {
		return 0, f.idleErr
	}
	f.thresholds = append(f.thresholds, threshold)
	id := f.nextID
	f.nextID++
	return id, nil
}

func (f *fakeIdleMonitor) AddUserActiveWatch(_ context.Context) (uint32, error) {
	if f.activeErr != nil {
		return 0, f.activeErr
	}
	f.activeAdds++
	id := f.nextID
	f.nextID++
	return id, nil
}

func (f *fakeIdleMonitor) RemoveWatch(_ context.Context, id uint32) error {
	f.removed = append(f.removed, id)
	return f.removeErr
}

type fakeSwitcher struct {
	calls int
	name  string
	mode  string
	err   error
}

func (f *fakeSwitcher) Switch(_ context.Context, name, mode string) error {
	f.calls++
	f.name, f.mode = name, mode
	return f.err
}

type fakeLocker struct {
	calls int
	err   error
}

func (f *fakeLocker) Lock(_ context.Context) error {
	f.calls++
	return f.err
}

var testOptions = Options{
	IdleThreshold:    5000,
	MonitorName:      `Acme 23"`,
	MonitorMode:      "1920x1080@60.000",
	RearmActiveWatch: true,
}

type fixture struct {
	idle     *fakeIdleMonitor
	switcher *fakeSwitcher
	locker   *fakeLocker
	c        *Coordinator
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		idle:     newFakeIdleMonitor(),
		switcher: &fakeSwitcher{},
		locker:   &fakeLocker{},
	}
	f.c = New(opts, f.idle, f.switcher, f.locker)
	f.c.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) setup(t *testing.T) {
	t.Helper()
	require.NoError(t, f.c.Setup(context.Background()))
}

func TestSetup(t *testing.T) {
	t.Run("registers idle then active watch", func(t *testing.T) {
		f := newFixture(t, testOptions)
		f.setup(t)

		assert.Equal(t, []uint64{5000}, f.idle.thresholds)
		assert.Equal(t, 1, f.idle.activeAdds)
		require.NotNil(t, f.c.idleWatch)
		require.NotNil(t, f.c.activeWatch)
		assert.Equal(t, uint32(1), *f.c.idleWatch)
		assert.Equal(t, uint32(2), *f.c.activeWatch)
		assert.False(t, f.c.DisplaySwitched())
	})

	t.Run("idle watch failure", func(t *testing.T) {
		f := newFixture(t, testOptions)
		f.idle.idleErr = errors.New("service unknown")

		err := f.c.Setup(context.Background())
		assert.ErrorIs(t, err, f.idle.idleErr)
		assert.Equal(t, 0, f.idle.activeAdds)
		assert.Empty(t, f.idle.removed)
	})

	t.Run("active watch failure removes idle watch", func(t *testing.T) {
		f := newFixture(t, testOptions)
		f.idle.activeErr = errors.New("access denied")

		err := f.c.Setup(context.Background())
		assert.ErrorIs(t, err, f.idle.activeErr)
		assert.Equal(t, []uint32{1}, f.idle.removed)
		assert.Nil(t, f.c.idleWatch)
	})
}

func TestIdleWatchFired(t *testing.T) {
	ctx := context.Background()

	t.Run("switches then locks", func(t *testing.T) {
		f := newFixture(t, testOptions)
		f.setup(t)

		f.c.Handle(ctx, event.WatchFired{ID: 1})

		assert.Equal(t, 1, f.switcher.calls)
		assert.Equal(t, `Acme 23"`, f.switcher.name)
		assert.Equal(t, "1920x1080@60.000", f.switcher.mode)
		assert.Equal(t, 1, f.locker.calls)
		assert.True(t, f.c.DisplaySwitched())

		require.Len(t, f.c.history, 1)
		assert.Equal(t, Transition{
			Time:    f.c.now(),
			From:    StateActive,
			To:      StateSwitched,
			Reason:  ReasonIdleWatch,
			WatchID: 1,
		}, f.c.history[0])
	})

	t.Run("switches again when already switched", func(t *testing.T) {
		f := newFixture(t, testOptions)
		f.setup(t)

		f.c.Handle(ctx, event.WatchFired{ID: 1})
		f.c.Handle(ctx, event.WatchFired{ID: 1})

		assert.Equal(t, 2, f.switcher.calls)
		assert.Equal(t, 2, f.locker.calls)
		assert.True(t, f.c.DisplaySwitched())
		assert.Len(t, f.c.history, 1)
	})

	t.Run("switch failure skips lock", func(t *testing.T) {
		f := newFixture(t, testOptions)
		f.setup(t)
		f.switcher.err = errors.New("could not find monitor")

		f.c.Handle(ctx, event.WatchFired{ID: 1})

		assert.Equal(t, 0, f.locker.calls)
		assert.False(t, f.c.DisplaySwitched())
		assert.Empty(t, f.c.history)
	})

	t.Run("lock failure still marks switched", func(t *testing.T) {
		f := newFixture(t, testOptions)
		f.setup(t)
		f.locker.err = errors.New("no session")

		f.c.Handle(ctx, event.WatchFired{ID: 1})

		assert.Equal(t, 1, f.locker.calls)
		assert.True(t, f.c.DisplaySwitched())
	})
}

func TestActiveWatchFired(t *testing.T) {
	ctx := context.Background()

	t.Run("resets after idle", func(t *testing.T) {
		f := newFixture(t, testOptions)
		f.setup(t)

		f.c.Handle(ctx, event.WatchFired{ID: 1})
		f.c.Handle(ctx, event.WatchFired{ID: 2})

		assert.False(t, f.c.DisplaySwitched())
		assert.True(t, f.c.activeConsumed)
		require.Len(t, f.c.history, 2)
		assert.Equal(t, ReasonActiveWatch, f.c.history[1].Reason)
		assert.Equal(t, 1, f.switcher.calls)
	})

	t.Run("no transition when already active", func(t *testing.T) {
		f := newFixture(t, testOptions)
		f.setup(t)

		f.c.Handle(ctx, event.WatchFired{ID: 2})

		assert.False(t, f.c.DisplaySwitched())
		assert.Empty(t, f.c.history)
		assert.Equal(t, 0, f.switcher.calls)
	})
}

func TestUnknownWatchIgnored(t *testing.T) {
	f := newFixture(t, testOptions)
	f.setup(t)

	f.c.Handle(context.Background(), event.WatchFired{ID: 99})

	assert.Equal(t, 0, f.switcher.calls)
	assert.Equal(t, 0, f.locker.calls)
	assert.False(t, f.c.DisplaySwitched())
}

func TestLockStateChanged(t *testing.T) {
	ctx := context.Background()

	t.Run("locked re-asserts display without touching flag", func(t *testing.T) {
		f := newFixture(t, testOptions)
		f.setup(t)

		f.c.Handle(ctx, event.LockStateChanged{Locked: true})
		assert.Equal(t, 1, f.switcher.calls)
		assert.Equal(t, 0, f.locker.calls)
		assert.False(t, f.c.DisplaySwitched())

		f.c.Handle(ctx, event.WatchFired{ID: 1})
		f.c.Handle(ctx, event.LockStateChanged{Locked: true})
		assert.Equal(t, 3, f.switcher.calls)
		assert.True(t, f.c.DisplaySwitched())
	})

	t.Run("locked switch failure is tolerated", func(t *testing.T) {
		f := newFixture(t, testOptions)
		f.setup(t)
		f.switcher.err = errors.New("boom")

		f.c.Handle(ctx, event.LockStateChanged{Locked: true})
		assert.False(t, f.c.DisplaySwitched())
	})

	t.Run("unlocked resets flag", func(t *testing.T) {
		f := newFixture(t, testOptions)
		f.setup(t)

		f.c.Handle(ctx, event.WatchFired{ID: 1})
		f.c.Handle(ctx, event.LockStateChanged{Locked: false})

		assert.False(t, f.c.DisplaySwitched())
		require.Len(t, f.c.history, 2)
		assert.Equal(t, ReasonUnlock, f.c.history[1].Reason)
		assert.Zero(t, f.c.history[1].WatchID)
		assert.Equal(t, 1, f.switcher.calls)
	})
}

func TestRearmActiveWatch(t *testing.T) {
	ctx := context.Background()

	t.Run("re-registers after consumption", func(t *testing.T) {
		f := newFixture(t, testOptions)
		f.setup(t)

		f.c.Handle(ctx, event.WatchFired{ID: 1})
		f.c.Handle(ctx, event.WatchFired{ID: 2})
		f.c.Handle(ctx, event.WatchFired{ID: 1})

		assert.Equal(t, 2, f.idle.activeAdds)
		require.NotNil(t, f.c.activeWatch)
		assert.Equal(t, uint32(3), *f.c.activeWatch)
		assert.False(t, f.c.activeConsumed)

		f.c.Handle(ctx, event.WatchFired{ID: 3})
		assert.False(t, f.c.DisplaySwitched())

		// The consumed handle is no longer recognised
		f.c.Handle(ctx, event.WatchFired{ID: 1})
		f.c.Handle(ctx, event.WatchFired{ID: 2})
		assert.True(t, f.c.DisplaySwitched())
	})

	t.Run("not re-registered before consumption", func(t *testing.T) {
		f := newFixture(t, testOptions)
		f.setup(t)

		f.c.Handle(ctx, event.WatchFired{ID: 1})
		f.c.Handle(ctx, event.WatchFired{ID: 1})
		assert.Equal(t, 1, f.idle.activeAdds)
	})

	t.Run("disabled", func(t *testing.T) {
		opts := testOptions
		opts.RearmActiveWatch = false
		f := newFixture(t, opts)
		f.setup(t)

		f.c.Handle(ctx, event.WatchFired{ID: 1})
		f.c.Handle(ctx, event.WatchFired{ID: 2})
		f.c.Handle(ctx, event.WatchFired{ID: 1})

		assert.Equal(t, 1, f.idle.activeAdds)
		assert.Equal(t, uint32(2), *f.c.activeWatch)
	})

	t.Run("re-arm failure keeps switched state", func(t *testing.T) {
		f := newFixture(t, testOptions)
		f.setup(t)

		f.c.Handle(ctx, event.WatchFired{ID: 1})
		f.c.Handle(ctx, event.WatchFired{ID: 2})
		f.idle.activeErr = errors.New("bus gone")
		f.c.Handle(ctx, event.WatchFired{ID: 1})

		assert.True(t, f.c.DisplaySwitched())
		assert.True(t, f.c.activeConsumed)
	})
}

func TestShutdown(t *testing.T) {
	ctx := context.Background()

	t.Run("removes both watches once", func(t *testing.T) {
		f := newFixture(t, testOptions)
		f.setup(t)

		f.c.Shutdown(ctx)
		f.c.Shutdown(ctx)

		assert.Equal(t, []uint32{1, 2}, f.idle.removed)
		assert.Nil(t, f.c.idleWatch)
		assert.Nil(t, f.c.activeWatch)
	})

	t.Run("removal failures are tolerated", func(t *testing.T) {
		f := newFixture(t, testOptions)
		f.setup(t)
		f.idle.removeErr = errors.New("unknown watch")

		f.c.Shutdown(ctx)
		assert.Equal(t, []uint32{1, 2}, f.idle.removed)
	})

	t.Run("nothing registered", func(t *testing.T) {
		f := newFixture(t, testOptions)
		f.c.Shutdown(ctx)
		assert.Empty(t, f.idle.removed)
	})
}

func TestHistoryIsBounded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testOptions)
	f.setup(t)

	for i := 0; i < historySize; i++ {
		f.c.Handle(ctx, event.WatchFired{ID: 1})
		f.c.Handle(ctx, event.LockStateChanged{Locked: false})
	}

	require.Len(t, f.c.history, historySize)
	assert.Equal(t, ReasonIdleWatch, f.c.history[0].Reason)
	assert.Equal(t, ReasonUnlock, f.c.history[historySize-1].Reason)
}

func TestSubscribe(t *testing.T) {
	f := newFixture(t, testOptions)
	f.setup(t)

	ch := f.c.Subscribe()
	f.c.Handle(context.Background(), event.WatchFired{ID: 1})

	select {
	case tr := <-ch:
		assert.Equal(t, StateSwitched, tr.To)
	default:
		t.Fatal("expected a transition")
	}

	f.c.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)

	// Full subscribers never block the state machine
	full := f.c.Subscribe()
	for i := 0; i < 20; i++ {
		f.c.Handle(context.Background(), event.LockStateChanged{Locked: i%2 == 1})
		f.c.Handle(context.Background(), event.WatchFired{ID: 1})
	}
	assert.Len(t, full, cap(full))
}

func TestRun(t *testing.T) {
	f := newFixture(t, testOptions)
	f.setup(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := make(chan event.Event)
	done := make(chan error, 1)
	go func() { done <- f.c.Run(ctx, events) }()

	events <- event.WatchFired{ID: 1}

	snap, err := f.c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateSwitched, snap.State)
	assert.True(t, snap.DisplaySwitched)
	require.NotNil(t, snap.IdleWatchID)
	assert.Equal(t, uint32(1), *snap.IdleWatchID)
	require.NotNil(t, snap.LastTransition)
	assert.Equal(t, ReasonIdleWatch, snap.LastTransition.Reason)
	assert.Equal(t, uint64(5000), snap.IdleThresholdMS)

	history, err := f.c.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	require.NoError(t, f.c.RequestSwitch(ctx))
	require.NoError(t, f.c.RequestLock(ctx))
	assert.Equal(t, 2, f.switcher.calls)
	assert.Equal(t, 2, f.locker.calls)

	close(events)
	require.NoError(t, <-done)

	_, err = f.c.State(ctx)
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, f.c.RequestSwitch(ctx), ErrStopped)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, testOptions)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.c.Run(ctx, make(chan event.Event)) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRequestSwitchReportsError(t *testing.T) {
	f := newFixture(t, testOptions)
	f.switcher.err = errors.New("no such monitor")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go f.c.Run(ctx, make(chan event.Event))

	assert.ErrorIs(t, f.c.RequestSwitch(ctx), f.switcher.err)
	snap, err := f.c.State(ctx)
	require.NoError(t, err)
	assert.False(t, snap.DisplaySwitched)
}

const listing = `Monitor [ eDP-1 ] ON
  display-name: Built-in display
  modes:
    1920x1080@60.020 [id: '1920x1080@60.020'] CURRENT

Monitor [ DP-2 ] ON
  display-name: Acme 23"
  modes:
    1920x1080@60.000 [id: '1920x1080@60.000']
`

// Idle for the threshold: list, set and lock-session run in that order,
// and shutdown removes both watches.
func TestIdleSessionEndToEnd(t *testing.T) {
	ctx := context.Background()

	runner := commandtest.New().
		On("list", commandtest.Response{Result: command.Result{Stdout: listing}})
	idle := newFakeIdleMonitor()
	c := New(Options{
		IdleThreshold:    5000,
		MonitorName:      `Acme 23"`,
		MonitorMode:      "1920x1080@60.000",
		RearmActiveWatch: true,
	},
		idle,
		display.NewSwitcher(runner, "gnome-monitor-config"),
		lock.NewCommandLocker(runner, "loginctl"),
	)

	require.NoError(t, c.Setup(ctx))
	assert.Equal(t, []uint64{5000}, idle.thresholds)

	c.Handle(ctx, event.WatchFired{ID: 1})

	calls := runner.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "gnome-monitor-config list", calls[0].String())
	assert.Equal(t, "gnome-monitor-config set --logical-monitor --x=0 --y=0 --primary --monitor=DP-2 --mode=1920x1080@60.000", calls[1].String())
	assert.Equal(t, "loginctl lock-session", calls[2].String())
	assert.True(t, c.DisplaySwitched())

	c.Handle(ctx, event.WatchFired{ID: 2})
	assert.False(t, c.DisplaySwitched())

	c.Shutdown(ctx)
	assert.Equal(t, []uint32{1, 2}, idle.removed)
}
