// Package event defines the notifications consumed by the coordinator's
// dispatch loop.
package event

import "fmt"

// Kind identifies an event type
type Kind string

const (
	KindWatchFired       Kind = "watch-fired"
	KindLockStateChanged Kind = "lock-state-changed"
)

// Event is a single notification handled by the dispatch loop
type Event interface {
	Kind() Kind
}

// WatchFired is emitted by the idle monitor when a registered idle or
// user-active watch triggers. Whether it is the idle or the active watch
// is decided by the coordinator from the registered handles.
type WatchFired struct {
	ID uint32
}

// Kind implements Event
func (WatchFired) Kind() Kind { return KindWatchFired }

func (e WatchFired) String() string {
	return fmt.Sprintf("%s(%d)", e.Kind(), e.ID)
}

// LockStateChanged is emitted when the session lock screen becomes
// active (Locked) or inactive.
type LockStateChanged struct {
	Locked bool
}

// Kind implements Event
func (LockStateChanged) Kind() Kind { return KindLockStateChanged }

func (e LockStateChanged) String() string {
	return fmt.Sprintf("%s(locked=%t)", e.Kind(), e.Locked)
}
