package coordinator

import "time"

// State of the display-switch state machine
type State string

const (
	StateActive   State = "active"
	StateSwitched State = "switched"
)

func stateOf(switched bool) State {
	if switched {
		return StateSwitched
	}
	return StateActive
}

// Reason names what caused a transition
type Reason string

const (
	ReasonIdleWatch   Reason = "idle-watch"
	ReasonActiveWatch Reason = "active-watch"
	ReasonUnlock      Reason = "unlock"
)

// Transition is one change of the display-switched flag
type Transition struct {
	Time    time.Time `json:"time" yaml:"time"`
	From    State     `json:"from" yaml:"from"`
	To      State     `json:"to" yaml:"to"`
	Reason  Reason    `json:"reason" yaml:"reason"`
	WatchID uint32    `json:"watch_id,omitempty" yaml:"watch_id,omitempty"`
}

// Snapshot is a copy of the coordinator state
type Snapshot struct {
	State           State       `json:"state" yaml:"state"`
	DisplaySwitched bool        `json:"display_switched" yaml:"display_switched"`
	IdleWatchID     *uint32     `json:"idle_watch_id,omitempty" yaml:"idle_watch_id,omitempty"`
	ActiveWatchID   *uint32     `json:"active_watch_id,omitempty" yaml:"active_watch_id,omitempty"`
	ActiveConsumed  bool        `json:"active_watch_consumed" yaml:"active_watch_consumed"`
	MonitorName     string      `json:"monitor_name" yaml:"monitor_name"`
	MonitorMode     string      `json:"monitor_mode" yaml:"monitor_mode"`
	IdleThresholdMS uint64      `json:"idle_threshold_ms" yaml:"idle_threshold_ms"`
	LastTransition  *Transition `json:"last_transition,omitempty" yaml:"last_transition,omitempty"`
}
