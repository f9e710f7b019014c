package countdown

import "time"

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventStart EventType = iota + 1
	EventPause
	EventProgress
	EventEnd
)

// String returns the notification name consumers subscribe to.
func (t EventType) String() string {
	switch t {
	case EventStart:
		return "countdownstart"
	case EventPause:
		return "countdownpause"
	case EventProgress:
		return "countdownprogress"
	case EventEnd:
		return "countdownend"
	default:
		return "unknown"
	}
}

// Event is a lifecycle notification. Units is only set for EventProgress.
type Event struct {
	Type  EventType
	Units Units
	At    time.Time
}

// Handler receives lifecycle notifications.
type Handler func(Event)

// State is the countdown's position in its lifecycle.
type State uint8

const (
	StateIdle State = iota
	StateCounting
	StateEnded
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateCounting:
		return "Counting"
	case StateEnded:
		return "Ended"
	default:
		return "Unknown"
	}
}

// Snapshot is a consistent view of the countdown taken after a mutation.
type Snapshot struct {
	Time     time.Duration
	Count    time.Duration
	Interval time.Duration
	State    State
	Units    Units
	Values   Values
}

// Counting reports whether a tick is armed.
func (s Snapshot) Counting() bool {
	return s.State == StateCounting
}
