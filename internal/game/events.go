package game

import "time"

// EventKind names an analytics notification.
type EventKind string

const (
	EventStart    EventKind = "puzzle_start"
	EventComplete EventKind = "puzzle_complete"
	EventShare    EventKind = "share"
)

// Event is handed to the Tracker at well-defined transitions. Elapsed is
// only set for EventComplete.
type Event struct {
	Kind    EventKind     `json:"kind"`
	At      time.Time     `json:"at"`
	Elapsed time.Duration `json:"elapsed,omitempty"`
}

// Tracker receives analytics events. Delivery is the tracker's business.
type Tracker interface {
	Track(Event)
}

// TrackerFunc adapts a function to Tracker.
type TrackerFunc func(Event)

func (f TrackerFunc) Track(e Event) { f(e) }

type nopTracker struct{}

func (nopTracker) Track(Event) {}
