package editor

import "math"

// GesturePhase is the lifecycle step of one drag.
type GesturePhase int

const (
	GestureStart GesturePhase = iota
	GestureUpdate
	GestureEnd
	GestureCancel
)

// GestureEvent is one step of a horizontal drag on an item.
// DeltaX is the displacement from the drag origin; negative is leftward.
type GestureEvent struct {
	Phase    GesturePhase
	ItemID   string
	DeltaX   float64
	Velocity float64
}

// SwipeOutcome tells the front end what a gesture step resolved to.
type SwipeOutcome int

const (
	SwipeIgnored SwipeOutcome = iota
	SwipeTracking
	SwipeCommit
	SwipeRevert
)

// SwipeState is the visual and terminal state after one gesture step.
type SwipeState struct {
	ItemID   string
	Offset   float64
	Progress float64
	Velocity float64
	Outcome  SwipeOutcome
}

// Swipe tracks one swipe-to-delete drag at a time.
type Swipe struct {
	threshold float64
	active    bool
	itemID    string
	offset    float64
	velocity  float64
}

// NewSwipe constructs a tracker with a commit threshold.
func NewSwipe(threshold float64) Swipe {
	if threshold <= 0 {
		threshold = DefaultPolicy().SwipeThreshold
	}
	return Swipe{threshold: threshold}
}

// Threshold returns the commit distance.
func (s *Swipe) Threshold() float64 {
	return s.threshold
}

// Active reports whether a drag is being tracked.
func (s *Swipe) Active() bool {
	return s.active
}

// State returns the current visual state without advancing it.
func (s *Swipe) State() SwipeState {
	if !s.active {
		return SwipeState{}
	}
	return s.snapshot(SwipeTracking)
}

// Handle advances the tracker with one gesture event.
func (s *Swipe) Handle(ev GestureEvent) SwipeState {
	switch ev.Phase {
	case GestureStart:
		if ev.ItemID == "" {
			return SwipeState{}
		}
		s.active = true
		s.itemID = ev.ItemID
		s.offset = 0
		s.velocity = 0
		return s.snapshot(SwipeTracking)
	case GestureUpdate:
		if !s.active || ev.ItemID != s.itemID {
			return SwipeState{}
		}
		s.offset = math.Min(0, ev.DeltaX)
		s.velocity = ev.Velocity
		return s.snapshot(SwipeTracking)
	case GestureEnd:
		if !s.active || ev.ItemID != s.itemID {
			return SwipeState{}
		}
		s.offset = math.Min(0, ev.DeltaX)
		s.velocity = ev.Velocity
		outcome := SwipeRevert
		if -s.offset >= s.threshold {
			outcome = SwipeCommit
		}
		out := s.snapshot(outcome)
		s.reset()
		return out
	case GestureCancel:
		if !s.active {
			return SwipeState{}
		}
		out := s.snapshot(SwipeRevert)
		s.reset()
		return out
	default:
		return SwipeState{}
	}
}

// snapshot captures the tracker state with one outcome.
func (s *Swipe) snapshot(outcome SwipeOutcome) SwipeState {
	progress := 0.0
	if s.threshold > 0 {
		progress = math.Min(1, -s.offset/s.threshold)
	}
	return SwipeState{
		ItemID:   s.itemID,
		Offset:   s.offset,
		Progress: progress,
		Velocity: s.velocity,
		Outcome:  outcome,
	}
}

// reset drops the tracked drag.
func (s *Swipe) reset() {
	s.active = false
	s.itemID = ""
	s.offset = 0
	s.velocity = 0
}
