package callback

import "math"

// Cast callback return values with fixed meaning.
const (
	Filter    float32 = -1
	Terminate float32 = 0
	Continue  float32 = 1
)

// Action is how a native query loop reacts to one cast callback result.
type Action uint8

const (
	// ActionFilter ignores the candidate and keeps the current max fraction.
	ActionFilter Action = iota
	// ActionTerminate ends the query immediately.
	ActionTerminate
	// ActionClip lowers the max fraction to the returned value.
	ActionClip
	// ActionAccept keeps the candidate without lowering the max fraction.
	ActionAccept
)

func (a Action) String() string {
	switch a {
	case ActionFilter:
		return "filter"
	case ActionTerminate:
		return "terminate"
	case ActionClip:
		return "clip"
	case ActionAccept:
		return "accept"
	}
	return "unknown"
}

// Interpret maps a cast callback result to an action and the max fraction
// the query continues with. NaN terminates.
func Interpret(value, maxFraction float32) (Action, float32) {
	switch {
	case math.IsNaN(float64(value)):
		return ActionTerminate, maxFraction
	case value < 0:
		return ActionFilter, maxFraction
	case value == 0:
		return ActionTerminate, maxFraction
	case value < maxFraction:
		return ActionClip, value
	default:
		return ActionAccept, maxFraction
	}
}

// Stats summarizes one native query run.
type Stats struct {
	Candidates int
	Filtered   int
	Clipped    int
	Accepted   int
	Terminated bool
	// Fraction is the max fraction when the query ended.
	Fraction float32
}

// NewStats starts a query with the given max fraction.
func NewStats(maxFraction float32) Stats {
	return Stats{Fraction: maxFraction}
}

// Record applies a cast callback result and reports whether the query
// should visit further candidates.
func (s *Stats) Record(value float32) bool {
	s.Candidates++
	action, next := Interpret(value, s.Fraction)
	switch action {
	case ActionFilter:
		s.Filtered++
	case ActionTerminate:
		s.Terminated = true
		return false
	case ActionClip:
		s.Clipped++
		s.Fraction = next
	case ActionAccept:
		s.Accepted++
	}
	return true
}

// RecordPlane applies a plane callback result.
func (s *Stats) RecordPlane(keepGoing bool) bool {
	s.Candidates++
	if !keepGoing {
		s.Terminated = true
		return false
	}
	s.Accepted++
	return true
}
