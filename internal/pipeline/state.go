package pipeline

import "fmt"

// State is the position of a run in the pipeline.
type State string

const (
	StateStart       State = "START"
	StateSelected    State = "SELECTED"
	StateEnriched    State = "ENRICHED"
	StatePublished   State = "PUBLISHED"
	StateDone        State = "DONE"
	StateNoCandidate State = "NO_CANDIDATE"
	StateFailed      State = "FAILED"
)

// IsTerminal reports whether a run ends in s.
func (s State) IsTerminal() bool {
	switch s {
	case StateDone, StateNoCandidate, StateFailed:
		return true
	default:
		return false
	}
}

var allowedTransitions = map[State][]State{
	StateStart:     {StateSelected, StateNoCandidate, StateFailed},
	StateSelected:  {StateEnriched, StateFailed},
	StateEnriched:  {StatePublished, StateFailed},
	StatePublished: {StateDone, StateFailed},
}

func isAllowedTransition(from, to State) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// runState is the transient state of one run. It is discarded when the
// run returns.
type runState struct {
	current State
	history []State
}

func newRunState() *runState {
	return &runState{current: StateStart, history: []State{StateStart}}
}

func (r *runState) advance(to State) error {
	if !isAllowedTransition(r.current, to) {
		return fmt.Errorf("disallowed transition %s -> %s", r.current, to)
	}
	r.current = to
	r.history = append(r.history, to)
	return nil
}
