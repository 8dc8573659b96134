// Package lifecycle implements the condition block engine and the
// per-entity state machine it gates: preconditions run before a side
// effect and block it on violation, postconditions run after the resolved
// value exists and can only mark the entity failed after the fact.
package lifecycle

import "fmt"

// State is the lifecycle state of a managed entity within one run.
type State int32

const (
	Unplanned State = iota
	Planned
	Applying
	Applied
	Failed
)

func (s State) String() string {
	switch s {
	case Unplanned:
		return "unplanned"
	case Planned:
		return "planned"
	case Applying:
		return "applying"
	case Applied:
		return "applied"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Terminal reports whether no further transition can occur. Checks only
// run once every entity is terminal.
func (s State) Terminal() bool {
	return s == Applied || s == Failed
}

// legalTransitions describes the forward edges of the state machine.
// Failed is reachable from every non-terminal state.
var legalTransitions = map[State][]State{
	Unplanned: {Planned, Failed},
	Planned:   {Applying, Failed},
	Applying:  {Applied, Failed},
}

// Transition validates a state change. Callers use it as a guard so an
// illegal move is a programmer error surfaced immediately.
func Transition(from, to State) error {
	for _, next := range legalTransitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("illegal lifecycle transition %s -> %s", from, to)
}
