package build

import "fmt"

// State is a target's position in the build lifecycle.
type State string

const (
	StatePending    State = "pending"
	StateResolving  State = "resolving"
	StateResolved   State = "resolved"
	StateSerialized State = "serialized"
	StateWritten    State = "written"
	StateFailed     State = "failed"
)

// transitions lists the states reachable from each state. Failed and
// Written are terminal.
var transitions = map[State][]State{
	StatePending:    {StateResolving, StateFailed},
	StateResolving:  {StateResolved, StateFailed},
	StateResolved:   {StateSerialized, StateFailed},
	StateSerialized: {StateWritten, StateFailed},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// InvalidTransitionError reports an attempt to move a target backwards or
// out of a terminal state.
type InvalidTransitionError struct {
	From, To State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition %s -> %s", e.From, e.To)
}

// next returns the state after moving from s to to, or an error when the
// move is not allowed.
func (s State) next(to State) (State, error) {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return to, nil
		}
	}
	return s, &InvalidTransitionError{From: s, To: to}
}
