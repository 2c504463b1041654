package process

import "fmt"

type State string

const (
	StateRunning        State = "running"
	StateAwaitingExit   State = "awaiting_exit"
	StateExited         State = "exited"
	StateTimedOutKilled State = "timed_out_killed"
)

var allowedTransitions = map[State]map[State]bool{
	StateRunning: {
		StateAwaitingExit: true,
	},
	StateAwaitingExit: {
		StateAwaitingExit:   true,
		StateExited:         true,
		StateTimedOutKilled: true,
	},
	StateExited:         {},
	StateTimedOutKilled: {},
}

func (s State) Terminal() bool {
	return s == StateExited || s == StateTimedOutKilled
}

func ValidateTransition(from, to State) error {
	if to == "" {
		return fmt.Errorf("target state must not be empty")
	}
	next, ok := allowedTransitions[from]
	if !ok {
		return fmt.Errorf("unknown state: %q", from)
	}
	if !next[to] {
		return fmt.Errorf("invalid state transition: %q -> %q", from, to)
	}
	return nil
}

// resolveRace decides the next state once the wait/timer race has produced
// at least one event. An observed exit always wins over an expired timer.
func resolveRace(exited, expired bool) (State, bool) {
	switch {
	case exited:
		return StateExited, true
	case expired:
		return StateTimedOutKilled, true
	default:
		return StateAwaitingExit, false
	}
}
