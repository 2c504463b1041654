package instance

import "fmt"

// Lifecycle of a registry entry. A finished entry may be reused by a new
// run under the same name.
const (
	StateRunning  = "running"
	StateStopping = "stopping"
	StateExited   = "exited"
	StateKilled   = "killed"
	StateGone     = "gone"
)

var allowedTransitions = map[string]map[string]bool{
	"": {
		StateRunning: true,
	},
	StateRunning: {
		StateRunning:  true,
		StateStopping: true,
		StateExited:   true,
		StateGone:     true,
	},
	StateStopping: {
		StateStopping: true,
		StateExited:   true,
		StateKilled:   true,
		StateGone:     true,
	},
	StateExited: {
		StateExited:  true,
		StateRunning: true,
	},
	StateKilled: {
		StateKilled:  true,
		StateRunning: true,
	},
	StateGone: {
		StateGone:    true,
		StateRunning: true,
	},
}

func ValidateTransition(from, to string) error {
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

// Finished reports whether an entry in state s no longer needs stopping.
func Finished(s string) bool {
	switch s {
	case StateExited, StateKilled, StateGone:
		return true
	}
	return false
}
