package process

import (
	"fmt"
	"strings"
)

// Signaler asks a process to exit. It never blocks and never fails: a
// request that cannot be delivered is dropped, the wait that follows is what
// decides the outcome.
type Signaler interface {
	RequestExit(pid int)
}

// DefaultSignal is the graceful signal sent on POSIX systems.
const DefaultSignal = "TERM"

var signalNames = []string{"TERM", "INT", "HUP", "QUIT"}

// NormalizeSignal accepts names with or without the SIG prefix, in any case.
func NormalizeSignal(name string) (string, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "SIG")
	if n == "" {
		return DefaultSignal, nil
	}
	for _, known := range signalNames {
		if n == known {
			return n, nil
		}
	}
	return "", fmt.Errorf("unsupported graceful signal %q (want one of %s)", name, strings.Join(signalNames, ", "))
}
