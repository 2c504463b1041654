package process

import (
	"context"
	"fmt"
	"time"
)

const defaultPollInterval = 150 * time.Millisecond

type attached struct {
	pid      int
	interval time.Duration
}

// Attach returns a handle for a process this program did not start. Its
// exit is detected by polling liveness and carries no status.
func Attach(pid int, pollInterval time.Duration) Handle {
	return newAttached(pid, pollInterval)
}

func newAttached(pid int, pollInterval time.Duration) *attached {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &attached{pid: pid, interval: pollInterval}
}

func (a *attached) PID() (int, bool) {
	return a.pid, a.pid > 0
}

func (a *attached) Wait(ctx context.Context) (ExitStatus, error) {
	if a.pid <= 0 {
		return Unknown(), fmt.Errorf("invalid pid %d", a.pid)
	}
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		if !IsAlive(a.pid) {
			return Unknown(), nil
		}
		select {
		case <-ctx.Done():
			return Unknown(), ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *attached) Poll() (ExitStatus, bool, error) {
	if a.pid <= 0 {
		return Unknown(), false, fmt.Errorf("invalid pid %d", a.pid)
	}
	return Unknown(), !IsAlive(a.pid), nil
}

func (a *attached) Kill(context.Context) error {
	if a.pid <= 0 {
		return fmt.Errorf("invalid pid %d", a.pid)
	}
	return killPID(a.pid)
}

// Stop terminates an arbitrary pid with the default controller, killing it
// after grace. A pid that is not running is reported as exited.
func Stop(ctx context.Context, pid int, grace time.Duration) (Outcome, error) {
	if pid <= 0 || !IsAlive(pid) {
		return exitedOutcome(Unknown()), nil
	}
	return TerminateWithTimeout(ctx, Attach(pid, defaultPollInterval), grace)
}
