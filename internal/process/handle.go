package process

import "context"

// Handle is a live child process owned by whoever spawned it. The core only
// borrows it for the duration of a termination call.
type Handle interface {
	// PID returns the OS id, false once the process has been reaped.
	PID() (int, bool)
	// Wait blocks until the process exits. A non-zero exit is not an error.
	Wait(ctx context.Context) (ExitStatus, error)
	// Kill terminates the process unconditionally. It returns once the
	// request was accepted, not once the process is gone.
	Kill(ctx context.Context) error
}

// Poller is implemented by handles that can report an already observed exit
// without blocking.
type Poller interface {
	Poll() (ExitStatus, bool, error)
}

func pidOf(h Handle) int {
	pid, ok := h.PID()
	if !ok {
		return 0
	}
	return pid
}
