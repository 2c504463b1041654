package process

import (
	"errors"
	"fmt"
)

var (
	// ErrWait means the exit of the process could not be observed.
	ErrWait = errors.New("wait for exit failed")
	// ErrKill means the forced kill after a timeout was rejected.
	ErrKill = errors.New("forced kill failed")
	// ErrTerminated is returned when a termination that already reached a
	// terminal state is driven again.
	ErrTerminated = errors.New("termination already completed")
)

type Op string

const (
	OpWait Op = "wait"
	OpKill Op = "kill"
)

// Error reports a failure of one of the primitives the termination relies on.
type Error struct {
	Op    Op
	PID   int
	Group bool
	Err   error
}

func (e *Error) Error() string {
	target := "pid"
	if e.Group {
		target = "group"
	}
	return fmt.Sprintf("%s %s %d: %v", e.Op, target, e.PID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrWait:
		return e.Op == OpWait
	case ErrKill:
		return e.Op == OpKill
	}
	return false
}
