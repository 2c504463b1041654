package process

import "fmt"

type statusKind int

const (
	statusUnknown statusKind = iota
	statusExited
	statusSignaled
)

// ExitStatus is what the OS recorded when a process ended. Exactly one of
// exited-with-code, terminated-by-signal or unknown holds.
type ExitStatus struct {
	kind  statusKind
	value int
}

func Exited(code int) ExitStatus {
	return ExitStatus{kind: statusExited, value: code}
}

func Signaled(sig int) ExitStatus {
	return ExitStatus{kind: statusSignaled, value: sig}
}

// Unknown is reported for processes whose exit was observed without a
// status, such as attached pids this program never reaped.
func Unknown() ExitStatus {
	return ExitStatus{}
}

// Code returns the exit code when the process exited on its own.
func (s ExitStatus) Code() (int, bool) {
	if s.kind != statusExited {
		return 0, false
	}
	return s.value, true
}

// Signal returns the terminating signal when the process was ended by one.
func (s ExitStatus) Signal() (int, bool) {
	if s.kind != statusSignaled {
		return 0, false
	}
	return s.value, true
}

func (s ExitStatus) Known() bool {
	return s.kind != statusUnknown
}

func (s ExitStatus) Success() bool {
	return s.kind == statusExited && s.value == 0
}

func (s ExitStatus) String() string {
	switch s.kind {
	case statusExited:
		return fmt.Sprintf("exit status %d", s.value)
	case statusSignaled:
		return fmt.Sprintf("signal %d", s.value)
	default:
		return "unknown"
	}
}

type OutcomeKind int

const (
	// OutcomeExited means the process ended before the deadline.
	OutcomeExited OutcomeKind = iota
	// OutcomeKilledAfterTimeout means the deadline elapsed and the process was
	// killed. No exit status is carried.
	OutcomeKilledAfterTimeout
)

type Outcome struct {
	Kind   OutcomeKind
	Status ExitStatus
}

func exitedOutcome(st ExitStatus) Outcome {
	return Outcome{Kind: OutcomeExited, Status: st}
}

func killedOutcome() Outcome {
	return Outcome{Kind: OutcomeKilledAfterTimeout}
}

func (o Outcome) Killed() bool {
	return o.Kind == OutcomeKilledAfterTimeout
}

func (o Outcome) String() string {
	if o.Killed() {
		return "killed after timeout"
	}
	return "exited: " + o.Status.String()
}
