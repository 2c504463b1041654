package process

import (
	"context"
	"time"

	"github.com/facebookgo/clock"
	"go.uber.org/atomic"

	"procterm/internal/logging"
)

// Termination drives one handle through running, awaiting_exit and one of
// the terminal states exited or timed_out_killed. It must not be used from
// two goroutines at once and must not be reused after a terminal state.
type Termination struct {
	h     Handle
	id    int
	group bool
	clk   clock.Clock
	log   *logging.Logger
	state atomic.String

	signal func()
	kill   func(ctx context.Context) error
}

type waitResult struct {
	status ExitStatus
	err    error
}

func newTermination(h Handle, id int, group bool, clk clock.Clock, log *logging.Logger) *Termination {
	t := &Termination{h: h, id: id, group: group, clk: clk, log: log}
	t.state.Store(string(StateRunning))
	return t
}

func (t *Termination) State() State {
	return State(t.state.Load())
}

// RequestExit sends the graceful request. Only the first call from the
// running state signals; later calls are no-ops.
func (t *Termination) RequestExit() {
	if !t.state.CompareAndSwap(string(StateRunning), string(StateAwaitingExit)) {
		return
	}
	t.log.Debugf("%s %d: %s -> %s", t.target(), t.id, StateRunning, StateAwaitingExit)
	t.signal()
}

// RequestExitAndWait requests exit and waits without a bound.
func (t *Termination) RequestExitAndWait(ctx context.Context) (ExitStatus, error) {
	if t.State().Terminal() {
		return Unknown(), ErrTerminated
	}
	t.RequestExit()
	st, err := t.h.Wait(ctx)
	if err != nil {
		return Unknown(), t.waitFailure(ctx, err)
	}
	if err := t.transition(StateExited); err != nil {
		return Unknown(), err
	}
	return st, nil
}

// RequestExitWithTimeout requests exit and kills the process if it has not
// exited after d. A d of zero or less kills right away unless the exit was
// already observed.
func (t *Termination) RequestExitWithTimeout(ctx context.Context, d time.Duration) (Outcome, error) {
	if t.State().Terminal() {
		return Outcome{}, ErrTerminated
	}
	t.RequestExit()

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	results := make(chan waitResult, 1)
	go func() {
		st, err := t.h.Wait(waitCtx)
		results <- waitResult{status: st, err: err}
	}()

	expiry, stop := t.deadline(d)
	defer stop()

	var (
		res     waitResult
		exited  bool
		expired bool
	)
	select {
	case res = <-results:
		exited = true
	case <-expiry:
		expired = true
		res, exited = t.observed(results)
	case <-ctx.Done():
		t.log.Debugf("%s %d: tracking abandoned: %v", t.target(), t.id, ctx.Err())
		return Outcome{}, ctx.Err()
	}

	next, _ := resolveRace(exited, expired)
	if next == StateExited {
		if res.err != nil {
			return Outcome{}, t.waitFailure(ctx, res.err)
		}
		if err := t.transition(StateExited); err != nil {
			return Outcome{}, err
		}
		return exitedOutcome(res.status), nil
	}

	t.log.Debugf("%s %d: no exit after %s, killing", t.target(), t.id, d)
	if err := t.kill(ctx); err != nil {
		return Outcome{}, &Error{Op: OpKill, PID: t.id, Group: t.group, Err: err}
	}
	if err := t.transition(StateTimedOutKilled); err != nil {
		return Outcome{}, err
	}
	return killedOutcome(), nil
}

func (t *Termination) deadline(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		ch := make(chan time.Time)
		close(ch)
		return ch, func() {}
	}
	timer := t.clk.Timer(d)
	return timer.C, func() { timer.Stop() }
}

// observed reports an exit that is already known without blocking. It breaks
// ties in favour of the exit when the timer fires at the same moment.
func (t *Termination) observed(results <-chan waitResult) (waitResult, bool) {
	select {
	case res := <-results:
		return res, true
	default:
	}
	if p, ok := t.h.(Poller); ok {
		st, done, err := p.Poll()
		if done || err != nil {
			return waitResult{status: st, err: err}, true
		}
	}
	return waitResult{}, false
}

func (t *Termination) waitFailure(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &Error{Op: OpWait, PID: t.id, Group: t.group, Err: err}
}

func (t *Termination) transition(to State) error {
	from := t.State()
	if err := ValidateTransition(from, to); err != nil {
		return err
	}
	t.state.Store(string(to))
	t.log.Debugf("%s %d: %s -> %s", t.target(), t.id, from, to)
	return nil
}

func (t *Termination) target() string {
	if t.group {
		return "group"
	}
	return "pid"
}
