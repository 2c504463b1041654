package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	"procterm/internal/instance"
	"procterm/internal/process"
)

type stopOptions struct {
	grace time.Duration
	group bool
	wait  bool
}

// target is a stop request resolved against the registry. name is empty for
// pids procterm did not start.
type target struct {
	ref    string
	name   string
	status string
	pid    int
	pgid   int
}

func (t target) label() string {
	if t.name != "" {
		return t.name
	}
	return "pid " + strconv.Itoa(t.pid)
}

func (a *App) stopTargets(ctx context.Context, refs []string, opts stopOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var errs error
	for _, ref := range refs {
		errs = multierr.Append(errs, a.stopOne(ctx, ref, opts))
	}
	return errs
}

func (a *App) resolveTarget(ref string) (target, error) {
	entry, found, err := a.registryStore().Resolve(ref)
	if err != nil {
		return target{}, err
	}
	if found {
		return target{ref: ref, name: entry.Name, status: entry.Status, pid: entry.PID, pgid: entry.PGID}, nil
	}
	pid, err := strconv.Atoi(strings.TrimSpace(ref))
	if err != nil || pid <= 0 {
		return target{}, fmt.Errorf("unknown process %q", ref)
	}
	return target{ref: ref, pid: pid}, nil
}

func (a *App) stopOne(ctx context.Context, ref string, opts stopOptions) error {
	t, err := a.resolveTarget(ref)
	if err != nil {
		return err
	}
	leaderAlive := process.IsAlive(t.pid)
	if !leaderAlive && !a.membersRemain(t) {
		if t.name != "" && !instance.Finished(t.status) {
			a.setEntryState(t.name, instance.StateGone, "")
		}
		a.stopLog.Infof("%s is not running", t.label())
		fmt.Fprintf(a.out, "%s\t%d\tnot running\n", t.label(), t.pid)
		return nil
	}

	lock, err := instance.AcquireLock(ctx, a.lockDir(), instance.LockName(t.pid), a.cfg.Termination.LockTimeout(), process.IsAlive)
	if err != nil {
		return fmt.Errorf("stop %s: %w", t.label(), err)
	}
	defer func() { _ = lock.Release() }()

	var term *process.Termination
	if leaderAlive {
		// A registered group leader is always stopped with its group.
		term = a.trackTarget(t, opts.group || t.pgid > 0)
	} else {
		a.stopLog.Infof("leader of %s exited, stopping the rest of group %d", t.label(), t.pgid)
		term = a.trackMembers(t)
	}
	if t.name != "" {
		a.setEntryState(t.name, instance.StateStopping, "")
	}

	if !opts.wait {
		term.RequestExit()
		a.stopLog.Infof("termination requested for %s", t.label())
		fmt.Fprintf(a.out, "%s\t%d\tsignalled\n", t.label(), t.pid)
		return nil
	}

	outcome, err := term.RequestExitWithTimeout(ctx, opts.grace)
	if err != nil {
		return fmt.Errorf("stop %s: %w", t.label(), err)
	}
	if t.name != "" {
		a.setEntryState(t.name, outcomeState(outcome), outcome.String())
	}
	if outcome.Killed() {
		a.stopLog.Warnf("%s ignored termination for %s and was killed", t.label(), opts.grace)
	} else {
		a.stopLog.Okf("%s stopped", t.label())
	}
	fmt.Fprintf(a.out, "%s\t%d\t%s\n", t.label(), t.pid, outcome)
	return nil
}
