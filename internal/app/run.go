package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"procterm/internal/execx"
	"procterm/internal/instance"
	"procterm/internal/process"
	"procterm/internal/registry"
)

type runOptions struct {
	name  string
	group bool
	after time.Duration
	grace time.Duration
}

func (a *App) runCommand(ctx context.Context, opts runOptions, args []string) error {
	if len(args) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	name := strings.TrimSpace(opts.name)
	if name != "" {
		if err := nameFree(a.registryStore(), name); errors.Is(err, errNameInUse) {
			return err
		}
	}

	child, err := execx.NewRunner().Start(args[0], args[1:], execx.Options{Group: opts.group})
	if err != nil {
		return err
	}
	pid, _ := child.PID()
	if name == "" {
		name = filepath.Base(args[0]) + "-" + strconv.Itoa(pid)
	}

	entry := registry.Entry{
		Name:      name,
		PID:       pid,
		Command:   args,
		Status:    instance.StateRunning,
		StartedAt: time.Now().UTC(),
	}
	if pgid, ok := childGroup(child); ok {
		entry.PGID = pgid
	}
	err = a.withRegistry(func(store *registry.Store) error {
		if err := nameFree(store, name); err != nil {
			return err
		}
		return store.Upsert(entry)
	})
	if errors.Is(err, errNameInUse) {
		_ = child.Kill(ctx)
		<-child.Done()
		return err
	}
	if err != nil {
		a.runLog.Warnf("register %s failed: %v", name, err)
	}
	a.runLog.Infof("started %s pid=%d group=%v", name, pid, opts.group)

	term := a.trackChild(child, opts.group)

	var after <-chan time.Time
	if opts.after > 0 {
		timer := a.clk.Timer(opts.after)
		defer timer.Stop()
		after = timer.C
	}
	sigCtx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	var outcome process.Outcome
	reason := ""
	select {
	case <-child.Done():
		st, err := child.Wait(ctx)
		if err != nil {
			return err
		}
		outcome = process.Outcome{Kind: process.OutcomeExited, Status: st}
	case <-after:
		reason = "after " + opts.after.String()
	case <-sigCtx.Done():
		reason = "interrupted"
	}

	if reason != "" {
		a.runLog.Infof("stopping %s (%s), grace %s", name, reason, opts.grace)
		a.setEntryState(name, instance.StateStopping, "")
		outcome, err = term.RequestExitWithTimeout(context.Background(), opts.grace)
		if err != nil {
			return fmt.Errorf("stop %s: %w", name, err)
		}
		a.setEntryState(name, outcomeState(outcome), outcome.String())
	} else {
		a.setEntryState(name, instance.StateExited, outcome.String())
	}

	fmt.Fprintf(a.out, "%s\t%d\t%s\n", name, pid, outcome)
	return nil
}

func outcomeState(o process.Outcome) string {
	if o.Killed() {
		return instance.StateKilled
	}
	return instance.StateExited
}

var errNameInUse = errors.New("name is in use")

// nameFree fails with errNameInUse while name belongs to an entry whose
// process still runs.
func nameFree(store *registry.Store, name string) error {
	existing, found, err := store.Resolve(name)
	if err != nil {
		return err
	}
	if !found || existing.Name != name {
		return nil
	}
	if instance.Finished(existing.Status) || !process.IsAlive(existing.PID) {
		return nil
	}
	return fmt.Errorf("%w: %q belongs to pid %d", errNameInUse, name, existing.PID)
}

// setEntryState moves a registry entry to state to, checked against the
// stored state. Registry failures are logged; they never change a
// termination result.
func (a *App) setEntryState(name, to, result string) {
	err := a.withRegistry(func(store *registry.Store) error {
		return store.Transition(name, to, result, instance.ValidateTransition)
	})
	if err != nil {
		a.log.Warnf("entry %s: %v", name, err)
	}
}
