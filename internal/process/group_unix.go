//go:build !windows

package process

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// GroupHandle is a handle whose process leads, or belongs to, a process
// group. Only the original process is waited on; the rest of the group is
// cleaned up by the group kill.
type GroupHandle interface {
	Handle
	PGID() (int, bool)
}

func pgidOf(h GroupHandle) int {
	pgid, ok := h.PGID()
	if !ok {
		return 0
	}
	return pgid
}

type attachedGroup struct {
	*attached
	pgid int
}

func (g *attachedGroup) PGID() (int, bool) {
	return g.pgid, g.pgid > 0
}

// AttachGroup is Attach for a group leader recorded earlier. The group is
// signalled through pgid while pid is watched for exit.
func AttachGroup(pid, pgid int, pollInterval time.Duration) GroupHandle {
	return &attachedGroup{attached: newAttached(pid, pollInterval), pgid: pgid}
}

// members is a group whose leader is gone. It counts as exited once no
// member of pgid remains.
type members struct {
	pgid     int
	interval time.Duration
}

// AttachGroupMembers returns a handle for the remaining members of group
// pgid after its leader exited.
func AttachGroupMembers(pgid int, pollInterval time.Duration) GroupHandle {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &members{pgid: pgid, interval: pollInterval}
}

func (m *members) PID() (int, bool) {
	return 0, false
}

func (m *members) PGID() (int, bool) {
	return m.pgid, m.pgid > 0
}

func (m *members) Wait(ctx context.Context) (ExitStatus, error) {
	if m.pgid <= 0 {
		return Unknown(), fmt.Errorf("invalid pgid %d", m.pgid)
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		if !GroupAlive(m.pgid) {
			return Unknown(), nil
		}
		select {
		case <-ctx.Done():
			return Unknown(), ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *members) Poll() (ExitStatus, bool, error) {
	if m.pgid <= 0 {
		return Unknown(), false, fmt.Errorf("invalid pgid %d", m.pgid)
	}
	return Unknown(), !GroupAlive(m.pgid), nil
}

func (m *members) Kill(context.Context) error {
	if m.pgid <= 0 {
		return fmt.Errorf("invalid pgid %d", m.pgid)
	}
	if err := unix.Kill(-m.pgid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("failed SIGKILL group %d: %w", m.pgid, err)
	}
	return nil
}

// TrackGroup starts a group termination for h in the running state. A
// handle that reports no group is terminated as a single process.
func (c *Controller) TrackGroup(h GroupHandle) *Termination {
	pgid := pgidOf(h)
	if pgid <= 0 {
		c.log.Debugf("pid %d has no process group, terminating it alone", pidOf(h))
		return c.Track(h)
	}
	t := newTermination(h, pgid, true, c.clk, c.log)
	t.signal = func() { c.group.RequestExitGroup(pgid) }
	t.kill = func(context.Context) error {
		c.group.KillGroup(pgid)
		return nil
	}
	return t
}

func (c *Controller) TerminateGroup(h GroupHandle) {
	c.TrackGroup(h).RequestExit()
}

func (c *Controller) TerminateGroupAndWait(ctx context.Context, h GroupHandle) (ExitStatus, error) {
	return c.TrackGroup(h).RequestExitAndWait(ctx)
}

func (c *Controller) TerminateGroupWithTimeout(ctx context.Context, h GroupHandle, d time.Duration) (Outcome, error) {
	return c.TrackGroup(h).RequestExitWithTimeout(ctx, d)
}

func TerminateGroup(h GroupHandle) {
	Default().TerminateGroup(h)
}

func TerminateGroupAndWait(ctx context.Context, h GroupHandle) (ExitStatus, error) {
	return Default().TerminateGroupAndWait(ctx, h)
}

func TerminateGroupWithTimeout(ctx context.Context, h GroupHandle, d time.Duration) (Outcome, error) {
	return Default().TerminateGroupWithTimeout(ctx, h, d)
}
