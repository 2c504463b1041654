//go:build !windows

package app

import (
	"procterm/internal/execx"
	"procterm/internal/process"
)

func childGroup(c *execx.Child) (int, bool) {
	return c.PGID()
}

func (a *App) trackChild(c *execx.Child, group bool) *process.Termination {
	if group {
		return a.ctl.TrackGroup(c)
	}
	return a.ctl.Track(c)
}

func (a *App) trackTarget(t target, group bool) *process.Termination {
	if group && t.pgid > 0 {
		return a.ctl.TrackGroup(process.AttachGroup(t.pid, t.pgid, a.pollInterval()))
	}
	return a.ctl.Track(process.Attach(t.pid, a.pollInterval()))
}

// membersRemain reports whether a recorded group still has members.
func (a *App) membersRemain(t target) bool {
	return t.pgid > 0 && process.GroupAlive(t.pgid)
}

func (a *App) trackMembers(t target) *process.Termination {
	return a.ctl.TrackGroup(process.AttachGroupMembers(t.pgid, a.pollInterval()))
}
