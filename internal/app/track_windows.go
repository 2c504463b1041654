//go:build windows

package app

import (
	"procterm/internal/execx"
	"procterm/internal/process"
)

func childGroup(*execx.Child) (int, bool) {
	return 0, false
}

// Windows has no group broadcast; the leader alone is terminated.
func (a *App) trackChild(c *execx.Child, group bool) *process.Termination {
	if group {
		a.runLog.Warnf("process groups are not supported on windows, terminating the leader only")
	}
	return a.ctl.Track(c)
}

func (a *App) trackTarget(t target, group bool) *process.Termination {
	if group {
		a.stopLog.Warnf("process groups are not supported on windows, terminating pid %d only", t.pid)
	}
	return a.ctl.Track(process.Attach(t.pid, a.pollInterval()))
}

func (a *App) membersRemain(target) bool {
	return false
}

func (a *App) trackMembers(t target) *process.Termination {
	return a.ctl.Track(process.Attach(t.pid, a.pollInterval()))
}
