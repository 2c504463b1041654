//go:build !windows

package execx

import (
	"os/exec"
	"syscall"
)

func configureSysProcAttr(cmd *exec.Cmd, group bool) {
	if group {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}
}

// PGID returns the process group the child leads. Children started without
// Options.Group share the caller's group and report none, so a group
// termination can never reach the caller. The id stays available after the
// child is reaped since other members may remain.
func (c *Child) PGID() (int, bool) {
	return c.pgid, c.pgid > 0
}
