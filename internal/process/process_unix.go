//go:build !windows

package process

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// IsAlive reports whether pid names an existing process. A process owned by
// another user still counts as alive.
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, unix.Signal(0))
	return err == nil || errors.Is(err, unix.EPERM)
}

func killPID(pid int) error {
	if err := unix.Kill(pid, unix.SIGKILL); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return fmt.Errorf("failed SIGKILL pid %d: %w", pid, err)
	}
	return nil
}

// GroupAlive reports whether any member of process group pgid still exists.
func GroupAlive(pgid int) bool {
	if pgid <= 0 {
		return false
	}
	err := unix.Kill(-pgid, unix.Signal(0))
	return err == nil || errors.Is(err, unix.EPERM)
}
