//go:build !windows

package process

import (
	"os"
	"syscall"
)

// StatusFromProcessState decodes the wait status of a reaped child.
func StatusFromProcessState(ps *os.ProcessState) ExitStatus {
	if ps == nil {
		return Unknown()
	}
	ws, ok := ps.Sys().(syscall.WaitStatus)
	if !ok {
		if code := ps.ExitCode(); code >= 0 {
			return Exited(code)
		}
		return Unknown()
	}
	switch {
	case ws.Exited():
		return Exited(ws.ExitStatus())
	case ws.Signaled():
		return Signaled(int(ws.Signal()))
	default:
		return Unknown()
	}
}
