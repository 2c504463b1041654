//go:build windows

package process

import "os"

// StatusFromProcessState reports the exit code. Windows has no terminating
// signals, a forced termination shows up as the code passed to
// TerminateProcess.
func StatusFromProcessState(ps *os.ProcessState) ExitStatus {
	if ps == nil {
		return Unknown()
	}
	if code := ps.ExitCode(); code >= 0 {
		return Exited(code)
	}
	return Unknown()
}
