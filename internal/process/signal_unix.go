//go:build !windows

package process

import (
	"golang.org/x/sys/unix"
)

var signalsByName = map[string]unix.Signal{
	"TERM": unix.SIGTERM,
	"INT":  unix.SIGINT,
	"HUP":  unix.SIGHUP,
	"QUIT": unix.SIGQUIT,
}

type posixSignaler struct {
	sig unix.Signal
}

// NewSignaler returns the signaler for this platform. On POSIX systems name
// selects the graceful signal.
func NewSignaler(name string) (Signaler, error) {
	return newPosixSignaler(name)
}

func platformSignalers(name string) (Signaler, GroupSignaler, error) {
	s, err := newPosixSignaler(name)
	if err != nil {
		return nil, nil, err
	}
	return s, s, nil
}

func newPosixSignaler(name string) (*posixSignaler, error) {
	n, err := NormalizeSignal(name)
	if err != nil {
		return nil, err
	}
	return &posixSignaler{sig: signalsByName[n]}, nil
}

func (s *posixSignaler) RequestExit(pid int) {
	if pid <= 0 {
		return
	}
	// ESRCH means the process is already gone.
	_ = unix.Kill(pid, s.sig)
}

// RequestExitGroup broadcasts the graceful signal to every member of pgid in
// a single kill(2).
func (s *posixSignaler) RequestExitGroup(pgid int) {
	if pgid <= 0 {
		return
	}
	_ = unix.Kill(-pgid, s.sig)
}

// KillGroup sends SIGKILL to the whole group. An empty group is not an error.
func (s *posixSignaler) KillGroup(pgid int) {
	if pgid <= 0 {
		return
	}
	_ = unix.Kill(-pgid, unix.SIGKILL)
}
