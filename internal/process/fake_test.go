package process

import (
	"context"
	"sync"

	"go.uber.org/atomic"
)

type fakeHandle struct {
	pid     int
	noPID   bool
	status  ExitStatus
	waitErr error
	killErr error

	exitOnce sync.Once
	exit     chan struct{}
	kills    atomic.Int32
}

func newFakeHandle(pid int) *fakeHandle {
	return &fakeHandle{pid: pid, exit: make(chan struct{})}
}

func (f *fakeHandle) PID() (int, bool) {
	if f.noPID {
		return 0, false
	}
	return f.pid, true
}

func (f *fakeHandle) Wait(ctx context.Context) (ExitStatus, error) {
	select {
	case <-f.exit:
		return f.status, f.waitErr
	case <-ctx.Done():
		return Unknown(), ctx.Err()
	}
}

func (f *fakeHandle) Kill(context.Context) error {
	f.kills.Inc()
	if f.killErr != nil {
		return f.killErr
	}
	f.finish(Signaled(9))
	return nil
}

func (f *fakeHandle) finish(st ExitStatus) {
	f.exitOnce.Do(func() {
		f.status = st
		close(f.exit)
	})
}

// pollingHandle reports an exit through Poll while Wait never returns.
type pollingHandle struct {
	*fakeHandle
	polled ExitStatus
}

func (p *pollingHandle) Poll() (ExitStatus, bool, error) {
	return p.polled, true, nil
}

type recordingSignaler struct {
	mu       sync.Mutex
	pids     []int
	onSignal func(pid int)
}

func (r *recordingSignaler) RequestExit(pid int) {
	r.mu.Lock()
	r.pids = append(r.pids, pid)
	r.mu.Unlock()
	if r.onSignal != nil {
		r.onSignal(pid)
	}
}

func (r *recordingSignaler) calls() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.pids...)
}

type recordingGroupSignaler struct {
	mu       sync.Mutex
	requests []int
	kills    []int
	onSignal func(pgid int)
}

func (r *recordingGroupSignaler) RequestExitGroup(pgid int) {
	r.mu.Lock()
	r.requests = append(r.requests, pgid)
	r.mu.Unlock()
	if r.onSignal != nil {
		r.onSignal(pgid)
	}
}

func (r *recordingGroupSignaler) KillGroup(pgid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kills = append(r.kills, pgid)
}

func (r *recordingGroupSignaler) snapshot() ([]int, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.requests...), append([]int(nil), r.kills...)
}
