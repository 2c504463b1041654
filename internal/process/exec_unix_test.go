//go:build !windows

package process_test

import (
	"bufio"
	"context"
	"os"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procterm/internal/execx"
	"procterm/internal/process"
)

func start(t *testing.T, name string, args []string, opts execx.Options) *execx.Child {
	t.Helper()
	child, err := execx.NewRunner().Start(name, args, opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = child.Kill(context.Background())
		<-child.Done()
	})
	return child
}

func TestTerminateAndWaitSleepingChild(t *testing.T) {
	child := start(t, "sleep", []string{"10"}, execx.Options{})
	time.Sleep(200 * time.Millisecond)

	begin := time.Now()
	st, err := process.TerminateAndWait(context.Background(), child)
	require.NoError(t, err)
	assert.Less(t, time.Since(begin), 2*time.Second)

	_, hasCode := st.Code()
	assert.False(t, hasCode, "terminated child must not report an exit code")
	sig, ok := st.Signal()
	assert.True(t, ok)
	assert.Equal(t, int(syscall.SIGTERM), sig)
}

func TestTerminateWithTimeoutGracefulChild(t *testing.T) {
	child := start(t, "sh", []string{"-c", "trap 'exit 4' TERM; while :; do sleep 0.05; done"}, execx.Options{})
	time.Sleep(200 * time.Millisecond)

	begin := time.Now()
	out, err := process.TerminateWithTimeout(context.Background(), child, 10*time.Second)
	require.NoError(t, err)
	assert.Less(t, time.Since(begin), 5*time.Second)
	require.False(t, out.Killed())
	code, ok := out.Status.Code()
	assert.True(t, ok)
	assert.Equal(t, 4, code)
}

func TestTerminateWithTimeoutKillsStubbornChild(t *testing.T) {
	child := start(t, "sh", []string{"-c", "trap '' TERM; exec sleep 30"}, execx.Options{})
	time.Sleep(200 * time.Millisecond)

	begin := time.Now()
	out, err := process.TerminateWithTimeout(context.Background(), child, time.Second)
	require.NoError(t, err)
	elapsed := time.Since(begin)
	assert.True(t, out.Killed())
	assert.GreaterOrEqual(t, elapsed, time.Second)
	assert.Less(t, elapsed, 5*time.Second)

	select {
	case <-child.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("killed child was not reaped")
	}
}

func TestTerminateWithZeroTimeoutKillsRunningChild(t *testing.T) {
	child := start(t, "sleep", []string{"30"}, execx.Options{})

	out, err := process.TerminateWithTimeout(context.Background(), child, 0)
	require.NoError(t, err)
	assert.True(t, out.Killed())
}

func TestTerminateWithZeroTimeoutReportsFinishedChild(t *testing.T) {
	child := start(t, "sh", []string{"-c", "exit 5"}, execx.Options{})
	<-child.Done()

	out, err := process.TerminateWithTimeout(context.Background(), child, 0)
	require.NoError(t, err)
	require.False(t, out.Killed())
	code, _ := out.Status.Code()
	assert.Equal(t, 5, code)
}

func TestTerminateTwiceActsOnce(t *testing.T) {
	child := start(t, "sh", []string{"-c", "n=0; trap 'n=$((n+1)); [ $n -ge 2 ] && exit 9' TERM; while :; do sleep 0.05; done"}, execx.Options{})
	time.Sleep(200 * time.Millisecond)

	ctl, err := process.NewController(process.Options{})
	require.NoError(t, err)
	tracked := ctl.Track(child)
	tracked.RequestExit()
	tracked.RequestExit()

	select {
	case <-child.Done():
		t.Fatal("child received more than one graceful request")
	case <-time.After(500 * time.Millisecond):
	}
	out, err := tracked.RequestExitWithTimeout(context.Background(), 200*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, out.Killed())
}

func TestGroupTerminationReachesEveryMember(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("member liveness check reads /proc")
	}
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	child := start(t, "sh", []string{"-c", "sleep 30 & echo $!; wait"}, execx.Options{Group: true, Stdout: w})
	require.NoError(t, w.Close())

	line, err := bufio.NewReader(r).ReadString('\n')
	require.NoError(t, err)
	member, err := strconv.Atoi(strings.TrimSpace(line))
	require.NoError(t, err)
	require.True(t, running(member))

	st, err := process.TerminateGroupAndWait(context.Background(), child)
	require.NoError(t, err)
	sig, ok := st.Signal()
	assert.True(t, ok)
	assert.Equal(t, int(syscall.SIGTERM), sig)

	assert.Eventually(t, func() bool { return !running(member) }, 3*time.Second, 20*time.Millisecond)
}

func TestGroupTimeoutKillsEveryMember(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("member liveness check reads /proc")
	}
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	child := start(t, "sh", []string{"-c", "trap '' TERM; sleep 30 & echo $!; wait"}, execx.Options{Group: true, Stdout: w})
	require.NoError(t, w.Close())

	line, err := bufio.NewReader(r).ReadString('\n')
	require.NoError(t, err)
	member, err := strconv.Atoi(strings.TrimSpace(line))
	require.NoError(t, err)

	out, err := process.TerminateGroupWithTimeout(context.Background(), child, 300*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, out.Killed())
	assert.Eventually(t, func() bool { return !running(member) }, 3*time.Second, 20*time.Millisecond)
}

func TestGroupTimeoutOnUngroupedChildKillsChild(t *testing.T) {
	child := start(t, "sh", []string{"-c", "trap '' TERM; exec sleep 30"}, execx.Options{})
	_, hasGroup := child.PGID()
	require.False(t, hasGroup)
	time.Sleep(200 * time.Millisecond)

	out, err := process.TerminateGroupWithTimeout(context.Background(), child, 100*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, out.Killed())

	select {
	case <-child.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("child reported killed but is still running")
	}
}

func TestAttachedGroupStopsRecordedLeader(t *testing.T) {
	child := start(t, "sh", []string{"-c", "sleep 30; exit 0"}, execx.Options{Group: true})
	pid, ok := child.PID()
	require.True(t, ok)
	pgid, ok := child.PGID()
	require.True(t, ok)
	time.Sleep(200 * time.Millisecond)

	h := process.AttachGroup(pid, pgid, 20*time.Millisecond)
	out, err := process.TerminateGroupWithTimeout(context.Background(), h, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, out.Killed())
	assert.False(t, out.Status.Known())

	select {
	case <-child.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("group leader was not reaped")
	}
}

// running treats zombies as gone: an orphaned member may wait for a reaper
// that never comes inside a container.
func running(pid int) bool {
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return false
	}
	stat := string(data)
	i := strings.LastIndexByte(stat, ')')
	if i < 0 || i+2 >= len(stat) {
		return false
	}
	return stat[i+2] != 'Z'
}
