package execx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"go.uber.org/atomic"

	"procterm/internal/process"
)

// Runner spawns children and hands them out as termination handles.
type Runner struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

type Options struct {
	Dir string
	Env map[string]string
	// Group starts the child as the leader of a new process group.
	Group  bool
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func NewRunner() *Runner {
	return &Runner{
		In:  os.Stdin,
		Out: os.Stdout,
		Err: os.Stderr,
	}
}

// Child is a started process. Exactly one goroutine reaps it; Wait, Poll and
// Kill only observe that goroutine's result.
type Child struct {
	cmd    *exec.Cmd
	pid    int
	pgid   int
	done   chan struct{}
	reaped atomic.Bool

	state *os.ProcessState
	err   error
}

func (r *Runner) Start(name string, args []string, opts Options) (*Child, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("command is empty")
	}
	cmd := exec.Command(name, args...)
	cmd.Dir = opts.Dir
	cmd.Stdin = pick(opts.Stdin, r.In)
	cmd.Stdout = pickWriter(opts.Stdout, r.Out)
	cmd.Stderr = pickWriter(opts.Stderr, r.Err)
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), envArgs(opts.Env)...)
	}
	configureSysProcAttr(cmd, opts.Group)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	c := &Child{
		cmd:  cmd,
		pid:  cmd.Process.Pid,
		done: make(chan struct{}),
	}
	if opts.Group {
		c.pgid = c.pid
	}
	go c.reap()
	return c, nil
}

func (c *Child) reap() {
	err := c.cmd.Wait()
	c.state = c.cmd.ProcessState
	c.err = err
	c.reaped.Store(true)
	close(c.done)
}

func (c *Child) PID() (int, bool) {
	if c.reaped.Load() {
		return 0, false
	}
	return c.pid, true
}

// Done is closed once the child has been reaped.
func (c *Child) Done() <-chan struct{} {
	return c.done
}

func (c *Child) Wait(ctx context.Context) (process.ExitStatus, error) {
	select {
	case <-c.done:
		return c.result()
	case <-ctx.Done():
		return process.Unknown(), ctx.Err()
	}
}

func (c *Child) Poll() (process.ExitStatus, bool, error) {
	select {
	case <-c.done:
		st, err := c.result()
		return st, true, err
	default:
		return process.Unknown(), false, nil
	}
}

func (c *Child) Kill(context.Context) error {
	select {
	case <-c.done:
		return nil
	default:
	}
	if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// result reports the wait status. Errors from cmd.Wait that still carry a
// process state, such as a non-zero exit, are not failures.
func (c *Child) result() (process.ExitStatus, error) {
	if c.state != nil {
		return process.StatusFromProcessState(c.state), nil
	}
	if c.err != nil {
		return process.Unknown(), c.err
	}
	return process.Unknown(), errors.New("wait returned no process state")
}

func pick(v, fallback io.Reader) io.Reader {
	if v != nil {
		return v
	}
	return fallback
}

func pickWriter(v, fallback io.Writer) io.Writer {
	if v != nil {
		return v
	}
	return fallback
}

func envArgs(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, env[k]))
	}
	return out
}
