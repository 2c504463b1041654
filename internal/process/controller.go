package process

import (
	"context"
	"sync"
	"time"

	"github.com/facebookgo/clock"

	"procterm/internal/logging"
)

// GroupSignaler broadcasts to a whole process group. Only POSIX platforms
// provide one.
type GroupSignaler interface {
	RequestExitGroup(pgid int)
	KillGroup(pgid int)
}

type Options struct {
	// Signal names the graceful signal on POSIX systems, DefaultSignal when
	// empty.
	Signal string
	// Clock drives the timeout timer. Tests pass a mock.
	Clock  clock.Clock
	Logger *logging.Logger
	// Signaler and GroupSignaler replace the platform implementations.
	Signaler      Signaler
	GroupSignaler GroupSignaler
}

// Controller builds terminations. It holds no per-handle state, so one
// controller can serve any number of independent handles concurrently.
type Controller struct {
	signaler Signaler
	group    GroupSignaler
	clk      clock.Clock
	log      *logging.Logger
}

func NewController(opts Options) (*Controller, error) {
	sig, group, err := platformSignalers(opts.Signal)
	if err != nil {
		return nil, err
	}
	if opts.Signaler != nil {
		sig = opts.Signaler
	}
	if opts.GroupSignaler != nil {
		group = opts.GroupSignaler
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Controller{signaler: sig, group: group, clk: clk, log: log}, nil
}

// Track starts a termination for h in the running state.
func (c *Controller) Track(h Handle) *Termination {
	t := newTermination(h, pidOf(h), false, c.clk, c.log)
	t.signal = func() { c.signaler.RequestExit(pidOf(h)) }
	t.kill = h.Kill
	return t
}

func (c *Controller) Terminate(h Handle) {
	c.Track(h).RequestExit()
}

func (c *Controller) TerminateAndWait(ctx context.Context, h Handle) (ExitStatus, error) {
	return c.Track(h).RequestExitAndWait(ctx)
}

func (c *Controller) TerminateWithTimeout(ctx context.Context, h Handle, d time.Duration) (Outcome, error) {
	return c.Track(h).RequestExitWithTimeout(ctx, d)
}

var (
	defaultOnce       sync.Once
	defaultController *Controller
)

// Default returns a controller with the platform signaler and the real clock.
func Default() *Controller {
	defaultOnce.Do(func() {
		c, err := NewController(Options{})
		if err != nil {
			panic(err)
		}
		defaultController = c
	})
	return defaultController
}

func Terminate(h Handle) {
	Default().Terminate(h)
}

func TerminateAndWait(ctx context.Context, h Handle) (ExitStatus, error) {
	return Default().TerminateAndWait(ctx, h)
}

func TerminateWithTimeout(ctx context.Context, h Handle, d time.Duration) (Outcome, error) {
	return Default().TerminateWithTimeout(ctx, h, d)
}
