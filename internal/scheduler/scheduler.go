// Package scheduler runs cancellable fixed-interval loops on gocron. Each
// loop gets its own scheduler so that loops never block one another, and a
// tick is skipped while the previous one is still running.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Task is one tick of a polling loop. ctx is cancelled on Handle.Cancel.
type Task func(ctx context.Context)

// Runner creates loops sharing a logger and a clock.
type Runner struct {
	logger      zerolog.Logger
	clock       clockwork.Clock
	stopTimeout time.Duration
}

// Option configures a Runner
type Option func(*Runner)

// WithClock replaces the wall clock, e.g. with clockwork.NewFakeClock().
func WithClock(clock clockwork.Clock) Option {
	return func(r *Runner) { r.clock = clock }
}

// WithStopTimeout bounds how long Cancel waits for an in-flight tick.
func WithStopTimeout(d time.Duration) Option {
	return func(r *Runner) { r.stopTimeout = d }
}

// NewRunner creates a Runner
func NewRunner(logger zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		logger:      logger.With().Str("component", "scheduler").Logger(),
		clock:       clockwork.NewRealClock(),
		stopTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Clock returns the clock loops are scheduled on
func (r *Runner) Clock() clockwork.Clock {
	return r.clock
}

// Every runs task immediately and then every interval until the returned
// handle is cancelled or parent is done.
func (r *Runner) Every(parent context.Context, name string, interval time.Duration, task Task) (*Handle, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("scheduler: %s: interval must be > 0", name)
	}

	s, err := gocron.NewScheduler(
		gocron.WithClock(r.clock),
		gocron.WithLogger(gocronLogger{log: r.logger}),
		gocron.WithStopTimeout(r.stopTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %s: %w", name, err)
	}

	ctx, cancel := context.WithCancel(parent)
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				return
			}
			task(ctx)
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		_ = s.Shutdown()
		return nil, fmt.Errorf("scheduler: %s: %w", name, err)
	}

	s.Start()
	r.logger.Debug().
		Str("loop", name).
		Dur("interval", interval).
		Msg("Loop started")

	h := &Handle{name: name, sched: s, cancel: cancel, logger: r.logger}
	go func() {
		<-ctx.Done()
		_ = h.Cancel()
	}()
	return h, nil
}

// Handle controls one running loop
type Handle struct {
	name   string
	sched  gocron.Scheduler
	cancel context.CancelFunc
	logger zerolog.Logger
	once   sync.Once
	err    error
}

// Cancel stops the loop. It returns once any in-flight tick has returned,
// so no tick can observe or mutate state afterwards. Safe to call twice.
func (h *Handle) Cancel() error {
	h.once.Do(func() {
		h.cancel()
		h.err = h.sched.Shutdown()
		h.logger.Debug().Str("loop", h.name).Msg("Loop stopped")
	})
	return h.err
}

// Group cancels several loops together
type Group []*Handle

// Cancel stops every loop in the group
func (g Group) Cancel() error {
	var errs []error
	for _, h := range g {
		if h == nil {
			continue
		}
		if err := h.Cancel(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
