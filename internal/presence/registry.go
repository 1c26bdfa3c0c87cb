package presence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eventconnect/eventconnect/internal/scheduler"
	"github.com/rs/zerolog"
)

// Registry owns the mounted overlays, one Timer per participant
type Registry struct {
	source       Source
	runner       *scheduler.Runner
	logger       zerolog.Logger
	pollInterval time.Duration
	tickInterval time.Duration

	mu      sync.Mutex
	mounted map[string]*mountedTimer
	closed  bool
}

type mountedTimer struct {
	timer *Timer
	loops scheduler.Group
}

// ErrRegistryClosed is returned by Mount after Close
var ErrRegistryClosed = errors.New("presence registry is closed")

// NewRegistry creates an empty registry
func NewRegistry(source Source, runner *scheduler.Runner, logger zerolog.Logger, pollInterval, tickInterval time.Duration) *Registry {
	return &Registry{
		source:       source,
		runner:       runner,
		logger:       logger.With().Str("component", "presence-registry").Logger(),
		pollInterval: pollInterval,
		tickInterval: tickInterval,
		mounted:      make(map[string]*mountedTimer),
	}
}

// Mount returns the participant's timer, starting its loops on first use
func (r *Registry) Mount(participantID string) (*Timer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if m, ok := r.mounted[participantID]; ok {
		return m.timer, nil
	}

	t := NewTimer(participantID, r.source, r.logger, Options{Clock: r.runner.Clock()})
	loops, err := t.Start(context.Background(), r.runner, r.pollInterval, r.tickInterval)
	if err != nil {
		return nil, err
	}
	r.mounted[participantID] = &mountedTimer{timer: t, loops: loops}

	r.logger.Info().
		Str("participant_id", participantID).
		Int("mounted_count", len(r.mounted)).
		Msg("Timer mounted")
	return t, nil
}

// Lookup returns a mounted timer without mounting one
func (r *Registry) Lookup(participantID string) (*Timer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mounted[participantID]
	if !ok {
		return nil, false
	}
	return m.timer, true
}

// Unmount stops the participant's loops. It reports whether a timer was mounted.
func (r *Registry) Unmount(participantID string) (bool, error) {
	r.mu.Lock()
	m, ok := r.mounted[participantID]
	delete(r.mounted, participantID)
	r.mu.Unlock()

	if !ok {
		return false, nil
	}
	r.logger.Info().Str("participant_id", participantID).Msg("Timer unmounted")
	return true, m.loops.Cancel()
}

// Len returns the number of mounted timers
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mounted)
}

// Close unmounts every timer and rejects further mounts
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	mounted := r.mounted
	r.mounted = make(map[string]*mountedTimer)
	r.mu.Unlock()

	var errs []error
	for _, m := range mounted {
		if err := m.loops.Cancel(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
