// Package presence drives the participant "time outside premises" overlay.
// A slow loop polls the backend for the authoritative snapshot; a fast loop
// re-derives the countdown from that snapshot and the wall clock.
package presence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eventconnect/eventconnect/internal/eventapi"
	"github.com/eventconnect/eventconnect/internal/scheduler"
	"github.com/eventconnect/eventconnect/internal/types"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultTickInterval = time.Second
)

// Source is the participant timer query service
type Source interface {
	GetTimerSnapshot(ctx context.Context, participantID string) (*types.TimerSnapshot, error)
}

// Visibility is the overlay's render state
type Visibility string

const (
	Hidden    Visibility = "hidden"
	Dismissed Visibility = "dismissed"
	Visible   Visibility = "visible"
)

// View is what the overlay renders. Countdown and Snapshot are nil when
// Hidden.
type View struct {
	ParticipantID string               `json:"participantId"`
	Visibility    Visibility           `json:"visibility"`
	Countdown     *Countdown           `json:"countdown,omitempty"`
	Snapshot      *types.TimerSnapshot `json:"snapshot,omitempty"`
	ComputedAt    time.Time            `json:"computedAt"`
}

// Tier returns the countdown tier, or "" when nothing is rendered
func (v View) Tier() Tier {
	if v.Countdown == nil {
		return ""
	}
	return v.Countdown.Tier
}

// Options tunes a Timer
type Options struct {
	Clock clockwork.Clock
	// OnChange is called after every recompute with the new view.
	OnChange func(View)
}

// Timer is one mounted participant overlay
type Timer struct {
	participantID string
	source        Source
	logger        zerolog.Logger
	clock         clockwork.Clock
	onChange      func(View)

	mu        sync.RWMutex
	snapshot  *types.TimerSnapshot
	dismissed bool
	view      View
}

// NewTimer creates a hidden timer for participantID
func NewTimer(participantID string, source Source, logger zerolog.Logger, opts Options) *Timer {
	t := &Timer{
		participantID: participantID,
		source:        source,
		logger: logger.With().
			Str("component", "presence").
			Str("participant_id", participantID).
			Logger(),
		clock:    opts.Clock,
		onChange: opts.OnChange,
	}
	if t.clock == nil {
		t.clock = clockwork.NewRealClock()
	}
	t.view = View{ParticipantID: participantID, Visibility: Hidden, ComputedAt: t.clock.Now()}
	return t
}

// ParticipantID returns the participant this timer tracks
func (t *Timer) ParticipantID() string {
	return t.participantID
}

// Start runs the poll loop and the local tick loop. Cancel the returned
// group to tear both down.
func (t *Timer) Start(ctx context.Context, runner *scheduler.Runner, pollInterval, tickInterval time.Duration) (scheduler.Group, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}

	poll, err := runner.Every(ctx, "presence-poll:"+t.participantID, pollInterval, func(ctx context.Context) {
		_ = t.Poll(ctx)
	})
	if err != nil {
		return nil, err
	}
	tick, err := runner.Every(ctx, "presence-tick:"+t.participantID, tickInterval, t.Tick)
	if err != nil {
		_ = poll.Cancel()
		return nil, err
	}
	return scheduler.Group{poll, tick}, nil
}

// Poll fetches the authoritative snapshot once.
//
// Data replaces the snapshot and clears a dismissal. An empty payload, a
// non-success response or a signed-out session clears the snapshot. A
// transport error leaves everything as it was and is returned.
func (t *Timer) Poll(ctx context.Context) error {
	snap, err := t.source.GetTimerSnapshot(ctx, t.participantID)
	switch {
	case err == nil:
	case eventapi.IsTransport(err):
		t.logger.Warn().Err(err).Msg("Timer poll failed, keeping previous snapshot")
		return err
	case errors.Is(err, eventapi.ErrNoCredentials):
		t.logger.Debug().Msg("No session token, hiding timer")
		snap = nil
	default:
		t.logger.Warn().Err(err).Msg("Timer poll rejected, hiding timer")
		snap = nil
	}

	t.mu.Lock()
	if ctx.Err() != nil {
		t.mu.Unlock()
		return ctx.Err()
	}
	t.snapshot = snap
	t.dismissed = false
	view := t.recomputeLocked()
	t.mu.Unlock()

	t.notify(view)
	return nil
}

// Tick re-derives the view from the current snapshot and the clock
func (t *Timer) Tick(ctx context.Context) {
	t.mu.Lock()
	if ctx.Err() != nil {
		t.mu.Unlock()
		return
	}
	view := t.recomputeLocked()
	t.mu.Unlock()

	t.notify(view)
}

// Dismiss hides the overlay until the next successful poll
func (t *Timer) Dismiss() View {
	t.mu.Lock()
	t.dismissed = true
	view := t.recomputeLocked()
	t.mu.Unlock()

	t.logger.Debug().Msg("Timer dismissed")
	t.notify(view)
	return view
}

// View returns the view computed by the latest poll, tick or dismissal
func (t *Timer) View() View {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.view
}

// Evaluate computes the view for an arbitrary instant without storing it
func (t *Timer) Evaluate(now time.Time) View {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return evaluate(t.participantID, t.snapshot, t.dismissed, now)
}

func (t *Timer) recomputeLocked() View {
	t.view = evaluate(t.participantID, t.snapshot, t.dismissed, t.clock.Now())
	return t.view
}

func (t *Timer) notify(v View) {
	if t.onChange != nil {
		t.onChange(v)
	}
}

func evaluate(participantID string, snap *types.TimerSnapshot, dismissed bool, now time.Time) View {
	v := View{ParticipantID: participantID, Visibility: Hidden, ComputedAt: now}
	if snap == nil || !snap.TimerActive {
		return v
	}

	cd := Derive(*snap, now)
	s := *snap
	v.Countdown = &cd
	v.Snapshot = &s
	if dismissed {
		v.Visibility = Dismissed
	} else {
		v.Visibility = Visible
	}
	return v
}
