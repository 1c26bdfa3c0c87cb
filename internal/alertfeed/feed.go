// Package alertfeed maintains the dashboard's unacknowledged-alert list. Each
// poll lists the tracked events, fetches every event's open alerts
// concurrently and replaces the exposed list wholesale.
package alertfeed

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/eventconnect/eventconnect/internal/eventapi"
	"github.com/eventconnect/eventconnect/internal/scheduler"
	"github.com/eventconnect/eventconnect/internal/types"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultDisplayLimit   = 10
	DefaultMaxConcurrency = 8
)

// Source is the event-and-alert query service
type Source interface {
	ListActiveEvents(ctx context.Context) ([]types.Event, error)
	ListUnacknowledgedAlerts(ctx context.Context, eventID string) ([]types.Alert, error)
}

// Replacement describes one committed swap of the alert list. Prev is nil
// on the first commit. Slices are copies owned by the callee.
type Replacement struct {
	Prev []types.Alert
	Next []types.Alert
	// FailedEvents lists the events whose alerts could not be fetched this
	// cycle, so their alerts are missing from Next.
	FailedEvents []string
	// SignedOut is set when Next was cleared for lack of a session token.
	SignedOut bool
}

// ReplaceFunc observes every committed replacement. ctx is the polling
// loop's context and is cancelled when the loop is torn down.
type ReplaceFunc func(ctx context.Context, r Replacement)

// Options tunes a Feed. Zero values select the defaults.
type Options struct {
	DisplayLimit   int
	MaxConcurrency int
	Clock          clockwork.Clock
	OnReplace      ReplaceFunc
}

// Item is one display row of the dropdown
type Item struct {
	types.Alert
	Received string `json:"received"`
}

// Feed polls the backend and exposes the merged, newest-first alert list
type Feed struct {
	source         Source
	logger         zerolog.Logger
	clock          clockwork.Clock
	displayLimit   int
	maxConcurrency int
	onReplace      ReplaceFunc

	mu        sync.RWMutex
	alerts    []types.Alert
	updatedAt time.Time
	committed bool
}

// New creates a feed over source
func New(source Source, logger zerolog.Logger, opts Options) *Feed {
	f := &Feed{
		source:         source,
		logger:         logger.With().Str("component", "alertfeed").Logger(),
		clock:          opts.Clock,
		displayLimit:   opts.DisplayLimit,
		maxConcurrency: opts.MaxConcurrency,
		onReplace:      opts.OnReplace,
	}
	if f.clock == nil {
		f.clock = clockwork.NewRealClock()
	}
	if f.displayLimit <= 0 {
		f.displayLimit = DefaultDisplayLimit
	}
	if f.maxConcurrency <= 0 {
		f.maxConcurrency = DefaultMaxConcurrency
	}
	return f
}

// Start polls every interval until the handle is cancelled
func (f *Feed) Start(ctx context.Context, runner *scheduler.Runner, interval time.Duration) (*scheduler.Handle, error) {
	return runner.Every(ctx, "alertfeed", interval, func(ctx context.Context) {
		// Failures are logged inside Poll; the next tick retries.
		_ = f.Poll(ctx)
	})
}

// Poll runs one fetch-merge-replace cycle. It returns an error only when the
// event list itself could not be fetched; in that case the previous alerts
// are kept. Per-event failures are logged and leave out that event's alerts.
func (f *Feed) Poll(ctx context.Context) error {
	cycle := uuid.NewString()
	log := f.logger.With().Str("cycle", cycle).Logger()

	events, err := f.source.ListActiveEvents(ctx)
	if err != nil {
		if errors.Is(err, eventapi.ErrNoCredentials) {
			log.Debug().Msg("No session token, clearing alert feed")
			f.commit(ctx, Replacement{Next: []types.Alert{}, SignedOut: true})
			return nil
		}
		log.Error().Err(err).Msg("Failed to list active events, keeping previous alerts")
		return err
	}

	tracked := make([]types.Event, 0, len(events))
	for _, ev := range events {
		if ev.Tracked() {
			tracked = append(tracked, ev)
		}
	}

	perEvent := make([][]types.Alert, len(tracked))
	var (
		failed   []string
		failedMu sync.Mutex
	)

	var g errgroup.Group
	g.SetLimit(f.maxConcurrency)
	for i, ev := range tracked {
		g.Go(func() error {
			alerts, err := f.source.ListUnacknowledgedAlerts(ctx, ev.ID)
			if err != nil {
				log.Warn().
					Err(err).
					Str("event_id", ev.ID).
					Msg("Failed to fetch alerts for event")
				failedMu.Lock()
				failed = append(failed, ev.ID)
				failedMu.Unlock()
				return nil
			}
			alerts = slices.Clone(alerts)
			for j := range alerts {
				alerts[j].EventID = ev.ID
			}
			perEvent[i] = alerts
			return nil
		})
	}
	_ = g.Wait()

	merged := Merge(perEvent...)
	slices.Sort(failed)
	if !f.commit(ctx, Replacement{Next: merged, FailedEvents: failed}) {
		return ctx.Err()
	}

	log.Debug().
		Int("event_count", len(tracked)).
		Int("failed_count", len(failed)).
		Int("alert_count", len(merged)).
		Msg("Alert feed refreshed")
	return nil
}

// Merge concatenates per-event lists in order and stable-sorts the result
// newest first, so equal timestamps keep their input order.
func Merge(lists ...[]types.Alert) []types.Alert {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	merged := make([]types.Alert, 0, n)
	for _, l := range lists {
		merged = append(merged, l...)
	}
	slices.SortStableFunc(merged, func(a, b types.Alert) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return merged
}

// commit swaps in r.Next unless ctx was cancelled (the loop was torn down).
func (f *Feed) commit(ctx context.Context, r Replacement) bool {
	f.mu.Lock()
	if ctx.Err() != nil {
		f.mu.Unlock()
		return false
	}
	var prev []types.Alert
	if f.committed {
		prev = f.alerts
	}
	next := r.Next
	f.alerts = next
	f.updatedAt = f.clock.Now()
	f.committed = true
	f.mu.Unlock()

	if f.onReplace != nil {
		r.Prev = slices.Clone(prev)
		r.Next = slices.Clone(next)
		f.onReplace(ctx, r)
	}
	return true
}

// Alerts returns the full sorted list
func (f *Feed) Alerts() []types.Alert {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.alerts)
}

// Display returns at most the display limit of newest alerts
func (f *Feed) Display() []types.Alert {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := min(len(f.alerts), f.displayLimit)
	return slices.Clone(f.alerts[:n])
}

// UnreadCount is the badge value. Every alert in the feed is unacknowledged.
func (f *Feed) UnreadCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.alerts)
}

// UpdatedAt is the time of the last commit; zero before the first poll.
func (f *Feed) UpdatedAt() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.updatedAt
}

// Items pairs the display alerts with their relative "received" labels
func (f *Feed) Items() []Item {
	now := f.clock.Now()
	display := f.Display()
	items := make([]Item, len(display))
	for i, a := range display {
		items[i] = Item{Alert: a, Received: RelativeTime(now, a.Timestamp)}
	}
	return items
}
