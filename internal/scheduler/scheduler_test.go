package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const interval = 30 * time.Second

func newFakeRunner() (*Runner, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return NewRunner(zerolog.Nop(), WithClock(clock)), clock
}

// advance waits for the loop to arm its next timer, then moves the clock by d
func advance(t *testing.T, clock *clockwork.FakeClock, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1), "loop never armed its next timer")
	clock.Advance(d)
}

func waitFor(cond func() bool, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

// advanceUntil advances by first and then by whole intervals until cond
// holds. gocron frees the singleton slot just after a task returns; a tick
// landing in that gap is rescheduled to the following interval.
func advanceUntil(t *testing.T, clock *clockwork.FakeClock, first time.Duration, cond func() bool) {
	t.Helper()
	step := first
	for range 5 {
		advance(t, clock, step)
		if waitFor(cond, 200*time.Millisecond) {
			return
		}
		step = interval
	}
	t.Fatal("condition not met after 5 intervals")
}

func TestEvery_RunsImmediatelyThenEveryInterval(t *testing.T) {
	r, clock := newFakeRunner()
	var runs atomic.Int32

	h, err := r.Every(context.Background(), "repeat", interval, func(ctx context.Context) {
		runs.Add(1)
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond,
		"first tick runs without waiting an interval")

	advance(t, clock, interval-time.Second)
	assert.Equal(t, int32(1), runs.Load(), "no tick before the interval elapses")

	advanceUntil(t, clock, time.Second, func() bool { return runs.Load() >= 2 })
	advanceUntil(t, clock, interval, func() bool { return runs.Load() >= 3 })
	advanceUntil(t, clock, interval, func() bool { return runs.Load() >= 4 })

	require.NoError(t, h.Cancel())
	stopped := runs.Load()
	clock.Advance(10 * interval)
	assert.Equal(t, stopped, runs.Load(), "no ticks after cancel")

	require.NoError(t, h.Cancel(), "cancel is idempotent")
}

func TestEvery_SkipsOverlappingTicks(t *testing.T) {
	r, clock := newFakeRunner()
	var inFlight, maxInFlight, runs atomic.Int32
	release := make(chan struct{})

	h, err := r.Every(context.Background(), "slow", interval, func(ctx context.Context) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		runs.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		inFlight.Add(-1)
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)

	// Three intervals pass while the first run is still going.
	for range 3 {
		advance(t, clock, interval)
	}
	advance(t, clock, 0)
	assert.Equal(t, int32(1), runs.Load(), "overrunning ticks are skipped, not queued")

	close(release)
	advanceUntil(t, clock, interval, func() bool { return runs.Load() >= 2 })

	require.NoError(t, h.Cancel())
	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestHandle_CancelWaitsForInFlightTick(t *testing.T) {
	r, _ := newFakeRunner()
	started := make(chan struct{})
	var finished atomic.Bool

	h, err := r.Every(context.Background(), "blocking", time.Hour, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	})
	require.NoError(t, err)

	<-started
	require.NoError(t, h.Cancel())
	assert.True(t, finished.Load())
}

func TestEvery_ParentCancelStopsLoop(t *testing.T) {
	r, clock := newFakeRunner()
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32

	h, err := r.Every(ctx, "parent", interval, func(ctx context.Context) {
		runs.Add(1)
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)

	cancel()
	// Returns once the teardown started by the parent has finished.
	require.NoError(t, h.Cancel())
	clock.Advance(10 * interval)
	assert.Equal(t, int32(1), runs.Load())
}

func TestEvery_RejectsNonPositiveInterval(t *testing.T) {
	r := NewRunner(zerolog.Nop())
	_, err := r.Every(context.Background(), "bad", 0, func(context.Context) {})
	require.Error(t, err)
}

func TestGroup_Cancel(t *testing.T) {
	r, clock := newFakeRunner()
	var a, b atomic.Int32

	ha, err := r.Every(context.Background(), "a", interval, func(context.Context) { a.Add(1) })
	require.NoError(t, err)
	hb, err := r.Every(context.Background(), "b", interval, func(context.Context) { b.Add(1) })
	require.NoError(t, err)

	g := Group{ha, hb, nil}
	require.Eventually(t, func() bool { return a.Load() == 1 && b.Load() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, g.Cancel())

	clock.Advance(10 * interval)
	assert.Equal(t, int32(1), a.Load())
	assert.Equal(t, int32(1), b.Load())
}

func TestRunner_Clock(t *testing.T) {
	r, clock := newFakeRunner()
	assert.Same(t, clock, r.Clock())
}
