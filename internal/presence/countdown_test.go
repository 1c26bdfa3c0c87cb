package presence

import (
	"testing"
	"time"

	"github.com/eventconnect/eventconnect/internal/types"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func at(t time.Time) *time.Time { return &t }

func TestDerive_ExtrapolatesFromStartTime(t *testing.T) {
	cd := Derive(types.TimerSnapshot{
		CurrentTimeOutside: 30,
		MaxTimeOutside:     1,
		StartTime:          at(now.Add(-10 * time.Second)),
		TimerActive:        true,
	}, now)

	assert.Equal(t, int64(40), cd.Displayed)
	assert.Equal(t, int64(60), cd.Limit)
	assert.Equal(t, int64(20), cd.Remaining)
	assert.Equal(t, int64(0), cd.Minutes)
	assert.Equal(t, int64(20), cd.Seconds)
	assert.InDelta(t, 66.67, cd.PercentageUsed, 0.01)
	assert.Equal(t, TierWarning, cd.Tier)
}

func TestDerive_FloorsPartialSeconds(t *testing.T) {
	cd := Derive(types.TimerSnapshot{
		CurrentTimeOutside: 0,
		MaxTimeOutside:     10,
		StartTime:          at(now.Add(-1999 * time.Millisecond)),
	}, now)
	assert.Equal(t, int64(1), cd.Displayed)
}

func TestDerive_WithoutStartTimeUsesServerValue(t *testing.T) {
	cd := Derive(types.TimerSnapshot{CurrentTimeOutside: 125, MaxTimeOutside: 5}, now.Add(time.Hour))

	assert.Equal(t, int64(125), cd.Displayed)
	assert.Equal(t, int64(175), cd.Remaining)
	assert.Equal(t, int64(2), cd.Minutes)
	assert.Equal(t, int64(55), cd.Seconds)
}

func TestDerive_FutureStartTimeDoesNotSubtract(t *testing.T) {
	cd := Derive(types.TimerSnapshot{
		CurrentTimeOutside: 30,
		MaxTimeOutside:     1,
		StartTime:          at(now.Add(5 * time.Second)),
	}, now)
	assert.Equal(t, int64(30), cd.Displayed)
}

func TestDerive_RemainingNeverNegative(t *testing.T) {
	cd := Derive(types.TimerSnapshot{CurrentTimeOutside: 200, MaxTimeOutside: 2}, now)

	assert.Equal(t, int64(0), cd.Remaining)
	assert.Equal(t, int64(0), cd.Minutes)
	assert.Equal(t, int64(0), cd.Seconds)
	assert.InDelta(t, 166.67, cd.PercentageUsed, 0.01)
	assert.Equal(t, TierExceeded, cd.Tier)
}

func TestDerive_ZeroLimit(t *testing.T) {
	assert.Equal(t, TierExceeded, Derive(types.TimerSnapshot{CurrentTimeOutside: 1}, now).Tier)
	assert.Equal(t, TierNominal, Derive(types.TimerSnapshot{}, now).Tier)
}

func TestDerive_StaleOverridesUsage(t *testing.T) {
	for _, current := range []int64{0, 30, 60, 600} {
		cd := Derive(types.TimerSnapshot{CurrentTimeOutside: current, MaxTimeOutside: 1, IsStale: true}, now)
		assert.Equal(t, TierStale, cd.Tier, "current=%d", current)
	}
}

func TestDerive_MonotonicBetweenPolls(t *testing.T) {
	snap := types.TimerSnapshot{CurrentTimeOutside: 10, MaxTimeOutside: 3, StartTime: at(now)}
	prev := int64(-1)
	for i := 0; i < 120; i++ {
		cd := Derive(snap, now.Add(time.Duration(i)*500*time.Millisecond))
		assert.GreaterOrEqual(t, cd.Displayed, prev)
		prev = cd.Displayed
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		stale bool
		pct   float64
		want  Tier
	}{
		{true, 0, TierStale},
		{true, 150, TierStale},
		{false, 100, TierExceeded},
		{false, 250, TierExceeded},
		{false, 99.99, TierCritical},
		{false, 80, TierCritical},
		{false, 79.99, TierWarning},
		{false, 60, TierWarning},
		{false, 59.99, TierNominal},
		{false, 0, TierNominal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.stale, tt.pct), "stale=%v pct=%v", tt.stale, tt.pct)
	}
}
