package presence

import (
	"time"

	"github.com/eventconnect/eventconnect/internal/types"
)

// Tier selects the overlay's colour, icon and copy
type Tier string

const (
	TierStale    Tier = "stale"
	TierExceeded Tier = "exceeded"
	TierCritical Tier = "critical"
	TierWarning  Tier = "warning"
	TierNominal  Tier = "nominal"
)

// Countdown is the locally extrapolated timer state. All durations are in
// whole seconds.
type Countdown struct {
	Displayed      int64   `json:"displayed"`
	Limit          int64   `json:"limit"`
	Remaining      int64   `json:"remaining"`
	Minutes        int64   `json:"minutes"`
	Seconds        int64   `json:"seconds"`
	PercentageUsed float64 `json:"percentageUsed"`
	Tier           Tier    `json:"tier"`
}

// Derive extrapolates the snapshot to now. It is recomputed from scratch on
// every tick; nothing is carried over from a previous evaluation.
func Derive(s types.TimerSnapshot, now time.Time) Countdown {
	displayed := s.CurrentTimeOutside
	if s.StartTime != nil {
		// A start time ahead of the local clock must not count down.
		if elapsed := int64(now.Sub(*s.StartTime) / time.Second); elapsed > 0 {
			displayed += elapsed
		}
	}

	limit := s.MaxTimeOutside * 60
	remaining := max(0, limit-displayed)

	var pct float64
	switch {
	case limit > 0:
		pct = float64(displayed) / float64(limit) * 100
	case displayed > 0:
		// No allowance configured: any time outside is over the limit.
		pct = 100
	}

	return Countdown{
		Displayed:      displayed,
		Limit:          limit,
		Remaining:      remaining,
		Minutes:        remaining / 60,
		Seconds:        remaining % 60,
		PercentageUsed: pct,
		Tier:           Classify(s.IsStale, pct),
	}
}

// Classify maps staleness and usage to a tier. Lower bounds are inclusive
// and staleness overrides usage.
func Classify(isStale bool, percentageUsed float64) Tier {
	switch {
	case isStale:
		return TierStale
	case percentageUsed >= 100:
		return TierExceeded
	case percentageUsed >= 80:
		return TierCritical
	case percentageUsed >= 60:
		return TierWarning
	default:
		return TierNominal
	}
}
