package alertfeed

import (
	"strconv"
	"time"
)

// RelativeTime renders how long ago ts was, flooring at each tier:
// "Just now", "{m}m ago", "{h}h ago", "{d}d ago".
func RelativeTime(now, ts time.Time) string {
	d := now.Sub(ts)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return strconv.FormatInt(int64(d/time.Minute), 10) + "m ago"
	case d < 24*time.Hour:
		return strconv.FormatInt(int64(d/time.Hour), 10) + "h ago"
	default:
		return strconv.FormatInt(int64(d/(24*time.Hour)), 10) + "d ago"
	}
}
