package types

import "time"

// TimerSnapshot is the server's view of a participant's time outside the
// event premises. CurrentTimeOutside is in seconds as of StartTime;
// MaxTimeOutside is the configured limit in minutes.
type TimerSnapshot struct {
	EventTitle         string     `json:"eventTitle"`
	EventID            string     `json:"eventId"`
	MaxTimeOutside     int64      `json:"maxTimeOutside"`
	CurrentTimeOutside int64      `json:"currentTimeOutside"`
	Status             string     `json:"status"`
	IsStale            bool       `json:"isStale"`
	TimerActive        bool       `json:"timerActive"`
	StartTime          *time.Time `json:"startTime,omitempty"`
}
