package webui

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogEntry is one captured log line
type LogEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Level     string            `json:"level"`
	Message   string            `json:"message"`
	Component string            `json:"component,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// LogBuffer keeps the most recent zerolog lines for /api/logs and the
// dashboard log panel
type LogBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	head    int
	count   int
	now     func() time.Time
}

// NewLogBuffer creates a buffer holding at most size entries
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = 1
	}
	return &LogBuffer{entries: make([]LogEntry, size), now: time.Now}
}

// Write implements io.Writer. Each call is expected to carry one zerolog
// JSON line; anything else is kept verbatim as an info message.
func (lb *LogBuffer) Write(p []byte) (int, error) {
	entry := parseLine(p)
	if entry.Timestamp.IsZero() {
		entry.Timestamp = lb.now()
	}

	lb.mu.Lock()
	lb.entries[lb.head] = entry
	lb.head = (lb.head + 1) % len(lb.entries)
	if lb.count < len(lb.entries) {
		lb.count++
	}
	lb.mu.Unlock()

	return len(p), nil
}

// Entries returns the buffered entries oldest first
func (lb *LogBuffer) Entries() []LogEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	out := make([]LogEntry, lb.count)
	start := 0
	if lb.count == len(lb.entries) {
		start = lb.head
	}
	for i := range out {
		out[i] = lb.entries[(start+i)%len(lb.entries)]
	}
	return out
}

// Recent returns at most n of the newest entries at or above minLevel.
// An empty minLevel matches everything.
func (lb *LogBuffer) Recent(n int, minLevel string) []LogEntry {
	floor := zerolog.TraceLevel
	if minLevel != "" {
		if lvl, err := zerolog.ParseLevel(minLevel); err == nil {
			floor = lvl
		}
	}

	all := lb.Entries()
	out := make([]LogEntry, 0, min(n, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		lvl, err := zerolog.ParseLevel(all[i].Level)
		if err != nil || lvl >= floor {
			out = append(out, all[i])
		}
	}
	// back to oldest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Clear drops every entry
func (lb *LogBuffer) Clear() {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.head = 0
	lb.count = 0
}

func parseLine(p []byte) LogEntry {
	var fields map[string]any
	if err := json.Unmarshal(p, &fields); err != nil {
		return LogEntry{Level: zerolog.InfoLevel.String(), Message: strings.TrimSpace(string(p))}
	}

	entry := LogEntry{Level: zerolog.InfoLevel.String()}
	for k, v := range fields {
		switch k {
		case zerolog.LevelFieldName:
			if s, ok := v.(string); ok {
				entry.Level = s
			}
		case zerolog.MessageFieldName:
			entry.Message, _ = v.(string)
		case zerolog.TimestampFieldName:
			// TimeFormatUnix renders seconds as a JSON number.
			switch ts := v.(type) {
			case float64:
				entry.Timestamp = time.Unix(int64(ts), 0)
			case string:
				entry.Timestamp, _ = time.Parse(time.RFC3339, ts)
			}
		case "component":
			entry.Component, _ = v.(string)
		default:
			if entry.Fields == nil {
				entry.Fields = make(map[string]string)
			}
			if s, ok := v.(string); ok {
				entry.Fields[k] = s
			} else {
				b, _ := json.Marshal(v)
				entry.Fields[k] = string(b)
			}
		}
	}
	return entry
}
