// Package notifier pushes newly raised geofence alerts to Apprise.
package notifier

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/eventconnect/eventconnect/internal/alertfeed"
	"github.com/eventconnect/eventconnect/internal/types"
	"github.com/eventconnect/eventconnect/internal/version"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Notifier sends alerts via the Apprise API
type Notifier struct {
	logger   zerolog.Logger
	client   *resty.Client
	apiURL   string
	channels []string

	mu sync.Mutex
	// seen maps alert id to the event it belongs to
	seen   map[string]string
	primed bool
	// unprimed holds events that failed during the priming commit; their
	// first successful fetch is recorded without notifying.
	unprimed map[string]struct{}

	inFlight sync.WaitGroup
}

// NewNotifier creates an Apprise notifier. An empty apiURL only logs what
// would have been sent.
func NewNotifier(apiURL string, channels []string, timeout time.Duration, logger zerolog.Logger) *Notifier {
	return &Notifier{
		logger: logger.With().Str("component", "notifier").Logger(),
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("User-Agent", version.UserAgent()),
		apiURL:   strings.TrimRight(apiURL, "/"),
		channels: channels,
		seen:     make(map[string]string),
	}
}

// OnReplace is installed as the feed's replace hook. The first call only
// records what is already in the feed; later calls send alerts that have
// not been seen before. Sends run in the background under ctx so a slow
// Apprise server never holds up the next poll.
func (n *Notifier) OnReplace(ctx context.Context, r alertfeed.Replacement) {
	fresh := n.diff(r)
	if len(fresh) == 0 {
		return
	}

	n.inFlight.Add(1)
	go func() {
		defer n.inFlight.Done()
		for _, alert := range fresh {
			if ctx.Err() != nil {
				return
			}
			if err := n.SendAlert(ctx, alert); err != nil {
				n.logger.Error().Err(err).Str("alert_id", alert.AlertID).Msg("Failed to send notification")
			}
		}
	}()
}

// Wait blocks until background sends have finished
func (n *Notifier) Wait() {
	n.inFlight.Wait()
}

// diff returns the alerts of r.Next not seen before and updates the seen
// set. Alerts of events that failed to fetch this cycle stay seen, and a
// sign-out leaves the set untouched, so neither re-announces the backlog.
func (n *Notifier) diff(r alertfeed.Replacement) []types.Alert {
	n.mu.Lock()
	defer n.mu.Unlock()

	if r.SignedOut {
		return nil
	}

	current := make(map[string]string, len(r.Next))
	for id, eventID := range n.seen {
		if slices.Contains(r.FailedEvents, eventID) {
			current[id] = eventID
		}
	}

	var fresh []types.Alert
	for _, a := range r.Next {
		_, known := n.seen[a.AlertID]
		_, unprimed := n.unprimed[a.EventID]
		if !known && n.primed && !unprimed {
			fresh = append(fresh, a)
		}
		current[a.AlertID] = a.EventID
	}

	if !n.primed {
		n.unprimed = make(map[string]struct{}, len(r.FailedEvents))
		for _, id := range r.FailedEvents {
			n.unprimed[id] = struct{}{}
		}
	} else {
		for id := range n.unprimed {
			if !slices.Contains(r.FailedEvents, id) {
				delete(n.unprimed, id)
			}
		}
	}

	n.seen = current
	n.primed = true
	return fresh
}

// SendAlert sends one alert to every configured channel. Per-channel
// failures are logged and do not stop the others.
func (n *Notifier) SendAlert(ctx context.Context, alert types.Alert) error {
	title, body := formatMessage(alert)

	if n.apiURL == "" || len(n.channels) == 0 {
		n.logger.Info().
			Str("alert_id", alert.AlertID).
			Str("title", title).
			Msg("Would send notification (Apprise not configured)")
		return nil
	}

	var failed int
	for _, channel := range n.channels {
		if err := n.sendToApprise(ctx, channel, title, body); err != nil {
			failed++
			n.logger.Error().
				Err(err).
				Str("channel", channel).
				Msg("Failed to send notification")
			continue
		}
		n.logger.Info().
			Str("channel", channel).
			Str("alert_id", alert.AlertID).
			Msg("Notification sent")
	}

	if failed == len(n.channels) {
		return fmt.Errorf("all %d channels failed", failed)
	}
	return nil
}

// formatMessage renders the notification title and body
func formatMessage(alert types.Alert) (string, string) {
	var emoji, headline string
	switch alert.Type {
	case types.AlertExceededLimit:
		emoji, headline = "🔴", "Time limit exceeded"
	case types.AlertWarning:
		emoji, headline = "⚠️", "Approaching time limit"
	case types.AlertReturned:
		emoji, headline = "🟢", "Returned to venue"
	default:
		emoji, headline = "ℹ️", string(alert.Type)
	}

	title := fmt.Sprintf("%s EventConnect: %s", emoji, headline)
	body := fmt.Sprintf("%s (%s)\nEvent: %s\nTime outside: %s\nAt: %s",
		alert.ParticipantName, alert.ParticipantEmail, alert.EventTitle,
		(time.Duration(alert.CurrentTimeOutside) * time.Second).String(),
		alert.Timestamp.Format(time.RFC3339))
	if alert.CurrentStatus != "" {
		body += "\nStatus: " + alert.CurrentStatus
	}
	return title, body
}

func (n *Notifier) sendToApprise(ctx context.Context, channel, title, body string) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"title":  title,
			"body":   body,
			"format": "text",
		}).
		Post(n.apiURL + "/notify/" + channel)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("apprise API error: %d - %s", resp.StatusCode(), resp.String())
	}
	return nil
}
