package eventapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eventconnect/eventconnect/internal/session"
	"github.com/eventconnect/eventconnect/internal/types"
	"github.com/eventconnect/eventconnect/internal/version"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

var (
	// ErrNoCredentials is returned when the session holds no bearer token.
	ErrNoCredentials = errors.New("no session token available")
	// ErrUnsuccessful is returned for HTTP errors, success=false envelopes
	// and data that does not decode.
	ErrUnsuccessful = errors.New("backend returned a non-success response")
)

// TransportError wraps network-level failures (connection refused, timeout,
// cancelled context, unreachable token store). The caller keeps its previous
// state on these.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a network-level failure
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// envelope is the backend's standard response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// Client talks to the EventConnect REST API
type Client struct {
	http    *resty.Client
	session *session.Session
	logger  zerolog.Logger
}

// NewClient creates a backend client. No retries are configured: a failed
// call is retried by the caller's next scheduled tick.
func NewClient(baseURL string, timeout time.Duration, sess *session.Session, logger zerolog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", version.UserAgent())

	return &Client{
		http:    httpClient,
		session: sess,
		logger:  logger.With().Str("component", "eventapi").Logger(),
	}
}

// ListActiveEvents returns the events the backend reports as active.
// Callers still filter on Event.Tracked.
func (c *Client) ListActiveEvents(ctx context.Context) ([]types.Event, error) {
	var events []types.Event
	if err := c.get(ctx, "list active events", "/api/events", map[string]string{"status": "active"}, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ListUnacknowledgedAlerts returns the open alerts for one event
func (c *Client) ListUnacknowledgedAlerts(ctx context.Context, eventID string) ([]types.Alert, error) {
	var alerts []types.Alert
	err := c.get(ctx, "list alerts", "/api/events/{eventId}/alerts",
		map[string]string{"acknowledged": "false"},
		map[string]string{"eventId": eventID},
		&alerts)
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// GetTimerSnapshot returns the participant's current timer, or nil when the
// backend has nothing to report.
func (c *Client) GetTimerSnapshot(ctx context.Context, participantID string) (*types.TimerSnapshot, error) {
	var snapshot *types.TimerSnapshot
	err := c.get(ctx, "get timer snapshot", "/api/participants/{participantId}/timer",
		nil,
		map[string]string{"participantId": participantID},
		&snapshot)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (c *Client) get(ctx context.Context, op, path string, query, params map[string]string, out interface{}) error {
	token, ok, err := c.session.Token(ctx)
	if err != nil {
		// The token store is unreachable; callers keep their state as for
		// any other network failure.
		return &TransportError{Op: op + ": read session token", Err: err}
	}
	if !ok {
		return ErrNoCredentials
	}

	var env envelope
	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&env).
		SetError(&env)
	if query != nil {
		req.SetQueryParams(query)
	}
	if params != nil {
		req.SetPathParams(params)
	}

	resp, err := req.Get(path)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	if resp.IsError() {
		c.logger.Debug().
			Str("op", op).
			Int("status_code", resp.StatusCode()).
			Str("message", env.Message).
			Msg("Backend request rejected")
		return fmt.Errorf("%s: status %d: %w", op, resp.StatusCode(), ErrUnsuccessful)
	}
	if !env.Success {
		return fmt.Errorf("%s: %s: %w", op, env.Message, ErrUnsuccessful)
	}

	if isEmpty(env.Data) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: decoding data: %w: %w", op, err, ErrUnsuccessful)
	}
	return nil
}

func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 ||
		bytes.Equal(trimmed, []byte("null")) ||
		bytes.Equal(trimmed, []byte("{}"))
}
