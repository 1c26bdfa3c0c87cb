package eventapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eventconnect/eventconnect/internal/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second, session.New(session.StaticToken("tok-123")), zerolog.Nop())
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestListActiveEvents(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/events", r.URL.Path)
		assert.Equal(t, "active", r.URL.Query().Get("status"))
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"success":true,"data":[
			{"id":"e1","status":"active","locationTrackingEnabled":true},
			{"id":"e2","status":"active","locationTrackingEnabled":false}]}`)
	})

	events, err := c.ListActiveEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, events[0].Tracked())
	assert.False(t, events[1].Tracked())
}

func TestListUnacknowledgedAlerts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/events/e%2F1/alerts", r.URL.EscapedPath())
		assert.Equal(t, "false", r.URL.Query().Get("acknowledged"))
		writeJSON(w, http.StatusOK, `{"success":true,"data":[{
			"alertId":"a1","statusId":"s1","participantName":"Ada","participantEmail":"ada@example.com",
			"eventTitle":"Expo","type":"exceeded_limit","timestamp":"2026-10-14T10:00:00Z",
			"acknowledged":false,"isWithinGeofence":false,"currentTimeOutside":420}]}`)
	})

	alerts, err := c.ListUnacknowledgedAlerts(context.Background(), "e/1")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "a1", alerts[0].AlertID)
	assert.Equal(t, "exceeded_limit", string(alerts[0].Type))
	assert.Equal(t, int64(420), alerts[0].CurrentTimeOutside)
	assert.Empty(t, alerts[0].EventID, "event id is tagged by the feed, not the client")
	assert.True(t, alerts[0].Timestamp.Equal(time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)))
}

func TestGetTimerSnapshot(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/participants/p1/timer", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"success":true,"data":{
			"eventTitle":"Expo","eventId":"e1","maxTimeOutside":15,"currentTimeOutside":30,
			"status":"outside","isStale":false,"timerActive":true,"startTime":"2026-10-14T10:00:00Z"}}`)
	})

	snap, err := c.GetTimerSnapshot(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, int64(15), snap.MaxTimeOutside)
	assert.True(t, snap.TimerActive)
	require.NotNil(t, snap.StartTime)
}

func TestGetTimerSnapshot_EmptyPayload(t *testing.T) {
	for _, body := range []string{`{"success":true,"data":null}`, `{"success":true}`, `{"success":true,"data":{}}`} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, body)
		})
		snap, err := c.GetTimerSnapshot(context.Background(), "p1")
		require.NoError(t, err, body)
		assert.Nil(t, snap, body)
	}
}

func TestClient_NonSuccess(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusInternalServerError, `{"success":false,"message":"boom"}`},
		{"forbidden", http.StatusForbidden, `{"message":"nope"}`},
		{"success false", http.StatusOK, `{"success":false,"message":"event closed"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := c.ListActiveEvents(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnsuccessful))
			assert.False(t, IsTransport(err))
		})
	}
}

func TestClient_NoCredentials(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, session.New(nil), zerolog.Nop())
	_, err := c.GetTimerSnapshot(context.Background(), "p1")
	require.ErrorIs(t, err, ErrNoCredentials)
	assert.False(t, called, "no request is made without a token")
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, session.New(session.StaticToken("t")), zerolog.Nop())
	_, err := c.ListActiveEvents(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.False(t, errors.Is(err, ErrUnsuccessful))
}

type brokenStore struct{}

func (brokenStore) Token(context.Context) (string, bool, error) {
	return "", false, errors.New("dial tcp 127.0.0.1:6379: connection refused")
}

func TestClient_TokenStoreUnavailable(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, session.New(brokenStore{}), zerolog.Nop())
	_, err := c.GetTimerSnapshot(context.Background(), "p1")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.False(t, errors.Is(err, ErrNoCredentials))
	assert.False(t, called)
}

func TestGetTimerSnapshot_MalformedPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"data":[]}`)
	})

	snap, err := c.GetTimerSnapshot(context.Background(), "p1")
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.True(t, errors.Is(err, ErrUnsuccessful))
	assert.False(t, IsTransport(err))
}
