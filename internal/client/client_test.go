package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/hostelsec/internal/auth"
	"github.com/wolfeidau/hostelsec/internal/models"
	"github.com/wolfeidau/hostelsec/internal/realtime"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{ServerURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestNew_RejectsUnsupportedScheme(t *testing.T) {
	_, err := New(Config{ServerURL: "ftp://example.com"})
	require.Error(t, err)
}

func TestClient_Login(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["email"] != "admin@example.com" || body["password"] != "secret123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"invalid credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(auth.TokenPair{AccessToken: "a", RefreshToken: "r", TokenType: "bearer"})
	})
	c := newTestClient(t, mux)

	pair, err := c.Login(context.Background(), "admin@example.com", "secret123")
	require.NoError(t, err)
	require.Equal(t, "a", pair.AccessToken)
	require.Equal(t, "r", pair.RefreshToken)

	_, err = c.Login(context.Background(), "admin@example.com", "wrong")
	require.True(t, IsUnauthorized(err))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "invalid credentials", apiErr.Detail)
}

func TestClient_ListEventsQuery(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode([]realtime.EventView{{ID: 9, Status: models.EventStatusOpen}})
	})
	c := newTestClient(t, mux)

	tests := []struct {
		name  string
		query EventQuery
		want  string
	}{
		{name: "empty", query: EventQuery{}, want: ""},
		{name: "status", query: EventQuery{Status: "open"}, want: "status=open"},
		{name: "all", query: EventQuery{Status: "dealt", CameraID: 4, Limit: 10}, want: "camera_id=4&limit=10&status=dealt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, err := c.ListEvents(context.Background(), tt.query)
			require.NoError(t, err)
			require.Len(t, views, 1)
			require.Equal(t, tt.want, gotQuery)
		})
	}
}

func TestClient_DisposeEvent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /events/{id}/action", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "12", r.PathValue("id"))
		var d Disposition
		require.NoError(t, json.NewDecoder(r.Body).Decode(&d))
		_ = json.NewEncoder(w).Encode(realtime.EventView{ID: 12, Status: models.EventStatus(d.Status), Decision: d.Decision})
	})
	c := newTestClient(t, mux)

	decision := models.DecisionEntryDenied
	view, err := c.DisposeEvent(context.Background(), 12, Disposition{Status: "dealt", Decision: &decision})
	require.NoError(t, err)
	require.Equal(t, models.EventStatusDealt, view.Status)
	require.Equal(t, decision, *view.Decision)
}

func TestClient_PushAgentEventRateLimited(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /agent/events", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "7", r.Header.Get("X-Agent-Id"))
		require.Equal(t, "key", r.Header.Get("X-Agent-Key"))
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"detail":"rate limit exceeded"}`))
	})
	c := newTestClient(t, mux)

	_, err := c.PushAgentEvent(context.Background(), AgentCredentials{ID: 7, Key: "key"}, AgentEvent{CameraID: 1, Type: "face"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, 3*time.Second, apiErr.RetryAfter)
}

type staticAuthenticator map[string]*auth.Principal

func (s staticAuthenticator) Authenticate(_ context.Context, token string) (*auth.Principal, error) {
	p, ok := s[token]
	if !ok {
		return nil, errors.New("bad token")
	}
	return p, nil
}

func TestClient_WatchEvents(t *testing.T) {
	b := realtime.NewBroadcaster(time.Second)
	authn := staticAuthenticator{"admin": {UserID: 1, Role: models.RoleAdmin, Scope: auth.Unscoped()}}

	mux := http.NewServeMux()
	mux.Handle("GET /ws/events", realtime.NewWebSocketHandler(b, authn, realtime.WebSocketConfig{}))
	c := newTestClient(t, mux)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		for b.Len() == 0 && ctx.Err() == nil {
			time.Sleep(10 * time.Millisecond)
		}
		b.Publish(ctx, realtime.EventCreated(&models.Event{ID: 5, CameraID: 2, Type: "face", Status: models.EventStatusOpen}, 1, nil))
	}()

	var got []realtime.Message
	err := c.WatchEvents(ctx, "admin", func(msg realtime.Message) error {
		got = append(got, msg)
		return ErrStopWatching
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, realtime.MessageEventCreated, got[0].Type)
	require.Equal(t, int64(5), got[0].Event.ID)
}

func TestClient_WatchEventsUnauthorized(t *testing.T) {
	b := realtime.NewBroadcaster(time.Second)
	mux := http.NewServeMux()
	mux.Handle("GET /ws/events", realtime.NewWebSocketHandler(b, staticAuthenticator{}, realtime.WebSocketConfig{}))
	c := newTestClient(t, mux)

	err := c.WatchEvents(context.Background(), "nope", func(realtime.Message) error { return nil })
	require.True(t, IsUnauthorized(err))
}
