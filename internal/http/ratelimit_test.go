package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newLimited(t *testing.T, burst int) http.Handler {
	t.Helper()
	return newLimitedBy(t, burst, func(r *http.Request) string { return "agent:" + r.Header.Get("X-Agent-Id") })
}

func newLimitedBy(t *testing.T, burst int, key KeyFunc) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return RateLimiter(ctx, RateLimitConfig{RequestsPerSecond: 0.001, Burst: burst}, key)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
}

func agentRequest(agentID string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/agent/events", nil)
	if agentID != "" {
		r.Header.Set("X-Agent-Id", agentID)
	}
	return r
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	handler := newLimited(t, 2)

	for range 2 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, agentRequest("1"))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, agentRequest("1"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "rate limit exceeded", body["detail"])
}

func TestRateLimiter_PerAgentIsolation(t *testing.T) {
	handler := newLimited(t, 1)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, agentRequest("1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, agentRequest("1"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// another agent has its own bucket
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, agentRequest("2"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIPKey(t *testing.T) {
	r := agentRequest("7")
	r.RemoteAddr = "10.0.0.1:1234"
	require.Equal(t, "ip:10.0.0.1", ClientIPKey(r))

	// the value captured by ClientIPMiddleware wins
	var got string
	ClientIPMiddleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = ClientIPKey(r)
	})).ServeHTTP(httptest.NewRecorder(), func() *http.Request {
		r := agentRequest("7")
		r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		return r
	}())
	require.Equal(t, "ip:203.0.113.9", got)
}

func TestRateLimiter_ClientIPIgnoresClaimedAgent(t *testing.T) {
	handler := newLimitedBy(t, 1, ClientIPKey)

	first := agentRequest("1")
	first.RemoteAddr = "198.51.100.7:5000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	// same address claiming another agent shares the bucket
	second := agentRequest("2")
	second.RemoteAddr = "198.51.100.7:5001"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}
