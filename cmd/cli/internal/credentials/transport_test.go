package credentials

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/hostelsec/internal/auth"
)

func echoAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Authorization", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthTransport(t *testing.T) {
	now := time.Now()
	fresh := issueAt(t, now, auth.TokenAccess)
	stale := issueAt(t, now.Add(-time.Hour), auth.TokenAccess)
	refresh := issueAt(t, now, auth.TokenRefresh)
	renewed := issueAt(t, now.Add(time.Second), auth.TokenAccess)

	t.Run("uses fresh token without refreshing", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)
		p, err := store.Save(Profile{Name: "prod", AccessToken: fresh, RefreshToken: refresh})
		require.NoError(t, err)

		tr := NewAuthTransport(store, p, func(context.Context, string) (*auth.TokenPair, error) {
			return nil, errors.New("unexpected refresh")
		})

		srv := echoAuthServer(t)
		resp, err := (&http.Client{Transport: tr}).Get(srv.URL + "/events")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, "Bearer "+fresh, resp.Header.Get("X-Seen-Authorization"))
	})

	t.Run("refreshes stale token and persists it", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)
		p, err := store.Save(Profile{Name: "prod", AccessToken: stale, RefreshToken: refresh})
		require.NoError(t, err)

		calls := 0
		tr := NewAuthTransport(store, p, func(_ context.Context, rt string) (*auth.TokenPair, error) {
			calls++
			assert.Equal(t, refresh, rt)
			return &auth.TokenPair{AccessToken: renewed, RefreshToken: refresh, TokenType: "bearer"}, nil
		})

		srv := echoAuthServer(t)
		client := &http.Client{Transport: tr}
		for range 2 {
			resp, err := client.Get(srv.URL + "/events")
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, "Bearer "+renewed, resp.Header.Get("X-Seen-Authorization"))
		}
		assert.Equal(t, 1, calls)

		saved, err := store.Get("prod")
		require.NoError(t, err)
		assert.Equal(t, renewed, saved.AccessToken)
	})

	t.Run("expired session asks for login", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)
		p, err := store.Save(Profile{Name: "prod", AccessToken: stale, RefreshToken: issueAt(t, now.Add(-48*time.Hour), auth.TokenRefresh)})
		require.NoError(t, err)

		tr := NewAuthTransport(store, p, nil)
		_, err = tr.Token(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "login")
	})

	t.Run("refresh endpoint is passed through", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)
		p, err := store.Save(Profile{Name: "prod"})
		require.NoError(t, err)

		tr := NewAuthTransport(store, p, nil)
		srv := echoAuthServer(t)
		resp, err := (&http.Client{Transport: tr}).Post(srv.URL+"/auth/refresh", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Empty(t, resp.Header.Get("X-Seen-Authorization"))
	})
}
