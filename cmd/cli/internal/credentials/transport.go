package credentials

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/hostelsec/internal/auth"
)

// RefreshFunc exchanges a refresh token for a new pair.
type RefreshFunc func(ctx context.Context, refreshToken string) (*auth.TokenPair, error)

// AuthTransport adds the profile's access token to every request, renewing it
// through refresh when it is about to expire and saving the new pair.
type AuthTransport struct {
	Base http.RoundTripper

	store   *Store
	profile string
	refresh RefreshFunc
	now     func() time.Time

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

// NewAuthTransport creates a transport for the named profile.
func NewAuthTransport(store *Store, p *Profile, refresh RefreshFunc) *AuthTransport {
	log.Debug().
		Str("profile", p.Name).
		Str("server", p.Server).
		Msg("initialized auth transport")

	return &AuthTransport{
		Base:         http.DefaultTransport,
		store:        store,
		profile:      p.Name,
		refresh:      refresh,
		now:          time.Now,
		accessToken:  p.AccessToken,
		refreshToken: p.RefreshToken,
	}
}

// SetRefresh replaces the refresh function. The client that performs the
// refresh is usually built on this transport, so it is wired after construction.
func (t *AuthTransport) SetRefresh(refresh RefreshFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refresh = refresh
}

// RoundTrip implements http.RoundTripper.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// refresh requests carry their own credentials in the body
	if strings.HasSuffix(req.URL.Path, "/auth/refresh") {
		return t.Base.RoundTrip(req)
	}

	token, err := t.Token(req.Context())
	if err != nil {
		return nil, err
	}

	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+token)
	return t.Base.RoundTrip(req)
}

// Token returns an access token valid for at least RefreshSkew.
func (t *AuthTransport) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if Fresh(t.accessToken, t.now()) {
		return t.accessToken, nil
	}

	if t.refresh == nil || !Fresh(t.refreshToken, t.now()) {
		return "", fmt.Errorf("session for profile %q has expired, run: hostelsec-cli login --profile %s", t.profile, t.profile)
	}

	pair, err := t.refresh(ctx, t.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh session: %w", err)
	}

	t.accessToken = pair.AccessToken
	t.refreshToken = pair.RefreshToken

	if err := t.store.UpdateTokens(t.profile, pair.AccessToken, pair.RefreshToken); err != nil {
		log.Warn().Err(err).Str("profile", t.profile).Msg("failed to persist refreshed tokens")
	}

	log.Debug().Str("profile", t.profile).Msg("refreshed access token")

	return t.accessToken, nil
}
