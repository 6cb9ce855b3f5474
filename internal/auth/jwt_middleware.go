package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/hostelsec/internal/apperr"
	"github.com/wolfeidau/hostelsec/internal/models"
)

type contextKey int

const (
	principalContextKey contextKey = iota
)

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext extracts the authenticated principal from the request context.
// Returns nil if no principal is present (unauthenticated request).
func PrincipalFromContext(ctx context.Context) *Principal {
	principal, _ := ctx.Value(principalContextKey).(*Principal)
	return principal
}

// UserGetter loads the current state of a user.
type UserGetter interface {
	Get(ctx context.Context, id int64) (*models.User, error)
}

// Authenticator turns a bearer access token into a Principal using freshly
// loaded user state.
type Authenticator struct {
	codec *Codec
	users UserGetter
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(codec *Codec, users UserGetter) *Authenticator {
	return &Authenticator{codec: codec, users: users}
}

// Authenticate decodes an access token and loads its user.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	decoded, err := a.codec.DecodeAs(token, TokenAccess)
	if err != nil {
		return nil, err
	}

	user, err := a.users.Get(ctx, decoded.PrincipalID)
	if err != nil {
		return nil, apperr.Unauthenticated("user-not-found").Wrap(err)
	}
	if !user.IsActive {
		return nil, apperr.Unauthenticated("user-inactive")
	}

	return &Principal{
		UserID: user.ID,
		OrgID:  user.OrgID,
		Role:   user.Role,
		Scope:  decoded.Scope,
	}, nil
}

// Middleware returns an HTTP middleware that requires a valid access token.
// Every failure produces the same 401 response.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tokenString := extractBearerToken(r)
			if tokenString == "" {
				zerolog.Ctx(ctx).Debug().Msg("missing bearer token")
				WriteUnauthorized(w)
				return
			}

			principal, err := a.Authenticate(ctx, tokenString)
			if err != nil {
				zerolog.Ctx(ctx).Debug().Err(err).Msg("authentication failed")
				WriteUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}

// RequirePrincipal returns the principal attached by Middleware.
func RequirePrincipal(ctx context.Context) (Principal, error) {
	p := PrincipalFromContext(ctx)
	if p == nil {
		return Principal{}, apperr.Unauthenticated("no-principal")
	}
	return *p, nil
}

// WriteUnauthorized writes the fixed authentication failure response.
func WriteUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": "unauthorized"})
}

// extractBearerToken extracts the JWT from the Authorization header.
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}

// TokenFromRequest returns the bearer token, falling back to the token query
// parameter for clients that cannot set headers on a websocket upgrade.
func TokenFromRequest(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

// IsAuthError reports whether err should be reported as a generic 401.
func IsAuthError(err error) bool {
	return apperr.KindOf(err) == apperr.KindUnauthenticated || errors.Is(err, ErrInvalidToken)
}

