package credentials

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wolfeidau/hostelsec/internal/auth"
)

// RefreshSkew is how long before expiry a token is treated as stale.
const RefreshSkew = time.Minute

// TokenInfo is the unverified content of a token held by the CLI. The CLI
// never holds the signing secret, so nothing here is trusted by the server.
type TokenInfo struct {
	Subject   string
	Kind      auth.TokenKind
	ExpiresAt time.Time
}

// Inspect decodes a token without verifying its signature.
func Inspect(token string) (*TokenInfo, error) {
	var claims auth.Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	info := &TokenInfo{Subject: claims.Subject, Kind: claims.Type}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// Fresh reports whether token can still be used at now for at least RefreshSkew.
func Fresh(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	info, err := Inspect(token)
	if err != nil || info.ExpiresAt.IsZero() {
		return false
	}
	return now.Add(RefreshSkew).Before(info.ExpiresAt)
}
