package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/hostelsec/internal/apperr"
)

// ErrInvalidToken covers every decode failure. The cause is kept for logs only.
var ErrInvalidToken = apperr.Unauthenticated("invalid-token")

const issuer = "hostelsec"

// CodecConfig controls token lifetimes and subject parsing.
type CodecConfig struct {
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	LenientScope bool
}

// Codec encodes principal identity and scope into signed tokens and back.
type Codec struct {
	signer Signer
	cfg    CodecConfig
	now    func() time.Time
}

// Decoded is the structured view of a verified token.
type Decoded struct {
	PrincipalID int64
	Scope       Scope
	Kind        TokenKind
	ExpiresAt   time.Time
}

// TokenPair is issued on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// NewCodec creates a codec. Zero TTLs default to 30 minutes and 7 days.
func NewCodec(signer Signer, cfg CodecConfig) *Codec {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 30 * time.Minute
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Codec{signer: signer, cfg: cfg, now: time.Now}
}

// WithClock overrides the time source used when issuing tokens.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Issue signs a token of the given kind for principalID restricted to scope.
func (c *Codec) Issue(principalID int64, scope Scope, kind TokenKind) (string, error) {
	ttl := c.cfg.AccessTTL
	if kind == TokenRefresh {
		ttl = c.cfg.RefreshTTL
	}

	now := c.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   FormatSubject(principalID, scope),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
		Type: kind,
	}

	token, err := c.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return token, nil
}

// IssuePair issues a fresh access and refresh token for the same subject.
func (c *Codec) IssuePair(principalID int64, scope Scope) (*TokenPair, error) {
	access, err := c.Issue(principalID, scope, TokenAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := c.Issue(principalID, scope, TokenRefresh)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// Decode verifies token and recovers the principal id, scope and kind.
func (c *Codec) Decode(token string) (*Decoded, error) {
	claims, err := c.signer.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken.Wrap(err)
	}

	switch claims.Type {
	case TokenAccess, TokenRefresh:
	default:
		return nil, ErrInvalidToken.Wrap(fmt.Errorf("unknown token type %q", claims.Type))
	}

	principalID, scope, err := ParseSubject(claims.Subject, c.cfg.LenientScope)
	if err != nil {
		return nil, ErrInvalidToken.Wrap(err)
	}

	decoded := &Decoded{
		PrincipalID: principalID,
		Scope:       scope,
		Kind:        claims.Type,
	}
	if claims.ExpiresAt != nil {
		decoded.ExpiresAt = claims.ExpiresAt.Time
	}
	return decoded, nil
}

// DecodeAs decodes token and rejects it unless it is of kind want.
func (c *Codec) DecodeAs(token string, want TokenKind) (*Decoded, error) {
	decoded, err := c.Decode(token)
	if err != nil {
		return nil, err
	}
	if decoded.Kind != want {
		log.Debug().Str("want", string(want)).Str("got", string(decoded.Kind)).Msg("token kind mismatch")
		return nil, ErrInvalidToken.Wrap(fmt.Errorf("expected %s token, got %s", want, decoded.Kind))
	}
	return decoded, nil
}
