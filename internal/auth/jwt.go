package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind separates short lived API claims from renewal claims.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// Claims is the signed payload of every token.
type Claims struct {
	jwt.RegisteredClaims
	Type TokenKind `json:"type"`
}

// Signer is the opaque sign/verify collaborator. Verify must fail with a single
// generic error for any signature, expiry or format problem.
type Signer interface {
	Sign(claims *Claims) (string, error)
	Verify(token string) (*Claims, error)
}

var errVerifyFailed = errors.New("token verification failed")

// HMACSigner signs claims with a shared secret.
type HMACSigner struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

// NewHMACSigner creates a signer for one of HS256, HS384 or HS512.
func NewHMACSigner(secret []byte, alg string) (*HMACSigner, error) {
	if len(secret) == 0 {
		return nil, errors.New("JWT secret not provided")
	}

	method := jwt.GetSigningMethod(alg)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}

	return &HMACSigner{secret: secret, method: method, now: time.Now}, nil
}

// WithClock overrides the time source used for expiry validation.
func (s *HMACSigner) WithClock(now func() time.Time) *HMACSigner {
	s.now = now
	return s
}

// Sign implements Signer.
func (s *HMACSigner) Sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
}

// Verify implements Signer.
func (s *HMACSigner) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, errVerifyFailed
	}

	return claims, nil
}
