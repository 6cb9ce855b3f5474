package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// Verifier is the one-way credential check. It never errors: malformed hash
// data counts as a mismatch.
type Verifier interface {
	Verify(plaintext, hash string) bool
}

// Hasher produces hashes that a Verifier accepts.
type Hasher interface {
	Verifier
	Hash(plaintext string) (string, error)
}

// BcryptHasher hashes passwords and agent API keys with bcrypt.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher using bcrypt.DefaultCost.
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: bcrypt.DefaultCost}
}

// Hash implements Hasher.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify implements Verifier.
func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
