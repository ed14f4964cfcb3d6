package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Hasher produces and checks bcrypt credential hashes. The cost is fixed at
// construction; each Hash call draws a fresh random salt.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost, clamped to bcrypt's allowed range.
// A zero cost selects bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Cost() int { return h.cost }

// Hash returns the bcrypt hash of plaintext. Inputs longer than 72 bytes are
// refused by bcrypt rather than truncated.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Check compares plaintext with hash in constant time. It returns nil on a
// match, ErrPasswordMismatch on a wrong password and a Rejection with
// ReasonMalformedCredentialHash when hash is not a usable bcrypt string.
func (h *Hasher) Check(plaintext, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrPasswordMismatch
	default:
		return reject(ReasonMalformedCredentialHash, err)
	}
}

// Verify reports whether plaintext matches hash. It never panics; a
// malformed hash is simply a non-match.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return h.Check(plaintext, hash) == nil
}
