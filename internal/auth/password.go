package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used when the configured cost is out of range.
const DefaultBcryptCost = bcrypt.DefaultCost

// Hasher hashes and verifies passwords with bcrypt at a fixed cost.
// The zero value uses DefaultBcryptCost.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher for cost, falling back to DefaultBcryptCost
// when cost is outside bcrypt's supported range.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return Hasher{cost: cost}
}

// Cost returns the bcrypt work factor new hashes are created with.
func (h Hasher) Cost() int {
	if h.cost == 0 {
		return DefaultBcryptCost
	}
	return h.cost
}

// Hash returns the bcrypt hash of password with a random salt.
// Passwords longer than 72 bytes return ErrPasswordTooLong.
func (h Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost())
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches hash using the salt and cost
// embedded in the hash.
//
// A well-formed hash that does not match returns (false, nil). A corrupt
// hash returns (false, err).
func (h Hasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("verifying password: %w", err)
	}
}
