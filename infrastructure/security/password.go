// Package security hashes user passwords with bcrypt.
package security

import (
	"errors"
	"fmt"

	"iam/config"
	"iam/domain/user"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmptyPassword    = errors.New("password is empty")
	ErrPasswordMismatch = errors.New("password does not match")
)

// BcryptHasher turns plaintext into a user.PasswordHash and verifies it.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher falls back to bcrypt.DefaultCost when cost is out of range.
func NewBcryptHasher(cfg config.SecurityConfig) *BcryptHasher {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) (user.PasswordHash, error) {
	if plaintext == "" {
		return user.PasswordHash{}, ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return user.PasswordHash{}, fmt.Errorf("hash password: %w", err)
	}
	return user.NewPasswordHash(string(hash))
}

func (h *BcryptHasher) Verify(hash user.PasswordHash, plaintext string) error {
	if hash.IsZero() {
		return ErrPasswordMismatch
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash.Value()), []byte(plaintext))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
