package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidPassword  = errors.New("password does not match")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
)

// Credential policy for learner and admin accounts.
const (
	passwordMinLength = 8
	passwordHashCost  = 12
)

// HashPassword derives the bcrypt hash stored on an account. Passwords below
// the policy minimum are rejected before any hashing work happens.
func HashPassword(password string) (string, error) {
	if len(password) < passwordMinLength {
		return "", ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword compares a stored hash against a login attempt. A mismatch
// is reported as ErrInvalidPassword; callers decide how much to reveal.
func VerifyPassword(storedHash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}
