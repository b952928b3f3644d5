// Package storage defines the persistent account store shared by the
// PostgreSQL, SQLite and Redis backends.
package storage

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrAccountExists is returned when registering a username that is taken.
var ErrAccountExists = errors.New("account already exists")

// ErrAccountNotFound is returned when a lookup finds no account.
var ErrAccountNotFound = errors.New("account not found")

// MaxPasswordLength is the longest password bcrypt accepts, in bytes.
const MaxPasswordLength = 72

// ErrPasswordTooLong is returned by HashPassword for passwords longer than
// MaxPasswordLength bytes.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// AccountStore persists player accounts across restarts.
type AccountStore interface {
	// Register creates an account or returns ErrAccountExists.
	Register(ctx context.Context, username, password string) error
	// Verify reports whether password matches the stored credential for
	// username. An unknown username is a mismatch, not an error.
	Verify(ctx context.Context, username, password string) (bool, error)
	// Health checks that the backend is reachable.
	Health(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}

// HashPassword creates a bcrypt hash of the given password.
//
// Postcondition: Returns a bcrypt hash string, or ErrPasswordTooLong.
func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
