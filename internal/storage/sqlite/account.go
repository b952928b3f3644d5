// Package sqlite provides an embedded SQLite account store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/cory-johannsen/chessrelay/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS players (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT    NOT NULL UNIQUE,
	password_hash TEXT    NOT NULL,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// AccountStore keeps accounts in a single SQLite database file.
type AccountStore struct {
	db *sql.DB
}

var _ storage.AccountStore = (*AccountStore)(nil)

// Open opens (creating if needed) the database at path and ensures the
// players table exists.
//
// Postcondition: Returns a ready AccountStore or a non-nil error.
func Open(ctx context.Context, path string) (*AccountStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", path, err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating players table: %w", err)
	}
	return &AccountStore{db: db}, nil
}

// Register inserts a new account with a bcrypt-hashed password.
//
// Postcondition: Returns nil, storage.ErrAccountExists, or a wrapped error.
func (s *AccountStore) Register(ctx context.Context, username, password string) error {
	hash, err := storage.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO players (username, password_hash) VALUES (?, ?)`,
		username, hash,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return storage.ErrAccountExists
		}
		return fmt.Errorf("inserting account: %w", err)
	}
	return nil
}

// Verify checks password against the stored hash for username.
func (s *AccountStore) Verify(ctx context.Context, username, password string) (bool, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT password_hash FROM players WHERE username = ?`,
		username,
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("querying account: %w", err)
	}
	return storage.CheckPassword(password, hash), nil
}

// Health pings the database.
func (s *AccountStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *AccountStore) Close() error {
	return s.db.Close()
}
