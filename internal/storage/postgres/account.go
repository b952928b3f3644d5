package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cory-johannsen/chessrelay/internal/storage"
)

// AccountRepository stores player accounts in the players table.
type AccountRepository struct {
	pool *Pool
}

// NewAccountRepository creates an AccountRepository backed by pool. The
// repository takes ownership of the pool and closes it in Close.
//
// Precondition: pool must be connected.
func NewAccountRepository(pool *Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

var _ storage.AccountStore = (*AccountRepository)(nil)

// Register inserts a new account with a bcrypt-hashed password.
//
// Postcondition: Returns nil, storage.ErrAccountExists if the username is
// taken, or a wrapped database error.
func (r *AccountRepository) Register(ctx context.Context, username, password string) error {
	hash, err := storage.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	_, err = r.pool.DB().Exec(ctx,
		`INSERT INTO players (username, password_hash) VALUES ($1, $2)`,
		username, hash,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrAccountExists
		}
		return fmt.Errorf("inserting account: %w", err)
	}
	return nil
}

// Verify checks password against the stored hash for username.
//
// Postcondition: Returns false with a nil error for unknown usernames.
func (r *AccountRepository) Verify(ctx context.Context, username, password string) (bool, error) {
	hash, err := r.passwordHash(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	return storage.CheckPassword(password, hash), nil
}

func (r *AccountRepository) passwordHash(ctx context.Context, username string) (string, error) {
	var hash string
	err := r.pool.DB().QueryRow(ctx,
		`SELECT password_hash FROM players WHERE username = $1`,
		username,
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrAccountNotFound
		}
		return "", fmt.Errorf("querying account: %w", err)
	}
	return hash, nil
}

// Health pings the database.
func (r *AccountRepository) Health(ctx context.Context) error {
	return r.pool.Health(ctx)
}

// Close closes the underlying pool.
func (r *AccountRepository) Close() error {
	r.pool.Close()
	return nil
}

// isDuplicateKeyError checks for SQLSTATE 23505 (unique_violation).
func isDuplicateKeyError(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
