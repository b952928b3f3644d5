// Package redis provides a Redis-backed account store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cory-johannsen/chessrelay/internal/storage"
)

// AccountStore keeps one key per account holding its bcrypt hash. Redis must
// run with persistence enabled for accounts to survive restarts.
type AccountStore struct {
	client *redis.Client
	prefix string
}

var _ storage.AccountStore = (*AccountStore)(nil)

// New connects to Redis using cfg and verifies the connection.
func New(ctx context.Context, cfg Config) (*AccountStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return NewWithClient(client, cfg.KeyPrefix), nil
}

// NewWithClient wraps an existing client (for testing).
func NewWithClient(client *redis.Client, prefix string) *AccountStore {
	if prefix == "" {
		prefix = DefaultConfig().KeyPrefix
	}
	return &AccountStore{client: client, prefix: prefix}
}

func (s *AccountStore) accountKey(username string) string {
	return fmt.Sprintf("%s:account:%s", s.prefix, username)
}

// Register stores the account only if the username is unused.
//
// Postcondition: Returns nil, storage.ErrAccountExists, or a wrapped error.
func (s *AccountStore) Register(ctx context.Context, username, password string) error {
	hash, err := storage.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	created, err := s.client.SetNX(ctx, s.accountKey(username), hash, 0).Result()
	if err != nil {
		return fmt.Errorf("storing account: %w", err)
	}
	if !created {
		return storage.ErrAccountExists
	}
	return nil
}

// Verify checks password against the stored hash for username.
func (s *AccountStore) Verify(ctx context.Context, username, password string) (bool, error) {
	hash, err := s.client.Get(ctx, s.accountKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("loading account: %w", err)
	}
	return storage.CheckPassword(password, hash), nil
}

// Health pings Redis.
func (s *AccountStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *AccountStore) Close() error {
	return s.client.Close()
}
