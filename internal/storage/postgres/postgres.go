// Package postgres provides the PostgreSQL account store using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/chessrelay/internal/config"
)

const (
	applicationName   = "chessrelay"
	healthCheckPeriod = 30 * time.Second

	connectAttempts = 5
	connectBackoff  = 250 * time.Millisecond
	pingTimeout     = 5 * time.Second
)

// Pool is the relay's handle on PostgreSQL. It is owned by the
// AccountRepository built on it.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to the database described by cfg. The relay is often
// started alongside its database, so the first ping is retried with doubling
// backoff before giving up.
//
// Precondition: cfg must pass config validation.
// Postcondition: Returns a pool that has answered a ping, or a non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = healthCheckPeriod
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	p := &Pool{pool: pool}
	if err := p.waitReady(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Pool) waitReady(ctx context.Context) error {
	backoff := connectBackoff
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = p.pool.Ping(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == connectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for database: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("database unreachable after %d attempts: %w", connectAttempts, err)
}

// Health pings the database, bounded by ctx.
func (p *Pool) Health(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close releases all pool resources.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgxpool.Pool.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
