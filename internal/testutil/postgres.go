// Package testutil provides shared test fixtures: a PostgreSQL container, a
// TCP line client, an in-memory account store and a recording endpoint.
package testutil

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/chessrelay/internal/config"
	"github.com/cory-johannsen/chessrelay/internal/storage/postgres"
)

const postgresImage = "postgres:16-alpine"

// PostgresContainer is a throwaway PostgreSQL server with a connected Pool.
type PostgresContainer struct {
	Pool   *postgres.Pool
	Config config.DatabaseConfig
}

// NewPostgresContainer starts PostgreSQL in Docker and connects a Pool to it.
// The schema is left empty; call ApplyMigrations or drive Migrator directly.
//
// Precondition: Docker must be available.
// Postcondition: The container and pool are released by t.Cleanup.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()
	start := time.Now()

	ctr, err := testcontainers.Run(ctx, postgresImage,
		testcontainers.WithExposedPorts("5432/tcp"),
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_USER":     "relay",
			"POSTGRES_PASSWORD": "relay",
			"POSTGRES_DB":       "relay",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "starting %s", postgresImage)

	endpoint, err := ctr.PortEndpoint(ctx, "5432/tcp", "")
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(endpoint)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host:            host,
		Port:            port,
		User:            "relay",
		Password:        "relay",
		Name:            "relay",
		SSLMode:         "disable",
		MaxConns:        4,
		MaxConnLifetime: time.Minute,
	}
	pool, err := postgres.NewPool(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	t.Logf("postgres ready at %s [%s]", endpoint, time.Since(start))
	return &PostgresContainer{Pool: pool, Config: cfg}
}

// DSN returns the URL form of the container's connection settings.
func (pc *PostgresContainer) DSN() string {
	return pc.Config.DSN()
}

// MigrationsDir returns the absolute path of the repository's migrations.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// Migrator returns a golang-migrate instance over MigrationsDir targeting the
// container. It is closed by t.Cleanup.
func (pc *PostgresContainer) Migrator(t *testing.T) *migrate.Migrate {
	t.Helper()
	m, err := migrate.New("file://"+MigrationsDir(), pc.DSN())
	require.NoError(t, err, "opening migrations")
	t.Cleanup(func() { _, _ = m.Close() })
	return m
}

// ApplyMigrations runs every up migration.
func (pc *PostgresContainer) ApplyMigrations(t *testing.T) {
	t.Helper()
	if err := pc.Migrator(t).Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("applying migrations: %v", err)
	}
}
