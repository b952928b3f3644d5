// Package main provides the chess relay server.
// It accepts TCP clients, authenticates them against the configured account
// store and relays moves and chat between the two players of each room.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cory-johannsen/chessrelay/internal/config"
	"github.com/cory-johannsen/chessrelay/internal/frontend/handlers"
	"github.com/cory-johannsen/chessrelay/internal/frontend/lineproto"
	"github.com/cory-johannsen/chessrelay/internal/observability"
	"github.com/cory-johannsen/chessrelay/internal/relay"
	"github.com/cory-johannsen/chessrelay/internal/server"
	"github.com/cory-johannsen/chessrelay/internal/storage"
	"github.com/cory-johannsen/chessrelay/internal/storage/postgres"
	redisstore "github.com/cory-johannsen/chessrelay/internal/storage/redis"
	"github.com/cory-johannsen/chessrelay/internal/storage/sqlite"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	envFile := flag.String("env", ".env", "optional dotenv file with CHESSRELAY_ overrides")
	flag.Parse()

	if err := loadEnv(*envFile); err != nil {
		log.Fatalf("loading env file: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "relayserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting chess relay",
		zap.String("listen_addr", cfg.Listener.Addr()),
		zap.String("accounts_backend", cfg.Accounts.Backend),
		zap.Bool("require_login", cfg.Relay.RequireLogin),
	)

	ctx := context.Background()
	storeStart := time.Now()
	accounts, err := openAccounts(ctx, cfg)
	if err != nil {
		logger.Fatal("opening account store", zap.Error(err))
	}
	logger.Info("account store ready",
		zap.String("backend", cfg.Accounts.Backend),
		zap.Duration("elapsed", time.Since(storeStart)),
	)

	hub := relay.NewHub(accounts, logger)
	dispatcher := relay.NewDispatcher(hub, cfg.Relay.RequireLogin, logger)
	handler := handlers.NewRelayHandler(dispatcher, cfg.Listener.OutboxSize, logger)
	acceptor := lineproto.NewAcceptor(cfg.Listener, handler, logger)

	lifecycle := server.NewLifecycle(logger)

	accountsDone := make(chan struct{})
	lifecycle.Add("accounts", &server.FuncService{
		StartFn: func() error {
			<-accountsDone
			return nil
		},
		StopFn: func() {
			close(accountsDone)
			if err := accounts.Close(); err != nil {
				logger.Warn("closing account store", zap.Error(err))
			}
		},
	})

	if cfg.Health.Enabled {
		lifecycle.Add("health", server.NewHealthService(cfg.Health.Addr(), cfg.Health.Interval, accounts, logger))
	}

	lifecycle.Add("relay", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn: func() {
			acceptor.Stop()
			stats := hub.Stats()
			logger.Info("relay drained",
				zap.Int("sessions", stats.Sessions),
				zap.Int("queued", stats.Queued),
				zap.Int("rooms", stats.Rooms),
			)
		},
	})

	logger.Info("relay initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// loadEnv applies path to the process environment. A missing file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// openAccounts connects the credential store selected by cfg.Accounts.Backend.
func openAccounts(ctx context.Context, cfg config.Config) (storage.AccountStore, error) {
	switch cfg.Accounts.Backend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return postgres.NewAccountRepository(pool), nil
	case config.BackendSQLite:
		store, err := sqlite.Open(ctx, cfg.Accounts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendRedis:
		store, err := redisstore.New(ctx, redisstore.Config{
			URL:       cfg.Accounts.RedisURL,
			PoolSize:  cfg.Accounts.RedisPoolSize,
			KeyPrefix: redisstore.DefaultConfig().KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown accounts backend %q", cfg.Accounts.Backend)
	}
}
