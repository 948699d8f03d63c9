package main

import (
	"context"
	"fmt"

	"sweet_shop/internal/config"
	"sweet_shop/internal/logging"
	"sweet_shop/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// loadConfig reads .env, the config file and the environment, in that order
func loadConfig() (*config.Config, zerolog.Logger, error) {
	envErr := godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	if envErr != nil {
		logger.Debug().Msg("no .env file found, relying on environment variables")
	}
	if err := cfg.Validate(); err != nil {
		return nil, logger, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, logger, nil
}

// storage is the opened backing store. pool is nil for in-memory storage.
type storage struct {
	repos repository.Repositories
	pool  *pgxpool.Pool
}

func (s *storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// openStorage connects to the configured store and applies the schema
func openStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*storage, error) {
	if cfg.Database.Storage == config.StorageMemory {
		logger.Warn().Msg("using in-memory storage, data is lost on exit")
		return &storage{repos: repository.NewMemoryRepositories()}, nil
	}

	pool, err := config.ConnectDB(ctx, cfg.DSN(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := config.AutoMigrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return &storage{repos: repository.NewPostgresRepositories(pool), pool: pool}, nil
}
