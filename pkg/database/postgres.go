package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/pattern-catalog/pkg/logging"
	"github.com/ekaya-inc/pattern-catalog/pkg/retry"
)

// DB wraps a pgxpool connection pool.
type DB struct {
	*pgxpool.Pool
}

// Config holds database connection configuration.
type Config struct {
	URL             string
	MaxConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// Retry controls how long startup waits for PostgreSQL. Nil uses retry.DefaultConfig.
	Retry  *retry.Config
	Logger *zap.Logger // Optional
}

// NewConnection creates a new database connection pool. The first ping is
// retried while the server is unreachable or still starting.
func NewConnection(ctx context.Context, cfg *Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConnections
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = 25
	}

	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	if poolConfig.MaxConnLifetime == 0 {
		poolConfig.MaxConnLifetime = time.Hour
	}

	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	if poolConfig.MaxConnIdleTime == 0 {
		poolConfig.MaxConnIdleTime = time.Minute * 30
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	retryCfg := connectRetryConfig(cfg.Retry, cfg.Logger, "postgres")
	if err := retry.DoIfRetryable(ctx, retryCfg, func() error { return pool.Ping(ctx) }); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// connectRetryConfig copies base (or the default) and attaches a warning log per retry.
func connectRetryConfig(base *retry.Config, logger *zap.Logger, target string) *retry.Config {
	cfg := retry.DefaultConfig()
	if base != nil {
		c := *base
		cfg = &c
	}
	if logger != nil && cfg.OnRetry == nil {
		cfg.OnRetry = func(attempt int, err error) {
			logger.Warn("Waiting for "+target,
				zap.Int("attempt", attempt),
				zap.String("error", logging.SanitizeError(err)),
			)
		}
	}
	return cfg
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}
