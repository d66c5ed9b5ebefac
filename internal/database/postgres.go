// Package database provides connection setup for PostgreSQL and Redis.
// Both connections are created once at startup and shared across the
// application via dependency injection. This package owns the connection
// lifecycle (open, configure pool, ping, close).
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gatehouse/internal/config"
)

// NewPostgres creates a new PostgreSQL connection pool configured with the
// settings from the provided config. It pings the database to verify
// connectivity before returning.
func NewPostgres(cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}

	// Bound the pool so a traffic spike cannot exhaust database connections.
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	// Retry with exponential backoff -- PostgreSQL may still be starting up
	// when the gateway container launches. This avoids crash-loop restarts
	// during Docker Compose cold-starts.
	const maxRetries = 10
	backoff := 1 * time.Second
	var pingErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pingErr = pool.Ping(ctx)
		cancel()

		if pingErr == nil {
			return pool, nil
		}

		if attempt == maxRetries {
			break
		}

		slog.Warn("postgres not ready, retrying...",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", maxRetries),
			slog.Duration("backoff", backoff),
			slog.Any("error", pingErr),
		)
		time.Sleep(backoff)
		backoff = min(backoff*2, 30*time.Second)
	}

	pool.Close()
	return nil, fmt.Errorf("pinging postgres after %d attempts: %w", maxRetries, pingErr)
}
