// Package database provides connection setup for MariaDB and Redis.
// Both connections are created once at startup and shared across the
// application via dependency injection. This package owns the connection
// lifecycle (open, configure pool, ping, close) and the embedded schema.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// MariaDB driver -- imported for side effect of registering the driver.
	_ "github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/mealboard/internal/config"
)

// Ping retry policy. MariaDB may still be starting when the app container
// launches under Docker Compose.
const (
	pingMaxRetries = 10
	pingTimeout    = 5 * time.Second
	pingMaxBackoff = 30 * time.Second
)

// NewMariaDB creates a new MariaDB connection pool configured with the
// settings from the provided config. It pings the database to verify
// connectivity before returning, retrying with exponential backoff until
// ctx is cancelled or the retries run out.
func NewMariaDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mariadb connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := pingWithRetry(ctx, db, time.Second); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// pingWithRetry pings db until it answers, doubling the wait between tries.
func pingWithRetry(ctx context.Context, db *sql.DB, backoff time.Duration) error {
	var pingErr error
	for attempt := 1; attempt <= pingMaxRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		pingErr = db.PingContext(pingCtx)
		cancel()

		if pingErr == nil {
			return nil
		}
		if attempt == pingMaxRetries {
			break
		}

		slog.Warn("mariadb not ready, retrying...",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", pingMaxRetries),
			slog.Duration("backoff", backoff),
			slog.Any("error", pingErr),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("pinging mariadb: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, pingMaxBackoff)
	}
	return fmt.Errorf("pinging mariadb after %d attempts: %w", pingMaxRetries, pingErr)
}
