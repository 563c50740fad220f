// Package database provides connection setup for MariaDB and Redis.
// Both connections are created once at startup and shared across the
// application via dependency injection. This package owns the connection
// lifecycle (open, configure pool, ping, close).
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// MariaDB driver -- imported for side effect of registering the driver.
	_ "github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/elearning/internal/config"
)

// NewMariaDB creates a new MariaDB connection pool configured with the
// settings from the provided config. It pings the database until it answers,
// sleeping retry between attempts. Only ctx cancellation stops the loop, so
// a database that comes up late never crash-loops the app container.
func NewMariaDB(ctx context.Context, cfg config.DatabaseConfig, retry time.Duration) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mariadb connection: %w", err)
	}

	// Configure connection pool settings to prevent connection exhaustion
	// and stale connections under load.
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	err = retryUntilReady(ctx, "mariadb", retry, func(ctx context.Context) error {
		return db.PingContext(ctx)
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// retryUntilReady calls ping until it succeeds or ctx is done. The backoff
// is fixed.
func retryUntilReady(ctx context.Context, name string, backoff time.Duration, ping func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := ping(pingCtx)
		cancel()

		if err == nil {
			if attempt > 1 {
				slog.Info(name+" ready", slog.Int("attempts", attempt))
			}
			return nil
		}

		slog.Warn(name+" not ready, retrying...",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("connecting to %s: %w (last error: %v)", name, ctx.Err(), err)
		case <-time.After(backoff):
		}
	}
}
