package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/elearning/internal/config"
)

// NewRedis creates a new Redis client from the given config. It parses the
// URL, then pings with a fixed backoff until the server answers or ctx is
// cancelled.
func NewRedis(ctx context.Context, cfg config.CacheConfig, retry time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	err = retryUntilReady(ctx, "redis", retry, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}
