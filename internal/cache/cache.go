// Package cache is the key-value store behind sessions, refresh token ids
// and the course cache. A missing key is a normal outcome reported through
// the found flag, never as an error.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store is a TTL-bounded byte store. Each call is atomic on its own key;
// nothing spans keys.
type Store interface {
	// Get returns the value stored under key.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key. A ttl of zero keeps the entry until it is
	// deleted or overwritten.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Replace overwrites an existing key and keeps its remaining TTL. It
	// never creates a key and reports whether one was replaced.
	Replace(ctx context.Context, key string, value []byte) (replaced bool, err error)

	// Take atomically reads and deletes key.
	Take(ctx context.Context, key string) (value []byte, found bool, err error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, keys ...string) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// GetJSON decodes the JSON value under key into dst.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v as JSON and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", key, err)
	}
	return s.Set(ctx, key, raw, ttl)
}

// ReplaceJSON encodes v as JSON and replaces the existing entry under key.
func ReplaceJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("encoding cache entry %s: %w", key, err)
	}
	return s.Replace(ctx, key, raw)
}
