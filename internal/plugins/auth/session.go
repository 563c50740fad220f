package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/keyxmakerx/elearning/internal/cache"
)

// Cache key prefixes owned by this package.
const (
	sessionKeyPrefix = "session:"
	refreshKeyPrefix = "refresh:"
)

// SessionStore keeps one snapshot per user id in the cache, plus the ids of
// refresh tokens that have not been used yet.
type SessionStore struct {
	store cache.Store
	ttl   time.Duration
}

// NewSessionStore creates a SessionStore. ttl bounds how long a session
// lives without a login or refresh.
func NewSessionStore(store cache.Store, ttl time.Duration) *SessionStore {
	return &SessionStore{store: store, ttl: ttl}
}

// Put creates or overwrites the snapshot for user with a fresh TTL.
func (s *SessionStore) Put(ctx context.Context, user *User) error {
	if err := cache.SetJSON(ctx, s.store, sessionKeyPrefix+user.ID, user, s.ttl); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

// Get returns the snapshot for userID. A missing snapshot is (nil, false, nil).
func (s *SessionStore) Get(ctx context.Context, userID string) (*User, bool, error) {
	var user User
	found, err := cache.GetJSON(ctx, s.store, sessionKeyPrefix+userID, &user)
	if err != nil {
		return nil, false, fmt.Errorf("reading session: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return &user, true, nil
}

// Refresh overwrites the snapshot with user if the user is logged in,
// keeping the remaining TTL. It never creates a session. If the overwrite
// fails the snapshot is deleted, so the cache is never left stale; when the
// delete fails too the error is returned.
func (s *SessionStore) Refresh(ctx context.Context, user *User) error {
	key := sessionKeyPrefix + user.ID
	_, err := cache.ReplaceJSON(ctx, s.store, key, user)
	if err == nil {
		return nil
	}

	slog.Warn("session refresh failed, dropping snapshot",
		slog.String("user_id", user.ID),
		slog.Any("error", err),
	)
	if delErr := s.store.Delete(ctx, key); delErr != nil {
		return fmt.Errorf("dropping stale session after %v: %w", err, delErr)
	}
	return nil
}

// Delete removes the snapshot for userID. Idempotent.
func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	if err := s.store.Delete(ctx, sessionKeyPrefix+userID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// RememberRefresh records an issued refresh token id for userID until the
// token would expire anyway.
func (s *SessionStore) RememberRefresh(ctx context.Context, tokenID, userID string, ttl time.Duration) error {
	if err := s.store.Set(ctx, refreshKeyPrefix+tokenID, []byte(userID), ttl); err != nil {
		return fmt.Errorf("storing refresh token id: %w", err)
	}
	return nil
}

// ConsumeRefresh atomically removes a refresh token id and returns the user
// id it was issued to. found is false when the id was already used, revoked
// or never issued.
func (s *SessionStore) ConsumeRefresh(ctx context.Context, tokenID string) (userID string, found bool, err error) {
	raw, found, err := s.store.Take(ctx, refreshKeyPrefix+tokenID)
	if err != nil {
		return "", false, fmt.Errorf("consuming refresh token id: %w", err)
	}
	return string(raw), found, nil
}

// RevokeRefresh forgets a refresh token id. Idempotent.
func (s *SessionStore) RevokeRefresh(ctx context.Context, tokenID string) error {
	if err := s.store.Delete(ctx, refreshKeyPrefix+tokenID); err != nil {
		return fmt.Errorf("revoking refresh token id: %w", err)
	}
	return nil
}
