package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/elearning/internal/apperror"
)

// NotificationService handles business logic for admin notifications.
type NotificationService interface {
	// Notify records a notification and pushes it to connected admins.
	Notify(ctx context.Context, userID, title, message string) (*Notification, error)

	List(ctx context.Context) ([]Notification, error)

	// MarkRead marks one notification read and returns the refreshed list.
	MarkRead(ctx context.Context, id string) ([]Notification, error)

	// Sweep deletes read notifications older than retention.
	Sweep(ctx context.Context, retention time.Duration) (int64, error)
}

// notificationService implements NotificationService.
type notificationService struct {
	repo      NotificationRepository
	publisher Publisher
	now       func() time.Time
}

// NewNotificationService creates a notification service. publisher may be
// nil, in which case nothing is pushed live.
func NewNotificationService(repo NotificationRepository, publisher Publisher) NotificationService {
	return &notificationService{repo: repo, publisher: publisher, now: time.Now}
}

func (s *notificationService) Notify(ctx context.Context, userID, title, message string) (*Notification, error) {
	title = strings.TrimSpace(title)
	if title == "" || strings.TrimSpace(message) == "" {
		return nil, apperror.NewValidation("notification title and message are required")
	}

	now := s.now().UTC()
	n := &Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Status:    StatusUnread,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating notification: %w", err))
	}

	if s.publisher != nil {
		s.publisher.Broadcast(Event{Type: EventCreated, Notification: n})
	}
	return n, nil
}

func (s *notificationService) List(ctx context.Context) ([]Notification, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return list, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id string) ([]Notification, error) {
	if err := s.repo.MarkRead(ctx, id); err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(err)
	}
	return s.List(ctx)
}

func (s *notificationService) Sweep(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-retention)
	n, err := s.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweeping notifications: %w", err)
	}
	if n > 0 {
		slog.Info("old notifications deleted", slog.Int64("count", n), slog.Time("cutoff", cutoff))
	}
	return n, nil
}
