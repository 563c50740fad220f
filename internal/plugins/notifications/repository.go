package notifications

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/keyxmakerx/elearning/internal/apperror"
)

// NotificationRepository defines the data access contract for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error

	// List returns every notification, newest first.
	List(ctx context.Context) ([]Notification, error)

	// MarkRead sets status to read. Returns a not-found error for unknown ids.
	MarkRead(ctx context.Context, id string) error

	// DeleteReadBefore removes read notifications created before cutoff and
	// returns how many went.
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// notificationRepository implements NotificationRepository with MariaDB.
type notificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new repository backed by the given DB pool.
func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *Notification) error {
	query := `INSERT INTO notifications (id, user_id, title, message, status, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.UserID, n.Title, n.Message, n.Status, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) List(ctx context.Context) ([]Notification, error) {
	query := `SELECT id, user_id, title, message, status, created_at, updated_at
	          FROM notifications
	          ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	list := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Status, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notifications: %w", err)
	}
	return list, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	query := `UPDATE notifications SET status = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, StatusRead, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("Notification not found")
	}
	return nil
}

func (r *notificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE status = ? AND created_at < ?`,
		StatusRead, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting read notifications: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}
