package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// OrderRepository defines the data access contract for orders.
type OrderRepository interface {
	Create(ctx context.Context, o *Order) error

	// List returns every order, newest first.
	List(ctx context.Context) ([]Order, error)

	CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
}

// orderRepository implements OrderRepository with MariaDB.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, o *Order) error {
	var payment []byte
	if len(o.PaymentInfo) > 0 {
		var err error
		if payment, err = json.Marshal(o.PaymentInfo); err != nil {
			return fmt.Errorf("encoding payment info: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (id, course_id, user_id, payment_info, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.CourseID, o.UserID, payment, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}
	return nil
}

func (r *orderRepository) List(ctx context.Context) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, course_id, user_id, payment_info, created_at, updated_at
		 FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		var (
			o       Order
			payment []byte
		)
		if err := rows.Scan(&o.ID, &o.CourseID, &o.UserID, &payment, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		if len(payment) > 0 {
			if err := json.Unmarshal(payment, &o.PaymentInfo); err != nil {
				return nil, fmt.Errorf("decoding payment info of order %s: %w", o.ID, err)
			}
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// CountCreatedBetween counts orders created in [from, to).
func (r *orderRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE created_at >= ? AND created_at < ?`, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting orders: %w", err)
	}
	return n, nil
}
