package layout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/elearning/internal/apperror"
)

// LayoutRepository defines the data access contract for layout sections.
type LayoutRepository interface {
	// FindByType returns the section of type t, or a not-found error.
	FindByType(ctx context.Context, t Type) (*Layout, error)

	// Create inserts a section. A second section of the same type is a
	// conflict.
	Create(ctx context.Context, l *Layout) error

	// UpdateContent replaces the content of the section of type t.
	UpdateContent(ctx context.Context, t Type, content Content) error
}

// layoutRepository implements LayoutRepository using MariaDB.
type layoutRepository struct {
	db *sql.DB
}

// NewLayoutRepository creates a new layout repository backed by MariaDB.
func NewLayoutRepository(db *sql.DB) LayoutRepository {
	return &layoutRepository{db: db}
}

func (r *layoutRepository) FindByType(ctx context.Context, t Type) (*Layout, error) {
	query := `SELECT id, type, content, created_at, updated_at FROM layouts WHERE type = ?`

	var (
		l   Layout
		raw []byte
	)
	err := r.db.QueryRowContext(ctx, query, t).Scan(&l.ID, &l.Type, &raw, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound(fmt.Sprintf("%s not found", t))
	}
	if err != nil {
		return nil, fmt.Errorf("querying layout %s: %w", t, err)
	}
	if err := json.Unmarshal(raw, &l.Content); err != nil {
		return nil, fmt.Errorf("decoding layout %s: %w", t, err)
	}
	return &l, nil
}

func (r *layoutRepository) Create(ctx context.Context, l *Layout) error {
	raw, err := json.Marshal(l.Content)
	if err != nil {
		return fmt.Errorf("encoding layout: %w", err)
	}

	query := `INSERT INTO layouts (id, type, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, l.ID, l.Type, raw, l.CreatedAt, l.UpdatedAt)

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return apperror.NewConflict(fmt.Sprintf("%s already exists", l.Type))
	}
	if err != nil {
		return fmt.Errorf("inserting layout: %w", err)
	}
	return nil
}

func (r *layoutRepository) UpdateContent(ctx context.Context, t Type, content Content) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("encoding layout: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE layouts SET content = ?, updated_at = ? WHERE type = ?`,
		raw, time.Now().UTC(), t,
	)
	if err != nil {
		return fmt.Errorf("updating layout %s: %w", t, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound(fmt.Sprintf("%s not found", t))
	}
	return nil
}
