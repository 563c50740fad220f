package courses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/keyxmakerx/elearning/internal/apperror"
	"github.com/keyxmakerx/elearning/internal/plugins/media"
)

// CourseRepository defines the data access contract for courses.
type CourseRepository interface {
	Create(ctx context.Context, c *Course) error
	FindByID(ctx context.Context, id string) (*Course, error)

	// List returns every course, newest first.
	List(ctx context.Context) ([]Course, error)

	// Update locks the course row, applies fn to the stored course and
	// writes the result back, all in one transaction. An error from fn
	// rolls back and is returned as is.
	Update(ctx context.Context, id string, fn func(c *Course) error) (*Course, error)

	Delete(ctx context.Context, id string) error
	IncrementPurchased(ctx context.Context, id string) error
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
}

// courseRepository implements CourseRepository with MariaDB.
type courseRepository struct {
	db *sql.DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sql.DB) CourseRepository {
	return &courseRepository{db: db}
}

const courseColumns = `id, name, description, categories, price, estimated_price,
	thumbnail_public_id, thumbnail_url, tags, level, demo_url,
	benefits, prerequisites, content, reviews, ratings, purchased, created_at, updated_at`

func (r *courseRepository) Create(ctx context.Context, c *Course) error {
	docs, err := encodeDocuments(c)
	if err != nil {
		return err
	}
	thumbID, thumbURL := thumbnailColumns(c.Thumbnail)

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO courses (`+courseColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, c.Categories, c.Price, c.EstimatedPrice,
		thumbID, thumbURL, c.Tags, c.Level, c.DemoURL,
		docs.benefits, docs.prerequisites, docs.content, docs.reviews,
		c.Ratings, c.Purchased, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting course: %w", err)
	}
	return nil
}

func (r *courseRepository) FindByID(ctx context.Context, id string) (*Course, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = ?`, id)
	c, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("Course not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying course %s: %w", id, err)
	}
	return c, nil
}

func (r *courseRepository) List(ctx context.Context) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+courseColumns+` FROM courses ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	defer rows.Close()

	courses := []Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning course: %w", err)
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

func (r *courseRepository) Update(ctx context.Context, id string, fn func(c *Course) error) (*Course, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning course tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = ? FOR UPDATE`, id)
	c, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("Course not found")
	}
	if err != nil {
		return nil, fmt.Errorf("locking course %s: %w", id, err)
	}

	if err := fn(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = time.Now().UTC()

	docs, err := encodeDocuments(c)
	if err != nil {
		return nil, err
	}
	thumbID, thumbURL := thumbnailColumns(c.Thumbnail)

	if _, err := tx.ExecContext(ctx,
		`UPDATE courses SET name = ?, description = ?, categories = ?, price = ?, estimated_price = ?,
		        thumbnail_public_id = ?, thumbnail_url = ?, tags = ?, level = ?, demo_url = ?,
		        benefits = ?, prerequisites = ?, content = ?, reviews = ?, ratings = ?, updated_at = ?
		 WHERE id = ?`,
		c.Name, c.Description, c.Categories, c.Price, c.EstimatedPrice,
		thumbID, thumbURL, c.Tags, c.Level, c.DemoURL,
		docs.benefits, docs.prerequisites, docs.content, docs.reviews, c.Ratings, c.UpdatedAt,
		id,
	); err != nil {
		return nil, fmt.Errorf("updating course %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing course %s: %w", id, err)
	}
	return c, nil
}

func (r *courseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting course: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewNotFound("Course not found")
	}
	return nil
}

func (r *courseRepository) IncrementPurchased(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE courses SET purchased = purchased + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("incrementing purchases: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewNotFound("Course not found")
	}
	return nil
}

// CountCreatedBetween counts courses created in [from, to).
func (r *courseRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM courses WHERE created_at >= ? AND created_at < ?`, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting courses: %w", err)
	}
	return n, nil
}

// --- Helpers ---

type documents struct {
	benefits, prerequisites, content, reviews []byte
}

func encodeDocuments(c *Course) (documents, error) {
	var (
		d   documents
		err error
	)
	if d.benefits, err = marshalList(c.Benefits); err != nil {
		return d, fmt.Errorf("encoding benefits: %w", err)
	}
	if d.prerequisites, err = marshalList(c.Prerequisites); err != nil {
		return d, fmt.Errorf("encoding prerequisites: %w", err)
	}
	if d.content, err = marshalList(c.Content); err != nil {
		return d, fmt.Errorf("encoding content: %w", err)
	}
	if d.reviews, err = marshalList(c.Reviews); err != nil {
		return d, fmt.Errorf("encoding reviews: %w", err)
	}
	return d, nil
}

// marshalList encodes a nil slice as [] so the NOT NULL JSON columns
// always hold an array.
func marshalList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func thumbnailColumns(a *media.Asset) (sql.NullString, sql.NullString) {
	if a == nil || a.PublicID == "" {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: a.PublicID, Valid: true}, sql.NullString{String: a.URL, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(row rowScanner) (*Course, error) {
	var c Course
	var thumbID, thumbURL sql.NullString
	var benefits, prerequisites, content, reviews []byte
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.Categories, &c.Price, &c.EstimatedPrice,
		&thumbID, &thumbURL, &c.Tags, &c.Level, &c.DemoURL,
		&benefits, &prerequisites, &content, &reviews,
		&c.Ratings, &c.Purchased, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if thumbID.Valid {
		c.Thumbnail = &media.Asset{PublicID: thumbID.String, URL: thumbURL.String}
	}

	for _, doc := range []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"benefits", benefits, &c.Benefits},
		{"prerequisites", prerequisites, &c.Prerequisites},
		{"content", content, &c.Content},
		{"reviews", reviews, &c.Reviews},
	} {
		if len(doc.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(doc.raw, doc.dst); err != nil {
			return nil, fmt.Errorf("decoding %s of course %s: %w", doc.name, c.ID, err)
		}
	}
	return &c, nil
}
