package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/elearning/internal/apperror"
)

// mysqlDuplicateEntry is the MariaDB error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// UserRepository defines the data access contract for user operations.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	UpdateProfile(ctx context.Context, id, name, email string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateAvatar(ctx context.Context, id string, avatar Avatar) error
	UpdateRole(ctx context.Context, id string, role Role) error
	AddCourse(ctx context.Context, userID, courseID string) error

	// Admin operations.
	List(ctx context.Context) ([]User, error)
	Delete(ctx context.Context, id string) error
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
}

// userRepository implements UserRepository with hand-written MariaDB queries.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, name, email, password_hash, avatar_public_id, avatar_url,
	                 role, is_verified, created_at, updated_at`

// Create inserts a new user row. A duplicate email surfaces as a conflict,
// which is how two racing activations of the same token are told apart.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (id, name, email, password_hash, avatar_public_id, avatar_url,
	                             role, is_verified, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var avatarID, avatarURL sql.NullString
	if user.Avatar != nil {
		avatarID = sql.NullString{String: user.Avatar.PublicID, Valid: true}
		avatarURL = sql.NullString{String: user.Avatar.URL, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		nullIfEmpty(user.PasswordHash),
		avatarID,
		avatarURL,
		string(user.Role),
		user.IsVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isDuplicateEntry(err) {
		return apperror.NewConflict("Email already exists")
	}
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// FindByID retrieves a user by their UUID, including purchased courses.
// Returns apperror.NotFound if no user exists with this ID.
func (r *userRepository) FindByID(ctx context.Context, id string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.findOne(ctx, row, "id")
}

// FindByEmail retrieves a user by their email address.
// Returns apperror.NotFound if no user exists with this email.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return r.findOne(ctx, row, "email")
}

func (r *userRepository) findOne(ctx context.Context, row *sql.Row, by string) (*User, error) {
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by %s: %w", by, err)
	}

	courses, err := r.coursesOf(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Courses = courses
	return user, nil
}

// EmailExists returns true if a user with the given email already exists.
func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking email existence: %w", err)
	}
	return exists, nil
}

// UpdateProfile sets name and email.
func (r *userRepository) UpdateProfile(ctx context.Context, id, name, email string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET name = ?, email = ? WHERE id = ?`, name, email, id)
	if isDuplicateEntry(err) {
		return apperror.NewConflict("Email already exists")
	}
	return r.checkUpdate("profile", err)
}

// UpdatePassword replaces the password hash.
func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	return r.checkUpdate("password", err)
}

// UpdateAvatar replaces the avatar reference.
func (r *userRepository) UpdateAvatar(ctx context.Context, id string, avatar Avatar) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET avatar_public_id = ?, avatar_url = ? WHERE id = ?`,
		avatar.PublicID, avatar.URL, id)
	return r.checkUpdate("avatar", err)
}

// UpdateRole changes the user's role.
func (r *userRepository) UpdateRole(ctx context.Context, id string, role Role) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, string(role), id)
	if err != nil {
		return fmt.Errorf("updating role: %w", err)
	}
	// MariaDB reports 0 affected rows when the value is unchanged, so only
	// a missing user is treated as not found.
	if n, _ := res.RowsAffected(); n == 0 {
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return apperror.NewNotFound("User not found")
		}
	}
	return nil
}

// AddCourse records a purchase. Adding the same course twice is a no-op.
func (r *userRepository) AddCourse(ctx context.Context, userID, courseID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO user_courses (user_id, course_id) VALUES (?, ?)`, userID, courseID)
	if err != nil {
		return fmt.Errorf("adding course to user: %w", err)
	}
	return nil
}

// List returns every user, newest first, with their courses.
func (r *userRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	index := make(map[string]int)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		index[u.ID] = len(users)
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	courseRows, err := r.db.QueryContext(ctx, `SELECT user_id, course_id FROM user_courses ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing user courses: %w", err)
	}
	defer courseRows.Close()

	for courseRows.Next() {
		var userID, courseID string
		if err := courseRows.Scan(&userID, &courseID); err != nil {
			return nil, fmt.Errorf("scanning user course: %w", err)
		}
		if i, ok := index[userID]; ok {
			users[i].Courses = append(users[i].Courses, courseID)
		}
	}
	return users, courseRows.Err()
}

// Delete removes a user. Purchases cascade.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewNotFound("User not found")
	}
	return nil
}

// CountCreatedBetween counts users created in [from, to).
func (r *userRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE created_at >= ? AND created_at < ?`, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

func (r *userRepository) coursesOf(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT course_id FROM user_courses WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying user courses: %w", err)
	}
	defer rows.Close()

	courses := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user course: %w", err)
		}
		courses = append(courses, id)
	}
	return courses, rows.Err()
}

func (r *userRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking user existence: %w", err)
	}
	return exists, nil
}

func (r *userRepository) checkUpdate(what string, err error) error {
	if err != nil {
		return fmt.Errorf("updating %s: %w", what, err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u                   User
		role                string
		hash                sql.NullString
		avatarID, avatarURL sql.NullString
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &hash, &avatarID, &avatarURL,
		&role, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash.String
	u.Role = Role(role)
	if avatarURL.Valid {
		u.Avatar = &Avatar{PublicID: avatarID.String, URL: avatarURL.String}
	}
	return &u, nil
}

func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
