package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/schedule-board/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	pool *ConnectionPool
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool}
}

// CreateUser inserts a new user. A duplicate email maps to ErrDuplicate.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO users (id, email, display_name, password_hash, deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.pool.db.ExecContext(ctx, query,
		user.ID,
		normalizeEmail(user.Email),
		user.DisplayName,
		user.PasswordHash,
		boolToInt(user.Deleted),
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		return mapSQLiteError(err)
	}
	return nil
}

// GetUser retrieves a user by ID. Soft deleted users remain resolvable so
// that owner references on schedules and comments never dangle.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, email, display_name, password_hash, deleted, created_at, updated_at
		FROM users
		WHERE id = ?
	`
	return r.scanUser(r.pool.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email address.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return persistence.User{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, email, display_name, password_hash, deleted, created_at, updated_at
		FROM users
		WHERE email = ?
	`
	return r.scanUser(r.pool.db.QueryRowContext(ctx, query, normalized))
}

// UpdateUser replaces the mutable fields of an existing user. Email and id
// are immutable and deliberately absent from the SET list.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE users
		SET display_name = ?, password_hash = ?, updated_at = ?
		WHERE id = ? AND deleted = 0
	`

	result, err := r.pool.db.ExecContext(ctx, query,
		user.DisplayName,
		user.PasswordHash,
		formatTime(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		return mapSQLiteError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// WithdrawUser soft deletes the user and every currently active schedule the
// user owns inside one transaction. A failure anywhere rolls the whole unit
// back. Comments keep their current deleted flag.
func (r *UserRepository) WithdrawUser(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	stamp := formatTime(at)
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(
			"UPDATE users SET deleted = 1, updated_at = ? WHERE id = ? AND deleted = 0",
			stamp, id,
		)
		if err != nil {
			return mapSQLiteError(err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}

		_, err = tx.Exec(
			"UPDATE schedules SET deleted = 1, updated_at = ? WHERE owner_id = ? AND deleted = 0",
			stamp, id,
		)
		if err != nil {
			return mapSQLiteError(err)
		}
		return nil
	})
}

func (r *UserRepository) scanUser(row *sql.Row) (persistence.User, error) {
	var user persistence.User
	var deleted int
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&deleted,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.User{}, persistence.ErrNotFound
		}
		return persistence.User{}, mapSQLiteError(err)
	}

	user.Deleted = deleted != 0
	if user.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.User{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if user.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.User{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return user, nil
}

// normalizeEmail normalizes email addresses for consistent storage and lookup.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}

// mapSQLiteError maps SQLite constraint failures onto persistence sentinels.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if containsAny(msg, "UNIQUE constraint failed", "PRIMARY KEY") {
		return persistence.ErrDuplicate
	}
	if containsAny(msg, "FOREIGN KEY constraint failed", "foreign key constraint") {
		return persistence.ErrForeignKeyViolation
	}
	if containsAny(msg, "CHECK constraint failed") {
		return persistence.ErrConstraintViolation
	}
	return err
}
