package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/schedule-board/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	pool *ConnectionPool
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// CreateSession inserts a new session row. A token collision maps to
// ErrDuplicate; the caller generates a fresh token and retries.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.Token == "" || session.UserID == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO sessions (token, user_id, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.pool.db.ExecContext(ctx, query,
		session.Token,
		session.UserID,
		formatTime(session.ExpiresAt),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return persistence.Session{}, mapSQLiteError(err)
	}
	return session, nil
}

// GetSession retrieves a session by its token. Expiry is the caller's
// concern; the row is returned as stored.
func (r *SessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	query := `
		SELECT token, user_id, expires_at, created_at, updated_at
		FROM sessions
		WHERE token = ?
	`

	var session persistence.Session
	var expiresAtStr, createdAtStr, updatedAtStr string

	err := r.pool.db.QueryRowContext(ctx, query, token).Scan(
		&session.Token,
		&session.UserID,
		&expiresAtStr,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Session{}, persistence.ErrNotFound
		}
		return persistence.Session{}, mapSQLiteError(err)
	}

	if session.ExpiresAt, err = parseTime(expiresAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if session.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return session, nil
}

// ExtendSession pushes the expiry of an existing session forward.
func (r *SessionRepository) ExtendSession(ctx context.Context, token string, expiresAt, at time.Time) (persistence.Session, error) {
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	query := `
		UPDATE sessions
		SET expires_at = ?, updated_at = ?
		WHERE token = ?
	`

	result, err := r.pool.db.ExecContext(ctx, query,
		formatTime(expiresAt),
		formatTime(at),
		token,
	)
	if err != nil {
		return persistence.Session{}, mapSQLiteError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.Session{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return r.GetSession(ctx, token)
}

// DeleteSession removes a session row. Deleting a token that no longer
// exists maps to ErrNotFound.
func (r *SessionRepository) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
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

// DeleteExpiredSessions removes every session whose expiry is at or before
// the reference instant.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := r.pool.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at <= ?",
		formatTime(reference),
	)
	if err != nil {
		return mapSQLiteError(err)
	}
	return nil
}
