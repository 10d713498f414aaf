package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/schedule-board/internal/persistence"
)

// CommentRepository implements persistence.CommentRepository using SQLite.
type CommentRepository struct {
	pool *ConnectionPool
}

// NewCommentRepository creates a new SQLite comment repository.
func NewCommentRepository(pool *ConnectionPool) *CommentRepository {
	return &CommentRepository{pool: pool}
}

const commentColumns = "id, author_id, schedule_id, comment, deleted, created_at, updated_at"

// CreateComment inserts a new comment row.
func (r *CommentRepository) CreateComment(ctx context.Context, comment persistence.Comment) error {
	if comment.ID == "" || comment.AuthorID == "" || comment.ScheduleID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO comments (` + commentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.pool.db.ExecContext(ctx, query,
		comment.ID,
		comment.AuthorID,
		comment.ScheduleID,
		comment.Text,
		boolToInt(comment.Deleted),
		formatTime(comment.CreatedAt),
		formatTime(comment.UpdatedAt),
	)
	if err != nil {
		return mapSQLiteError(err)
	}
	return nil
}

// GetComment retrieves an active comment by ID.
func (r *CommentRepository) GetComment(ctx context.Context, id string) (persistence.Comment, error) {
	if id == "" {
		return persistence.Comment{}, persistence.ErrNotFound
	}

	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = ? AND deleted = 0`

	comment, err := scanCommentRow(r.pool.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Comment{}, persistence.ErrNotFound
		}
		return persistence.Comment{}, err
	}
	return comment, nil
}

// UpdateComment replaces the text of an active comment.
func (r *CommentRepository) UpdateComment(ctx context.Context, comment persistence.Comment) error {
	if comment.ID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE comments
		SET comment = ?, updated_at = ?
		WHERE id = ? AND deleted = 0
	`

	result, err := r.pool.db.ExecContext(ctx, query,
		comment.Text,
		formatTime(comment.UpdatedAt),
		comment.ID,
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

// SetCommentDeleted soft deletes a comment. There is no restore path for
// comments, so the flag only ever moves from 0 to 1.
func (r *CommentRepository) SetCommentDeleted(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE comments
		SET deleted = 1, updated_at = ?
		WHERE id = ? AND deleted = 0
	`

	result, err := r.pool.db.ExecContext(ctx, query, formatTime(at), id)
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

// ListCommentsBySchedule returns one page of active comments on a schedule
// in newest first order, plus the total active count.
func (r *CommentRepository) ListCommentsBySchedule(ctx context.Context, scheduleID string, window persistence.PageWindow) ([]persistence.Comment, int, error) {
	if scheduleID == "" {
		return nil, 0, persistence.ErrNotFound
	}
	return r.listComments(ctx, "schedule_id", scheduleID, window)
}

// ListCommentsByAuthor returns one page of active comments written by the
// given user across all schedules, newest first.
func (r *CommentRepository) ListCommentsByAuthor(ctx context.Context, authorID string, window persistence.PageWindow) ([]persistence.Comment, int, error) {
	if authorID == "" {
		return nil, 0, persistence.ErrNotFound
	}
	return r.listComments(ctx, "author_id", authorID, window)
}

func (r *CommentRepository) listComments(ctx context.Context, column, value string, window persistence.PageWindow) ([]persistence.Comment, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM comments WHERE ` + column + ` = ? AND deleted = 0`
	if err := r.pool.db.QueryRowContext(ctx, countQuery, value).Scan(&total); err != nil {
		return nil, 0, mapSQLiteError(err)
	}

	query := `
		SELECT ` + commentColumns + `
		FROM comments
		WHERE ` + column + ` = ? AND deleted = 0
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.pool.db.QueryContext(ctx, query, value, window.Limit, window.Offset)
	if err != nil {
		return nil, 0, mapSQLiteError(err)
	}
	defer rows.Close()

	comments := make([]persistence.Comment, 0)
	for rows.Next() {
		comment, err := scanCommentRow(rows)
		if err != nil {
			return nil, 0, err
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapSQLiteError(err)
	}
	return comments, total, nil
}

func scanCommentRow(row rowScanner) (persistence.Comment, error) {
	var comment persistence.Comment
	var deleted int
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&comment.ID,
		&comment.AuthorID,
		&comment.ScheduleID,
		&comment.Text,
		&deleted,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Comment{}, err
		}
		return persistence.Comment{}, mapSQLiteError(err)
	}

	comment.Deleted = deleted != 0
	if comment.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Comment{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if comment.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Comment{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return comment, nil
}
