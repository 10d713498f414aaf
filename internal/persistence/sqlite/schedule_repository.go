package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/schedule-board/internal/persistence"
)

// ScheduleRepository implements persistence.ScheduleRepository using SQLite.
type ScheduleRepository struct {
	pool *ConnectionPool
}

// NewScheduleRepository creates a new SQLite schedule repository.
func NewScheduleRepository(pool *ConnectionPool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

const scheduleColumns = "id, owner_id, title, content, start_at, end_at, deleted, created_at, updated_at"

// CreateSchedule inserts a new schedule row.
func (r *ScheduleRepository) CreateSchedule(ctx context.Context, schedule persistence.Schedule) error {
	if schedule.ID == "" || schedule.OwnerID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO schedules (` + scheduleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.pool.db.ExecContext(ctx, query,
		schedule.ID,
		schedule.OwnerID,
		schedule.Title,
		schedule.Content,
		formatTime(schedule.Start),
		formatTime(schedule.End),
		boolToInt(schedule.Deleted),
		formatTime(schedule.CreatedAt),
		formatTime(schedule.UpdatedAt),
	)
	if err != nil {
		return mapSQLiteError(err)
	}
	return nil
}

// GetSchedule retrieves an active schedule by ID. Soft deleted schedules are
// reported as not found.
func (r *ScheduleRepository) GetSchedule(ctx context.Context, id string) (persistence.Schedule, error) {
	if id == "" {
		return persistence.Schedule{}, persistence.ErrNotFound
	}

	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = ? AND deleted = 0`
	return r.scanSchedule(r.pool.db.QueryRowContext(ctx, query, id))
}

// GetScheduleAny retrieves a schedule by ID regardless of its deleted flag.
// Restoration has to see the tombstone.
func (r *ScheduleRepository) GetScheduleAny(ctx context.Context, id string) (persistence.Schedule, error) {
	if id == "" {
		return persistence.Schedule{}, persistence.ErrNotFound
	}

	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = ?`
	return r.scanSchedule(r.pool.db.QueryRowContext(ctx, query, id))
}

// UpdateSchedule replaces the mutable fields of an active schedule.
func (r *ScheduleRepository) UpdateSchedule(ctx context.Context, schedule persistence.Schedule) error {
	if schedule.ID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE schedules
		SET title = ?, content = ?, start_at = ?, end_at = ?, updated_at = ?
		WHERE id = ? AND deleted = 0
	`

	result, err := r.pool.db.ExecContext(ctx, query,
		schedule.Title,
		schedule.Content,
		formatTime(schedule.Start),
		formatTime(schedule.End),
		formatTime(schedule.UpdatedAt),
		schedule.ID,
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

// SetScheduleDeleted flips the soft delete flag on a schedule. Flipping to
// the value already stored affects no rows and maps to ErrNotFound so the
// caller can distinguish a stale request from success.
func (r *ScheduleRepository) SetScheduleDeleted(ctx context.Context, id string, deleted bool, at time.Time) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE schedules
		SET deleted = ?, updated_at = ?
		WHERE id = ? AND deleted = ?
	`

	result, err := r.pool.db.ExecContext(ctx, query,
		boolToInt(deleted),
		formatTime(at),
		id,
		boolToInt(!deleted),
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

// ListSchedulesByOwner returns one page of the owner's active schedules in
// newest first order, plus the total active count for that owner.
func (r *ScheduleRepository) ListSchedulesByOwner(ctx context.Context, ownerID string, window persistence.PageWindow) ([]persistence.Schedule, int, error) {
	if ownerID == "" {
		return nil, 0, persistence.ErrNotFound
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM schedules WHERE owner_id = ? AND deleted = 0`
	if err := r.pool.db.QueryRowContext(ctx, countQuery, ownerID).Scan(&total); err != nil {
		return nil, 0, mapSQLiteError(err)
	}

	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE owner_id = ? AND deleted = 0
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.pool.db.QueryContext(ctx, query, ownerID, window.Limit, window.Offset)
	if err != nil {
		return nil, 0, mapSQLiteError(err)
	}
	defer rows.Close()

	schedules := make([]persistence.Schedule, 0)
	for rows.Next() {
		schedule, err := scanScheduleRow(rows)
		if err != nil {
			return nil, 0, err
		}
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapSQLiteError(err)
	}
	return schedules, total, nil
}

func (r *ScheduleRepository) scanSchedule(row *sql.Row) (persistence.Schedule, error) {
	schedule, err := scanScheduleRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Schedule{}, persistence.ErrNotFound
		}
		return persistence.Schedule{}, err
	}
	return schedule, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheduleRow(row rowScanner) (persistence.Schedule, error) {
	var schedule persistence.Schedule
	var deleted int
	var startAtStr, endAtStr, createdAtStr, updatedAtStr string

	err := row.Scan(
		&schedule.ID,
		&schedule.OwnerID,
		&schedule.Title,
		&schedule.Content,
		&startAtStr,
		&endAtStr,
		&deleted,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Schedule{}, err
		}
		return persistence.Schedule{}, mapSQLiteError(err)
	}

	schedule.Deleted = deleted != 0
	if schedule.Start, err = parseTime(startAtStr); err != nil {
		return persistence.Schedule{}, fmt.Errorf("failed to parse start_at: %w", err)
	}
	if schedule.End, err = parseTime(endAtStr); err != nil {
		return persistence.Schedule{}, fmt.Errorf("failed to parse end_at: %w", err)
	}
	if schedule.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Schedule{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if schedule.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Schedule{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return schedule, nil
}
