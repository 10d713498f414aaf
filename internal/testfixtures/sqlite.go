package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/schedule-board/internal/persistence"
	"github.com/example/schedule-board/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Users     persistence.UserRepository
	Schedules persistence.ScheduleRepository
	Comments  persistence.CommentRepository
	Sessions  persistence.SessionRepository
	Pool      *sqlite.ConnectionPool

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness over a temporary database file
// that is migrated automatically. The helper registers a cleanup callback with
// the provided testing.TB, so calling Close is optional.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "scheduleboard.db")

	pool, err := sqlite.NewConnectionPool(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Users:     sqlite.NewUserRepository(pool),
		Schedules: sqlite.NewScheduleRepository(pool),
		Comments:  sqlite.NewCommentRepository(pool),
		Sessions:  sqlite.NewSessionRepository(pool),
		Pool:      pool,
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
