package persistence

import (
	"context"
	"time"
)

// PageWindow narrows a listing to one offset/limit window.
type PageWindow struct {
	Offset int
	Limit  int
}

// UserRepository exposes account persistence operations.
//
// Lookup methods exclude soft deleted rows unless noted; Withdraw is the one
// cascading mutation in the system and must apply atomically.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	UpdateUser(ctx context.Context, user User) error
	// WithdrawUser soft deletes the user and every active schedule the user
	// owns within a single transaction. Comments are left untouched.
	WithdrawUser(ctx context.Context, id string, at time.Time) error
}

// ScheduleRepository exposes schedule persistence operations.
type ScheduleRepository interface {
	CreateSchedule(ctx context.Context, schedule Schedule) error
	// GetSchedule excludes soft deleted rows.
	GetSchedule(ctx context.Context, id string) (Schedule, error)
	// GetScheduleAny resolves the row regardless of its deleted flag; restore
	// depends on seeing deleted rows.
	GetScheduleAny(ctx context.Context, id string) (Schedule, error)
	UpdateSchedule(ctx context.Context, schedule Schedule) error
	SetScheduleDeleted(ctx context.Context, id string, deleted bool, at time.Time) error
	ListSchedulesByOwner(ctx context.Context, ownerID string, window PageWindow) ([]Schedule, int, error)
}

// CommentRepository exposes comment persistence operations.
type CommentRepository interface {
	CreateComment(ctx context.Context, comment Comment) error
	GetComment(ctx context.Context, id string) (Comment, error)
	UpdateComment(ctx context.Context, comment Comment) error
	SetCommentDeleted(ctx context.Context, id string, at time.Time) error
	ListCommentsBySchedule(ctx context.Context, scheduleID string, window PageWindow) ([]Comment, int, error)
	ListCommentsByAuthor(ctx context.Context, authorID string, window PageWindow) ([]Comment, int, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	ExtendSession(ctx context.Context, token string, expiresAt, at time.Time) (Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
