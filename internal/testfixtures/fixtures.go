package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/schedule-board/internal/persistence"
)

var (
	userCounter     uint64
	scheduleCounter uint64
	commentCounter  uint64
	sessionCounter  uint64
)

var referenceTime = time.Date(2025, time.June, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// UserOption configures a generated user fixture.
type UserOption func(*persistence.User)

// NewUserFixture returns a deterministic persistence user with optional overrides.
func NewUserFixture(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := persistence.User{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		DisplayName:  fmt.Sprintf("User %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) { u.ID = id }
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(u *persistence.User) { u.Email = email }
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(u *persistence.User) { u.PasswordHash = hash }
}

// WithUserDeleted marks the fixture as withdrawn.
func WithUserDeleted() UserOption {
	return func(u *persistence.User) { u.Deleted = true }
}

// ScheduleOption configures a generated schedule fixture.
type ScheduleOption func(*persistence.Schedule)

// NewScheduleFixture returns a deterministic persistence schedule owned by the
// given user, with optional overrides.
func NewScheduleFixture(ownerID string, opts ...ScheduleOption) persistence.Schedule {
	idx := atomic.AddUint64(&scheduleCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := persistence.Schedule{
		ID:        fmt.Sprintf("schedule-%03d", idx),
		OwnerID:   ownerID,
		Title:     fmt.Sprintf("Schedule %03d", idx),
		Content:   fmt.Sprintf("Agenda for schedule %03d", idx),
		Start:     created.Add(time.Hour),
		End:       created.Add(2 * time.Hour),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithScheduleID overrides the generated schedule ID.
func WithScheduleID(id string) ScheduleOption {
	return func(s *persistence.Schedule) { s.ID = id }
}

// WithScheduleDeleted marks the fixture as soft deleted.
func WithScheduleDeleted() ScheduleOption {
	return func(s *persistence.Schedule) { s.Deleted = true }
}

// WithScheduleWindow sets the start and end instants.
func WithScheduleWindow(start, end time.Time) ScheduleOption {
	return func(s *persistence.Schedule) {
		s.Start = start
		s.End = end
	}
}

// WithScheduleCreatedAt sets the creation timestamp, which drives list order.
func WithScheduleCreatedAt(t time.Time) ScheduleOption {
	return func(s *persistence.Schedule) {
		s.CreatedAt = t
		s.UpdatedAt = t
	}
}

// CommentOption configures a generated comment fixture.
type CommentOption func(*persistence.Comment)

// NewCommentFixture returns a deterministic persistence comment by the given
// author on the given schedule, with optional overrides.
func NewCommentFixture(authorID, scheduleID string, opts ...CommentOption) persistence.Comment {
	idx := atomic.AddUint64(&commentCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := persistence.Comment{
		ID:         fmt.Sprintf("comment-%03d", idx),
		AuthorID:   authorID,
		ScheduleID: scheduleID,
		Text:       fmt.Sprintf("Comment %03d", idx),
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithCommentDeleted marks the fixture as soft deleted.
func WithCommentDeleted() CommentOption {
	return func(c *persistence.Comment) { c.Deleted = true }
}

// WithCommentCreatedAt sets the creation timestamp, which drives list order.
func WithCommentCreatedAt(t time.Time) CommentOption {
	return func(c *persistence.Comment) {
		c.CreatedAt = t
		c.UpdatedAt = t
	}
}

// SessionOption configures a generated session fixture.
type SessionOption func(*persistence.Session)

// NewSessionFixture returns a deterministic persistence session for the given
// user, expiring thirty minutes after its creation.
func NewSessionFixture(userID string, opts ...SessionOption) persistence.Session {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := persistence.Session{
		Token:     fmt.Sprintf("token-%03d", idx),
		UserID:    userID,
		ExpiresAt: created.Add(30 * time.Minute),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionToken overrides the generated token.
func WithSessionToken(token string) SessionOption {
	return func(s *persistence.Session) { s.Token = token }
}

// WithSessionExpiresAt sets the expiry instant.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(s *persistence.Session) { s.ExpiresAt = t }
}
