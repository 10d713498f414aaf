package application

import "time"

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
}

// User represents a registered account exposed by the application services.
// The password digest never leaves the credentials path.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Deleted     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Schedule represents a calendar entry owned by a single user.
type Schedule struct {
	ID        string
	OwnerID   string
	Title     string
	Content   string
	Start     time.Time
	End       time.Time
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Comment represents a remark a user attached to a schedule.
type Comment struct {
	ID         string
	AuthorID   string
	ScheduleID string
	Text       string
	Deleted    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Session represents an authenticated session issued to a user. Expiry is
// sliding: it is pushed out after each successfully completed request.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SignupParams captures the data required to register a new user.
type SignupParams struct {
	Email       string
	Password    string
	DisplayName string
}

// UpdateProfileParams captures a self-service profile update. The current
// password must match before anything is changed.
type UpdateProfileParams struct {
	Principal       Principal
	CurrentPassword string
	NewPassword     string
	DisplayName     string
}

// WithdrawParams captures an account withdrawal request.
type WithdrawParams struct {
	Principal Principal
	Password  string
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful login.
type AuthenticateResult struct {
	User    User
	Session Session
}

// ScheduleInput captures caller provided schedule fields.
type ScheduleInput struct {
	Title   string
	Content string
	Start   time.Time
	End     time.Time
}

// CreateScheduleParams wraps the data required to create a schedule.
type CreateScheduleParams struct {
	Principal Principal
	Input     ScheduleInput
}

// UpdateScheduleParams wraps the data required to update an existing schedule.
type UpdateScheduleParams struct {
	Principal  Principal
	ScheduleID string
	Input      ScheduleInput
}

// DeleteScheduleParams wraps a password gated schedule soft delete.
type DeleteScheduleParams struct {
	Principal  Principal
	ScheduleID string
	Password   string
}

// RestoreScheduleParams wraps a password gated schedule restore.
type RestoreScheduleParams struct {
	Principal  Principal
	ScheduleID string
	Password   string
}

// CreateCommentParams wraps the data required to attach a comment to a schedule.
type CreateCommentParams struct {
	Principal  Principal
	ScheduleID string
	Text       string
}

// UpdateCommentParams wraps the data required to edit a comment.
type UpdateCommentParams struct {
	Principal Principal
	CommentID string
	Text      string
}

// DeleteCommentParams wraps a password gated comment soft delete.
type DeleteCommentParams struct {
	Principal Principal
	CommentID string
	Password  string
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// PageRequest identifies the 1-based page window requested for listings.
type PageRequest struct {
	Page int
	Size int
}

// normalize clamps the request to sane bounds.
func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// Offset returns the row offset for the normalized window.
func (p PageRequest) Offset() int {
	n := p.normalize()
	return (n.Page - 1) * n.Size
}

// Limit returns the row limit for the normalized window.
func (p PageRequest) Limit() int {
	return p.normalize().Size
}

// SchedulePage is one window of a schedule listing.
type SchedulePage struct {
	Schedules []Schedule
	Page      int
	Size      int
	Total     int
}

// CommentPage is one window of a comment listing.
type CommentPage struct {
	Comments []Comment
	Page     int
	Size     int
	Total    int
}
