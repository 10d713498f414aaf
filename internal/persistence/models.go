package persistence

import "time"

// User is a registered account row. Deleted rows stay resolvable by id so
// that references from schedules and comments never dangle.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Deleted      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Schedule is a calendar entry row owned by one user.
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

// Comment is a remark row attached to a schedule by its author.
type Comment struct {
	ID         string
	AuthorID   string
	ScheduleID string
	Text       string
	Deleted    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Session is an authentication session row keyed by its opaque token.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
