package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// CommentRepository captures the persistence interactions needed by the service.
type CommentRepository interface {
	CreateComment(ctx context.Context, comment Comment) (Comment, error)
	// GetComment excludes soft deleted rows.
	GetComment(ctx context.Context, id string) (Comment, error)
	UpdateComment(ctx context.Context, comment Comment) (Comment, error)
	SetCommentDeleted(ctx context.Context, id string, at time.Time) error
	ListCommentsBySchedule(ctx context.Context, scheduleID string, page PageRequest) ([]Comment, int, error)
	ListCommentsByAuthor(ctx context.Context, authorID string, page PageRequest) ([]Comment, int, error)
}

// ScheduleResolver confirms that a comment's target schedule exists and is active.
type ScheduleResolver interface {
	GetSchedule(ctx context.Context, id string) (Schedule, error)
}

// CommentService drives the one-way Active→Deleted transition for comments.
// Edits require authorship; deletion additionally requires the author's
// password. There is no restore.
type CommentService struct {
	comments       CommentRepository
	schedules      ScheduleResolver
	credentials    CredentialReader
	guard          OwnershipGuard
	verifyPassword PasswordVerifier
	idGenerator    func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewCommentService wires dependencies for comment operations.
func NewCommentService(comments CommentRepository, schedules ScheduleResolver, credentials CredentialReader, idGenerator func() string, now func() time.Time) *CommentService {
	return NewCommentServiceWithLogger(comments, schedules, credentials, idGenerator, now, nil)
}

// NewCommentServiceWithLogger constructs a CommentService with a specified logger.
func NewCommentServiceWithLogger(comments CommentRepository, schedules ScheduleResolver, credentials CredentialReader, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CommentService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CommentService{
		comments:       comments,
		schedules:      schedules,
		credentials:    credentials,
		verifyPassword: VerifyPassword,
		idGenerator:    idGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *CommentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CommentService", operation, attrs...)
}

// CreateComment attaches a comment to an existing active schedule.
func (s *CommentService) CreateComment(ctx context.Context, params CreateCommentParams) (Comment, error) {
	if s == nil {
		return Comment{}, fmt.Errorf("CommentService is nil")
	}
	if s.comments == nil {
		return Comment{}, fmt.Errorf("comment repository not configured")
	}
	if s.schedules == nil {
		return Comment{}, fmt.Errorf("schedule resolver not configured")
	}

	if _, err := s.schedules.GetSchedule(ctx, params.ScheduleID); err != nil {
		return Comment{}, mapStoreError(err)
	}

	text := strings.TrimSpace(params.Text)
	vErr := &ValidationError{}
	validateCommentText(text, vErr)
	if vErr.HasErrors() {
		return Comment{}, vErr
	}

	now := s.now()
	comment := Comment{
		ID:         s.idGenerator(),
		AuthorID:   params.Principal.UserID,
		ScheduleID: params.ScheduleID,
		Text:       text,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	persisted, err := s.comments.CreateComment(ctx, comment)
	if err != nil {
		return Comment{}, mapStoreError(err)
	}
	return persisted, nil
}

// ListCommentsBySchedule returns one page of comments under a schedule,
// newest first. The schedule must exist and be active.
func (s *CommentService) ListCommentsBySchedule(ctx context.Context, scheduleID string, page PageRequest) (CommentPage, error) {
	if s == nil {
		return CommentPage{}, fmt.Errorf("CommentService is nil")
	}
	if s.comments == nil {
		return CommentPage{}, fmt.Errorf("comment repository not configured")
	}
	if s.schedules == nil {
		return CommentPage{}, fmt.Errorf("schedule resolver not configured")
	}

	if _, err := s.schedules.GetSchedule(ctx, scheduleID); err != nil {
		return CommentPage{}, mapStoreError(err)
	}

	window := page.normalize()
	comments, total, err := s.comments.ListCommentsBySchedule(ctx, scheduleID, window)
	if err != nil {
		return CommentPage{}, mapStoreError(err)
	}
	return CommentPage{Comments: comments, Page: window.Page, Size: window.Size, Total: total}, nil
}

// ListCommentsByAuthor returns one page of a user's comments, newest first.
func (s *CommentService) ListCommentsByAuthor(ctx context.Context, authorID string, page PageRequest) (CommentPage, error) {
	if s == nil {
		return CommentPage{}, fmt.Errorf("CommentService is nil")
	}
	if s.comments == nil {
		return CommentPage{}, fmt.Errorf("comment repository not configured")
	}

	window := page.normalize()
	comments, total, err := s.comments.ListCommentsByAuthor(ctx, authorID, window)
	if err != nil {
		return CommentPage{}, mapStoreError(err)
	}
	return CommentPage{Comments: comments, Page: window.Page, Size: window.Size, Total: total}, nil
}

// UpdateComment edits a comment's text for its author. No password is needed
// for content edits.
func (s *CommentService) UpdateComment(ctx context.Context, params UpdateCommentParams) (comment Comment, err error) {
	if s == nil {
		err = fmt.Errorf("CommentService is nil")
		return
	}
	if s.comments == nil {
		err = fmt.Errorf("comment repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateComment", "comment_id", params.CommentID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "comment update failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	var existing Comment
	existing, err = s.comments.GetComment(ctx, params.CommentID)
	if err != nil {
		err = mapStoreError(err)
		return
	}

	if err = s.guard.Authorize(params.Principal.UserID, existing.AuthorID); err != nil {
		return
	}

	text := strings.TrimSpace(params.Text)
	vErr := &ValidationError{}
	validateCommentText(text, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Text = text
	updated.UpdatedAt = s.now()

	comment, err = s.comments.UpdateComment(ctx, updated)
	if err != nil {
		comment = Comment{}
		err = mapStoreError(err)
		return
	}
	return
}

// DeleteComment soft deletes a comment for its author. The author's password
// must verify; Deleted is terminal for comments.
func (s *CommentService) DeleteComment(ctx context.Context, params DeleteCommentParams) (err error) {
	if s == nil {
		return fmt.Errorf("CommentService is nil")
	}
	if s.comments == nil {
		return fmt.Errorf("comment repository not configured")
	}
	if s.credentials == nil {
		return fmt.Errorf("credential reader not configured")
	}

	logger := s.loggerWith(ctx, "DeleteComment", "comment_id", params.CommentID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "comment delete failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "comment soft deleted")
	}()

	var existing Comment
	existing, err = s.comments.GetComment(ctx, params.CommentID)
	if err != nil {
		err = mapStoreError(err)
		return
	}

	if err = s.guard.Authorize(params.Principal.UserID, existing.AuthorID); err != nil {
		return
	}

	var creds UserCredentials
	creds, err = s.credentials.GetUserCredentials(ctx, existing.AuthorID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if verr := s.verifyPassword(creds.PasswordHash, params.Password); verr != nil {
		err = ErrUnauthorized
		return
	}

	if err = s.comments.SetCommentDeleted(ctx, existing.ID, s.now()); err != nil {
		err = mapStoreError(err)
		return
	}
	return
}

func validateCommentText(text string, vErr *ValidationError) {
	if text == "" {
		vErr.add("comment", "comment is required")
	}
}
