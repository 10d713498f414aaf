package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ScheduleRepository captures the persistence interactions needed by the service.
type ScheduleRepository interface {
	CreateSchedule(ctx context.Context, schedule Schedule) (Schedule, error)
	// GetSchedule excludes soft deleted rows.
	GetSchedule(ctx context.Context, id string) (Schedule, error)
	// GetScheduleAny resolves the row regardless of its deleted flag.
	GetScheduleAny(ctx context.Context, id string) (Schedule, error)
	UpdateSchedule(ctx context.Context, schedule Schedule) (Schedule, error)
	SetScheduleDeleted(ctx context.Context, id string, deleted bool, at time.Time) error
	ListSchedulesByOwner(ctx context.Context, ownerID string, page PageRequest) ([]Schedule, int, error)
}

// CredentialReader resolves a user's stored password digest for the password
// gate on destructive operations.
type CredentialReader interface {
	GetUserCredentials(ctx context.Context, id string) (UserCredentials, error)
}

// ScheduleService drives the Active/Deleted state machine for schedules.
// Every mutation runs existence, ownership, and (for destructive transitions)
// credential checks before any state changes.
type ScheduleService struct {
	schedules      ScheduleRepository
	credentials    CredentialReader
	guard          OwnershipGuard
	verifyPassword PasswordVerifier
	idGenerator    func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewScheduleService wires dependencies for schedule operations.
func NewScheduleService(schedules ScheduleRepository, credentials CredentialReader, idGenerator func() string, now func() time.Time) *ScheduleService {
	return NewScheduleServiceWithLogger(schedules, credentials, idGenerator, now, nil)
}

// NewScheduleServiceWithLogger constructs a ScheduleService with a specified logger.
func NewScheduleServiceWithLogger(schedules ScheduleRepository, credentials CredentialReader, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ScheduleService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ScheduleService{
		schedules:      schedules,
		credentials:    credentials,
		verifyPassword: VerifyPassword,
		idGenerator:    idGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *ScheduleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ScheduleService", operation, attrs...)
}

// CreateSchedule validates the request before delegating to persistence. The
// caller becomes the owner; ownership never changes afterwards.
func (s *ScheduleService) CreateSchedule(ctx context.Context, params CreateScheduleParams) (Schedule, error) {
	if s == nil {
		return Schedule{}, fmt.Errorf("ScheduleService is nil")
	}
	if s.schedules == nil {
		return Schedule{}, fmt.Errorf("schedule repository not configured")
	}

	input := params.Input
	vErr := &ValidationError{}
	validateScheduleCore(input, vErr)
	if vErr.HasErrors() {
		return Schedule{}, vErr
	}

	now := s.now()
	schedule := Schedule{
		ID:        s.idGenerator(),
		OwnerID:   params.Principal.UserID,
		Title:     strings.TrimSpace(input.Title),
		Content:   input.Content,
		Start:     input.Start,
		End:       input.End,
		CreatedAt: now,
		UpdatedAt: now,
	}

	persisted, err := s.schedules.CreateSchedule(ctx, schedule)
	if err != nil {
		return Schedule{}, mapStoreError(err)
	}
	return persisted, nil
}

// GetSchedule returns a single active schedule to its owner.
func (s *ScheduleService) GetSchedule(ctx context.Context, principal Principal, scheduleID string) (Schedule, error) {
	if s == nil {
		return Schedule{}, fmt.Errorf("ScheduleService is nil")
	}
	if s.schedules == nil {
		return Schedule{}, fmt.Errorf("schedule repository not configured")
	}

	schedule, err := s.schedules.GetSchedule(ctx, scheduleID)
	if err != nil {
		return Schedule{}, mapStoreError(err)
	}
	if err := s.guard.Authorize(principal.UserID, schedule.OwnerID); err != nil {
		return Schedule{}, err
	}
	return schedule, nil
}

// ListSchedules returns one page of the caller's active schedules, newest first.
func (s *ScheduleService) ListSchedules(ctx context.Context, principal Principal, page PageRequest) (SchedulePage, error) {
	if s == nil {
		return SchedulePage{}, fmt.Errorf("ScheduleService is nil")
	}
	if s.schedules == nil {
		return SchedulePage{}, fmt.Errorf("schedule repository not configured")
	}

	window := page.normalize()
	schedules, total, err := s.schedules.ListSchedulesByOwner(ctx, principal.UserID, window)
	if err != nil {
		return SchedulePage{}, mapStoreError(err)
	}
	return SchedulePage{
		Schedules: schedules,
		Page:      window.Page,
		Size:      window.Size,
		Total:     total,
	}, nil
}

// UpdateSchedule applies validation and authorization before updating content
// fields. Identity fields are never touched.
func (s *ScheduleService) UpdateSchedule(ctx context.Context, params UpdateScheduleParams) (schedule Schedule, err error) {
	if s == nil {
		err = fmt.Errorf("ScheduleService is nil")
		return
	}
	if s.schedules == nil {
		err = fmt.Errorf("schedule repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateSchedule", "schedule_id", params.ScheduleID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "schedule update failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	var existing Schedule
	existing, err = s.schedules.GetSchedule(ctx, params.ScheduleID)
	if err != nil {
		err = mapStoreError(err)
		return
	}

	if err = s.guard.Authorize(params.Principal.UserID, existing.OwnerID); err != nil {
		return
	}

	input := params.Input
	vErr := &ValidationError{}
	validateScheduleCore(input, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Title = strings.TrimSpace(input.Title)
	updated.Content = input.Content
	updated.Start = input.Start
	updated.End = input.End
	updated.UpdatedAt = s.now()

	schedule, err = s.schedules.UpdateSchedule(ctx, updated)
	if err != nil {
		schedule = Schedule{}
		err = mapStoreError(err)
		return
	}
	return
}

// DeleteSchedule soft deletes a schedule for its owner. The owner's password
// must verify; a mismatch leaves the deleted flag unchanged.
func (s *ScheduleService) DeleteSchedule(ctx context.Context, params DeleteScheduleParams) (err error) {
	if s == nil {
		return fmt.Errorf("ScheduleService is nil")
	}
	if s.schedules == nil {
		return fmt.Errorf("schedule repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteSchedule", "schedule_id", params.ScheduleID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "schedule delete failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "schedule soft deleted")
	}()

	var existing Schedule
	existing, err = s.schedules.GetSchedule(ctx, params.ScheduleID)
	if err != nil {
		err = mapStoreError(err)
		return
	}

	if err = s.authorizeDestructive(ctx, params.Principal, existing.OwnerID, params.Password); err != nil {
		return
	}

	if err = s.schedules.SetScheduleDeleted(ctx, existing.ID, true, s.now()); err != nil {
		err = mapStoreError(err)
		return
	}
	return
}

// RestoreSchedule flips a soft deleted schedule back to active. Restore is as
// strictly gated as delete: ownership and password both must check out, and
// restoring an already active schedule is a conflict.
func (s *ScheduleService) RestoreSchedule(ctx context.Context, params RestoreScheduleParams) (schedule Schedule, err error) {
	if s == nil {
		err = fmt.Errorf("ScheduleService is nil")
		return
	}
	if s.schedules == nil {
		err = fmt.Errorf("schedule repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "RestoreSchedule", "schedule_id", params.ScheduleID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "schedule restore failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "schedule restored")
	}()

	var existing Schedule
	existing, err = s.schedules.GetScheduleAny(ctx, params.ScheduleID)
	if err != nil {
		err = mapStoreError(err)
		return
	}

	if err = s.authorizeDestructive(ctx, params.Principal, existing.OwnerID, params.Password); err != nil {
		return
	}

	if !existing.Deleted {
		err = ErrConflict
		return
	}

	if err = s.schedules.SetScheduleDeleted(ctx, existing.ID, false, s.now()); err != nil {
		err = mapStoreError(err)
		return
	}

	schedule, err = s.schedules.GetSchedule(ctx, existing.ID)
	if err != nil {
		schedule = Schedule{}
		err = mapStoreError(err)
		return
	}
	return
}

// authorizeDestructive runs the ownership check followed by the password gate
// against the owner's stored digest. Both failures collapse into
// ErrUnauthorized.
func (s *ScheduleService) authorizeDestructive(ctx context.Context, principal Principal, ownerID, password string) error {
	if err := s.guard.Authorize(principal.UserID, ownerID); err != nil {
		return err
	}
	if s.credentials == nil {
		return fmt.Errorf("credential reader not configured")
	}
	creds, err := s.credentials.GetUserCredentials(ctx, ownerID)
	if err != nil {
		return mapStoreError(err)
	}
	if err := s.verifyPassword(creds.PasswordHash, password); err != nil {
		return ErrUnauthorized
	}
	return nil
}

func validateScheduleCore(input ScheduleInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.Start.Before(input.End) {
		vErr.add("time", "start must be before end")
	}
}
