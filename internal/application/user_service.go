package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/schedule-board/internal/persistence"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user User, passwordHash string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserCredentials(ctx context.Context, id string) (UserCredentials, error)
	UpdateUser(ctx context.Context, user User, passwordHash string) (User, error)
	// WithdrawUser soft deletes the user together with every active schedule
	// the user owns, as one atomic unit.
	WithdrawUser(ctx context.Context, id string, at time.Time) error
}

// UserService orchestrates signup, profile access, and the password gated
// withdrawal that cascades to owned schedules.
type UserService struct {
	users          UserRepository
	guard          OwnershipGuard
	hashPassword   func(password string) (string, error)
	verifyPassword PasswordVerifier
	idGenerator    func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, idGenerator, now, nil)
}

// NewUserServiceWithLogger constructs a UserService with a specified logger.
func NewUserServiceWithLogger(users UserRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:          users,
		hashPassword:   func(password string) (string, error) { return CreatePasswordHash(password, DefaultArgon2idParams) },
		verifyPassword: VerifyPassword,
		idGenerator:    idGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// Signup registers a new account. The email must not already be in use.
func (s *UserService) Signup(ctx context.Context, params SignupParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	email := normalizeEmail(params.Email)
	displayName := strings.TrimSpace(params.DisplayName)

	logger := s.loggerWith(ctx, "Signup", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "signup failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user registered")
	}()

	vErr := &ValidationError{}
	validateEmail(email, vErr)
	validateDisplayName(displayName, vErr)
	validatePassword(params.Password, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hashPassword(params.Password)
	if err != nil {
		return
	}

	now := s.now()
	candidate := User{
		ID:          s.idGenerator(),
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	user, err = s.users.CreateUser(ctx, candidate, hash)
	if err != nil {
		user = User{}
		err = mapStoreError(err)
		return
	}
	return
}

// Me returns the caller's own account summary.
func (s *UserService) Me(ctx context.Context, principal Principal) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}

	user, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		return User{}, mapStoreError(err)
	}
	return user, nil
}

// UpdateProfile replaces the caller's password and display name after the
// current password has been verified. A mismatch leaves the record unchanged.
func (s *UserService) UpdateProfile(ctx context.Context, params UpdateProfileParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateProfile", "user_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "profile update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile updated")
	}()

	var creds UserCredentials
	creds, err = s.users.GetUserCredentials(ctx, params.Principal.UserID)
	if err != nil {
		err = mapStoreError(err)
		return
	}

	if err = s.guard.Authorize(params.Principal.UserID, creds.User.ID); err != nil {
		return
	}
	if verr := s.verifyPassword(creds.PasswordHash, params.CurrentPassword); verr != nil {
		err = ErrUnauthorized
		return
	}

	displayName := strings.TrimSpace(params.DisplayName)
	vErr := &ValidationError{}
	validateDisplayName(displayName, vErr)
	validatePassword(params.NewPassword, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hashPassword(params.NewPassword)
	if err != nil {
		return
	}

	updated := creds.User
	updated.DisplayName = displayName
	updated.UpdatedAt = s.now()

	user, err = s.users.UpdateUser(ctx, updated, hash)
	if err != nil {
		user = User{}
		err = mapStoreError(err)
		return
	}
	return
}

// Withdraw soft deletes the caller's account after verifying the password.
// Every active schedule the caller owns is soft deleted in the same unit of
// work; comments keep their current flag.
func (s *UserService) Withdraw(ctx context.Context, params WithdrawParams) (err error) {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}

	logger := s.loggerWith(ctx, "Withdraw", "user_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "withdrawal failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user withdrawn")
	}()

	creds, gerr := s.users.GetUserCredentials(ctx, params.Principal.UserID)
	if gerr != nil {
		err = mapStoreError(gerr)
		return
	}

	if err = s.guard.Authorize(params.Principal.UserID, creds.User.ID); err != nil {
		return
	}
	if verr := s.verifyPassword(creds.PasswordHash, params.Password); verr != nil {
		err = ErrUnauthorized
		return
	}

	if err = s.users.WithdrawUser(ctx, creds.User.ID, s.now()); err != nil {
		err = mapStoreError(err)
		return
	}
	return
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string, vErr *ValidationError) {
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "email is invalid")
	}
}

func validateDisplayName(displayName string, vErr *ValidationError) {
	if displayName == "" {
		vErr.add("display_name", "display name is required")
	}
}

func validatePassword(password string, vErr *ValidationError) {
	if password == "" {
		vErr.add("password", "password is required")
	} else if len(password) < 8 {
		vErr.add("password", "password must be at least 8 characters")
	}
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("reference", "related records are missing")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("input", "stored constraints rejected the record")
		return vErr
	}
	return err
}
