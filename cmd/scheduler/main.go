package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/schedule-board/internal/application"
	"github.com/example/schedule-board/internal/config"
	httptransport "github.com/example/schedule-board/internal/http"
	"github.com/example/schedule-board/internal/persistence"
	"github.com/example/schedule-board/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	users := sqlite.NewUserRepository(pool)
	schedules := sqlite.NewScheduleRepository(pool)
	comments := sqlite.NewCommentRepository(pool)
	sessions := sqlite.NewSessionRepository(pool)

	userRepo := newUserRepositoryAdapter(users)
	scheduleRepo := newScheduleRepositoryAdapter(schedules)
	commentRepo := newCommentRepositoryAdapter(comments)
	sessionRepo := newSessionRepositoryAdapter(sessions, now)

	userService := application.NewUserServiceWithLogger(userRepo, idGenerator, now, logger)
	scheduleService := application.NewScheduleServiceWithLogger(scheduleRepo, userRepo, idGenerator, now, logger)
	commentService := application.NewCommentServiceWithLogger(commentRepo, scheduleRepo, userRepo, idGenerator, now, logger)
	authService := application.NewAuthServiceWithLogger(userRepo, sessionRepo, nil, tokenGenerator, now, cfg.SessionTTL, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:      httptransport.NewAuthHandler(authService, logger),
		Users:     httptransport.NewUserHandler(userService, logger),
		Schedules: httptransport.NewScheduleHandler(scheduleService, logger),
		Comments:  httptransport.NewCommentHandler(commentService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.RequireSession(authService, httptransport.DefaultAllowList, logger),
			httptransport.SlidingExpiry(authService, logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("schedule board API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// userRepositoryAdapter bridges the persistence user rows to the application
// model. It serves the user service, the credential lookups of the auth
// service, and the password gates of the schedule and comment services.
type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user, passwordHash)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserCredentials(ctx context.Context, id string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return toApplicationCredentials(stored), nil
}

func (a *userRepositoryAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return toApplicationCredentials(stored), nil
}

func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(user, passwordHash)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) WithdrawUser(ctx context.Context, id string, at time.Time) error {
	return a.repo.WithdrawUser(ctx, id, at)
}

type scheduleRepositoryAdapter struct {
	repo persistence.ScheduleRepository
}

func newScheduleRepositoryAdapter(repo persistence.ScheduleRepository) *scheduleRepositoryAdapter {
	return &scheduleRepositoryAdapter{repo: repo}
}

func (a *scheduleRepositoryAdapter) CreateSchedule(ctx context.Context, schedule application.Schedule) (application.Schedule, error) {
	if err := a.repo.CreateSchedule(ctx, toPersistenceSchedule(schedule)); err != nil {
		return application.Schedule{}, err
	}
	stored, err := a.repo.GetSchedule(ctx, schedule.ID)
	if err != nil {
		return application.Schedule{}, err
	}
	return toApplicationSchedule(stored), nil
}

func (a *scheduleRepositoryAdapter) GetSchedule(ctx context.Context, id string) (application.Schedule, error) {
	stored, err := a.repo.GetSchedule(ctx, id)
	if err != nil {
		return application.Schedule{}, err
	}
	return toApplicationSchedule(stored), nil
}

func (a *scheduleRepositoryAdapter) GetScheduleAny(ctx context.Context, id string) (application.Schedule, error) {
	stored, err := a.repo.GetScheduleAny(ctx, id)
	if err != nil {
		return application.Schedule{}, err
	}
	return toApplicationSchedule(stored), nil
}

func (a *scheduleRepositoryAdapter) UpdateSchedule(ctx context.Context, schedule application.Schedule) (application.Schedule, error) {
	if err := a.repo.UpdateSchedule(ctx, toPersistenceSchedule(schedule)); err != nil {
		return application.Schedule{}, err
	}
	stored, err := a.repo.GetSchedule(ctx, schedule.ID)
	if err != nil {
		return application.Schedule{}, err
	}
	return toApplicationSchedule(stored), nil
}

func (a *scheduleRepositoryAdapter) SetScheduleDeleted(ctx context.Context, id string, deleted bool, at time.Time) error {
	return a.repo.SetScheduleDeleted(ctx, id, deleted, at)
}

func (a *scheduleRepositoryAdapter) ListSchedulesByOwner(ctx context.Context, ownerID string, page application.PageRequest) ([]application.Schedule, int, error) {
	stored, total, err := a.repo.ListSchedulesByOwner(ctx, ownerID, persistence.PageWindow{
		Offset: page.Offset(),
		Limit:  page.Limit(),
	})
	if err != nil {
		return nil, 0, err
	}
	schedules := make([]application.Schedule, 0, len(stored))
	for _, s := range stored {
		schedules = append(schedules, toApplicationSchedule(s))
	}
	return schedules, total, nil
}

type commentRepositoryAdapter struct {
	repo persistence.CommentRepository
}

func newCommentRepositoryAdapter(repo persistence.CommentRepository) *commentRepositoryAdapter {
	return &commentRepositoryAdapter{repo: repo}
}

func (a *commentRepositoryAdapter) CreateComment(ctx context.Context, comment application.Comment) (application.Comment, error) {
	if err := a.repo.CreateComment(ctx, toPersistenceComment(comment)); err != nil {
		return application.Comment{}, err
	}
	stored, err := a.repo.GetComment(ctx, comment.ID)
	if err != nil {
		return application.Comment{}, err
	}
	return toApplicationComment(stored), nil
}

func (a *commentRepositoryAdapter) GetComment(ctx context.Context, id string) (application.Comment, error) {
	stored, err := a.repo.GetComment(ctx, id)
	if err != nil {
		return application.Comment{}, err
	}
	return toApplicationComment(stored), nil
}

func (a *commentRepositoryAdapter) UpdateComment(ctx context.Context, comment application.Comment) (application.Comment, error) {
	if err := a.repo.UpdateComment(ctx, toPersistenceComment(comment)); err != nil {
		return application.Comment{}, err
	}
	stored, err := a.repo.GetComment(ctx, comment.ID)
	if err != nil {
		return application.Comment{}, err
	}
	return toApplicationComment(stored), nil
}

func (a *commentRepositoryAdapter) SetCommentDeleted(ctx context.Context, id string, at time.Time) error {
	return a.repo.SetCommentDeleted(ctx, id, at)
}

func (a *commentRepositoryAdapter) ListCommentsBySchedule(ctx context.Context, scheduleID string, page application.PageRequest) ([]application.Comment, int, error) {
	stored, total, err := a.repo.ListCommentsBySchedule(ctx, scheduleID, persistence.PageWindow{
		Offset: page.Offset(),
		Limit:  page.Limit(),
	})
	if err != nil {
		return nil, 0, err
	}
	return toApplicationComments(stored), total, nil
}

func (a *commentRepositoryAdapter) ListCommentsByAuthor(ctx context.Context, authorID string, page application.PageRequest) ([]application.Comment, int, error) {
	stored, total, err := a.repo.ListCommentsByAuthor(ctx, authorID, persistence.PageWindow{
		Offset: page.Offset(),
		Limit:  page.Limit(),
	})
	if err != nil {
		return nil, 0, err
	}
	return toApplicationComments(stored), total, nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
	now  func() time.Time
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository, now func() time.Time) *sessionRepositoryAdapter {
	if now == nil {
		now = time.Now
	}
	return &sessionRepositoryAdapter{repo: repo, now: now}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, persistence.Session{
		Token:     session.Token,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	})
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) ExtendSession(ctx context.Context, token string, expiresAt time.Time) (application.Session, error) {
	stored, err := a.repo.ExtendSession(ctx, token, expiresAt, a.now())
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteSession(ctx context.Context, token string) error {
	return a.repo.DeleteSession(ctx, token)
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		PasswordHash: passwordHash,
		Deleted:      user.Deleted,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationUser(user persistence.User) application.User {
	return application.User{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Deleted:     user.Deleted,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func toApplicationCredentials(user persistence.User) application.UserCredentials {
	return application.UserCredentials{
		User:         toApplicationUser(user),
		PasswordHash: user.PasswordHash,
	}
}

func toPersistenceSchedule(schedule application.Schedule) persistence.Schedule {
	return persistence.Schedule{
		ID:        schedule.ID,
		OwnerID:   schedule.OwnerID,
		Title:     schedule.Title,
		Content:   schedule.Content,
		Start:     schedule.Start,
		End:       schedule.End,
		Deleted:   schedule.Deleted,
		CreatedAt: schedule.CreatedAt,
		UpdatedAt: schedule.UpdatedAt,
	}
}

func toApplicationSchedule(schedule persistence.Schedule) application.Schedule {
	return application.Schedule{
		ID:        schedule.ID,
		OwnerID:   schedule.OwnerID,
		Title:     schedule.Title,
		Content:   schedule.Content,
		Start:     schedule.Start,
		End:       schedule.End,
		Deleted:   schedule.Deleted,
		CreatedAt: schedule.CreatedAt,
		UpdatedAt: schedule.UpdatedAt,
	}
}

func toPersistenceComment(comment application.Comment) persistence.Comment {
	return persistence.Comment{
		ID:         comment.ID,
		AuthorID:   comment.AuthorID,
		ScheduleID: comment.ScheduleID,
		Text:       comment.Text,
		Deleted:    comment.Deleted,
		CreatedAt:  comment.CreatedAt,
		UpdatedAt:  comment.UpdatedAt,
	}
}

func toApplicationComment(comment persistence.Comment) application.Comment {
	return application.Comment{
		ID:         comment.ID,
		AuthorID:   comment.AuthorID,
		ScheduleID: comment.ScheduleID,
		Text:       comment.Text,
		Deleted:    comment.Deleted,
		CreatedAt:  comment.CreatedAt,
		UpdatedAt:  comment.UpdatedAt,
	}
}

func toApplicationComments(stored []persistence.Comment) []application.Comment {
	comments := make([]application.Comment, 0, len(stored))
	for _, c := range stored {
		comments = append(comments, toApplicationComment(c))
	}
	return comments
}

func toApplicationSession(session persistence.Session) application.Session {
	return application.Session{
		Token:     session.Token,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
}
