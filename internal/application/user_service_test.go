package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/schedule-board/internal/persistence"
)

func TestUserService_Signup(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC)

	newService := func(repo *userRepositoryStub) *UserService {
		svc := NewUserService(repo, func() string { return "user-1" }, func() time.Time { return now })
		svc.hashPassword = func(password string) (string, error) { return "digest:" + password, nil }
		return svc
	}

	t.Run("registers a user with a hashed password", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepositoryStub()
		user, err := newService(repo).Signup(context.Background(), SignupParams{
			Email:       " Alice@Example.com ",
			Password:    "superSecret1",
			DisplayName: " Alice ",
		})
		if err != nil {
			t.Fatalf("Signup failed: %v", err)
		}

		if user.ID != "user-1" || user.Email != "alice@example.com" || user.DisplayName != "Alice" {
			t.Fatalf("unexpected user: %+v", user)
		}
		if got := repo.passwordHashes["user-1"]; got != "digest:superSecret1" {
			t.Fatalf("expected hashed password to be stored, got %q", got)
		}
		if !user.CreatedAt.Equal(now) {
			t.Fatalf("expected creation timestamp %v, got %v", now, user.CreatedAt)
		}
	})

	t.Run("collects field validation errors", func(t *testing.T) {
		t.Parallel()

		_, err := newService(newUserRepositoryStub()).Signup(context.Background(), SignupParams{
			Email:       "not-an-email",
			Password:    "short",
			DisplayName: "",
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"email", "password", "display_name"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected error for field %s, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("maps duplicate emails to already exists", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepositoryStub()
		repo.createErr = persistence.ErrDuplicate

		_, err := newService(repo).Signup(context.Background(), SignupParams{
			Email:       "alice@example.com",
			Password:    "superSecret1",
			DisplayName: "Alice",
		})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestUserService_Me(t *testing.T) {
	t.Parallel()

	repo := newUserRepositoryStub()
	repo.seed(User{ID: "user-1", Email: "alice@example.com", DisplayName: "Alice"}, "digest")

	svc := NewUserService(repo, nil, nil)

	user, err := svc.Me(context.Background(), Principal{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := svc.Me(context.Background(), Principal{UserID: "ghost"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserService_UpdateProfile(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC)

	newService := func(repo *userRepositoryStub) *UserService {
		svc := NewUserService(repo, nil, func() time.Time { return now })
		svc.hashPassword = func(password string) (string, error) { return "digest:" + password, nil }
		svc.verifyPassword = plainVerifier
		return svc
	}

	t.Run("replaces display name and password", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepositoryStub()
		repo.seed(User{ID: "user-1", Email: "alice@example.com", DisplayName: "Alice"}, "oldSecret")

		user, err := newService(repo).UpdateProfile(context.Background(), UpdateProfileParams{
			Principal:       Principal{UserID: "user-1"},
			CurrentPassword: "oldSecret",
			NewPassword:     "newSecret1",
			DisplayName:     "Alice B.",
		})
		if err != nil {
			t.Fatalf("UpdateProfile failed: %v", err)
		}
		if user.DisplayName != "Alice B." {
			t.Fatalf("expected updated display name, got %+v", user)
		}
		if got := repo.passwordHashes["user-1"]; got != "digest:newSecret1" {
			t.Fatalf("expected rehashed password, got %q", got)
		}
	})

	t.Run("rejects a wrong current password without touching the record", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepositoryStub()
		repo.seed(User{ID: "user-1", DisplayName: "Alice"}, "oldSecret")

		_, err := newService(repo).UpdateProfile(context.Background(), UpdateProfileParams{
			Principal:       Principal{UserID: "user-1"},
			CurrentPassword: "wrong",
			NewPassword:     "newSecret1",
			DisplayName:     "Mallory",
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if repo.updateCalls != 0 {
			t.Fatalf("expected no update, got %d calls", repo.updateCalls)
		}
	})

	t.Run("validates the replacement fields", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepositoryStub()
		repo.seed(User{ID: "user-1", DisplayName: "Alice"}, "oldSecret")

		_, err := newService(repo).UpdateProfile(context.Background(), UpdateProfileParams{
			Principal:       Principal{UserID: "user-1"},
			CurrentPassword: "oldSecret",
			NewPassword:     "short",
			DisplayName:     "",
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestUserService_Withdraw(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC)

	newService := func(repo *userRepositoryStub) *UserService {
		svc := NewUserService(repo, nil, func() time.Time { return now })
		svc.verifyPassword = plainVerifier
		return svc
	}

	t.Run("soft deletes the account after the password gate", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepositoryStub()
		repo.seed(User{ID: "user-1"}, "secret")

		err := newService(repo).Withdraw(context.Background(), WithdrawParams{
			Principal: Principal{UserID: "user-1"},
			Password:  "secret",
		})
		if err != nil {
			t.Fatalf("Withdraw failed: %v", err)
		}
		if len(repo.withdrawCalls) != 1 || repo.withdrawCalls[0].id != "user-1" || !repo.withdrawCalls[0].at.Equal(now) {
			t.Fatalf("expected one withdrawal at now, got %#v", repo.withdrawCalls)
		}
	})

	t.Run("a wrong password leaves the account untouched", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepositoryStub()
		repo.seed(User{ID: "user-1"}, "secret")

		err := newService(repo).Withdraw(context.Background(), WithdrawParams{
			Principal: Principal{UserID: "user-1"},
			Password:  "wrong",
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if len(repo.withdrawCalls) != 0 {
			t.Fatalf("expected no withdrawal, got %#v", repo.withdrawCalls)
		}
	})

	t.Run("unknown principals map to not found", func(t *testing.T) {
		t.Parallel()

		err := newService(newUserRepositoryStub()).Withdraw(context.Background(), WithdrawParams{
			Principal: Principal{UserID: "ghost"},
			Password:  "secret",
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

type withdrawCall struct {
	id string
	at time.Time
}

// userRepositoryStub provides an in-memory implementation of UserRepository for tests.
type userRepositoryStub struct {
	users          map[string]User
	passwordHashes map[string]string

	createErr error
	updateErr error

	updateCalls   int
	withdrawCalls []withdrawCall
}

func newUserRepositoryStub() *userRepositoryStub {
	return &userRepositoryStub{
		users:          make(map[string]User),
		passwordHashes: make(map[string]string),
	}
}

func (s *userRepositoryStub) seed(user User, passwordHash string) {
	s.users[user.ID] = user
	s.passwordHashes[user.ID] = passwordHash
}

func (s *userRepositoryStub) CreateUser(ctx context.Context, user User, passwordHash string) (User, error) {
	if s.createErr != nil {
		return User{}, s.createErr
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return User{}, persistence.ErrDuplicate
		}
	}
	s.seed(user, passwordHash)
	return user, nil
}

func (s *userRepositoryStub) GetUser(ctx context.Context, id string) (User, error) {
	user, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *userRepositoryStub) GetUserCredentials(ctx context.Context, id string) (UserCredentials, error) {
	user, ok := s.users[id]
	if !ok {
		return UserCredentials{}, ErrNotFound
	}
	return UserCredentials{User: user, PasswordHash: s.passwordHashes[id]}, nil
}

func (s *userRepositoryStub) UpdateUser(ctx context.Context, user User, passwordHash string) (User, error) {
	if s.updateErr != nil {
		return User{}, s.updateErr
	}
	if _, ok := s.users[user.ID]; !ok {
		return User{}, ErrNotFound
	}
	s.updateCalls++
	s.seed(user, passwordHash)
	return user, nil
}

func (s *userRepositoryStub) WithdrawUser(ctx context.Context, id string, at time.Time) error {
	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	user.Deleted = true
	user.UpdatedAt = at
	s.users[id] = user
	s.withdrawCalls = append(s.withdrawCalls, withdrawCall{id: id, at: at})
	return nil
}
