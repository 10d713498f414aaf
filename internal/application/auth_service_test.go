package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func plainVerifier(hashedPassword, password string) error {
	if hashedPassword != password {
		return ErrInvalidCredentials
	}
	return nil
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	t.Run("issues sessions for valid credentials", func(t *testing.T) {
		t.Parallel()

		now := time.Now().UTC()
		creds := &credentialStoreStub{
			credentials: UserCredentials{
				User:         User{ID: "user-1", Email: "user@example.com"},
				PasswordHash: "secret",
			},
		}
		repo := newSessionRepositoryStub()

		svc := NewAuthService(creds, repo, plainVerifier, func() string { return "session-token" }, func() time.Time { return now }, time.Hour)

		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: " User@Example.com ", Password: "secret"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}

		if result.Session.Token != "session-token" {
			t.Fatalf("expected issued token, got %s", result.Session.Token)
		}
		if !result.Session.ExpiresAt.Equal(now.Add(time.Hour)) {
			t.Fatalf("expected expiry at now+TTL, got %v", result.Session.ExpiresAt)
		}
		if result.User.ID != "user-1" {
			t.Fatalf("expected authenticated user, got %+v", result.User)
		}
		if len(repo.deleteExpiredCalls) != 1 || !repo.deleteExpiredCalls[0].Equal(now) {
			t.Fatalf("expected expired sessions pruned at now, got %#v", repo.deleteExpiredCalls)
		}
	})

	t.Run("rejects unknown emails with the credentials sentinel", func(t *testing.T) {
		t.Parallel()

		svc := NewAuthService(&credentialStoreStub{}, newSessionRepositoryStub(), plainVerifier, nil, time.Now, time.Hour)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "ghost@example.com", Password: "secret"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects wrong passwords", func(t *testing.T) {
		t.Parallel()

		creds := &credentialStoreStub{
			credentials: UserCredentials{User: User{ID: "user-1"}, PasswordHash: "expected"},
		}
		svc := NewAuthService(creds, newSessionRepositoryStub(), plainVerifier, nil, time.Now, time.Hour)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "wrong"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects withdrawn accounts indistinguishably", func(t *testing.T) {
		t.Parallel()

		creds := &credentialStoreStub{
			credentials: UserCredentials{User: User{ID: "user-1", Deleted: true}, PasswordHash: "secret"},
		}
		svc := NewAuthService(creds, newSessionRepositoryStub(), plainVerifier, nil, time.Now, time.Hour)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "secret"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects blank credentials", func(t *testing.T) {
		t.Parallel()

		svc := NewAuthService(&credentialStoreStub{}, newSessionRepositoryStub(), plainVerifier, nil, time.Now, time.Hour)

		if _, err := svc.Authenticate(context.Background(), AuthenticateParams{}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("propagates session repository failures", func(t *testing.T) {
		t.Parallel()

		expected := errors.New("boom")
		creds := &credentialStoreStub{
			credentials: UserCredentials{User: User{ID: "user-1"}, PasswordHash: "secret"},
		}
		repo := newSessionRepositoryStub()
		repo.createErr = expected

		svc := NewAuthService(creds, repo, plainVerifier, func() string { return "token" }, time.Now, time.Hour)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "secret"})
		if !errors.Is(err, expected) {
			t.Fatalf("expected %v, got %v", expected, err)
		}
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	newService := func(creds *credentialStoreStub, repo *sessionRepositoryStub) *AuthService {
		return NewAuthService(creds, repo, plainVerifier, nil, func() time.Time { return now }, 30*time.Minute)
	}

	t.Run("returns the principal for a live session", func(t *testing.T) {
		t.Parallel()

		creds := &credentialStoreStub{
			credentials: UserCredentials{User: User{ID: "user-1"}, PasswordHash: "secret"},
		}
		repo := newSessionRepositoryStub()
		repo.seed(Session{Token: "tok", UserID: "user-1", ExpiresAt: now.Add(10 * time.Minute)})

		principal, err := newService(creds, repo).ValidateSession(context.Background(), "tok")
		if err != nil {
			t.Fatalf("ValidateSession failed: %v", err)
		}
		if principal.UserID != "user-1" {
			t.Fatalf("expected principal user-1, got %+v", principal)
		}
		if len(repo.extendCalls) != 0 {
			t.Fatalf("validation must not extend the session, got %d extensions", len(repo.extendCalls))
		}
	})

	t.Run("rejects expired sessions with the expiry sentinel", func(t *testing.T) {
		t.Parallel()

		creds := &credentialStoreStub{
			credentials: UserCredentials{User: User{ID: "user-1"}, PasswordHash: "secret"},
		}
		repo := newSessionRepositoryStub()
		repo.seed(Session{Token: "tok", UserID: "user-1", ExpiresAt: now.Add(-time.Second)})

		if _, err := newService(creds, repo).ValidateSession(context.Background(), "tok"); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("rejects unknown tokens", func(t *testing.T) {
		t.Parallel()

		if _, err := newService(&credentialStoreStub{}, newSessionRepositoryStub()).ValidateSession(context.Background(), "missing"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects blank tokens", func(t *testing.T) {
		t.Parallel()

		if _, err := newService(&credentialStoreStub{}, newSessionRepositoryStub()).ValidateSession(context.Background(), "   "); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects sessions of withdrawn users", func(t *testing.T) {
		t.Parallel()

		creds := &credentialStoreStub{
			credentials: UserCredentials{User: User{ID: "user-1", Deleted: true}, PasswordHash: "secret"},
		}
		repo := newSessionRepositoryStub()
		repo.seed(Session{Token: "tok", UserID: "user-1", ExpiresAt: now.Add(10 * time.Minute)})

		if _, err := newService(creds, repo).ValidateSession(context.Background(), "tok"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestAuthService_ExtendSession(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	t.Run("pushes the expiry to now plus the TTL", func(t *testing.T) {
		t.Parallel()

		repo := newSessionRepositoryStub()
		repo.seed(Session{Token: "tok", UserID: "user-1", ExpiresAt: now.Add(time.Minute)})

		svc := NewAuthService(&credentialStoreStub{}, repo, plainVerifier, nil, func() time.Time { return now }, 30*time.Minute)
		if err := svc.ExtendSession(context.Background(), "tok"); err != nil {
			t.Fatalf("ExtendSession failed: %v", err)
		}

		if len(repo.extendCalls) != 1 || !repo.extendCalls[0].Equal(now.Add(30*time.Minute)) {
			t.Fatalf("expected one extension to now+TTL, got %#v", repo.extendCalls)
		}
	})

	t.Run("maps unknown tokens to unauthorized", func(t *testing.T) {
		t.Parallel()

		svc := NewAuthService(&credentialStoreStub{}, newSessionRepositoryStub(), plainVerifier, nil, time.Now, 30*time.Minute)
		if err := svc.ExtendSession(context.Background(), "missing"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestAuthService_RevokeSession(t *testing.T) {
	t.Parallel()

	t.Run("deletes the session", func(t *testing.T) {
		t.Parallel()

		repo := newSessionRepositoryStub()
		repo.seed(Session{Token: "tok", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)})

		svc := NewAuthService(&credentialStoreStub{}, repo, plainVerifier, nil, time.Now, time.Hour)
		if err := svc.RevokeSession(context.Background(), "tok"); err != nil {
			t.Fatalf("RevokeSession failed: %v", err)
		}
		if _, ok := repo.sessions["tok"]; ok {
			t.Fatal("expected session to be removed")
		}
	})

	t.Run("maps unknown tokens to unauthorized", func(t *testing.T) {
		t.Parallel()

		svc := NewAuthService(&credentialStoreStub{}, newSessionRepositoryStub(), plainVerifier, nil, time.Now, time.Hour)
		if err := svc.RevokeSession(context.Background(), "missing"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

type credentialStoreStub struct {
	credentials UserCredentials
	err         error
}

func (c *credentialStoreStub) GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error) {
	if c.err != nil {
		return UserCredentials{}, c.err
	}
	if c.credentials.User.ID == "" {
		return UserCredentials{}, ErrNotFound
	}
	return c.credentials, nil
}

func (c *credentialStoreStub) GetUser(ctx context.Context, id string) (User, error) {
	if c.err != nil {
		return User{}, c.err
	}
	if c.credentials.User.ID == id {
		return c.credentials.User, nil
	}
	return User{}, ErrNotFound
}

// sessionRepositoryStub provides an in-memory implementation of SessionRepository for tests.
type sessionRepositoryStub struct {
	sessions map[string]Session

	createErr error
	getErr    error
	extendErr error
	deleteErr error

	extendCalls        []time.Time
	deleteExpiredCalls []time.Time
}

func newSessionRepositoryStub() *sessionRepositoryStub {
	return &sessionRepositoryStub{sessions: make(map[string]Session)}
}

func (s *sessionRepositoryStub) seed(session Session) {
	s.sessions[session.Token] = session
}

func (s *sessionRepositoryStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.seed(session)
	return session, nil
}

func (s *sessionRepositoryStub) GetSession(ctx context.Context, token string) (Session, error) {
	if s.getErr != nil {
		return Session{}, s.getErr
	}
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

func (s *sessionRepositoryStub) ExtendSession(ctx context.Context, token string, expiresAt time.Time) (Session, error) {
	if s.extendErr != nil {
		return Session{}, s.extendErr
	}
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	session.ExpiresAt = expiresAt
	s.sessions[token] = session
	s.extendCalls = append(s.extendCalls, expiresAt)
	return session, nil
}

func (s *sessionRepositoryStub) DeleteSession(ctx context.Context, token string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.sessions[token]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, token)
	return nil
}

func (s *sessionRepositoryStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.deleteExpiredCalls = append(s.deleteExpiredCalls, reference)
	for token, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}
