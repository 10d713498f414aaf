package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/schedule-board/internal/application"
)

type authServiceStub struct {
	result       application.AuthenticateResult
	authErr      error
	revokeErr    error
	revokedToken string
}

func (s *authServiceStub) Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	if s.authErr != nil {
		return application.AuthenticateResult{}, s.authErr
	}
	return s.result, nil
}

func (s *authServiceStub) RevokeSession(ctx context.Context, token string) error {
	s.revokedToken = token
	return s.revokeErr
}

type userServiceStub struct {
	user      application.User
	signupErr error
	meErr     error
	updateErr error
	withdraw  error
}

func (s *userServiceStub) Signup(ctx context.Context, params application.SignupParams) (application.User, error) {
	if s.signupErr != nil {
		return application.User{}, s.signupErr
	}
	return s.user, nil
}

func (s *userServiceStub) Me(ctx context.Context, principal application.Principal) (application.User, error) {
	if s.meErr != nil {
		return application.User{}, s.meErr
	}
	return s.user, nil
}

func (s *userServiceStub) UpdateProfile(ctx context.Context, params application.UpdateProfileParams) (application.User, error) {
	if s.updateErr != nil {
		return application.User{}, s.updateErr
	}
	return s.user, nil
}

func (s *userServiceStub) Withdraw(ctx context.Context, params application.WithdrawParams) error {
	return s.withdraw
}

type scheduleServiceStub struct {
	schedule   application.Schedule
	page       application.SchedulePage
	err        error
	lastParams any
}

func (s *scheduleServiceStub) CreateSchedule(ctx context.Context, params application.CreateScheduleParams) (application.Schedule, error) {
	s.lastParams = params
	if s.err != nil {
		return application.Schedule{}, s.err
	}
	return s.schedule, nil
}

func (s *scheduleServiceStub) GetSchedule(ctx context.Context, principal application.Principal, scheduleID string) (application.Schedule, error) {
	if s.err != nil {
		return application.Schedule{}, s.err
	}
	return s.schedule, nil
}

func (s *scheduleServiceStub) ListSchedules(ctx context.Context, principal application.Principal, page application.PageRequest) (application.SchedulePage, error) {
	s.lastParams = page
	if s.err != nil {
		return application.SchedulePage{}, s.err
	}
	return s.page, nil
}

func (s *scheduleServiceStub) UpdateSchedule(ctx context.Context, params application.UpdateScheduleParams) (application.Schedule, error) {
	s.lastParams = params
	if s.err != nil {
		return application.Schedule{}, s.err
	}
	return s.schedule, nil
}

func (s *scheduleServiceStub) DeleteSchedule(ctx context.Context, params application.DeleteScheduleParams) error {
	s.lastParams = params
	return s.err
}

func (s *scheduleServiceStub) RestoreSchedule(ctx context.Context, params application.RestoreScheduleParams) (application.Schedule, error) {
	s.lastParams = params
	if s.err != nil {
		return application.Schedule{}, s.err
	}
	return s.schedule, nil
}

type commentServiceStub struct {
	comment    application.Comment
	page       application.CommentPage
	err        error
	lastParams any
}

func (s *commentServiceStub) CreateComment(ctx context.Context, params application.CreateCommentParams) (application.Comment, error) {
	s.lastParams = params
	if s.err != nil {
		return application.Comment{}, s.err
	}
	return s.comment, nil
}

func (s *commentServiceStub) ListCommentsBySchedule(ctx context.Context, scheduleID string, page application.PageRequest) (application.CommentPage, error) {
	s.lastParams = scheduleID
	if s.err != nil {
		return application.CommentPage{}, s.err
	}
	return s.page, nil
}

func (s *commentServiceStub) ListCommentsByAuthor(ctx context.Context, authorID string, page application.PageRequest) (application.CommentPage, error) {
	s.lastParams = authorID
	if s.err != nil {
		return application.CommentPage{}, s.err
	}
	return s.page, nil
}

func (s *commentServiceStub) UpdateComment(ctx context.Context, params application.UpdateCommentParams) (application.Comment, error) {
	s.lastParams = params
	if s.err != nil {
		return application.Comment{}, s.err
	}
	return s.comment, nil
}

func (s *commentServiceStub) DeleteComment(ctx context.Context, params application.DeleteCommentParams) error {
	s.lastParams = params
	return s.err
}

func decodeErrorResponse(t *testing.T, recorder *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestAuthHandler_Login(t *testing.T) {
	t.Parallel()

	t.Run("issues a session token in body, header, and cookie", func(t *testing.T) {
		t.Parallel()

		expiresAt := time.Date(2025, time.June, 2, 12, 30, 0, 0, time.UTC)
		stub := &authServiceStub{result: application.AuthenticateResult{
			User:    application.User{ID: "user-1", Email: "taro@example.com", DisplayName: "Taro"},
			Session: application.Session{Token: "session-token", UserID: "user-1", ExpiresAt: expiresAt},
		}}
		handler := NewAuthHandler(stub, nil)

		req := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(`{"email":"taro@example.com","password":"secret-pass"}`))
		recorder := httptest.NewRecorder()
		handler.Login(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
		}
		if got := recorder.Header().Get("X-Session-Token"); got != "session-token" {
			t.Fatalf("expected session token header, got %q", got)
		}

		var foundCookie bool
		for _, cookie := range recorder.Result().Cookies() {
			if cookie.Name == "session_token" && cookie.Value == "session-token" {
				foundCookie = true
				if !cookie.HttpOnly {
					t.Fatalf("expected HttpOnly session cookie")
				}
			}
		}
		if !foundCookie {
			t.Fatalf("expected session cookie to be set")
		}

		var resp loginResponse
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode login response: %v", err)
		}
		if resp.Token != "session-token" || resp.User.ID != "user-1" {
			t.Fatalf("unexpected login response: %+v", resp)
		}
	})

	t.Run("maps credential failures to 401 with an error code", func(t *testing.T) {
		t.Parallel()

		handler := NewAuthHandler(&authServiceStub{authErr: application.ErrInvalidCredentials}, nil)

		req := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(`{"email":"taro@example.com","password":"wrong"}`))
		recorder := httptest.NewRecorder()
		handler.Login(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401, got %d", recorder.Code)
		}
		if resp := decodeErrorResponse(t, recorder); resp.ErrorCode != "AUTH_INVALID_CREDENTIALS" {
			t.Fatalf("unexpected error code: %q", resp.ErrorCode)
		}
	})

	t.Run("rejects malformed bodies", func(t *testing.T) {
		t.Parallel()

		handler := NewAuthHandler(&authServiceStub{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(`{not json`))
		recorder := httptest.NewRecorder()
		handler.Login(recorder, req)

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", recorder.Code)
		}
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	t.Parallel()

	t.Run("revokes the session and clears the cookie", func(t *testing.T) {
		t.Parallel()

		stub := &authServiceStub{}
		handler := NewAuthHandler(stub, nil)

		req := httptest.NewRequest(http.MethodPost, "/users/logout", nil)
		req = req.WithContext(ContextWithSessionToken(req.Context(), "session-token"))
		recorder := httptest.NewRecorder()
		handler.Logout(recorder, req)

		if recorder.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", recorder.Code)
		}
		if stub.revokedToken != "session-token" {
			t.Fatalf("expected revoked token, got %q", stub.revokedToken)
		}

		var cleared bool
		for _, cookie := range recorder.Result().Cookies() {
			if cookie.Name == "session_token" && cookie.MaxAge < 0 {
				cleared = true
			}
		}
		if !cleared {
			t.Fatalf("expected session cookie to be cleared")
		}
	})

	t.Run("falls back to the bearer header for the token", func(t *testing.T) {
		t.Parallel()

		stub := &authServiceStub{}
		handler := NewAuthHandler(stub, nil)

		req := httptest.NewRequest(http.MethodPost, "/users/logout", nil)
		req.Header.Set("Authorization", "Bearer header-token")
		recorder := httptest.NewRecorder()
		handler.Logout(recorder, req)

		if recorder.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", recorder.Code)
		}
		if stub.revokedToken != "header-token" {
			t.Fatalf("expected header token, got %q", stub.revokedToken)
		}
	})

	t.Run("rejects requests without any token", func(t *testing.T) {
		t.Parallel()

		handler := NewAuthHandler(&authServiceStub{}, nil)

		recorder := httptest.NewRecorder()
		handler.Logout(recorder, httptest.NewRequest(http.MethodPost, "/users/logout", nil))

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401, got %d", recorder.Code)
		}
	})
}

func TestUserHandler_Signup(t *testing.T) {
	t.Parallel()

	t.Run("registers a new user", func(t *testing.T) {
		t.Parallel()

		stub := &userServiceStub{user: application.User{ID: "user-1", Email: "taro@example.com", DisplayName: "Taro"}}
		handler := NewUserHandler(stub, nil)

		req := httptest.NewRequest(http.MethodPost, "/users/signup", strings.NewReader(`{"email":"taro@example.com","password":"secret-pass","display_name":"Taro"}`))
		recorder := httptest.NewRecorder()
		handler.Signup(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", recorder.Code, recorder.Body.String())
		}

		var resp userResponse
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.User.ID != "user-1" || resp.User.Email != "taro@example.com" {
			t.Fatalf("unexpected user payload: %+v", resp.User)
		}
	})

	t.Run("maps duplicate emails to 409", func(t *testing.T) {
		t.Parallel()

		handler := NewUserHandler(&userServiceStub{signupErr: application.ErrAlreadyExists}, nil)

		req := httptest.NewRequest(http.MethodPost, "/users/signup", strings.NewReader(`{"email":"taro@example.com","password":"secret-pass","display_name":"Taro"}`))
		recorder := httptest.NewRecorder()
		handler.Signup(recorder, req)

		if recorder.Code != http.StatusConflict {
			t.Fatalf("expected status 409, got %d", recorder.Code)
		}
	})

	t.Run("maps validation failures to 422 with localized fields", func(t *testing.T) {
		t.Parallel()

		vErr := &application.ValidationError{FieldErrors: map[string]string{"email": "email is required"}}
		handler := NewUserHandler(&userServiceStub{signupErr: vErr}, nil)

		req := httptest.NewRequest(http.MethodPost, "/users/signup", strings.NewReader(`{"password":"secret-pass","display_name":"Taro"}`))
		recorder := httptest.NewRecorder()
		handler.Signup(recorder, req)

		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status 422, got %d", recorder.Code)
		}
		resp := decodeErrorResponse(t, recorder)
		if resp.Errors["email"] != "メールアドレスは必須です。" {
			t.Fatalf("unexpected field error: %+v", resp.Errors)
		}
	})
}

func TestUserHandler_Withdraw(t *testing.T) {
	t.Parallel()

	t.Run("withdraws the account and clears the session cookie", func(t *testing.T) {
		t.Parallel()

		handler := NewUserHandler(&userServiceStub{}, nil)

		req := httptest.NewRequest(http.MethodDelete, "/users/me", strings.NewReader(`{"password":"secret-pass"}`))
		req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-1"}))
		recorder := httptest.NewRecorder()
		handler.Withdraw(recorder, req)

		if recorder.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", recorder.Code)
		}

		var cleared bool
		for _, cookie := range recorder.Result().Cookies() {
			if cookie.Name == "session_token" && cookie.MaxAge < 0 {
				cleared = true
			}
		}
		if !cleared {
			t.Fatalf("expected session cookie to be cleared")
		}
	})

	t.Run("maps a rejected password to 401", func(t *testing.T) {
		t.Parallel()

		handler := NewUserHandler(&userServiceStub{withdraw: application.ErrUnauthorized}, nil)

		req := httptest.NewRequest(http.MethodDelete, "/users/me", strings.NewReader(`{"password":"wrong"}`))
		req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-1"}))
		recorder := httptest.NewRecorder()
		handler.Withdraw(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401, got %d", recorder.Code)
		}
		if resp := decodeErrorResponse(t, recorder); resp.ErrorCode != "AUTH_UNAUTHORIZED" {
			t.Fatalf("unexpected error code: %q", resp.ErrorCode)
		}
	})
}

func newTestRouter(schedules *scheduleServiceStub, comments *commentServiceStub) http.Handler {
	return NewRouter(RouterConfig{
		Auth:      NewAuthHandler(&authServiceStub{}, nil),
		Users:     NewUserHandler(&userServiceStub{}, nil),
		Schedules: NewScheduleHandler(schedules, nil),
		Comments:  NewCommentHandler(comments, nil),
	})
}

func TestRouterDispatch(t *testing.T) {
	t.Parallel()

	principalCtx := func(req *http.Request) *http.Request {
		return req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-1"}))
	}

	t.Run("routes schedule restore", func(t *testing.T) {
		t.Parallel()

		schedules := &scheduleServiceStub{schedule: application.Schedule{ID: "s1", OwnerID: "user-1", Title: "Meeting"}}
		router := newTestRouter(schedules, &commentServiceStub{})

		req := principalCtx(httptest.NewRequest(http.MethodPost, "/schedules/s1/restore", strings.NewReader(`{"password":"secret-pass"}`)))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
		}
		params, ok := schedules.lastParams.(application.RestoreScheduleParams)
		if !ok || params.ScheduleID != "s1" || params.Password != "secret-pass" {
			t.Fatalf("unexpected restore params: %+v", schedules.lastParams)
		}
	})

	t.Run("routes restoring an active schedule to 409", func(t *testing.T) {
		t.Parallel()

		schedules := &scheduleServiceStub{err: application.ErrConflict}
		router := newTestRouter(schedules, &commentServiceStub{})

		req := principalCtx(httptest.NewRequest(http.MethodPost, "/schedules/s1/restore", strings.NewReader(`{"password":"secret-pass"}`)))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusConflict {
			t.Fatalf("expected status 409, got %d", recorder.Code)
		}
	})

	t.Run("routes nested schedule comments", func(t *testing.T) {
		t.Parallel()

		comments := &commentServiceStub{comment: application.Comment{ID: "c1", AuthorID: "user-1", ScheduleID: "s1", Text: "Hello"}}
		router := newTestRouter(&scheduleServiceStub{}, comments)

		req := principalCtx(httptest.NewRequest(http.MethodPost, "/schedules/s1/comments", strings.NewReader(`{"comment":"Hello"}`)))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", recorder.Code, recorder.Body.String())
		}
		params, ok := comments.lastParams.(application.CreateCommentParams)
		if !ok || params.ScheduleID != "s1" || params.Text != "Hello" {
			t.Fatalf("unexpected comment params: %+v", comments.lastParams)
		}
	})

	t.Run("routes a user's comment history", func(t *testing.T) {
		t.Parallel()

		comments := &commentServiceStub{page: application.CommentPage{Page: 1, Size: 10}}
		router := newTestRouter(&scheduleServiceStub{}, comments)

		req := principalCtx(httptest.NewRequest(http.MethodGet, "/users/user-2/comments", nil))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
		}
		if author, ok := comments.lastParams.(string); !ok || author != "user-2" {
			t.Fatalf("expected listing for user-2, got %+v", comments.lastParams)
		}
	})

	t.Run("routes comment edits and deletes by id", func(t *testing.T) {
		t.Parallel()

		comments := &commentServiceStub{comment: application.Comment{ID: "c1", Text: "Edited"}}
		router := newTestRouter(&scheduleServiceStub{}, comments)

		req := principalCtx(httptest.NewRequest(http.MethodPut, "/comments/c1", strings.NewReader(`{"comment":"Edited"}`)))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected status 200 on edit, got %d", recorder.Code)
		}

		req = principalCtx(httptest.NewRequest(http.MethodDelete, "/comments/c1", strings.NewReader(`{"password":"secret-pass"}`)))
		recorder = httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusNoContent {
			t.Fatalf("expected status 204 on delete, got %d", recorder.Code)
		}
		params, ok := comments.lastParams.(application.DeleteCommentParams)
		if !ok || params.CommentID != "c1" || params.Password != "secret-pass" {
			t.Fatalf("unexpected delete params: %+v", comments.lastParams)
		}
	})

	t.Run("passes pagination query parameters through", func(t *testing.T) {
		t.Parallel()

		schedules := &scheduleServiceStub{page: application.SchedulePage{Page: 2, Size: 5}}
		router := newTestRouter(schedules, &commentServiceStub{})

		req := principalCtx(httptest.NewRequest(http.MethodGet, "/schedules?page=2&size=5", nil))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", recorder.Code)
		}
		page, ok := schedules.lastParams.(application.PageRequest)
		if !ok || page.Page != 2 || page.Size != 5 {
			t.Fatalf("unexpected page request: %+v", schedules.lastParams)
		}
	})

	t.Run("rejects unsupported methods with an Allow header", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&scheduleServiceStub{}, &commentServiceStub{})

		req := principalCtx(httptest.NewRequest(http.MethodPatch, "/schedules", nil))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected status 405, got %d", recorder.Code)
		}
		if allow := recorder.Header().Get("Allow"); !strings.Contains(allow, http.MethodGet) || !strings.Contains(allow, http.MethodPost) {
			t.Fatalf("unexpected Allow header: %q", allow)
		}
	})

	t.Run("returns 404 for unknown schedule subpaths", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&scheduleServiceStub{}, &commentServiceStub{})

		req := principalCtx(httptest.NewRequest(http.MethodGet, "/schedules/s1/unknown", nil))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", recorder.Code)
		}
	})

	t.Run("maps missing schedules to 404", func(t *testing.T) {
		t.Parallel()

		schedules := &scheduleServiceStub{err: application.ErrNotFound}
		router := newTestRouter(schedules, &commentServiceStub{})

		req := principalCtx(httptest.NewRequest(http.MethodGet, "/schedules/ghost", nil))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", recorder.Code)
		}
	})
}
