package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/schedule-board/internal/application"
)

// SessionValidator resolves a session token into an authenticated principal.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (application.Principal, error)
}

// SessionExtender pushes a session expiry forward without validating it.
type SessionExtender interface {
	ExtendSession(ctx context.Context, token string) error
}

// DefaultAllowList names the paths reachable without a session. Entries may
// end in "*" to match any suffix.
var DefaultAllowList = []string{"/", "/users/signup", "/users/login"}

// RequireSession gates every request behind a valid session except the paths
// on the allow list. The resolved principal and token are attached to the
// request context for downstream handlers.
func RequireSession(validator SessionValidator, allowList []string, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)
	if allowList == nil {
		allowList = DefaultAllowList
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if matchesAllowList(allowList, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token := extractTokenFromRequest(r)
			if token == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
				return
			}

			principal, err := validator.ValidateSession(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, application.ErrSessionExpired):
					responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{
						ErrorCode: "AUTH_SESSION_EXPIRED",
						Message:   "セッションの有効期限が切れました。再度ログインしてください。",
					})
				case errors.Is(err, application.ErrUnauthorized), errors.Is(err, application.ErrNotFound):
					responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Message: "セッションが無効です。再度ログインしてください。"})
				default:
					responder.writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Message: "セッション検証中にエラーが発生しました。"})
				}
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			ctx = ContextWithSessionToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// matchesAllowList reports whether the path is reachable without a session.
// "/" matches only the root; a trailing "*" matches any suffix.
func matchesAllowList(allowList []string, path string) bool {
	for _, pattern := range allowList {
		if pattern == path {
			return true
		}
		if strings.HasSuffix(pattern, "*") && strings.HasPrefix(path, strings.TrimSuffix(pattern, "*")) {
			return true
		}
	}
	return false
}

// SlidingExpiry extends the validated session after the wrapped handler has
// completed with a success status. Failed requests never move the expiry, so
// the gate alone can never keep a session alive.
func SlidingExpiry(extender SessionExtender, logger *slog.Logger) func(http.Handler) http.Handler {
	base := defaultLogger(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := SessionTokenFromContext(r.Context())
			if !ok || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			recorder := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(recorder, r)

			if recorder.status() >= http.StatusBadRequest {
				return
			}
			if err := extender.ExtendSession(r.Context(), token); err != nil {
				base.ErrorContext(r.Context(), "failed to extend session", "error", err, "error_kind", application.ErrorKind(err))
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code    int
	written bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.written {
		r.code = code
		r.written = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if !r.written {
		r.code = http.StatusOK
		r.written = true
	}
	return r.ResponseWriter.Write(p)
}

func (r *statusRecorder) status() int {
	if !r.written {
		return http.StatusOK
	}
	return r.code
}

// RequestLogger attaches a request-scoped logger carrying a request id,
// method, and path, and logs start and completion of the request.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}
