package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/schedule-board/internal/application"
)

type commentService interface {
	CreateComment(ctx context.Context, params application.CreateCommentParams) (application.Comment, error)
	ListCommentsBySchedule(ctx context.Context, scheduleID string, page application.PageRequest) (application.CommentPage, error)
	ListCommentsByAuthor(ctx context.Context, authorID string, page application.PageRequest) (application.CommentPage, error)
	UpdateComment(ctx context.Context, params application.UpdateCommentParams) (application.Comment, error)
	DeleteComment(ctx context.Context, params application.DeleteCommentParams) error
}

type CommentHandler struct {
	service   commentService
	responder responder
	logger    *slog.Logger
}

func NewCommentHandler(service commentService, logger *slog.Logger) *CommentHandler {
	base := defaultLogger(logger)
	return &CommentHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CommentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CommentHandler", operation, attrs...)
}

// CreateForSchedule attaches a new comment to the schedule in the path.
func (h *CommentHandler) CreateForSchedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.log(r.Context(), "CreateForSchedule", "error_kind", "bad_request").ErrorContext(r.Context(), "missing schedule id for comment creation")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateForSchedule", "principal_id", principal.UserID, "schedule_id", scheduleID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode comment request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "CreateForSchedule", "principal_id", principal.UserID, "schedule_id", scheduleID)

	comment, err := h.service.CreateComment(r.Context(), application.CreateCommentParams{
		Principal:  principal,
		ScheduleID: scheduleID,
		Text:       req.Comment,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "comment creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("comment_id", comment.ID).InfoContext(r.Context(), "comment created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, commentResponse{Comment: toCommentDTO(comment)})
}

// ListForSchedule returns one page of active comments on the schedule.
func (h *CommentHandler) ListForSchedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.log(r.Context(), "ListForSchedule", "error_kind", "bad_request").ErrorContext(r.Context(), "missing schedule id for comment listing")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	logger := h.log(r.Context(), "ListForSchedule", "schedule_id", scheduleID)

	page, err := h.service.ListCommentsBySchedule(r.Context(), scheduleID, pageRequestFromQuery(r))
	if err != nil {
		logger.ErrorContext(r.Context(), "comment listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toCommentPageDTO(page))
}

// ListByAuthor returns one page of active comments written by the user in
// the path, across every schedule.
func (h *CommentHandler) ListByAuthor(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	authorID, ok := UserIDFromContext(r.Context())
	if !ok || strings.TrimSpace(authorID) == "" {
		h.log(r.Context(), "ListByAuthor", "error_kind", "bad_request").ErrorContext(r.Context(), "missing user id for comment listing")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	logger := h.log(r.Context(), "ListByAuthor", "author_id", authorID)

	page, err := h.service.ListCommentsByAuthor(r.Context(), authorID, pageRequestFromQuery(r))
	if err != nil {
		logger.ErrorContext(r.Context(), "comment listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toCommentPageDTO(page))
}

// Update edits a comment. Only the author may edit; no password is required.
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	commentID, ok := CommentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(commentID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing comment id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCommentID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "comment_id", commentID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode comment update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "comment_id", commentID)

	comment, err := h.service.UpdateComment(r.Context(), application.UpdateCommentParams{
		Principal: principal,
		CommentID: commentID,
		Text:      req.Comment,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "comment update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "comment updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, commentResponse{Comment: toCommentDTO(comment)})
}

// Delete soft deletes a comment after verifying the author's password.
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	commentID, ok := CommentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(commentID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing comment id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCommentID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Delete", "principal_id", principal.UserID, "comment_id", commentID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode delete request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "comment_id", commentID)

	if err := h.service.DeleteComment(r.Context(), application.DeleteCommentParams{
		Principal: principal,
		CommentID: commentID,
		Password:  req.Password,
	}); err != nil {
		logger.ErrorContext(r.Context(), "comment delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "comment soft deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type commentRequest struct {
	Comment string `json:"comment"`
}

type commentDTO struct {
	ID         string `json:"id"`
	AuthorID   string `json:"author_id"`
	ScheduleID string `json:"schedule_id"`
	Comment    string `json:"comment"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type commentResponse struct {
	Comment commentDTO `json:"comment"`
}

type commentPageResponse struct {
	Comments []commentDTO `json:"comments"`
	Page     int          `json:"page"`
	Size     int          `json:"size"`
	Total    int          `json:"total"`
}

func toCommentDTO(comment application.Comment) commentDTO {
	return commentDTO{
		ID:         comment.ID,
		AuthorID:   comment.AuthorID,
		ScheduleID: comment.ScheduleID,
		Comment:    comment.Text,
		CreatedAt:  comment.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:  comment.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toCommentPageDTO(page application.CommentPage) commentPageResponse {
	comments := make([]commentDTO, 0, len(page.Comments))
	for _, comment := range page.Comments {
		comments = append(comments, toCommentDTO(comment))
	}
	return commentPageResponse{
		Comments: comments,
		Page:     page.Page,
		Size:     page.Size,
		Total:    page.Total,
	}
}
