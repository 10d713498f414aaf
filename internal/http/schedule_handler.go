package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/schedule-board/internal/application"
)

type scheduleService interface {
	CreateSchedule(ctx context.Context, params application.CreateScheduleParams) (application.Schedule, error)
	GetSchedule(ctx context.Context, principal application.Principal, scheduleID string) (application.Schedule, error)
	ListSchedules(ctx context.Context, principal application.Principal, page application.PageRequest) (application.SchedulePage, error)
	UpdateSchedule(ctx context.Context, params application.UpdateScheduleParams) (application.Schedule, error)
	DeleteSchedule(ctx context.Context, params application.DeleteScheduleParams) error
	RestoreSchedule(ctx context.Context, params application.RestoreScheduleParams) (application.Schedule, error)
}

type ScheduleHandler struct {
	service   scheduleService
	responder responder
	logger    *slog.Logger
}

func NewScheduleHandler(service scheduleService, logger *slog.Logger) *ScheduleHandler {
	base := defaultLogger(logger)
	return &ScheduleHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ScheduleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ScheduleHandler", operation, attrs...)
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode schedule request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	schedule, err := h.service.CreateSchedule(r.Context(), application.CreateScheduleParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "schedule creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("schedule_id", schedule.ID).InfoContext(r.Context(), "schedule created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, scheduleResponse{Schedule: toScheduleDTO(schedule)})
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	page, err := h.service.ListSchedules(r.Context(), principal, pageRequestFromQuery(r))
	if err != nil {
		logger.ErrorContext(r.Context(), "schedule listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSchedulePageDTO(page))
}

func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.log(r.Context(), "Get", "error_kind", "bad_request").ErrorContext(r.Context(), "missing schedule id for lookup")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Get", "principal_id", principal.UserID, "schedule_id", scheduleID)

	schedule, err := h.service.GetSchedule(r.Context(), principal, scheduleID)
	if err != nil {
		logger.ErrorContext(r.Context(), "schedule lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Schedule: toScheduleDTO(schedule)})
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing schedule id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "schedule_id", scheduleID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode schedule update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "schedule_id", scheduleID)

	schedule, err := h.service.UpdateSchedule(r.Context(), application.UpdateScheduleParams{
		Principal:  principal,
		ScheduleID: scheduleID,
		Input:      req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "schedule update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "schedule updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Schedule: toScheduleDTO(schedule)})
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing schedule id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Delete", "principal_id", principal.UserID, "schedule_id", scheduleID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode delete request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "schedule_id", scheduleID)

	if err := h.service.DeleteSchedule(r.Context(), application.DeleteScheduleParams{
		Principal:  principal,
		ScheduleID: scheduleID,
		Password:   req.Password,
	}); err != nil {
		logger.ErrorContext(r.Context(), "schedule delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "schedule soft deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ScheduleHandler) Restore(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.log(r.Context(), "Restore", "error_kind", "bad_request").ErrorContext(r.Context(), "missing schedule id for restore")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Restore", "principal_id", principal.UserID, "schedule_id", scheduleID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode restore request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Restore", "principal_id", principal.UserID, "schedule_id", scheduleID)

	schedule, err := h.service.RestoreSchedule(r.Context(), application.RestoreScheduleParams{
		Principal:  principal,
		ScheduleID: scheduleID,
		Password:   req.Password,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "schedule restore failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "schedule restored")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Schedule: toScheduleDTO(schedule)})
}

type scheduleRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

func (req scheduleRequest) toInput() application.ScheduleInput {
	input := application.ScheduleInput{
		Title:   req.Title,
		Content: req.Content,
	}
	if t, err := time.Parse(time.RFC3339, req.Start); err == nil {
		input.Start = t
	}
	if t, err := time.Parse(time.RFC3339, req.End); err == nil {
		input.End = t
	}
	return input
}

type scheduleDTO struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Title     string `json:"title"`
	Content   string `json:"content,omitempty"`
	Start     string `json:"start"`
	End       string `json:"end"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type scheduleResponse struct {
	Schedule scheduleDTO `json:"schedule"`
}

type schedulePageResponse struct {
	Schedules []scheduleDTO `json:"schedules"`
	Page      int           `json:"page"`
	Size      int           `json:"size"`
	Total     int           `json:"total"`
}

func toScheduleDTO(schedule application.Schedule) scheduleDTO {
	return scheduleDTO{
		ID:        schedule.ID,
		OwnerID:   schedule.OwnerID,
		Title:     schedule.Title,
		Content:   schedule.Content,
		Start:     schedule.Start.UTC().Format(time.RFC3339Nano),
		End:       schedule.End.UTC().Format(time.RFC3339Nano),
		CreatedAt: schedule.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: schedule.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toSchedulePageDTO(page application.SchedulePage) schedulePageResponse {
	schedules := make([]scheduleDTO, 0, len(page.Schedules))
	for _, schedule := range page.Schedules {
		schedules = append(schedules, toScheduleDTO(schedule))
	}
	return schedulePageResponse{
		Schedules: schedules,
		Page:      page.Page,
		Size:      page.Size,
		Total:     page.Total,
	}
}

// pageRequestFromQuery reads the page and size query parameters. Out of range
// values are left to the service's clamping.
func pageRequestFromQuery(r *http.Request) application.PageRequest {
	var page application.PageRequest
	query := r.URL.Query()
	if raw := query.Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			page.Page = n
		}
	}
	if raw := query.Get("size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			page.Size = n
		}
	}
	return page
}
