package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/attendance"
)

type scheduleService interface {
	ListShiftSchedules(ctx context.Context) ([]attendance.ShiftConfig, error)
	UpsertShiftSchedule(ctx context.Context, principal application.Principal, input application.ShiftScheduleInput) error
	UpsertClassConfig(ctx context.Context, principal application.Principal, input application.ClassConfigInput) error
	DeleteShiftSchedule(ctx context.Context, principal application.Principal, classKey, shiftName string) error
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

func (h *ScheduleHandler) ListShifts(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	shifts, err := h.service.ListShiftSchedules(r.Context())
	if err != nil {
		h.log(r.Context(), "ListShifts", "error_kind", application.ErrorKind(err)).ErrorContext(r.Context(), "failed to list shift schedules", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := make([]shiftScheduleResponse, 0, len(shifts))
	for _, shift := range shifts {
		payload = append(payload, shiftScheduleResponse{
			ClassKey:          shift.ClassKey,
			ShiftName:         shift.ShiftName,
			StartTime:         shift.StartTime,
			GraceMinutes:      shift.GraceMinutes,
			LateWindowMinutes: shift.LateWindowMinutes,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

func (h *ScheduleHandler) UpsertShift(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, nil)
		return
	}

	var req shiftScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "UpsertShift", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode shift schedule", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpsertShift", "class_key", req.ClassKey, "shift_name", req.ShiftName, "actor_id", principal.OperatorID)

	err := h.service.UpsertShiftSchedule(r.Context(), principal, application.ShiftScheduleInput{
		ClassKey:          req.ClassKey,
		ShiftName:         req.ShiftName,
		StartTime:         req.StartTime,
		GraceMinutes:      req.GraceMinutes,
		LateWindowMinutes: req.LateWindowMinutes,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "shift schedule rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "shift schedule stored")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ScheduleHandler) UpsertClass(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, nil)
		return
	}

	var req classConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "UpsertClass", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode class config", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	studyDays := make([]time.Weekday, 0, len(req.StudyDays))
	for _, day := range req.StudyDays {
		studyDays = append(studyDays, time.Weekday(day))
	}

	logger := h.log(r.Context(), "UpsertClass", "class_key", req.ClassKey, "actor_id", principal.OperatorID)

	err := h.service.UpsertClassConfig(r.Context(), principal, application.ClassConfigInput{
		ClassKey:  req.ClassKey,
		Name:      req.Name,
		StudyDays: studyDays,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "class config rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "class config stored")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ScheduleHandler) DeleteShift(w http.ResponseWriter, r *http.Request, classKey, shiftName string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, nil)
		return
	}

	if strings.TrimSpace(classKey) == "" || strings.TrimSpace(shiftName) == "" {
		h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
			Message: "the request contains invalid fields",
			Errors:  map[string]string{"path": "class key and shift name are required"},
		})
		return
	}

	logger := h.log(r.Context(), "DeleteShift", "class_key", classKey, "shift_name", shiftName, "actor_id", principal.OperatorID)

	if err := h.service.DeleteShiftSchedule(r.Context(), principal, classKey, shiftName); err != nil {
		logger.ErrorContext(r.Context(), "shift schedule deletion rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "shift schedule deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type shiftScheduleRequest struct {
	ClassKey          string `json:"class_key"`
	ShiftName         string `json:"shift_name"`
	StartTime         string `json:"start_time"`
	GraceMinutes      int    `json:"grace_minutes"`
	LateWindowMinutes int    `json:"late_window_minutes"`
}

type shiftScheduleResponse struct {
	ClassKey          string `json:"class_key"`
	ShiftName         string `json:"shift_name"`
	StartTime         string `json:"start_time"`
	GraceMinutes      int    `json:"grace_minutes"`
	LateWindowMinutes int    `json:"late_window_minutes"`
}

type classConfigRequest struct {
	ClassKey  string `json:"class_key"`
	Name      string `json:"name"`
	StudyDays []int  `json:"study_days"`
}
