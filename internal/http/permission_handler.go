package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/attendance-engine/internal/application"
)

type permissionService interface {
	Submit(ctx context.Context, input application.PermissionInput) (application.Permission, error)
	Review(ctx context.Context, principal application.Principal, id string, approve bool) (application.Permission, error)
	ListForStudent(ctx context.Context, studentID string) ([]application.Permission, error)
}

type PermissionHandler struct {
	service   permissionService
	responder responder
	logger    *slog.Logger
}

func NewPermissionHandler(service permissionService, logger *slog.Logger) *PermissionHandler {
	base := defaultLogger(logger)
	return &PermissionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PermissionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PermissionHandler", operation, attrs...)
}

// Submit registers a new absence-permission request in the pending state.
func (h *PermissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req permissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Submit", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode permission request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Submit", "student_id", req.StudentID)

	permission, err := h.service.Submit(r.Context(), application.PermissionInput{
		StudentID: req.StudentID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Note:      req.Note,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "permission rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("permission_id", permission.ID).InfoContext(r.Context(), "permission submitted")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, newPermissionResponse(permission))
}

// Review approves or rejects a pending permission request.
func (h *PermissionHandler) Review(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, nil)
		return
	}

	id, ok := PermissionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPermissionID)
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Review", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode review request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if req.Approve == nil {
		h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
			Message: "the request contains invalid fields",
			Errors:  map[string]string{"approve": "approve is required"},
		})
		return
	}

	logger := h.log(r.Context(), "Review", "permission_id", id, "actor_id", principal.OperatorID)

	permission, err := h.service.Review(r.Context(), principal, id, *req.Approve)
	if err != nil {
		logger.ErrorContext(r.Context(), "review rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", string(permission.Status)).InfoContext(r.Context(), "permission reviewed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newPermissionResponse(permission))
}

// ListForStudent serves every permission request filed for one student,
// newest first.
func (h *PermissionHandler) ListForStudent(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := StudentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidStudentID)
		return
	}

	permissions, err := h.service.ListForStudent(r.Context(), id)
	if err != nil {
		h.log(r.Context(), "ListForStudent", "student_id", id, "error_kind", application.ErrorKind(err)).ErrorContext(r.Context(), "failed to list permissions", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := make([]permissionResponse, 0, len(permissions))
	for _, permission := range permissions {
		payload = append(payload, newPermissionResponse(permission))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

type permissionRequest struct {
	StudentID string  `json:"student_id"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Note      *string `json:"note"`
}

type reviewRequest struct {
	Approve *bool `json:"approve"`
}

type permissionResponse struct {
	ID        string  `json:"id"`
	StudentID string  `json:"student_id"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Status    string  `json:"status"`
	Note      *string `json:"note,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func newPermissionResponse(permission application.Permission) permissionResponse {
	return permissionResponse{
		ID:        permission.ID,
		StudentID: permission.StudentID,
		StartDate: string(permission.StartDate),
		EndDate:   string(permission.EndDate),
		Status:    string(permission.Status),
		Note:      permission.Note,
		CreatedAt: permission.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: permission.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
