package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/attendance-engine/internal/application"
)

type notificationService interface {
	RunShift(ctx context.Context, shiftName string) (application.RunResult, error)
}

type NotificationHandler struct {
	service   notificationService
	responder responder
	logger    *slog.Logger
}

func NewNotificationHandler(service notificationService, logger *slog.Logger) *NotificationHandler {
	base := defaultLogger(logger)
	return &NotificationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *NotificationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "NotificationHandler", operation, attrs...)
}

// Run triggers an absence-notification sweep for one shift on demand.
func (h *NotificationHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, nil)
		return
	}

	shiftName := strings.TrimSpace(r.URL.Query().Get("shift"))
	if shiftName == "" {
		h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
			Message: "the request contains invalid fields",
			Errors:  map[string]string{"shift": "shift is required"},
		})
		return
	}

	logger := h.log(r.Context(), "Run", "shift_name", shiftName, "actor_id", principal.OperatorID)

	result, err := h.service.RunShift(r.Context(), shiftName)
	if err != nil {
		logger.ErrorContext(r.Context(), "notification run failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("notified", result.Notified, "failed", result.Failed).InfoContext(r.Context(), "notification run completed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, runResultResponse{
		ShiftName: result.ShiftName,
		Date:      string(result.Date),
		Notified:  result.Notified,
		Failed:    result.Failed,
	})
}

type runResultResponse struct {
	ShiftName string `json:"shift_name"`
	Date      string `json:"date"`
	Notified  int    `json:"notified"`
	Failed    int    `json:"failed"`
}
