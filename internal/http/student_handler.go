package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/attendance-engine/internal/application"
)

type studentService interface {
	CreateStudent(ctx context.Context, principal application.Principal, input application.StudentInput) (application.Student, error)
	UpdateStudent(ctx context.Context, principal application.Principal, id string, input application.StudentInput) (application.Student, error)
	GetStudent(ctx context.Context, id string) (application.Student, error)
	ListStudents(ctx context.Context) ([]application.Student, error)
	DeleteStudent(ctx context.Context, principal application.Principal, id string) error
}

type historyService interface {
	History(ctx context.Context, studentID string, lastN int) ([]application.HistoryEntry, error)
}

type warningService interface {
	MonthSummary(ctx context.Context, studentID, month string) (application.WarningSummary, error)
}

type StudentHandler struct {
	students  studentService
	history   historyService
	warnings  warningService
	responder responder
	logger    *slog.Logger
}

func NewStudentHandler(students studentService, history historyService, warnings warningService, logger *slog.Logger) *StudentHandler {
	base := defaultLogger(logger)
	return &StudentHandler{
		students:  students,
		history:   history,
		warnings:  warnings,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *StudentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "StudentHandler", operation, attrs...)
}

func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.students == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	students, err := h.students.ListStudents(r.Context())
	if err != nil {
		h.log(r.Context(), "List", "error_kind", application.ErrorKind(err)).ErrorContext(r.Context(), "failed to list students", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := make([]studentResponse, 0, len(students))
	for _, student := range students {
		payload = append(payload, newStudentResponse(student))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.students == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, nil)
		return
	}

	var req studentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode student request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	student, err := h.students.CreateStudent(r.Context(), principal, req.toInput())
	if err != nil {
		h.log(r.Context(), "Create", "error_kind", application.ErrorKind(err)).ErrorContext(r.Context(), "failed to create student", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "student_id", student.ID).InfoContext(r.Context(), "student created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, newStudentResponse(student))
}

func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.students == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := StudentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidStudentID)
		return
	}

	student, err := h.students.GetStudent(r.Context(), id)
	if err != nil {
		h.log(r.Context(), "Get", "student_id", id, "error_kind", application.ErrorKind(err)).ErrorContext(r.Context(), "failed to load student", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, newStudentResponse(student))
}

func (h *StudentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.students == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, nil)
		return
	}

	id, ok := StudentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidStudentID)
		return
	}

	var req studentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode student request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	student, err := h.students.UpdateStudent(r.Context(), principal, id, req.toInput())
	if err != nil {
		h.log(r.Context(), "Update", "student_id", id, "error_kind", application.ErrorKind(err)).ErrorContext(r.Context(), "failed to update student", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Update", "student_id", id).InfoContext(r.Context(), "student updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newStudentResponse(student))
}

func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.students == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, nil)
		return
	}

	id, ok := StudentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidStudentID)
		return
	}

	if err := h.students.DeleteStudent(r.Context(), principal, id); err != nil {
		h.log(r.Context(), "Delete", "student_id", id, "error_kind", application.ErrorKind(err)).ErrorContext(r.Context(), "failed to delete student", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Delete", "student_id", id).InfoContext(r.Context(), "student deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// History serves the student's resolved records for the last N school days,
// newest first.
func (h *StudentHandler) History(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.history == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := StudentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidStudentID)
		return
	}

	days := 30
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
				Message: "the request contains invalid fields",
				Errors:  map[string]string{"days": "days must be a positive integer"},
			})
			return
		}
		days = parsed
	}

	entries, err := h.history.History(r.Context(), id, days)
	if err != nil {
		h.log(r.Context(), "History", "student_id", id, "error_kind", application.ErrorKind(err)).ErrorContext(r.Context(), "failed to resolve history", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := make([]historyEntryResponse, 0, len(entries))
	for _, entry := range entries {
		payload = append(payload, historyEntryResponse{
			Record:  newDayRecordResponse(entry.Record),
			Flagged: entry.Flagged,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

// Warnings serves the student's absence summary for one month.
func (h *StudentHandler) Warnings(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.warnings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := StudentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidStudentID)
		return
	}

	month := strings.TrimSpace(r.URL.Query().Get("month"))

	summary, err := h.warnings.MonthSummary(r.Context(), id, month)
	if err != nil {
		h.log(r.Context(), "Warnings", "student_id", id, "error_kind", application.ErrorKind(err)).ErrorContext(r.Context(), "failed to summarize month", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, warningSummaryResponse{
		StudentID:           summary.StudentID,
		Month:               summary.Month,
		AbsentDays:          summary.AbsentDays,
		LateDays:            summary.LateDays,
		PermissionDays:      summary.PermissionDays,
		ConsecutiveAbsences: summary.ConsecutiveAbsences,
		Flagged:             summary.Flagged,
	})
}

type studentRequest struct {
	FullName   string  `json:"full_name"`
	ClassKey   string  `json:"class_key"`
	ShiftName  string  `json:"shift_name"`
	Phone      *string `json:"phone"`
	EnrolledOn string  `json:"enrolled_on"`
}

func (r studentRequest) toInput() application.StudentInput {
	return application.StudentInput{
		FullName:   r.FullName,
		ClassKey:   r.ClassKey,
		ShiftName:  r.ShiftName,
		Phone:      r.Phone,
		EnrolledOn: r.EnrolledOn,
	}
}

type studentResponse struct {
	ID         string  `json:"id"`
	FullName   string  `json:"full_name"`
	ClassKey   string  `json:"class_key"`
	ShiftName  string  `json:"shift_name"`
	Phone      *string `json:"phone,omitempty"`
	EnrolledOn string  `json:"enrolled_on"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

func newStudentResponse(student application.Student) studentResponse {
	return studentResponse{
		ID:         student.ID,
		FullName:   student.FullName,
		ClassKey:   student.ClassKey,
		ShiftName:  student.ShiftName,
		Phone:      student.Phone,
		EnrolledOn: string(student.EnrolledOn),
		CreatedAt:  student.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:  student.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type historyEntryResponse struct {
	Record  dayRecordResponse `json:"record"`
	Flagged bool              `json:"flagged"`
}

type warningSummaryResponse struct {
	StudentID           string `json:"student_id"`
	Month               string `json:"month"`
	AbsentDays          int    `json:"absent_days"`
	LateDays            int    `json:"late_days"`
	PermissionDays      int    `json:"permission_days"`
	ConsecutiveAbsences int    `json:"consecutive_absences"`
	Flagged             bool   `json:"flagged"`
}
