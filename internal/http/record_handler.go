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
	"github.com/example/attendance-engine/internal/calendar"
)

type recordService interface {
	CheckIn(ctx context.Context, params application.CheckInParams) (application.CheckInEvent, error)
	EditTimestamp(ctx context.Context, params application.EditTimestampParams) (application.EditTimestampResult, error)
}

type tableService interface {
	ClassDay(ctx context.Context, classKey, shiftName string, date calendar.Date) (application.ClassDayResult, error)
	ResolveDay(ctx context.Context, studentID string, date calendar.Date) (application.HistoryEntry, error)
}

type RecordHandler struct {
	records   recordService
	tables    tableService
	responder responder
	logger    *slog.Logger
}

func NewRecordHandler(records recordService, tables tableService, logger *slog.Logger) *RecordHandler {
	base := defaultLogger(logger)
	return &RecordHandler{
		records:   records,
		tables:    tables,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *RecordHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RecordHandler", operation, attrs...)
}

// CreateCheckIn records a device-captured attendance event.
func (h *RecordHandler) CreateCheckIn(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.records == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateCheckIn", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode check-in request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	timestamp, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
			Message: "the request contains invalid fields",
			Errors:  map[string]string{"timestamp": "timestamp must be an RFC 3339 datetime"},
		})
		return
	}

	logger := h.log(r.Context(), "CreateCheckIn", "student_id", req.StudentID)

	event, err := h.records.CheckIn(r.Context(), application.CheckInParams{
		StudentID: req.StudentID,
		Timestamp: timestamp,
		Method:    attendance.Method(req.Method),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "check-in rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("event_id", event.ID, "date", string(event.Date)).InfoContext(r.Context(), "check-in recorded")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, newCheckInEventResponse(event))
}

// ClassDay serves the resolved attendance table for one class shift on one
// date. Flagged rows sort first.
func (h *RecordHandler) ClassDay(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.tables == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	classKey := strings.TrimSpace(query.Get("class"))
	shiftName := strings.TrimSpace(query.Get("shift"))
	rawDate := strings.TrimSpace(query.Get("date"))

	fieldErrors := map[string]string{}
	if classKey == "" {
		fieldErrors["class"] = "class is required"
	}
	if shiftName == "" {
		fieldErrors["shift"] = "shift is required"
	}
	date, err := calendar.ParseDate(rawDate)
	if err != nil {
		fieldErrors["date"] = errInvalidDate.Error()
	}
	if len(fieldErrors) > 0 {
		h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
			Message: "the request contains invalid fields",
			Errors:  fieldErrors,
		})
		return
	}

	result, err := h.tables.ClassDay(r.Context(), classKey, shiftName, date)
	if err != nil {
		h.log(r.Context(), "ClassDay", "class_key", classKey, "shift_name", shiftName, "error_kind", application.ErrorKind(err)).ErrorContext(r.Context(), "failed to resolve class table", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, newClassDayResponse(result))
}

// Day serves the resolved record for one student on one date.
func (h *RecordHandler) Day(w http.ResponseWriter, r *http.Request, studentID, rawDate string) {
	if h == nil || h.tables == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if strings.TrimSpace(studentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidStudentID)
		return
	}
	date, err := calendar.ParseDate(rawDate)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	entry, err := h.tables.ResolveDay(r.Context(), studentID, date)
	if err != nil {
		h.log(r.Context(), "Day", "student_id", studentID, "date", rawDate, "error_kind", application.ErrorKind(err)).ErrorContext(r.Context(), "failed to resolve day", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, historyEntryResponse{
		Record:  newDayRecordResponse(entry.Record),
		Flagged: entry.Flagged,
	})
}

// EditTimestamp lets an operator correct one student's check-in time for one
// date. The previous event is superseded, not overwritten.
func (h *RecordHandler) EditTimestamp(w http.ResponseWriter, r *http.Request, studentID, rawDate string) {
	if h == nil || h.records == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, nil)
		return
	}

	if strings.TrimSpace(studentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidStudentID)
		return
	}

	var req editTimestampRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "EditTimestamp", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode edit request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	timestamp, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
			Message: "the request contains invalid fields",
			Errors:  map[string]string{"timestamp": "timestamp must be an RFC 3339 datetime"},
		})
		return
	}

	logger := h.log(r.Context(), "EditTimestamp", "student_id", studentID, "date", rawDate, "actor_id", principal.OperatorID)

	result, err := h.records.EditTimestamp(r.Context(), application.EditTimestampParams{
		Principal: principal,
		StudentID: studentID,
		Date:      rawDate,
		Timestamp: timestamp,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "edit rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("event_id", result.Event.ID).InfoContext(r.Context(), "timestamp corrected")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, editTimestampResponse{
		Event:  newCheckInEventResponse(result.Event),
		Record: newDayRecordResponse(result.Record),
	})
}

type checkInRequest struct {
	StudentID string `json:"student_id"`
	Timestamp string `json:"timestamp"`
	Method    string `json:"method"`
}

type editTimestampRequest struct {
	Timestamp string `json:"timestamp"`
}

type checkInEventResponse struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"`
	Date      string `json:"date"`
	Timestamp string `json:"timestamp"`
	Method    string `json:"method"`
}

func newCheckInEventResponse(event application.CheckInEvent) checkInEventResponse {
	return checkInEventResponse{
		ID:        event.ID,
		StudentID: event.StudentID,
		Date:      string(event.Date),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Method:    string(event.Method),
	}
}

type dayRecordResponse struct {
	StudentID     string  `json:"student_id"`
	Date          string  `json:"date"`
	Status        string  `json:"status"`
	CheckInTime   *string `json:"check_in_time,omitempty"`
	MinutesOffset *int    `json:"minutes_offset,omitempty"`
	Reason        string  `json:"reason,omitempty"`
}

func newDayRecordResponse(record attendance.DayRecord) dayRecordResponse {
	resp := dayRecordResponse{
		StudentID:     record.StudentID,
		Date:          string(record.Date),
		Status:        string(record.Status),
		MinutesOffset: record.MinutesOffset,
		Reason:        string(record.Reason),
	}
	if record.CheckInTime != nil {
		formatted := record.CheckInTime.In(calendar.Location()).Format(time.RFC3339)
		resp.CheckInTime = &formatted
	}
	return resp
}

type tableRowResponse struct {
	StudentID string            `json:"student_id"`
	FullName  string            `json:"full_name"`
	Record    dayRecordResponse `json:"record"`
	Flagged   bool              `json:"flagged"`
}

type classDayResponse struct {
	ClassKey  string             `json:"class_key"`
	ShiftName string             `json:"shift_name"`
	Date      string             `json:"date"`
	SchoolDay bool               `json:"school_day"`
	Rows      []tableRowResponse `json:"rows"`
}

func newClassDayResponse(result application.ClassDayResult) classDayResponse {
	rows := make([]tableRowResponse, 0, len(result.Rows))
	for _, row := range result.Rows {
		rows = append(rows, tableRowResponse{
			StudentID: row.StudentID,
			FullName:  row.FullName,
			Record:    newDayRecordResponse(row.Record),
			Flagged:   row.Flagged,
		})
	}
	return classDayResponse{
		ClassKey:  result.ClassKey,
		ShiftName: result.ShiftName,
		Date:      string(result.Date),
		SchoolDay: result.SchoolDay,
		Rows:      rows,
	}
}

type editTimestampResponse struct {
	Event  checkInEventResponse `json:"event"`
	Record dayRecordResponse    `json:"record"`
}
