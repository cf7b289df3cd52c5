package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/attendance-engine/internal/attendance"
	"github.com/example/attendance-engine/internal/calendar"
)

// RecordService captures check-in events and applies manual corrections.
// Corrections never rewrite history in place; they append a manual event and
// soft-delete the superseded one, so the raw event log stays append-only.
type RecordService struct {
	checkIns    CheckInStore
	students    StudentStore
	reconciler  *ReconcilerService
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRecordService constructs a RecordService.
func NewRecordService(checkIns CheckInStore, students StudentStore, reconciler *ReconcilerService, idGenerator func() string, now func() time.Time) *RecordService {
	return NewRecordServiceWithLogger(checkIns, students, reconciler, idGenerator, now, nil)
}

// NewRecordServiceWithLogger constructs a RecordService with a specified logger.
func NewRecordServiceWithLogger(checkIns CheckInStore, students StudentStore, reconciler *ReconcilerService, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RecordService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = func() time.Time { return time.Now().In(calendar.Location()) }
	}
	return &RecordService{
		checkIns:    checkIns,
		students:    students,
		reconciler:  reconciler,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *RecordService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RecordService", operation, attrs...)
}

// CheckInParams wraps a captured check-in.
type CheckInParams struct {
	StudentID string
	Timestamp time.Time
	Method    attendance.Method
}

// CheckIn records a check-in event for the student. A repeated check-in on
// the same day is accepted and becomes the authoritative event, which keeps
// the capture path idempotent for retrying devices.
func (s *RecordService) CheckIn(ctx context.Context, params CheckInParams) (event CheckInEvent, err error) {
	logger := s.loggerWith(ctx, "CheckIn",
		"student_id", params.StudentID,
		"method", string(params.Method),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "check-in failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", event.ID, "date", string(event.Date)).InfoContext(ctx, "check-in recorded")
	}()

	verr := &ValidationError{}
	if strings.TrimSpace(params.StudentID) == "" {
		verr.add("student_id", "is required")
	}
	switch params.Method {
	case attendance.MethodQR, attendance.MethodFace, attendance.MethodManual, attendance.MethodRequest:
	default:
		verr.add("method", "must be one of qr, face, manual, request")
	}
	if params.Timestamp.IsZero() {
		verr.add("timestamp", "is required")
	}
	if verr.HasErrors() {
		err = verr
		return
	}

	now := s.now()
	if params.Timestamp.After(now) {
		err = ErrFutureTimestamp
		return
	}

	student, err := s.students.GetStudent(ctx, params.StudentID)
	if err != nil {
		return
	}

	localTS := params.Timestamp.In(calendar.Location())
	event = CheckInEvent{
		ID:        s.idGenerator(),
		StudentID: student.ID,
		ClassKey:  student.ClassKey,
		ShiftName: student.ShiftName,
		Date:      calendar.DateOf(localTS),
		Timestamp: localTS,
		Method:    params.Method,
		CreatedAt: now,
	}
	if err = s.checkIns.CreateCheckIn(ctx, event); err != nil {
		event = CheckInEvent{}
		return
	}
	return
}

// EditTimestamp applies a manual correction to a student's day. The previous
// authoritative event, if any, is soft-deleted and a manual event with the
// corrected timestamp is appended, then the day is re-resolved.
func (s *RecordService) EditTimestamp(ctx context.Context, params EditTimestampParams) (result EditTimestampResult, err error) {
	logger := s.loggerWith(ctx, "EditTimestamp",
		"operator_id", params.Principal.OperatorID,
		"student_id", params.StudentID,
		"date", params.Date,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "timestamp edit failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", result.Event.ID, "status", string(result.Record.Status)).
			InfoContext(ctx, "timestamp edited")
	}()

	if params.Principal.OperatorID == "" {
		err = ErrUnauthorized
		return
	}

	date, derr := calendar.ParseDate(params.Date)
	if derr != nil {
		verr := &ValidationError{}
		verr.add("date", "must be a valid YYYY-MM-DD date")
		err = verr
		return
	}
	if params.Timestamp.IsZero() {
		verr := &ValidationError{}
		verr.add("timestamp", "is required")
		err = verr
		return
	}

	now := s.now()
	if params.Timestamp.After(now) {
		err = ErrFutureTimestamp
		return
	}

	localTS := params.Timestamp.In(calendar.Location())
	if calendar.DateOf(localTS) != date {
		verr := &ValidationError{}
		verr.add("timestamp", "must fall on the edited date")
		err = verr
		return
	}

	student, err := s.students.GetStudent(ctx, params.StudentID)
	if err != nil {
		return
	}

	previous, perr := s.checkIns.LatestForStudentDate(ctx, student.ID, date)
	switch {
	case perr == nil:
		if err = s.checkIns.MarkDeleted(ctx, previous.ID); err != nil {
			return
		}
	case errors.Is(perr, ErrNotFound):
	default:
		err = perr
		return
	}

	event := CheckInEvent{
		ID:        s.idGenerator(),
		StudentID: student.ID,
		ClassKey:  student.ClassKey,
		ShiftName: student.ShiftName,
		Date:      date,
		Timestamp: localTS,
		Method:    attendance.MethodManual,
		CreatedAt: now,
	}
	if err = s.checkIns.CreateCheckIn(ctx, event); err != nil {
		return
	}

	entry, err := s.reconciler.ResolveDay(ctx, student.ID, date)
	if err != nil {
		return
	}
	result = EditTimestampResult{Event: event, Record: entry.Record}
	return
}
