package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/attendance-engine/internal/attendance"
	"github.com/example/attendance-engine/internal/calendar"
)

// StudentStore exposes the student lookups the resolution services need.
type StudentStore interface {
	CreateStudent(ctx context.Context, student Student) error
	UpdateStudent(ctx context.Context, student Student) error
	GetStudent(ctx context.Context, id string) (Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	ListStudentsByClassShift(ctx context.Context, classKey, shiftName string) ([]Student, error)
	DeleteStudent(ctx context.Context, id string) error
}

// CheckInStore exposes check-in event persistence.
type CheckInStore interface {
	CreateCheckIn(ctx context.Context, event CheckInEvent) error
	LatestForStudentDate(ctx context.Context, studentID string, date calendar.Date) (CheckInEvent, error)
	ListForStudentRange(ctx context.Context, studentID string, start, end calendar.Date) ([]CheckInEvent, error)
	MarkDeleted(ctx context.Context, id string) error
}

// PermissionStore exposes absence-permission persistence.
type PermissionStore interface {
	CreatePermission(ctx context.Context, permission Permission) error
	GetPermission(ctx context.Context, id string) (Permission, error)
	UpdatePermissionStatus(ctx context.Context, id string, status attendance.PermissionStatus, updatedAt time.Time) error
	ListPermissionsForStudent(ctx context.Context, studentID string) ([]Permission, error)
	ListApprovedForStudent(ctx context.Context, studentID string) ([]Permission, error)
}

// HolidayProvider supplies the current holiday snapshot.
type HolidayProvider interface {
	Snapshot() *calendar.Holidays
}

// ReconcilerService resolves derived day records on demand. Records are never
// stored; every query re-runs classification against the raw events, the
// permission overlay, and the current schedule registry.
type ReconcilerService struct {
	students    StudentStore
	checkIns    CheckInStore
	permissions PermissionStore
	registry    *RegistryProvider
	holidays    HolidayProvider
	classifier  *attendance.Classifier
	detector    *attendance.Detector
	now         func() time.Time
	logger      *slog.Logger
}

// NewReconcilerService constructs a ReconcilerService.
func NewReconcilerService(students StudentStore, checkIns CheckInStore, permissions PermissionStore, registry *RegistryProvider, holidays HolidayProvider, detector *attendance.Detector, now func() time.Time) *ReconcilerService {
	return NewReconcilerServiceWithLogger(students, checkIns, permissions, registry, holidays, detector, now, nil)
}

// NewReconcilerServiceWithLogger constructs a ReconcilerService with a specified logger.
func NewReconcilerServiceWithLogger(students StudentStore, checkIns CheckInStore, permissions PermissionStore, registry *RegistryProvider, holidays HolidayProvider, detector *attendance.Detector, now func() time.Time, logger *slog.Logger) *ReconcilerService {
	if now == nil {
		now = func() time.Time { return time.Now().In(calendar.Location()) }
	}
	if detector == nil {
		detector = attendance.NewDetector(attendance.DefaultAnomalyThreshold, calendar.Location())
	}
	return &ReconcilerService{
		students:    students,
		checkIns:    checkIns,
		permissions: permissions,
		registry:    registry,
		holidays:    holidays,
		classifier:  attendance.NewClassifier(calendar.Location()),
		detector:    detector,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ReconcilerService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReconcilerService", operation, attrs...)
}

func (s *ReconcilerService) holidaySnapshot() *calendar.Holidays {
	if s.holidays == nil {
		return nil
	}
	return s.holidays.Snapshot()
}

// today returns the current calendar date in the institutional timezone.
func (s *ReconcilerService) today() calendar.Date {
	return calendar.DateOf(s.now())
}

// resolveDay classifies one student day. The event pointer is nil when no
// authoritative check-in exists for the date.
func (s *ReconcilerService) resolveDay(registry *attendance.Registry, overlay *attendance.Overlay, student Student, date calendar.Date, event *CheckInEvent) (attendance.DayRecord, bool) {
	shift, ok := registry.Lookup(student.ClassKey, student.ShiftName)
	if !ok {
		return attendance.DayRecord{
			StudentID: student.ID,
			Date:      date,
			Status:    attendance.StatusUnknown,
			Reason:    attendance.ReasonConfigMissing,
		}, false
	}

	var domainEvent *attendance.CheckInEvent
	if event != nil {
		domainEvent = &attendance.CheckInEvent{
			ID:        event.ID,
			StudentID: event.StudentID,
			ClassKey:  event.ClassKey,
			ShiftName: event.ShiftName,
			Date:      event.Date,
			Timestamp: event.Timestamp,
			Method:    event.Method,
		}
	}

	result := s.classifier.Classify(shift, date, domainEvent, overlay.Covers(date))

	record := attendance.DayRecord{
		StudentID:     student.ID,
		Date:          date,
		Status:        result.Status,
		MinutesOffset: result.MinutesOffset,
		Reason:        result.Reason,
	}
	if domainEvent != nil && !domainEvent.Timestamp.IsZero() {
		ts := domainEvent.Timestamp
		record.CheckInTime = &ts
	}

	// A day is pending only while today's late cutoff has not passed and no
	// event arrived yet. The classifier never sees the wall clock, so the
	// promotion from absent happens here.
	if record.Status == attendance.StatusAbsent && event == nil && date == s.today() {
		if _, cutoff, err := s.classifier.Windows(shift, date); err == nil && s.now().Before(cutoff) {
			record.Status = attendance.StatusPending
		}
	}

	flagged := false
	if record.CheckInTime != nil {
		flagged = s.detector.Flag(shift, date, *record.CheckInTime)
	}
	return record, flagged
}

// overlayForStudent builds the approved-permission overlay for one student.
func (s *ReconcilerService) overlayForStudent(ctx context.Context, studentID string) (*attendance.Overlay, error) {
	approved, err := s.permissions.ListApprovedForStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load permissions for %s: %w", studentID, err)
	}
	intervals := make([]attendance.PermissionInterval, 0, len(approved))
	for _, p := range approved {
		intervals = append(intervals, attendance.PermissionInterval{
			ID:        p.ID,
			StudentID: p.StudentID,
			StartDate: p.StartDate,
			EndDate:   p.EndDate,
			Status:    p.Status,
		})
	}
	return attendance.NewOverlay(intervals), nil
}

// ResolveDay resolves one student's record for one date.
func (s *ReconcilerService) ResolveDay(ctx context.Context, studentID string, date calendar.Date) (HistoryEntry, error) {
	if !date.Valid() {
		verr := &ValidationError{}
		verr.add("date", "must be a valid YYYY-MM-DD date")
		return HistoryEntry{}, verr
	}

	student, err := s.students.GetStudent(ctx, studentID)
	if err != nil {
		return HistoryEntry{}, err
	}

	overlay, err := s.overlayForStudent(ctx, studentID)
	if err != nil {
		return HistoryEntry{}, err
	}

	var eventPtr *CheckInEvent
	event, err := s.checkIns.LatestForStudentDate(ctx, studentID, date)
	switch {
	case err == nil:
		eventPtr = &event
	case errors.Is(err, ErrNotFound):
	default:
		return HistoryEntry{}, err
	}

	record, flagged := s.resolveDay(s.registry.Registry(), overlay, student, date, eventPtr)
	return HistoryEntry{Record: record, Flagged: flagged}, nil
}

// History resolves the student's last n school days, newest first. Non-school
// days are skipped, and the walk stops at the enrollment date.
func (s *ReconcilerService) History(ctx context.Context, studentID string, lastN int) (entries []HistoryEntry, err error) {
	logger := s.loggerWith(ctx, "History", "student_id", studentID, "last_n", lastN)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "history resolution failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if lastN <= 0 {
		lastN = 30
	}
	// One year of calendar days is enough to find any plausible window.
	const maxWalk = 366

	student, err := s.students.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	overlay, err := s.overlayForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	today := s.today()
	earliest := today.AddDays(-maxWalk)
	events, err := s.checkIns.ListForStudentRange(ctx, studentID, earliest, today)
	if err != nil {
		return nil, err
	}
	eventsByDate := make(map[calendar.Date]CheckInEvent, len(events))
	for _, event := range events {
		eventsByDate[event.Date] = event
	}

	registry := s.registry.Registry()
	studyDays := registry.StudyDays(attendance.NormalizeClassKey(student.ClassKey))
	holidays := s.holidaySnapshot()

	for date := today; len(entries) < lastN && !date.Before(earliest); date = date.AddDays(-1) {
		if !student.EnrolledOn.Before(date) {
			break
		}
		if !calendar.IsSchoolDay(date, studyDays, holidays) {
			continue
		}
		var eventPtr *CheckInEvent
		if event, ok := eventsByDate[date]; ok {
			eventPtr = &event
		}
		record, flagged := s.resolveDay(registry, overlay, student, date, eventPtr)
		entries = append(entries, HistoryEntry{Record: record, Flagged: flagged})
	}
	return entries, nil
}

// Range resolves every school day in the inclusive date range, oldest first.
// Future days and days before enrollment are skipped.
func (s *ReconcilerService) Range(ctx context.Context, studentID string, start, end calendar.Date) ([]HistoryEntry, error) {
	if !start.Valid() || !end.Valid() || end.Before(start) {
		verr := &ValidationError{}
		verr.add("range", "must be a valid YYYY-MM-DD interval")
		return nil, verr
	}

	student, err := s.students.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	overlay, err := s.overlayForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	events, err := s.checkIns.ListForStudentRange(ctx, studentID, start, end)
	if err != nil {
		return nil, err
	}
	eventsByDate := make(map[calendar.Date]CheckInEvent, len(events))
	for _, event := range events {
		eventsByDate[event.Date] = event
	}

	registry := s.registry.Registry()
	studyDays := registry.StudyDays(attendance.NormalizeClassKey(student.ClassKey))
	holidays := s.holidaySnapshot()
	today := s.today()

	var entries []HistoryEntry
	for date := start; !date.After(end); date = date.AddDays(1) {
		if date.After(today) {
			break
		}
		if !student.EnrolledOn.Before(date) {
			continue
		}
		if !calendar.IsSchoolDay(date, studyDays, holidays) {
			continue
		}
		var eventPtr *CheckInEvent
		if event, ok := eventsByDate[date]; ok {
			eventPtr = &event
		}
		record, flagged := s.resolveDay(registry, overlay, student, date, eventPtr)
		entries = append(entries, HistoryEntry{Record: record, Flagged: flagged})
	}
	return entries, nil
}

// ClassDay resolves the full table for one class shift on one date. Rows
// flagged by the anomaly detector are partitioned to the front; within each
// partition the roster order by student name is preserved.
func (s *ReconcilerService) ClassDay(ctx context.Context, classKey, shiftName string, date calendar.Date) (result ClassDayResult, err error) {
	classKey = attendance.NormalizeClassKey(classKey)

	logger := s.loggerWith(ctx, "ClassDay",
		"class_key", classKey,
		"shift_name", shiftName,
		"date", string(date),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "class day resolution failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if !date.Valid() {
		verr := &ValidationError{}
		verr.add("date", "must be a valid YYYY-MM-DD date")
		err = verr
		return
	}

	registry := s.registry.Registry()
	holidays := s.holidaySnapshot()

	result = ClassDayResult{
		ClassKey:  classKey,
		ShiftName: shiftName,
		Date:      date,
		SchoolDay: calendar.IsSchoolDay(date, registry.StudyDays(classKey), holidays),
	}
	if !result.SchoolDay {
		return
	}

	roster, err := s.students.ListStudentsByClassShift(ctx, classKey, shiftName)
	if err != nil {
		return ClassDayResult{}, err
	}

	for _, student := range roster {
		if !student.EnrolledOn.Before(date) {
			continue
		}

		overlay, oerr := s.overlayForStudent(ctx, student.ID)
		if oerr != nil {
			return ClassDayResult{}, oerr
		}

		var eventPtr *CheckInEvent
		event, eerr := s.checkIns.LatestForStudentDate(ctx, student.ID, date)
		switch {
		case eerr == nil:
			eventPtr = &event
		case errors.Is(eerr, ErrNotFound):
		default:
			return ClassDayResult{}, eerr
		}

		record, flagged := s.resolveDay(registry, overlay, student, date, eventPtr)
		result.Rows = append(result.Rows, TableRow{
			StudentID: student.ID,
			FullName:  student.FullName,
			Record:    record,
			Flagged:   flagged,
		})
	}

	sort.SliceStable(result.Rows, func(i, j int) bool {
		return result.Rows[i].Flagged && !result.Rows[j].Flagged
	})

	logger.InfoContext(ctx, "class day resolved", "row_count", len(result.Rows))
	return result, nil
}
