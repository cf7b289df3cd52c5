package application

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/example/attendance-engine/internal/attendance"
	"github.com/example/attendance-engine/internal/calendar"
)

const (
	// DefaultConsecutiveAbsenceLimit is the run of absent school days that
	// flags a student for follow-up.
	DefaultConsecutiveAbsenceLimit = 3
	// DefaultMonthlyAbsenceLimit is the per-month absent day count that
	// flags a student for follow-up.
	DefaultMonthlyAbsenceLimit = 5
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// WarningService aggregates resolved records into absence warnings.
type WarningService struct {
	reconciler       *ReconcilerService
	consecutiveLimit int
	monthlyLimit     int
	now              func() time.Time
	logger           *slog.Logger
}

// NewWarningService constructs a WarningService.
func NewWarningService(reconciler *ReconcilerService, consecutiveLimit, monthlyLimit int, now func() time.Time) *WarningService {
	return NewWarningServiceWithLogger(reconciler, consecutiveLimit, monthlyLimit, now, nil)
}

// NewWarningServiceWithLogger constructs a WarningService with a specified logger.
func NewWarningServiceWithLogger(reconciler *ReconcilerService, consecutiveLimit, monthlyLimit int, now func() time.Time, logger *slog.Logger) *WarningService {
	if consecutiveLimit <= 0 {
		consecutiveLimit = DefaultConsecutiveAbsenceLimit
	}
	if monthlyLimit <= 0 {
		monthlyLimit = DefaultMonthlyAbsenceLimit
	}
	if now == nil {
		now = func() time.Time { return time.Now().In(calendar.Location()) }
	}
	return &WarningService{
		reconciler:       reconciler,
		consecutiveLimit: consecutiveLimit,
		monthlyLimit:     monthlyLimit,
		now:              now,
		logger:           defaultLogger(logger),
	}
}

// MonthSummary resolves one student's month and aggregates absence counts.
// The month is YYYY-MM; an empty month means the current one. Pending and
// unknown days never count as absences.
func (s *WarningService) MonthSummary(ctx context.Context, studentID, month string) (summary WarningSummary, err error) {
	logger := serviceLogger(ctx, s.logger, "WarningService", "MonthSummary",
		"student_id", studentID,
		"month", month,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "warning summary failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	today := calendar.DateOf(s.now())
	if month == "" {
		month = today.Month()
	}
	if !monthPattern.MatchString(month) {
		verr := &ValidationError{}
		verr.add("month", "must be a valid YYYY-MM month")
		err = verr
		return
	}

	start := calendar.Date(month + "-01")
	end := lastDayOfMonth(month)
	if end.After(today) {
		end = today
	}
	if start.After(today) {
		summary = WarningSummary{StudentID: studentID, Month: month}
		return
	}

	entries, err := s.reconciler.Range(ctx, studentID, start, end)
	if err != nil {
		return WarningSummary{}, err
	}

	summary = WarningSummary{StudentID: studentID, Month: month}
	run := 0
	for _, entry := range entries {
		switch entry.Record.Status {
		case attendance.StatusAbsent:
			summary.AbsentDays++
			run++
		case attendance.StatusLate:
			summary.LateDays++
			run = 0
		case attendance.StatusPermission:
			summary.PermissionDays++
			run = 0
		case attendance.StatusPending, attendance.StatusUnknown:
			// Not evidence either way; an undecided day does not break a
			// run of absences.
		default:
			run = 0
		}
		if run > summary.ConsecutiveAbsences {
			summary.ConsecutiveAbsences = run
		}
	}

	summary.Flagged = summary.ConsecutiveAbsences >= s.consecutiveLimit ||
		summary.AbsentDays >= s.monthlyLimit
	return summary, nil
}

// lastDayOfMonth returns the final calendar date of a YYYY-MM month.
func lastDayOfMonth(month string) calendar.Date {
	t, err := time.ParseInLocation("2006-01", month, calendar.Location())
	if err != nil {
		return calendar.Date(fmt.Sprintf("%s-28", month))
	}
	return calendar.DateOf(t.AddDate(0, 1, -1))
}
