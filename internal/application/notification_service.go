package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/attendance-engine/internal/attendance"
	"github.com/example/attendance-engine/internal/calendar"
)

// Notifier delivers one absence notification. Implementations talk to SMS
// gateways or messaging apps; the service only cares about success.
type Notifier interface {
	NotifyAbsence(ctx context.Context, student Student, record attendance.DayRecord) error
}

// DefaultNotificationWorkers bounds concurrent notifier calls per run.
const DefaultNotificationWorkers = 8

// NotificationService runs the per-shift absence notification pass. Each
// shift has a configured trigger time; when it fires, every class with that
// shift is resolved for today and guardians of absent students are notified.
type NotificationService struct {
	students    StudentStore
	reconciler  *ReconcilerService
	notifier    Notifier
	triggers    map[string]string // shift name to HH:MM in the institutional timezone
	workerLimit int
	now         func() time.Time
	logger      *slog.Logger

	mu    sync.Mutex
	fired map[string]calendar.Date // shift name to last date it ran
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(students StudentStore, reconciler *ReconcilerService, notifier Notifier, triggers map[string]string, workerLimit int, now func() time.Time) *NotificationService {
	return NewNotificationServiceWithLogger(students, reconciler, notifier, triggers, workerLimit, now, nil)
}

// NewNotificationServiceWithLogger constructs a NotificationService with a specified logger.
func NewNotificationServiceWithLogger(students StudentStore, reconciler *ReconcilerService, notifier Notifier, triggers map[string]string, workerLimit int, now func() time.Time, logger *slog.Logger) *NotificationService {
	if workerLimit <= 0 {
		workerLimit = DefaultNotificationWorkers
	}
	if now == nil {
		now = func() time.Time { return time.Now().In(calendar.Location()) }
	}
	return &NotificationService{
		students:    students,
		reconciler:  reconciler,
		notifier:    notifier,
		triggers:    triggers,
		workerLimit: workerLimit,
		now:         now,
		logger:      defaultLogger(logger),
		fired:       make(map[string]calendar.Date),
	}
}

func (s *NotificationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "NotificationService", operation, attrs...)
}

// RunResult summarizes one notification pass.
type RunResult struct {
	ShiftName string
	Date      calendar.Date
	Notified  int
	Failed    int
}

// RunShift resolves today's tables for every class with the named shift and
// notifies absent students' guardians. Notifier calls fan out across a
// bounded worker group; a cancelled context stops the fan-out promptly.
func (s *NotificationService) RunShift(ctx context.Context, shiftName string) (result RunResult, err error) {
	date := calendar.DateOf(s.now())
	logger := s.loggerWith(ctx, "RunShift",
		"shift_name", shiftName,
		"date", string(date),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "notification run failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("notified", result.Notified, "failed", result.Failed).
			InfoContext(ctx, "notification run finished")
	}()

	if s.notifier == nil {
		err = fmt.Errorf("notifier not configured")
		return
	}

	result = RunResult{ShiftName: shiftName, Date: date}

	students, err := s.students.ListStudents(ctx)
	if err != nil {
		return
	}

	classKeys := make([]string, 0)
	seen := make(map[string]bool)
	studentsByID := make(map[string]Student, len(students))
	for _, student := range students {
		studentsByID[student.ID] = student
		if student.ShiftName != shiftName {
			continue
		}
		key := attendance.NormalizeClassKey(student.ClassKey)
		if !seen[key] {
			seen[key] = true
			classKeys = append(classKeys, key)
		}
	}

	type target struct {
		student Student
		record  attendance.DayRecord
	}
	var targets []target
	for _, classKey := range classKeys {
		table, terr := s.reconciler.ClassDay(ctx, classKey, shiftName, date)
		if terr != nil {
			err = terr
			return
		}
		if !table.SchoolDay {
			continue
		}
		for _, row := range table.Rows {
			if row.Record.Status != attendance.StatusAbsent {
				continue
			}
			student, ok := studentsByID[row.StudentID]
			if !ok {
				continue
			}
			targets = append(targets, target{student: student, record: row.Record})
		}
	}

	var (
		mu     sync.Mutex
		failed int
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.workerLimit)
	for _, tgt := range targets {
		tgt := tgt
		group.Go(func() error {
			if nerr := s.notifier.NotifyAbsence(groupCtx, tgt.student, tgt.record); nerr != nil {
				logger.WarnContext(groupCtx, "absence notification failed",
					"student_id", tgt.student.ID, "error", nerr)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			return groupCtx.Err()
		})
	}
	if werr := group.Wait(); werr != nil {
		err = werr
		return
	}

	result.Notified = len(targets) - failed
	result.Failed = failed
	return
}

// RunDue fires every shift whose trigger time has been reached today and has
// not already run. Called periodically by the scheduler loop.
func (s *NotificationService) RunDue(ctx context.Context) error {
	now := s.now().In(calendar.Location())
	date := calendar.DateOf(now)

	for shiftName, trigger := range s.triggers {
		at, err := date.At(trigger)
		if err != nil {
			s.loggerWith(ctx, "RunDue").WarnContext(ctx, "invalid trigger time",
				"shift_name", shiftName, "trigger", trigger)
			continue
		}
		if now.Before(at) {
			continue
		}

		s.mu.Lock()
		already := s.fired[shiftName] == date
		if !already {
			s.fired[shiftName] = date
		}
		s.mu.Unlock()
		if already {
			continue
		}

		if _, err := s.RunShift(ctx, shiftName); err != nil {
			// A failed run stays marked as fired; operators can rerun it
			// explicitly through the API.
			return err
		}
	}
	return nil
}

// Scheduler polls for due trigger times until the context is cancelled.
func (s *NotificationService) Scheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := s.loggerWith(ctx, "Scheduler")
	logger.InfoContext(ctx, "notification scheduler started", "interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "notification scheduler stopped")
			return
		case <-ticker.C:
			if err := s.RunDue(ctx); err != nil {
				logger.ErrorContext(ctx, "notification pass failed", "error", err)
			}
		}
	}
}
