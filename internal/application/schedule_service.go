package application

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/example/attendance-engine/internal/attendance"
	"github.com/example/attendance-engine/internal/calendar"
)

var startTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ScheduleService manages class and shift schedule configuration. Every
// successful mutation reloads the registry so resolution sees the change
// without a restart.
type ScheduleService struct {
	store    ScheduleStore
	registry *RegistryProvider
	now      func() time.Time
	logger   *slog.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(store ScheduleStore, registry *RegistryProvider, now func() time.Time) *ScheduleService {
	return NewScheduleServiceWithLogger(store, registry, now, nil)
}

// NewScheduleServiceWithLogger constructs a ScheduleService with a specified logger.
func NewScheduleServiceWithLogger(store ScheduleStore, registry *RegistryProvider, now func() time.Time, logger *slog.Logger) *ScheduleService {
	if now == nil {
		now = func() time.Time { return time.Now().In(calendar.Location()) }
	}
	return &ScheduleService{
		store:    store,
		registry: registry,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

func (s *ScheduleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ScheduleService", operation, attrs...)
}

// Registry exposes the current registry snapshot for read-only callers.
func (s *ScheduleService) Registry() *attendance.Registry {
	return s.registry.Registry()
}

// ListShiftSchedules returns every configured shift schedule.
func (s *ScheduleService) ListShiftSchedules(ctx context.Context) ([]attendance.ShiftConfig, error) {
	snapshot, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.Shifts, nil
}

// UpsertShiftSchedule creates or replaces one shift schedule.
func (s *ScheduleService) UpsertShiftSchedule(ctx context.Context, principal Principal, input ShiftScheduleInput) (err error) {
	logger := s.loggerWith(ctx, "UpsertShiftSchedule",
		"operator_id", principal.OperatorID,
		"class_key", input.ClassKey,
		"shift_name", input.ShiftName,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "shift schedule upsert failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "shift schedule upserted")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	verr := &ValidationError{}
	classKey := attendance.NormalizeClassKey(input.ClassKey)
	if classKey == "" {
		verr.add("class_key", "is required")
	}
	shiftName := strings.TrimSpace(input.ShiftName)
	if shiftName == "" {
		verr.add("shift_name", "is required")
	}
	if !startTimePattern.MatchString(input.StartTime) {
		verr.add("start_time", "must be a 24-hour HH:MM time")
	}
	if input.GraceMinutes < 0 {
		verr.add("grace_minutes", "must not be negative")
	}
	if input.LateWindowMinutes <= 0 {
		verr.add("late_window_minutes", "must be positive")
	}
	if verr.HasErrors() {
		err = verr
		return
	}

	shift := attendance.ShiftConfig{
		ClassKey:          classKey,
		ShiftName:         shiftName,
		StartTime:         input.StartTime,
		GraceMinutes:      input.GraceMinutes,
		LateWindowMinutes: input.LateWindowMinutes,
	}
	if err = s.store.UpsertShiftSchedule(ctx, shift, s.now()); err != nil {
		return
	}
	err = s.registry.Reload(ctx)
	return
}

// UpsertClassConfig creates or replaces the per-class settings.
func (s *ScheduleService) UpsertClassConfig(ctx context.Context, principal Principal, input ClassConfigInput) (err error) {
	logger := s.loggerWith(ctx, "UpsertClassConfig",
		"operator_id", principal.OperatorID,
		"class_key", input.ClassKey,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "class config upsert failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "class config upserted")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	classKey := attendance.NormalizeClassKey(input.ClassKey)
	if classKey == "" {
		verr := &ValidationError{}
		verr.add("class_key", "is required")
		err = verr
		return
	}
	seen := make(map[time.Weekday]bool, len(input.StudyDays))
	for _, day := range input.StudyDays {
		if day < time.Sunday || day > time.Saturday || seen[day] {
			verr := &ValidationError{}
			verr.add("study_days", "must be distinct weekdays")
			err = verr
			return
		}
		seen[day] = true
	}

	if err = s.store.UpsertClassConfig(ctx, classKey, strings.TrimSpace(input.Name), input.StudyDays, s.now()); err != nil {
		return
	}
	err = s.registry.Reload(ctx)
	return
}

// DeleteShiftSchedule removes one shift schedule. Days that relied on it
// resolve as unknown afterwards.
func (s *ScheduleService) DeleteShiftSchedule(ctx context.Context, principal Principal, classKey, shiftName string) (err error) {
	logger := s.loggerWith(ctx, "DeleteShiftSchedule",
		"operator_id", principal.OperatorID,
		"class_key", classKey,
		"shift_name", shiftName,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "shift schedule delete failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "shift schedule deleted")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	if err = s.store.DeleteShiftSchedule(ctx, attendance.NormalizeClassKey(classKey), strings.TrimSpace(shiftName)); err != nil {
		return
	}
	err = s.registry.Reload(ctx)
	return
}
