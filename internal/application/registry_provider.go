package application

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/example/attendance-engine/internal/attendance"
)

// ScheduleSnapshot is one consistent read of all schedule configuration.
type ScheduleSnapshot struct {
	Shifts    []attendance.ShiftConfig
	StudyDays map[string][]time.Weekday
}

// ScheduleStore loads and mutates schedule configuration.
type ScheduleStore interface {
	UpsertClassConfig(ctx context.Context, classKey, name string, studyDays []time.Weekday, now time.Time) error
	UpsertShiftSchedule(ctx context.Context, shift attendance.ShiftConfig, now time.Time) error
	DeleteShiftSchedule(ctx context.Context, classKey, shiftName string) error
	LoadSnapshot(ctx context.Context) (ScheduleSnapshot, error)
}

// RegistryProvider holds the current shift schedule registry and swaps it
// atomically on reload. Readers always see a complete snapshot; a failed
// reload keeps the previous one.
type RegistryProvider struct {
	store    ScheduleStore
	registry atomic.Pointer[attendance.Registry]
	logger   *slog.Logger
}

// NewRegistryProvider constructs a provider with an empty registry.
func NewRegistryProvider(store ScheduleStore, logger *slog.Logger) *RegistryProvider {
	p := &RegistryProvider{store: store, logger: defaultLogger(logger)}
	p.registry.Store(attendance.NewRegistry(nil, nil))
	return p
}

// Registry returns the current snapshot. The returned registry is immutable.
func (p *RegistryProvider) Registry() *attendance.Registry {
	return p.registry.Load()
}

// Reload loads schedule configuration and swaps in a fresh registry. Class
// keys are normalized here so lookups and stored configuration agree on the
// canonical form.
func (p *RegistryProvider) Reload(ctx context.Context) error {
	logger := serviceLogger(ctx, p.logger, "RegistryProvider", "Reload")

	snapshot, err := p.store.LoadSnapshot(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "registry reload failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	shifts := make([]attendance.ShiftConfig, 0, len(snapshot.Shifts))
	for _, shift := range snapshot.Shifts {
		shift.ClassKey = attendance.NormalizeClassKey(shift.ClassKey)
		shifts = append(shifts, shift)
	}
	studyDays := make(map[string][]time.Weekday, len(snapshot.StudyDays))
	for classKey, days := range snapshot.StudyDays {
		studyDays[attendance.NormalizeClassKey(classKey)] = days
	}

	p.registry.Store(attendance.NewRegistry(shifts, studyDays))
	logger.InfoContext(ctx, "registry reloaded", "shift_count", len(shifts))
	return nil
}
