package attendance

import (
	"strings"
	"time"
)

// Registry is an immutable snapshot of shift schedules keyed by class and
// shift. Lookups never mutate it, so a batch holding a snapshot classifies
// every student against the same rules even if schedules reload mid-run.
type Registry struct {
	shifts    map[string]ShiftConfig
	studyDays map[string][]time.Weekday
}

// NewRegistry builds a snapshot from shift configs and optional per-class
// study-day sets. Later duplicates of the same class+shift overwrite earlier
// ones.
func NewRegistry(configs []ShiftConfig, studyDays map[string][]time.Weekday) *Registry {
	shifts := make(map[string]ShiftConfig, len(configs))
	for _, cfg := range configs {
		shifts[registryKey(cfg.ClassKey, cfg.ShiftName)] = cfg
	}
	days := make(map[string][]time.Weekday, len(studyDays))
	for class, set := range studyDays {
		days[NormalizeClassKey(class)] = append([]time.Weekday(nil), set...)
	}
	return &Registry{shifts: shifts, studyDays: days}
}

// Lookup resolves the schedule for a class shift. Missing configuration is
// not an error; callers treat found == false as "cannot classify" and
// propagate StatusUnknown.
func (r *Registry) Lookup(classKey, shiftName string) (ShiftConfig, bool) {
	if r == nil {
		return ShiftConfig{}, false
	}
	cfg, ok := r.shifts[registryKey(classKey, shiftName)]
	return cfg, ok
}

// StudyDays returns the configured study weekdays for a class, or nil when
// the class uses the default (every day except Sunday).
func (r *Registry) StudyDays(classKey string) []time.Weekday {
	if r == nil {
		return nil
	}
	return r.studyDays[NormalizeClassKey(classKey)]
}

// Len returns the number of shift schedules in the snapshot.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.shifts)
}

// NormalizeClassKey maps a human class label onto its configuration key.
// Stored records say "Class 12B" while schedule documents are keyed "12B";
// the registry owns this normalization so callers pass labels as-is.
func NormalizeClassKey(label string) string {
	trimmed := strings.TrimSpace(label)
	const prefix = "class "
	if len(trimmed) > len(prefix) && strings.EqualFold(trimmed[:len(prefix)], prefix) {
		trimmed = strings.TrimSpace(trimmed[len(prefix):])
	}
	return trimmed
}

func registryKey(classKey, shiftName string) string {
	return NormalizeClassKey(classKey) + "\x00" + strings.TrimSpace(shiftName)
}
