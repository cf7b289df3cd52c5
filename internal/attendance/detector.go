package attendance

import (
	"time"

	"github.com/example/attendance-engine/internal/calendar"
)

// DefaultAnomalyThreshold is how far a check-in may deviate from shift start
// before it is flagged for operator review.
const DefaultAnomalyThreshold = 90 * time.Minute

// Detector flags check-ins whose timestamp is implausibly far from the
// scheduled shift start. Flagging is advisory only and never changes status.
type Detector struct {
	threshold time.Duration
	location  *time.Location
}

// NewDetector constructs a Detector. A non-positive threshold selects the
// default; a nil location selects the institutional timezone.
func NewDetector(threshold time.Duration, loc *time.Location) *Detector {
	if threshold <= 0 {
		threshold = DefaultAnomalyThreshold
	}
	if loc == nil {
		loc = calendar.Location()
	}
	return &Detector{threshold: threshold, location: loc}
}

// Flag reports whether the check-in deviates from the shift start by more
// than the threshold. Deviation exactly at the threshold is not flagged.
// Absences carry no timestamp and are never flagged.
func (d *Detector) Flag(shift ShiftConfig, date calendar.Date, checkInTime time.Time) bool {
	if d == nil || checkInTime.IsZero() {
		return false
	}
	shiftStart, err := shift.ShiftStart(date)
	if err != nil {
		return false
	}
	deviation := checkInTime.In(d.location).Sub(shiftStart)
	if deviation < 0 {
		deviation = -deviation
	}
	return deviation > d.threshold
}

// Threshold returns the configured deviation limit.
func (d *Detector) Threshold() time.Duration {
	if d == nil {
		return DefaultAnomalyThreshold
	}
	return d.threshold
}
