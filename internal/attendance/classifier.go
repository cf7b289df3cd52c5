package attendance

import (
	"math"
	"time"

	"github.com/example/attendance-engine/internal/calendar"
)

// Result is the outcome of classifying one day.
type Result struct {
	Status        Status
	MinutesOffset *int
	Reason        Reason
}

// Classifier converts a raw check-in event, or its absence, into an
// attendance status against a shift schedule. It is pure: malformed input
// yields StatusUnknown or StatusAbsent with a diagnostic reason, never an
// error or panic.
type Classifier struct {
	location *time.Location
}

// NewClassifier constructs a Classifier. If loc is nil the institutional
// timezone is used.
func NewClassifier(loc *time.Location) *Classifier {
	if loc == nil {
		loc = calendar.Location()
	}
	return &Classifier{location: loc}
}

// Classify resolves one day for one student.
//
// The windows derive from the shift schedule on the record's own calendar
// date: the on-time deadline is shift start plus the grace period, the late
// cutoff is the deadline plus the late window. Both boundaries are inclusive
// on the earlier side: a check-in exactly at the on-time deadline is present,
// exactly at the late cutoff is late.
//
// A covering permission only fills the gap when no check-in exists; a
// check-in always outranks it, so the record reflects what happened.
func (c *Classifier) Classify(shift ShiftConfig, date calendar.Date, checkIn *CheckInEvent, permissioned bool) Result {
	shiftStart, err := shift.ShiftStart(date)
	if err != nil {
		return Result{Status: StatusUnknown, Reason: ReasonConfigMissing}
	}
	onTimeDeadline := shiftStart.Add(time.Duration(shift.GraceMinutes) * time.Minute)
	lateCutoff := onTimeDeadline.Add(time.Duration(shift.LateWindowMinutes) * time.Minute)

	reason := ReasonNone
	if checkIn != nil && checkIn.Timestamp.IsZero() {
		checkIn = nil
		reason = ReasonMalformedTimestamp
	}

	if checkIn == nil {
		if permissioned {
			return Result{Status: StatusPermission, Reason: reason}
		}
		return Result{Status: StatusAbsent, Reason: reason}
	}

	ts := checkIn.Timestamp.In(c.location)
	offset := roundMinutes(ts.Sub(shiftStart))

	switch {
	case ts.After(lateCutoff):
		// Arrived past the late window; counts as absent even with a check-in.
		return Result{Status: StatusAbsent, MinutesOffset: &offset}
	case ts.After(onTimeDeadline):
		return Result{Status: StatusLate, MinutesOffset: &offset}
	default:
		// Early arrival is treated identically to on-time.
		return Result{Status: StatusPresent, MinutesOffset: &offset}
	}
}

// Windows reports the on-time deadline and late cutoff for a shift on a date.
// Callers use it for the pending decision and for display.
func (c *Classifier) Windows(shift ShiftConfig, date calendar.Date) (onTimeDeadline, lateCutoff time.Time, err error) {
	shiftStart, err := shift.ShiftStart(date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	onTimeDeadline = shiftStart.Add(time.Duration(shift.GraceMinutes) * time.Minute)
	lateCutoff = onTimeDeadline.Add(time.Duration(shift.LateWindowMinutes) * time.Minute)
	return onTimeDeadline, lateCutoff, nil
}

func roundMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}
