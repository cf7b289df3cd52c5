// Package attendance implements the pure attendance status resolution rules:
// shift schedule lookup, permission overlay, the status classifier, and
// anomaly detection. Nothing in this package performs I/O or reads the wall
// clock; callers supply every input, which keeps resolution deterministic.
package attendance

import (
	"time"

	"github.com/example/attendance-engine/internal/calendar"
)

// Status is the closed set of day-level attendance states.
type Status string

const (
	// StatusPresent indicates a check-in at or before the on-time deadline.
	StatusPresent Status = "present"
	// StatusLate indicates a check-in inside the late window.
	StatusLate Status = "late"
	// StatusAbsent indicates no qualifying check-in and no covering permission.
	StatusAbsent Status = "absent"
	// StatusPermission indicates an approved absence permission covers the day.
	StatusPermission Status = "permission"
	// StatusPending indicates today's late cutoff has not yet passed.
	StatusPending Status = "pending"
	// StatusUnknown indicates the day could not be classified, typically
	// because no shift schedule was resolvable. Distinct from absent so
	// operators can tell a data problem from a missing student.
	StatusUnknown Status = "unknown"
)

// Method identifies how a check-in event was captured.
type Method string

const (
	MethodQR      Method = "qr"
	MethodFace    Method = "face"
	MethodManual  Method = "manual"
	MethodRequest Method = "request"
)

// ShiftConfig holds the scheduled start and classification windows for one
// class shift. Immutable once loaded for a resolution pass.
type ShiftConfig struct {
	ClassKey          string
	ShiftName         string
	StartTime         string // HH:MM in the institutional timezone
	GraceMinutes      int
	LateWindowMinutes int
}

// ShiftStart combines the configured start time with a calendar date.
func (c ShiftConfig) ShiftStart(date calendar.Date) (time.Time, error) {
	return date.At(c.StartTime)
}

// CheckInEvent is one captured check-in for a student on a calendar date.
// At most one authoritative event exists per student and date; when several
// are stored, the most recent non-deleted one wins.
type CheckInEvent struct {
	ID        string
	StudentID string
	ClassKey  string
	ShiftName string
	Date      calendar.Date
	Timestamp time.Time
	Method    Method
}

// PermissionStatus is the review state of an absence permission request.
type PermissionStatus string

const (
	PermissionPending  PermissionStatus = "pending"
	PermissionApproved PermissionStatus = "approved"
	PermissionRejected PermissionStatus = "rejected"
)

// PermissionInterval is a date-ranged excused-absence record. Dates are
// inclusive calendar dates; only approved intervals participate in
// classification.
type PermissionInterval struct {
	ID        string
	StudentID string
	StartDate calendar.Date
	EndDate   calendar.Date
	Status    PermissionStatus
}

// DayRecord is the derived per-student-per-day classification. It is computed
// fresh on every resolution request and never persisted.
type DayRecord struct {
	StudentID     string
	Date          calendar.Date
	Status        Status
	CheckInTime   *time.Time
	MinutesOffset *int
	Reason        Reason
}

// Reason is the side-channel diagnostic attached to a classification result.
// It never changes the status; it explains unknown and data-quality cases.
type Reason string

const (
	// ReasonNone indicates a clean classification.
	ReasonNone Reason = ""
	// ReasonConfigMissing indicates no shift schedule was resolvable.
	ReasonConfigMissing Reason = "config_missing"
	// ReasonMalformedTimestamp indicates the check-in timestamp could not be
	// used; the event was treated as no check-in.
	ReasonMalformedTimestamp Reason = "malformed_timestamp"
)
