package application

import (
	"time"

	"github.com/example/attendance-engine/internal/attendance"
	"github.com/example/attendance-engine/internal/calendar"
)

// Principal represents the authenticated operator invoking a service method.
type Principal struct {
	OperatorID string
	IsAdmin    bool
}

// StudentInput captures caller provided student fields.
type StudentInput struct {
	FullName   string
	ClassKey   string
	ShiftName  string
	Phone      *string
	EnrolledOn string
}

// Student represents a persisted student.
type Student struct {
	ID         string
	FullName   string
	ClassKey   string
	ShiftName  string
	Phone      *string
	EnrolledOn calendar.Date
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CheckInEvent represents a stored check-in event.
type CheckInEvent struct {
	ID        string
	StudentID string
	ClassKey  string
	ShiftName string
	Date      calendar.Date
	Timestamp time.Time
	Method    attendance.Method
	CreatedAt time.Time
}

// PermissionInput captures caller provided absence-permission fields.
type PermissionInput struct {
	StudentID string
	StartDate string
	EndDate   string
	Note      *string
}

// Permission represents a persisted absence-permission interval.
type Permission struct {
	ID        string
	StudentID string
	StartDate calendar.Date
	EndDate   calendar.Date
	Status    attendance.PermissionStatus
	Note      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClassConfigInput captures caller provided class settings.
type ClassConfigInput struct {
	ClassKey  string
	Name      string
	StudyDays []time.Weekday
}

// ShiftScheduleInput captures caller provided shift schedule fields.
type ShiftScheduleInput struct {
	ClassKey          string
	ShiftName         string
	StartTime         string
	GraceMinutes      int
	LateWindowMinutes int
}

// TableRow is one resolved student row in a class day table. Rows flagged by
// the anomaly detector sort before unflagged ones.
type TableRow struct {
	StudentID string
	FullName  string
	Record    attendance.DayRecord
	Flagged   bool
}

// ClassDayResult is the resolved table for one class shift on one date.
type ClassDayResult struct {
	ClassKey  string
	ShiftName string
	Date      calendar.Date
	SchoolDay bool
	Rows      []TableRow
}

// HistoryEntry is one resolved day in a student's attendance history.
type HistoryEntry struct {
	Record  attendance.DayRecord
	Flagged bool
}

// WarningSummary aggregates a student's absences for one month.
type WarningSummary struct {
	StudentID           string
	Month               string
	AbsentDays          int
	LateDays            int
	PermissionDays      int
	ConsecutiveAbsences int
	Flagged             bool
}

// Operator represents a staff account.
type Operator struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
	Disabled    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OperatorCredentials carries the stored hash needed to verify a login.
type OperatorCredentials struct {
	Operator     Operator
	PasswordHash string
}

// Session represents an issued authentication session.
type Session struct {
	ID         string
	OperatorID string
	Token      string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	RevokedAt  *time.Time
}

// AuthenticateParams wraps a login attempt.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult carries the issued session and its operator.
type AuthenticateResult struct {
	Operator Operator
	Session  Session
}

// EditTimestampParams wraps a manual check-in correction.
type EditTimestampParams struct {
	Principal Principal
	StudentID string
	Date      string
	Timestamp time.Time
}

// EditTimestampResult carries the re-resolved record after a correction.
type EditTimestampResult struct {
	Event  CheckInEvent
	Record attendance.DayRecord
}
