package persistence

import "time"

// Student represents an enrolled student in the attendance domain.
type Student struct {
	ID         string
	FullName   string
	ClassKey   string
	ShiftName  string
	Phone      *string
	EnrolledOn string // YYYY-MM-DD; days on or before this date are not classified
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CheckIn represents a stored check-in event. Manual timestamp corrections
// append a new row and soft-delete the previous one, so the authoritative
// event for a day is the most recent non-deleted row.
type CheckIn struct {
	ID        string
	StudentID string
	ClassKey  string
	ShiftName string
	Date      string // YYYY-MM-DD
	Timestamp time.Time
	Method    string
	Deleted   bool
	CreatedAt time.Time
}

// Permission represents an absence-permission interval with its review state.
type Permission struct {
	ID        string
	StudentID string
	StartDate string // YYYY-MM-DD, inclusive
	EndDate   string // YYYY-MM-DD, inclusive
	Status    string // pending, approved, rejected
	Note      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClassConfig represents per-class settings that are not shift-specific.
type ClassConfig struct {
	ClassKey  string
	Name      string
	StudyDays []time.Weekday
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ShiftSchedule represents the configured start time and classification
// windows for one shift of a class.
type ShiftSchedule struct {
	ClassKey          string
	ShiftName         string
	StartTime         string // HH:MM
	GraceMinutes      int
	LateWindowMinutes int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Operator represents a staff account allowed to use the review API.
type Operator struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for an operator.
type Session struct {
	ID         string
	OperatorID string
	Token      string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	RevokedAt  *time.Time
}
