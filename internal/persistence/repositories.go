package persistence

import (
	"context"
	"time"
)

// StudentRepository exposes CRUD operations for students.
type StudentRepository interface {
	CreateStudent(ctx context.Context, student Student) error
	UpdateStudent(ctx context.Context, student Student) error
	GetStudent(ctx context.Context, id string) (Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	ListStudentsByClassShift(ctx context.Context, classKey, shiftName string) ([]Student, error)
	DeleteStudent(ctx context.Context, id string) error
}

// CheckInRepository stores raw check-in events.
type CheckInRepository interface {
	CreateCheckIn(ctx context.Context, event CheckIn) error
	// LatestForStudentDate returns the most recent non-deleted event for the
	// student on the calendar date, or ErrNotFound.
	LatestForStudentDate(ctx context.Context, studentID, date string) (CheckIn, error)
	// ListForStudentRange returns the authoritative event per date within the
	// inclusive range, newest date first.
	ListForStudentRange(ctx context.Context, studentID, startDate, endDate string) ([]CheckIn, error)
	// MarkDeleted soft-deletes an event so a correction can supersede it.
	MarkDeleted(ctx context.Context, id string) error
}

// PermissionRepository stores absence-permission intervals.
type PermissionRepository interface {
	CreatePermission(ctx context.Context, permission Permission) error
	GetPermission(ctx context.Context, id string) (Permission, error)
	UpdatePermissionStatus(ctx context.Context, id, status string, updatedAt time.Time) error
	ListPermissionsForStudent(ctx context.Context, studentID string) ([]Permission, error)
	// ListApprovedForStudent narrows to approved intervals, the only ones that
	// participate in classification.
	ListApprovedForStudent(ctx context.Context, studentID string) ([]Permission, error)
}

// ScheduleSnapshot is everything the registry needs for one consistent load.
type ScheduleSnapshot struct {
	Classes []ClassConfig
	Shifts  []ShiftSchedule
}

// ScheduleRepository stores class and shift schedule configuration.
type ScheduleRepository interface {
	UpsertClassConfig(ctx context.Context, class ClassConfig) error
	UpsertShiftSchedule(ctx context.Context, shift ShiftSchedule) error
	DeleteShiftSchedule(ctx context.Context, classKey, shiftName string) error
	// LoadSnapshot reads all schedule configuration in one pass so a reload
	// observes a consistent state.
	LoadSnapshot(ctx context.Context) (ScheduleSnapshot, error)
}

// OperatorRepository exposes operator account lookups for authentication.
type OperatorRepository interface {
	CreateOperator(ctx context.Context, operator Operator) error
	GetOperator(ctx context.Context, id string) (Operator, error)
	GetOperatorByEmail(ctx context.Context, email string) (Operator, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
