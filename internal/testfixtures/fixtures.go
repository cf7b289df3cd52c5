package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/attendance"
	"github.com/example/attendance-engine/internal/calendar"
	"github.com/example/attendance-engine/internal/persistence"
)

var (
	studentCounter    uint64
	operatorCounter   uint64
	permissionCounter uint64
	checkInCounter    uint64
)

// referenceTime is a Monday morning in ICT so fixtures land on a school day.
var referenceTime = time.Date(2026, time.March, 9, 8, 0, 0, 0, calendar.Location())

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns the calendar date of ReferenceTime.
func ReferenceDate() calendar.Date {
	return calendar.DateOf(referenceTime)
}

// ---------------------------- Student fixtures ----------------------------

// StudentFixture represents a deterministic student record that can be
// materialised for application or persistence tests.
type StudentFixture struct {
	ID         string
	FullName   string
	ClassKey   string
	ShiftName  string
	Phone      *string
	EnrolledOn string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StudentOption mutates a StudentFixture under construction.
type StudentOption func(*StudentFixture)

// NewStudentFixture builds a student enrolled well before the reference date.
func NewStudentFixture(opts ...StudentOption) StudentFixture {
	n := atomic.AddUint64(&studentCounter, 1)
	fixture := StudentFixture{
		ID:         fmt.Sprintf("student-%d", n),
		FullName:   fmt.Sprintf("Student %d", n),
		ClassKey:   "7a",
		ShiftName:  "morning",
		EnrolledOn: "2026-01-05",
		CreatedAt:  referenceTime,
		UpdatedAt:  referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithStudentID overrides the generated identifier.
func WithStudentID(id string) StudentOption {
	return func(f *StudentFixture) { f.ID = id }
}

// WithStudentClassShift places the student in the given class shift.
func WithStudentClassShift(classKey, shiftName string) StudentOption {
	return func(f *StudentFixture) {
		f.ClassKey = classKey
		f.ShiftName = shiftName
	}
}

// WithStudentEnrolledOn overrides the enrollment date.
func WithStudentEnrolledOn(date string) StudentOption {
	return func(f *StudentFixture) { f.EnrolledOn = date }
}

// WithStudentPhone sets the guardian contact number.
func WithStudentPhone(phone string) StudentOption {
	return func(f *StudentFixture) { f.Phone = &phone }
}

// Persistence materialises the fixture as a storage model.
func (f StudentFixture) Persistence() persistence.Student {
	return persistence.Student{
		ID:         f.ID,
		FullName:   f.FullName,
		ClassKey:   f.ClassKey,
		ShiftName:  f.ShiftName,
		Phone:      f.Phone,
		EnrolledOn: f.EnrolledOn,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// Application materialises the fixture as an application model.
func (f StudentFixture) Application() application.Student {
	return application.Student{
		ID:         f.ID,
		FullName:   f.FullName,
		ClassKey:   f.ClassKey,
		ShiftName:  f.ShiftName,
		Phone:      f.Phone,
		EnrolledOn: calendar.Date(f.EnrolledOn),
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// ---------------------------- Operator fixtures ----------------------------

// OperatorFixture represents a deterministic staff account.
type OperatorFixture struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OperatorOption mutates an OperatorFixture under construction.
type OperatorOption func(*OperatorFixture)

// NewOperatorFixture builds an enabled, non-admin operator.
func NewOperatorFixture(opts ...OperatorOption) OperatorFixture {
	n := atomic.AddUint64(&operatorCounter, 1)
	fixture := OperatorFixture{
		ID:           fmt.Sprintf("operator-%d", n),
		Email:        fmt.Sprintf("operator%d@school.test", n),
		DisplayName:  fmt.Sprintf("Operator %d", n),
		PasswordHash: "not-a-real-hash",
		CreatedAt:    referenceTime,
		UpdatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithOperatorID overrides the generated identifier.
func WithOperatorID(id string) OperatorOption {
	return func(f *OperatorFixture) { f.ID = id }
}

// WithOperatorEmail overrides the generated email address.
func WithOperatorEmail(email string) OperatorOption {
	return func(f *OperatorFixture) { f.Email = email }
}

// WithOperatorAdmin marks the operator as an administrator.
func WithOperatorAdmin() OperatorOption {
	return func(f *OperatorFixture) { f.IsAdmin = true }
}

// WithOperatorDisabled marks the account as disabled.
func WithOperatorDisabled() OperatorOption {
	return func(f *OperatorFixture) { f.Disabled = true }
}

// Persistence materialises the fixture as a storage model.
func (f OperatorFixture) Persistence() persistence.Operator {
	return persistence.Operator{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		PasswordHash: f.PasswordHash,
		IsAdmin:      f.IsAdmin,
		Disabled:     f.Disabled,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Principal materialises the fixture as an acting principal.
func (f OperatorFixture) Principal() application.Principal {
	return application.Principal{OperatorID: f.ID, IsAdmin: f.IsAdmin}
}

// --------------------------- Permission fixtures ---------------------------

// PermissionFixture represents a deterministic absence-permission interval.
type PermissionFixture struct {
	ID        string
	StudentID string
	StartDate string
	EndDate   string
	Status    attendance.PermissionStatus
	Note      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PermissionOption mutates a PermissionFixture under construction.
type PermissionOption func(*PermissionFixture)

// NewPermissionFixture builds an approved one-day interval on the reference date.
func NewPermissionFixture(opts ...PermissionOption) PermissionFixture {
	n := atomic.AddUint64(&permissionCounter, 1)
	date := string(ReferenceDate())
	fixture := PermissionFixture{
		ID:        fmt.Sprintf("permission-%d", n),
		StudentID: "student-1",
		StartDate: date,
		EndDate:   date,
		Status:    attendance.PermissionApproved,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithPermissionStudent attaches the interval to the given student.
func WithPermissionStudent(studentID string) PermissionOption {
	return func(f *PermissionFixture) { f.StudentID = studentID }
}

// WithPermissionInterval overrides the inclusive date range.
func WithPermissionInterval(start, end string) PermissionOption {
	return func(f *PermissionFixture) {
		f.StartDate = start
		f.EndDate = end
	}
}

// WithPermissionStatus overrides the review state.
func WithPermissionStatus(status attendance.PermissionStatus) PermissionOption {
	return func(f *PermissionFixture) { f.Status = status }
}

// Persistence materialises the fixture as a storage model.
func (f PermissionFixture) Persistence() persistence.Permission {
	return persistence.Permission{
		ID:        f.ID,
		StudentID: f.StudentID,
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
		Status:    string(f.Status),
		Note:      f.Note,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// ---------------------------- Check-in fixtures ----------------------------

// CheckInFixture represents a deterministic check-in event.
type CheckInFixture struct {
	ID        string
	StudentID string
	ClassKey  string
	ShiftName string
	Date      string
	Timestamp time.Time
	Method    attendance.Method
	CreatedAt time.Time
}

// CheckInOption mutates a CheckInFixture under construction.
type CheckInOption func(*CheckInFixture)

// NewCheckInFixture builds a QR check-in at the reference time.
func NewCheckInFixture(opts ...CheckInOption) CheckInFixture {
	n := atomic.AddUint64(&checkInCounter, 1)
	fixture := CheckInFixture{
		ID:        fmt.Sprintf("checkin-%d", n),
		StudentID: "student-1",
		ClassKey:  "7a",
		ShiftName: "morning",
		Date:      string(ReferenceDate()),
		Timestamp: referenceTime,
		Method:    attendance.MethodQR,
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithCheckInStudent attaches the event to the given student.
func WithCheckInStudent(studentID string) CheckInOption {
	return func(f *CheckInFixture) { f.StudentID = studentID }
}

// WithCheckInTimestamp overrides the captured instant and its calendar date.
func WithCheckInTimestamp(ts time.Time) CheckInOption {
	return func(f *CheckInFixture) {
		f.Timestamp = ts
		f.Date = string(calendar.DateOf(ts))
	}
}

// WithCheckInMethod overrides the capture method.
func WithCheckInMethod(method attendance.Method) CheckInOption {
	return func(f *CheckInFixture) { f.Method = method }
}

// Persistence materialises the fixture as a storage model.
func (f CheckInFixture) Persistence() persistence.CheckIn {
	return persistence.CheckIn{
		ID:        f.ID,
		StudentID: f.StudentID,
		ClassKey:  f.ClassKey,
		ShiftName: f.ShiftName,
		Date:      f.Date,
		Timestamp: f.Timestamp,
		Method:    string(f.Method),
		CreatedAt: f.CreatedAt,
	}
}

// ------------------------- Shift schedule fixtures -------------------------

// ShiftScheduleFixture represents a configured class shift.
type ShiftScheduleFixture struct {
	ClassKey          string
	ShiftName         string
	StartTime         string
	GraceMinutes      int
	LateWindowMinutes int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ShiftScheduleOption mutates a ShiftScheduleFixture under construction.
type ShiftScheduleOption func(*ShiftScheduleFixture)

// NewShiftScheduleFixture builds a 07:00 morning shift with default windows.
func NewShiftScheduleFixture(opts ...ShiftScheduleOption) ShiftScheduleFixture {
	fixture := ShiftScheduleFixture{
		ClassKey:          "7a",
		ShiftName:         "morning",
		StartTime:         "07:00",
		GraceMinutes:      15,
		LateWindowMinutes: 60,
		CreatedAt:         referenceTime,
		UpdatedAt:         referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithShiftClass overrides the owning class key.
func WithShiftClass(classKey string) ShiftScheduleOption {
	return func(f *ShiftScheduleFixture) { f.ClassKey = classKey }
}

// WithShiftName overrides the shift name.
func WithShiftName(shiftName string) ShiftScheduleOption {
	return func(f *ShiftScheduleFixture) { f.ShiftName = shiftName }
}

// WithShiftStart overrides the scheduled start time.
func WithShiftStart(startTime string) ShiftScheduleOption {
	return func(f *ShiftScheduleFixture) { f.StartTime = startTime }
}

// Persistence materialises the fixture as a storage model.
func (f ShiftScheduleFixture) Persistence() persistence.ShiftSchedule {
	return persistence.ShiftSchedule{
		ClassKey:          f.ClassKey,
		ShiftName:         f.ShiftName,
		StartTime:         f.StartTime,
		GraceMinutes:      f.GraceMinutes,
		LateWindowMinutes: f.LateWindowMinutes,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.UpdatedAt,
	}
}

// Config materialises the fixture as a classifier shift config.
func (f ShiftScheduleFixture) Config() attendance.ShiftConfig {
	return attendance.ShiftConfig{
		ClassKey:          f.ClassKey,
		ShiftName:         f.ShiftName,
		StartTime:         f.StartTime,
		GraceMinutes:      f.GraceMinutes,
		LateWindowMinutes: f.LateWindowMinutes,
	}
}
