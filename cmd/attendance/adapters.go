package main

import (
	"context"
	"time"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/attendance"
	"github.com/example/attendance-engine/internal/calendar"
	"github.com/example/attendance-engine/internal/persistence"
)

// The application services speak domain types while the repositories speak
// storage rows. These adapters convert between the two at the wiring seam so
// neither layer imports the other.

type studentStoreAdapter struct {
	repo persistence.StudentRepository
}

func newStudentStoreAdapter(repo persistence.StudentRepository) *studentStoreAdapter {
	return &studentStoreAdapter{repo: repo}
}

func (a *studentStoreAdapter) CreateStudent(ctx context.Context, student application.Student) error {
	return a.repo.CreateStudent(ctx, toPersistenceStudent(student))
}

func (a *studentStoreAdapter) UpdateStudent(ctx context.Context, student application.Student) error {
	return a.repo.UpdateStudent(ctx, toPersistenceStudent(student))
}

func (a *studentStoreAdapter) GetStudent(ctx context.Context, id string) (application.Student, error) {
	stored, err := a.repo.GetStudent(ctx, id)
	if err != nil {
		return application.Student{}, err
	}
	return toApplicationStudent(stored), nil
}

func (a *studentStoreAdapter) ListStudents(ctx context.Context) ([]application.Student, error) {
	stored, err := a.repo.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	return toApplicationStudents(stored), nil
}

func (a *studentStoreAdapter) ListStudentsByClassShift(ctx context.Context, classKey, shiftName string) ([]application.Student, error) {
	stored, err := a.repo.ListStudentsByClassShift(ctx, classKey, shiftName)
	if err != nil {
		return nil, err
	}
	return toApplicationStudents(stored), nil
}

func (a *studentStoreAdapter) DeleteStudent(ctx context.Context, id string) error {
	return a.repo.DeleteStudent(ctx, id)
}

type checkInStoreAdapter struct {
	repo persistence.CheckInRepository
}

func newCheckInStoreAdapter(repo persistence.CheckInRepository) *checkInStoreAdapter {
	return &checkInStoreAdapter{repo: repo}
}

func (a *checkInStoreAdapter) CreateCheckIn(ctx context.Context, event application.CheckInEvent) error {
	return a.repo.CreateCheckIn(ctx, toPersistenceCheckIn(event))
}

func (a *checkInStoreAdapter) LatestForStudentDate(ctx context.Context, studentID string, date calendar.Date) (application.CheckInEvent, error) {
	stored, err := a.repo.LatestForStudentDate(ctx, studentID, string(date))
	if err != nil {
		return application.CheckInEvent{}, err
	}
	return toApplicationCheckIn(stored), nil
}

func (a *checkInStoreAdapter) ListForStudentRange(ctx context.Context, studentID string, start, end calendar.Date) ([]application.CheckInEvent, error) {
	stored, err := a.repo.ListForStudentRange(ctx, studentID, string(start), string(end))
	if err != nil {
		return nil, err
	}
	events := make([]application.CheckInEvent, 0, len(stored))
	for _, row := range stored {
		events = append(events, toApplicationCheckIn(row))
	}
	return events, nil
}

func (a *checkInStoreAdapter) MarkDeleted(ctx context.Context, id string) error {
	return a.repo.MarkDeleted(ctx, id)
}

type permissionStoreAdapter struct {
	repo persistence.PermissionRepository
}

func newPermissionStoreAdapter(repo persistence.PermissionRepository) *permissionStoreAdapter {
	return &permissionStoreAdapter{repo: repo}
}

func (a *permissionStoreAdapter) CreatePermission(ctx context.Context, permission application.Permission) error {
	return a.repo.CreatePermission(ctx, toPersistencePermission(permission))
}

func (a *permissionStoreAdapter) GetPermission(ctx context.Context, id string) (application.Permission, error) {
	stored, err := a.repo.GetPermission(ctx, id)
	if err != nil {
		return application.Permission{}, err
	}
	return toApplicationPermission(stored), nil
}

func (a *permissionStoreAdapter) UpdatePermissionStatus(ctx context.Context, id string, status attendance.PermissionStatus, updatedAt time.Time) error {
	return a.repo.UpdatePermissionStatus(ctx, id, string(status), updatedAt)
}

func (a *permissionStoreAdapter) ListPermissionsForStudent(ctx context.Context, studentID string) ([]application.Permission, error) {
	stored, err := a.repo.ListPermissionsForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return toApplicationPermissions(stored), nil
}

func (a *permissionStoreAdapter) ListApprovedForStudent(ctx context.Context, studentID string) ([]application.Permission, error) {
	stored, err := a.repo.ListApprovedForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return toApplicationPermissions(stored), nil
}

type scheduleStoreAdapter struct {
	repo persistence.ScheduleRepository
}

func newScheduleStoreAdapter(repo persistence.ScheduleRepository) *scheduleStoreAdapter {
	return &scheduleStoreAdapter{repo: repo}
}

func (a *scheduleStoreAdapter) UpsertClassConfig(ctx context.Context, classKey, name string, studyDays []time.Weekday, now time.Time) error {
	return a.repo.UpsertClassConfig(ctx, persistence.ClassConfig{
		ClassKey:  classKey,
		Name:      name,
		StudyDays: studyDays,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (a *scheduleStoreAdapter) UpsertShiftSchedule(ctx context.Context, shift attendance.ShiftConfig, now time.Time) error {
	return a.repo.UpsertShiftSchedule(ctx, persistence.ShiftSchedule{
		ClassKey:          shift.ClassKey,
		ShiftName:         shift.ShiftName,
		StartTime:         shift.StartTime,
		GraceMinutes:      shift.GraceMinutes,
		LateWindowMinutes: shift.LateWindowMinutes,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
}

func (a *scheduleStoreAdapter) DeleteShiftSchedule(ctx context.Context, classKey, shiftName string) error {
	return a.repo.DeleteShiftSchedule(ctx, classKey, shiftName)
}

func (a *scheduleStoreAdapter) LoadSnapshot(ctx context.Context) (application.ScheduleSnapshot, error) {
	stored, err := a.repo.LoadSnapshot(ctx)
	if err != nil {
		return application.ScheduleSnapshot{}, err
	}
	snapshot := application.ScheduleSnapshot{
		Shifts:    make([]attendance.ShiftConfig, 0, len(stored.Shifts)),
		StudyDays: make(map[string][]time.Weekday, len(stored.Classes)),
	}
	for _, shift := range stored.Shifts {
		snapshot.Shifts = append(snapshot.Shifts, attendance.ShiftConfig{
			ClassKey:          shift.ClassKey,
			ShiftName:         shift.ShiftName,
			StartTime:         shift.StartTime,
			GraceMinutes:      shift.GraceMinutes,
			LateWindowMinutes: shift.LateWindowMinutes,
		})
	}
	for _, class := range stored.Classes {
		snapshot.StudyDays[class.ClassKey] = append([]time.Weekday(nil), class.StudyDays...)
	}
	return snapshot, nil
}

type credentialStoreAdapter struct {
	repo persistence.OperatorRepository
}

func newCredentialStoreAdapter(repo persistence.OperatorRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetOperatorCredentialsByEmail(ctx context.Context, email string) (application.OperatorCredentials, error) {
	stored, err := a.repo.GetOperatorByEmail(ctx, email)
	if err != nil {
		return application.OperatorCredentials{}, err
	}
	return application.OperatorCredentials{
		Operator:     toApplicationOperator(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

func (a *credentialStoreAdapter) GetOperator(ctx context.Context, id string) (application.Operator, error) {
	stored, err := a.repo.GetOperator(ctx, id)
	if err != nil {
		return application.Operator{}, err
	}
	return toApplicationOperator(stored), nil
}

type sessionStoreAdapter struct {
	repo persistence.SessionRepository
}

func newSessionStoreAdapter(repo persistence.SessionRepository) *sessionStoreAdapter {
	return &sessionStoreAdapter{repo: repo}
}

func (a *sessionStoreAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionStoreAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionStoreAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionStoreAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

func toPersistenceStudent(student application.Student) persistence.Student {
	return persistence.Student{
		ID:         student.ID,
		FullName:   student.FullName,
		ClassKey:   student.ClassKey,
		ShiftName:  student.ShiftName,
		Phone:      cloneString(student.Phone),
		EnrolledOn: string(student.EnrolledOn),
		CreatedAt:  student.CreatedAt,
		UpdatedAt:  student.UpdatedAt,
	}
}

func toApplicationStudent(student persistence.Student) application.Student {
	return application.Student{
		ID:         student.ID,
		FullName:   student.FullName,
		ClassKey:   student.ClassKey,
		ShiftName:  student.ShiftName,
		Phone:      cloneString(student.Phone),
		EnrolledOn: calendar.Date(student.EnrolledOn),
		CreatedAt:  student.CreatedAt,
		UpdatedAt:  student.UpdatedAt,
	}
}

func toApplicationStudents(stored []persistence.Student) []application.Student {
	students := make([]application.Student, 0, len(stored))
	for _, row := range stored {
		students = append(students, toApplicationStudent(row))
	}
	return students
}

func toPersistenceCheckIn(event application.CheckInEvent) persistence.CheckIn {
	return persistence.CheckIn{
		ID:        event.ID,
		StudentID: event.StudentID,
		ClassKey:  event.ClassKey,
		ShiftName: event.ShiftName,
		Date:      string(event.Date),
		Timestamp: event.Timestamp,
		Method:    string(event.Method),
		CreatedAt: event.CreatedAt,
	}
}

func toApplicationCheckIn(event persistence.CheckIn) application.CheckInEvent {
	return application.CheckInEvent{
		ID:        event.ID,
		StudentID: event.StudentID,
		ClassKey:  event.ClassKey,
		ShiftName: event.ShiftName,
		Date:      calendar.Date(event.Date),
		Timestamp: event.Timestamp,
		Method:    attendance.Method(event.Method),
		CreatedAt: event.CreatedAt,
	}
}

func toPersistencePermission(permission application.Permission) persistence.Permission {
	return persistence.Permission{
		ID:        permission.ID,
		StudentID: permission.StudentID,
		StartDate: string(permission.StartDate),
		EndDate:   string(permission.EndDate),
		Status:    string(permission.Status),
		Note:      cloneString(permission.Note),
		CreatedAt: permission.CreatedAt,
		UpdatedAt: permission.UpdatedAt,
	}
}

func toApplicationPermission(permission persistence.Permission) application.Permission {
	return application.Permission{
		ID:        permission.ID,
		StudentID: permission.StudentID,
		StartDate: calendar.Date(permission.StartDate),
		EndDate:   calendar.Date(permission.EndDate),
		Status:    attendance.PermissionStatus(permission.Status),
		Note:      cloneString(permission.Note),
		CreatedAt: permission.CreatedAt,
		UpdatedAt: permission.UpdatedAt,
	}
}

func toApplicationPermissions(stored []persistence.Permission) []application.Permission {
	permissions := make([]application.Permission, 0, len(stored))
	for _, row := range stored {
		permissions = append(permissions, toApplicationPermission(row))
	}
	return permissions
}

func toApplicationOperator(operator persistence.Operator) application.Operator {
	return application.Operator{
		ID:          operator.ID,
		Email:       operator.Email,
		DisplayName: operator.DisplayName,
		IsAdmin:     operator.IsAdmin,
		Disabled:    operator.Disabled,
		CreatedAt:   operator.CreatedAt,
		UpdatedAt:   operator.UpdatedAt,
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:         session.ID,
		OperatorID: session.OperatorID,
		Token:      session.Token,
		ExpiresAt:  session.ExpiresAt,
		CreatedAt:  session.CreatedAt,
		UpdatedAt:  session.UpdatedAt,
		RevokedAt:  cloneTime(session.RevokedAt),
	}
}

func toApplicationSession(session persistence.Session) application.Session {
	return application.Session{
		ID:         session.ID,
		OperatorID: session.OperatorID,
		Token:      session.Token,
		ExpiresAt:  session.ExpiresAt,
		CreatedAt:  session.CreatedAt,
		UpdatedAt:  session.UpdatedAt,
		RevokedAt:  cloneTime(session.RevokedAt),
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
