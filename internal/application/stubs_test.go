package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/attendance-engine/internal/attendance"
	"github.com/example/attendance-engine/internal/calendar"
)

// studentStoreStub is an in-memory StudentStore.
type studentStoreStub struct {
	mu       sync.Mutex
	students map[string]Student
	err      error
}

func newStudentStoreStub(students ...Student) *studentStoreStub {
	stub := &studentStoreStub{students: make(map[string]Student)}
	for _, student := range students {
		stub.students[student.ID] = student
	}
	return stub
}

func (s *studentStoreStub) CreateStudent(_ context.Context, student Student) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[student.ID]; ok {
		return ErrAlreadyExists
	}
	s.students[student.ID] = student
	return nil
}

func (s *studentStoreStub) UpdateStudent(_ context.Context, student Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[student.ID]; !ok {
		return ErrNotFound
	}
	s.students[student.ID] = student
	return nil
}

func (s *studentStoreStub) GetStudent(_ context.Context, id string) (Student, error) {
	if s.err != nil {
		return Student{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	student, ok := s.students[id]
	if !ok {
		return Student{}, ErrNotFound
	}
	return student, nil
}

func (s *studentStoreStub) ListStudents(_ context.Context) ([]Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Student, 0, len(s.students))
	for _, student := range s.students {
		list = append(list, student)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].ClassKey != list[j].ClassKey {
			return list[i].ClassKey < list[j].ClassKey
		}
		if list[i].ShiftName != list[j].ShiftName {
			return list[i].ShiftName < list[j].ShiftName
		}
		return list[i].FullName < list[j].FullName
	})
	return list, nil
}

func (s *studentStoreStub) ListStudentsByClassShift(_ context.Context, classKey, shiftName string) ([]Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []Student
	for _, student := range s.students {
		if student.ClassKey == classKey && student.ShiftName == shiftName {
			list = append(list, student)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].FullName < list[j].FullName })
	return list, nil
}

func (s *studentStoreStub) DeleteStudent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[id]; !ok {
		return ErrNotFound
	}
	delete(s.students, id)
	return nil
}

// checkInStoreStub is an in-memory CheckInStore that models soft deletion.
type checkInStoreStub struct {
	mu     sync.Mutex
	events []CheckInEvent
	hidden map[string]bool
	err    error
}

func newCheckInStoreStub(events ...CheckInEvent) *checkInStoreStub {
	return &checkInStoreStub{events: events, hidden: make(map[string]bool)}
}

func (s *checkInStoreStub) CreateCheckIn(_ context.Context, event CheckInEvent) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *checkInStoreStub) LatestForStudentDate(_ context.Context, studentID string, date calendar.Date) (CheckInEvent, error) {
	if s.err != nil {
		return CheckInEvent{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		found  bool
		latest CheckInEvent
	)
	for _, event := range s.events {
		if event.StudentID != studentID || event.Date != date || s.hidden[event.ID] {
			continue
		}
		if !found || event.CreatedAt.After(latest.CreatedAt) {
			latest = event
			found = true
		}
	}
	if !found {
		return CheckInEvent{}, ErrNotFound
	}
	return latest, nil
}

func (s *checkInStoreStub) ListForStudentRange(ctx context.Context, studentID string, start, end calendar.Date) ([]CheckInEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	var list []CheckInEvent
	for date := end; !date.Before(start); date = date.AddDays(-1) {
		event, err := s.LatestForStudentDate(ctx, studentID, date)
		if err != nil {
			continue
		}
		list = append(list, event)
	}
	return list, nil
}

func (s *checkInStoreStub) MarkDeleted(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, event := range s.events {
		if event.ID == id {
			s.hidden[id] = true
			return nil
		}
	}
	return ErrNotFound
}

// permissionStoreStub is an in-memory PermissionStore.
type permissionStoreStub struct {
	mu          sync.Mutex
	permissions map[string]Permission
	err         error
}

func newPermissionStoreStub(permissions ...Permission) *permissionStoreStub {
	stub := &permissionStoreStub{permissions: make(map[string]Permission)}
	for _, permission := range permissions {
		stub.permissions[permission.ID] = permission
	}
	return stub
}

func (s *permissionStoreStub) CreatePermission(_ context.Context, permission Permission) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[permission.ID] = permission
	return nil
}

func (s *permissionStoreStub) GetPermission(_ context.Context, id string) (Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	permission, ok := s.permissions[id]
	if !ok {
		return Permission{}, ErrNotFound
	}
	return permission, nil
}

func (s *permissionStoreStub) UpdatePermissionStatus(_ context.Context, id string, status attendance.PermissionStatus, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	permission, ok := s.permissions[id]
	if !ok {
		return ErrNotFound
	}
	permission.Status = status
	permission.UpdatedAt = updatedAt
	s.permissions[id] = permission
	return nil
}

func (s *permissionStoreStub) ListPermissionsForStudent(_ context.Context, studentID string) ([]Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []Permission
	for _, permission := range s.permissions {
		if permission.StudentID == studentID {
			list = append(list, permission)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartDate.After(list[j].StartDate) })
	return list, nil
}

func (s *permissionStoreStub) ListApprovedForStudent(ctx context.Context, studentID string) ([]Permission, error) {
	if s.err != nil {
		return nil, s.err
	}
	all, err := s.ListPermissionsForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	var approved []Permission
	for _, permission := range all {
		if permission.Status == attendance.PermissionApproved {
			approved = append(approved, permission)
		}
	}
	return approved, nil
}

// scheduleStoreStub is an in-memory ScheduleStore.
type scheduleStoreStub struct {
	mu        sync.Mutex
	shifts    map[string]attendance.ShiftConfig
	studyDays map[string][]time.Weekday
	loadErr   error
	loads     int
}

func newScheduleStoreStub(shifts ...attendance.ShiftConfig) *scheduleStoreStub {
	stub := &scheduleStoreStub{
		shifts:    make(map[string]attendance.ShiftConfig),
		studyDays: make(map[string][]time.Weekday),
	}
	for _, shift := range shifts {
		stub.shifts[shift.ClassKey+"/"+shift.ShiftName] = shift
	}
	return stub
}

func (s *scheduleStoreStub) UpsertClassConfig(_ context.Context, classKey, _ string, studyDays []time.Weekday, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.studyDays[classKey] = studyDays
	return nil
}

func (s *scheduleStoreStub) UpsertShiftSchedule(_ context.Context, shift attendance.ShiftConfig, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shifts[shift.ClassKey+"/"+shift.ShiftName] = shift
	return nil
}

func (s *scheduleStoreStub) DeleteShiftSchedule(_ context.Context, classKey, shiftName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := classKey + "/" + shiftName
	if _, ok := s.shifts[key]; !ok {
		return ErrNotFound
	}
	delete(s.shifts, key)
	return nil
}

func (s *scheduleStoreStub) LoadSnapshot(_ context.Context) (ScheduleSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return ScheduleSnapshot{}, s.loadErr
	}
	snapshot := ScheduleSnapshot{StudyDays: make(map[string][]time.Weekday)}
	for _, shift := range s.shifts {
		snapshot.Shifts = append(snapshot.Shifts, shift)
	}
	for classKey, days := range s.studyDays {
		snapshot.StudyDays[classKey] = days
	}
	return snapshot, nil
}

// credentialStoreStub serves a single operator.
type credentialStoreStub struct {
	credentials OperatorCredentials
	err         error
}

func (s *credentialStoreStub) GetOperatorCredentialsByEmail(_ context.Context, _ string) (OperatorCredentials, error) {
	if s.err != nil {
		return OperatorCredentials{}, s.err
	}
	return s.credentials, nil
}

func (s *credentialStoreStub) GetOperator(_ context.Context, id string) (Operator, error) {
	if s.err != nil {
		return Operator{}, s.err
	}
	if s.credentials.Operator.ID != id {
		return Operator{}, ErrNotFound
	}
	return s.credentials.Operator, nil
}

// sessionStoreStub is an in-memory SessionStore.
type sessionStoreStub struct {
	mu        sync.Mutex
	sessions  map[string]Session
	createErr error
}

func newSessionStoreStub() *sessionStoreStub {
	return &sessionStoreStub{sessions: make(map[string]Session)}
}

func (s *sessionStoreStub) CreateSession(_ context.Context, session Session) (Session, error) {
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = session
	return session, nil
}

func (s *sessionStoreStub) GetSession(_ context.Context, token string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

func (s *sessionStoreStub) RevokeSession(_ context.Context, token string, revokedAt time.Time) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	session.RevokedAt = &revokedAt
	s.sessions[token] = session
	return session, nil
}

func (s *sessionStoreStub) DeleteExpiredSessions(_ context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.sessions {
		if session.ExpiresAt.Before(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

// holidayStub serves a fixed holiday snapshot.
type holidayStub struct {
	holidays *calendar.Holidays
}

func (s *holidayStub) Snapshot() *calendar.Holidays {
	return s.holidays
}

// notifierStub records delivered notifications.
type notifierStub struct {
	mu       sync.Mutex
	notified []string
	err      error
}

func (s *notifierStub) NotifyAbsence(_ context.Context, student Student, _ attendance.DayRecord) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notified = append(s.notified, student.ID)
	return nil
}

func (s *notifierStub) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.notified))
	copy(ids, s.notified)
	sort.Strings(ids)
	return ids
}

// loadedProvider builds a RegistryProvider already loaded from the stub.
func loadedProvider(t interface{ Fatalf(string, ...any) }, store ScheduleStore) *RegistryProvider {
	provider := NewRegistryProvider(store, nil)
	if err := provider.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	return provider
}
