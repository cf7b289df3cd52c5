package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/example/attendance-engine/internal/attendance"
	"github.com/example/attendance-engine/internal/calendar"
)

// StudentService manages the student roster.
type StudentService struct {
	students    StudentStore
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(students StudentStore, idGenerator func() string, now func() time.Time) *StudentService {
	return NewStudentServiceWithLogger(students, idGenerator, now, nil)
}

// NewStudentServiceWithLogger constructs a StudentService with a specified logger.
func NewStudentServiceWithLogger(students StudentStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *StudentService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = func() time.Time { return time.Now().In(calendar.Location()) }
	}
	return &StudentService{
		students:    students,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *StudentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "StudentService", operation, attrs...)
}

func validateStudentInput(input StudentInput) (StudentInput, *ValidationError) {
	verr := &ValidationError{}

	input.FullName = strings.TrimSpace(input.FullName)
	if input.FullName == "" {
		verr.add("full_name", "is required")
	}

	input.ClassKey = attendance.NormalizeClassKey(input.ClassKey)
	if input.ClassKey == "" {
		verr.add("class_key", "is required")
	}

	input.ShiftName = strings.TrimSpace(input.ShiftName)
	if input.ShiftName == "" {
		verr.add("shift_name", "is required")
	}

	if _, err := calendar.ParseDate(input.EnrolledOn); err != nil {
		verr.add("enrolled_on", "must be a valid YYYY-MM-DD date")
	}

	if verr.HasErrors() {
		return StudentInput{}, verr
	}
	return input, nil
}

// CreateStudent registers a new student. The class key is normalized so the
// roster and the schedule registry agree on the canonical form.
func (s *StudentService) CreateStudent(ctx context.Context, principal Principal, input StudentInput) (student Student, err error) {
	logger := s.loggerWith(ctx, "CreateStudent", "operator_id", principal.OperatorID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "create student failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("student_id", student.ID).InfoContext(ctx, "student created")
	}()

	if principal.OperatorID == "" {
		err = ErrUnauthorized
		return
	}

	input, verr := validateStudentInput(input)
	if verr != nil {
		err = verr
		return
	}

	now := s.now()
	student = Student{
		ID:         s.idGenerator(),
		FullName:   input.FullName,
		ClassKey:   input.ClassKey,
		ShiftName:  input.ShiftName,
		Phone:      input.Phone,
		EnrolledOn: calendar.Date(input.EnrolledOn),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err = s.students.CreateStudent(ctx, student); err != nil {
		student = Student{}
		return
	}
	return
}

// UpdateStudent replaces a student's mutable fields.
func (s *StudentService) UpdateStudent(ctx context.Context, principal Principal, id string, input StudentInput) (student Student, err error) {
	logger := s.loggerWith(ctx, "UpdateStudent", "operator_id", principal.OperatorID, "student_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "update student failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if principal.OperatorID == "" {
		err = ErrUnauthorized
		return
	}

	existing, err := s.students.GetStudent(ctx, id)
	if err != nil {
		return
	}

	input, verr := validateStudentInput(input)
	if verr != nil {
		err = verr
		return
	}

	student = existing
	student.FullName = input.FullName
	student.ClassKey = input.ClassKey
	student.ShiftName = input.ShiftName
	student.Phone = input.Phone
	student.EnrolledOn = calendar.Date(input.EnrolledOn)
	student.UpdatedAt = s.now()

	if err = s.students.UpdateStudent(ctx, student); err != nil {
		student = Student{}
		return
	}
	return
}

// GetStudent fetches one student.
func (s *StudentService) GetStudent(ctx context.Context, id string) (Student, error) {
	return s.students.GetStudent(ctx, id)
}

// ListStudents returns every student ordered by class, shift and name.
func (s *StudentService) ListStudents(ctx context.Context) ([]Student, error) {
	return s.students.ListStudents(ctx)
}

// DeleteStudent removes a student. Admin only, since the cascade also
// removes the student's event history.
func (s *StudentService) DeleteStudent(ctx context.Context, principal Principal, id string) (err error) {
	logger := s.loggerWith(ctx, "DeleteStudent", "operator_id", principal.OperatorID, "student_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "delete student failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "student deleted")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	if err = s.students.DeleteStudent(ctx, id); err != nil {
		return
	}
	return
}
