package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/example/attendance-engine/internal/attendance"
	"github.com/example/attendance-engine/internal/calendar"
)

// PermissionService manages absence-permission requests and their review
// workflow. Only approval changes classification; pending and rejected
// intervals are inert.
type PermissionService struct {
	permissions PermissionStore
	students    StudentStore
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewPermissionService constructs a PermissionService.
func NewPermissionService(permissions PermissionStore, students StudentStore, idGenerator func() string, now func() time.Time) *PermissionService {
	return NewPermissionServiceWithLogger(permissions, students, idGenerator, now, nil)
}

// NewPermissionServiceWithLogger constructs a PermissionService with a specified logger.
func NewPermissionServiceWithLogger(permissions PermissionStore, students StudentStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *PermissionService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = func() time.Time { return time.Now().In(calendar.Location()) }
	}
	return &PermissionService{
		permissions: permissions,
		students:    students,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *PermissionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PermissionService", operation, attrs...)
}

// Submit files a new permission request in the pending state.
func (s *PermissionService) Submit(ctx context.Context, input PermissionInput) (permission Permission, err error) {
	logger := s.loggerWith(ctx, "Submit", "student_id", input.StudentID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "permission submit failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("permission_id", permission.ID).InfoContext(ctx, "permission submitted")
	}()

	verr := &ValidationError{}
	if strings.TrimSpace(input.StudentID) == "" {
		verr.add("student_id", "is required")
	}
	start, serr := calendar.ParseDate(input.StartDate)
	if serr != nil {
		verr.add("start_date", "must be a valid YYYY-MM-DD date")
	}
	end, eerr := calendar.ParseDate(input.EndDate)
	if eerr != nil {
		verr.add("end_date", "must be a valid YYYY-MM-DD date")
	}
	if serr == nil && eerr == nil && end.Before(start) {
		verr.add("end_date", "must not precede start_date")
	}
	if verr.HasErrors() {
		err = verr
		return
	}

	if _, err = s.students.GetStudent(ctx, input.StudentID); err != nil {
		return
	}

	now := s.now()
	permission = Permission{
		ID:        s.idGenerator(),
		StudentID: input.StudentID,
		StartDate: start,
		EndDate:   end,
		Status:    attendance.PermissionPending,
		Note:      input.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.permissions.CreatePermission(ctx, permission); err != nil {
		permission = Permission{}
		return
	}
	return
}

// Review approves or rejects a pending permission. Approval immediately
// affects classification for the covered dates.
func (s *PermissionService) Review(ctx context.Context, principal Principal, id string, approve bool) (permission Permission, err error) {
	logger := s.loggerWith(ctx, "Review",
		"operator_id", principal.OperatorID,
		"permission_id", id,
		"approve", approve,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "permission review failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("status", string(permission.Status)).InfoContext(ctx, "permission reviewed")
	}()

	if principal.OperatorID == "" {
		err = ErrUnauthorized
		return
	}

	existing, err := s.permissions.GetPermission(ctx, id)
	if err != nil {
		return
	}
	if existing.Status != attendance.PermissionPending {
		verr := &ValidationError{}
		verr.add("status", "only pending permissions can be reviewed")
		err = verr
		return
	}

	status := attendance.PermissionRejected
	if approve {
		status = attendance.PermissionApproved
	}
	now := s.now()
	if err = s.permissions.UpdatePermissionStatus(ctx, id, status, now); err != nil {
		return
	}

	permission = existing
	permission.Status = status
	permission.UpdatedAt = now
	return
}

// ListForStudent returns all of a student's permissions, newest first.
func (s *PermissionService) ListForStudent(ctx context.Context, studentID string) ([]Permission, error) {
	if _, err := s.students.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return s.permissions.ListPermissionsForStudent(ctx, studentID)
}
