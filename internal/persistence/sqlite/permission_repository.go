package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/attendance-engine/internal/persistence"
)

// PermissionRepository implements persistence.PermissionRepository using SQLite.
type PermissionRepository struct {
	pool *ConnectionPool
}

// NewPermissionRepository creates a new SQLite permission repository.
func NewPermissionRepository(pool *ConnectionPool) *PermissionRepository {
	return &PermissionRepository{pool: pool}
}

// CreatePermission inserts a new absence-permission interval.
func (r *PermissionRepository) CreatePermission(ctx context.Context, permission persistence.Permission) error {
	if permission.ID == "" || permission.StudentID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO permissions (id, student_id, start_date, end_date, status, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.pool.db.ExecContext(ctx, query,
		permission.ID,
		permission.StudentID,
		permission.StartDate,
		permission.EndDate,
		permission.Status,
		nullString(permission.Note),
		formatTime(permission.CreatedAt),
		formatTime(permission.UpdatedAt),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// GetPermission fetches a permission by ID.
func (r *PermissionRepository) GetPermission(ctx context.Context, id string) (persistence.Permission, error) {
	query := `
		SELECT id, student_id, start_date, end_date, status, note, created_at, updated_at
		FROM permissions
		WHERE id = ?
	`
	row := r.pool.db.QueryRowContext(ctx, query, id)
	return scanPermission(row)
}

// UpdatePermissionStatus moves a permission through its review workflow.
func (r *PermissionRepository) UpdatePermissionStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	query := `UPDATE permissions SET status = ?, updated_at = ? WHERE id = ?`

	result, err := r.pool.db.ExecContext(ctx, query, status, formatTime(updatedAt), id)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListPermissionsForStudent returns all of a student's permissions, newest
// interval first.
func (r *PermissionRepository) ListPermissionsForStudent(ctx context.Context, studentID string) ([]persistence.Permission, error) {
	query := `
		SELECT id, student_id, start_date, end_date, status, note, created_at, updated_at
		FROM permissions
		WHERE student_id = ?
		ORDER BY start_date DESC, id
	`
	return r.list(ctx, query, studentID)
}

// ListApprovedForStudent narrows to approved intervals, the only ones that
// participate in classification.
func (r *PermissionRepository) ListApprovedForStudent(ctx context.Context, studentID string) ([]persistence.Permission, error) {
	query := `
		SELECT id, student_id, start_date, end_date, status, note, created_at, updated_at
		FROM permissions
		WHERE student_id = ? AND status = 'approved'
		ORDER BY start_date DESC, id
	`
	return r.list(ctx, query, studentID)
}

func (r *PermissionRepository) list(ctx context.Context, query string, args ...any) ([]persistence.Permission, error) {
	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var permissions []persistence.Permission
	for rows.Next() {
		permission, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		permissions = append(permissions, permission)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return permissions, nil
}

func scanPermission(row rowScanner) (persistence.Permission, error) {
	var (
		permission           persistence.Permission
		note                 sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&permission.ID,
		&permission.StudentID,
		&permission.StartDate,
		&permission.EndDate,
		&permission.Status,
		&note,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Permission{}, mapError(err)
	}

	permission.Note = fromNullString(note)

	var err error
	if permission.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Permission{}, err
	}
	if permission.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Permission{}, err
	}
	return permission, nil
}
