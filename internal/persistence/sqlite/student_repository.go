package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/attendance-engine/internal/persistence"
)

// StudentRepository implements persistence.StudentRepository using SQLite.
type StudentRepository struct {
	pool *ConnectionPool
}

// NewStudentRepository creates a new SQLite student repository.
func NewStudentRepository(pool *ConnectionPool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// CreateStudent inserts a new student.
func (r *StudentRepository) CreateStudent(ctx context.Context, student persistence.Student) error {
	if student.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO students (id, full_name, class_key, shift_name, phone, enrolled_on, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.pool.db.ExecContext(ctx, query,
		student.ID,
		student.FullName,
		student.ClassKey,
		student.ShiftName,
		nullString(student.Phone),
		student.EnrolledOn,
		formatTime(student.CreatedAt),
		formatTime(student.UpdatedAt),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// UpdateStudent updates an existing student.
func (r *StudentRepository) UpdateStudent(ctx context.Context, student persistence.Student) error {
	query := `
		UPDATE students
		SET full_name = ?, class_key = ?, shift_name = ?, phone = ?, enrolled_on = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.pool.db.ExecContext(ctx, query,
		student.FullName,
		student.ClassKey,
		student.ShiftName,
		nullString(student.Phone),
		student.EnrolledOn,
		formatTime(student.UpdatedAt),
		student.ID,
	)
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

// GetStudent fetches a student by ID.
func (r *StudentRepository) GetStudent(ctx context.Context, id string) (persistence.Student, error) {
	query := `
		SELECT id, full_name, class_key, shift_name, phone, enrolled_on, created_at, updated_at
		FROM students
		WHERE id = ?
	`
	row := r.pool.db.QueryRowContext(ctx, query, id)
	return scanStudent(row)
}

// ListStudents returns all students ordered by class, shift and name.
func (r *StudentRepository) ListStudents(ctx context.Context) ([]persistence.Student, error) {
	query := `
		SELECT id, full_name, class_key, shift_name, phone, enrolled_on, created_at, updated_at
		FROM students
		ORDER BY class_key, shift_name, full_name
	`
	rows, err := r.pool.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return collectStudents(rows)
}

// ListStudentsByClassShift returns the roster for one class shift ordered by name.
func (r *StudentRepository) ListStudentsByClassShift(ctx context.Context, classKey, shiftName string) ([]persistence.Student, error) {
	query := `
		SELECT id, full_name, class_key, shift_name, phone, enrolled_on, created_at, updated_at
		FROM students
		WHERE class_key = ? AND shift_name = ?
		ORDER BY full_name
	`
	rows, err := r.pool.db.QueryContext(ctx, query, classKey, shiftName)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return collectStudents(rows)
}

// DeleteStudent removes a student and, through cascading foreign keys, the
// student's events and permissions.
func (r *StudentRepository) DeleteStudent(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (persistence.Student, error) {
	var (
		student              persistence.Student
		phone                sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&student.ID,
		&student.FullName,
		&student.ClassKey,
		&student.ShiftName,
		&phone,
		&student.EnrolledOn,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Student{}, mapError(err)
	}

	student.Phone = fromNullString(phone)

	var err error
	if student.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Student{}, err
	}
	if student.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Student{}, err
	}
	return student, nil
}

func collectStudents(rows *sql.Rows) ([]persistence.Student, error) {
	var students []persistence.Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return students, nil
}
