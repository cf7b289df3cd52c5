package sqlite

import (
	"context"
	"fmt"

	"github.com/example/attendance-engine/internal/persistence"
)

// CheckInRepository implements persistence.CheckInRepository using SQLite.
type CheckInRepository struct {
	pool *ConnectionPool
}

// NewCheckInRepository creates a new SQLite check-in repository.
func NewCheckInRepository(pool *ConnectionPool) *CheckInRepository {
	return &CheckInRepository{pool: pool}
}

// CreateCheckIn appends a check-in event. Events are never updated in place;
// corrections append a replacement and soft-delete the old row.
func (r *CheckInRepository) CreateCheckIn(ctx context.Context, event persistence.CheckIn) error {
	if event.ID == "" || event.StudentID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO check_ins (id, student_id, class_key, shift_name, date, timestamp, method, deleted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.pool.db.ExecContext(ctx, query,
		event.ID,
		event.StudentID,
		event.ClassKey,
		event.ShiftName,
		event.Date,
		formatTime(event.Timestamp),
		event.Method,
		boolToInt(event.Deleted),
		formatTime(event.CreatedAt),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// LatestForStudentDate returns the most recent non-deleted event for the
// student on the calendar date.
func (r *CheckInRepository) LatestForStudentDate(ctx context.Context, studentID, date string) (persistence.CheckIn, error) {
	query := `
		SELECT id, student_id, class_key, shift_name, date, timestamp, method, deleted, created_at
		FROM check_ins
		WHERE student_id = ? AND date = ? AND deleted = 0
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	row := r.pool.db.QueryRowContext(ctx, query, studentID, date)
	return scanCheckIn(row)
}

// ListForStudentRange returns the authoritative event per date in the
// inclusive range, newest date first. Dates with only soft-deleted events
// are omitted.
func (r *CheckInRepository) ListForStudentRange(ctx context.Context, studentID, startDate, endDate string) ([]persistence.CheckIn, error) {
	query := `
		SELECT id, student_id, class_key, shift_name, date, timestamp, method, deleted, created_at
		FROM check_ins
		WHERE student_id = ? AND date >= ? AND date <= ? AND deleted = 0
		ORDER BY date DESC, created_at DESC, id DESC
	`
	rows, err := r.pool.db.QueryContext(ctx, query, studentID, startDate, endDate)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var (
		events   []persistence.CheckIn
		lastDate string
	)
	for rows.Next() {
		event, err := scanCheckIn(rows)
		if err != nil {
			return nil, err
		}
		if event.Date == lastDate {
			continue
		}
		lastDate = event.Date
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return events, nil
}

// MarkDeleted soft-deletes an event so a correction can supersede it.
func (r *CheckInRepository) MarkDeleted(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `UPDATE check_ins SET deleted = 1 WHERE id = ?`, id)
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

func scanCheckIn(row rowScanner) (persistence.CheckIn, error) {
	var (
		event                persistence.CheckIn
		deleted              int
		timestamp, createdAt string
	)
	if err := row.Scan(
		&event.ID,
		&event.StudentID,
		&event.ClassKey,
		&event.ShiftName,
		&event.Date,
		&timestamp,
		&event.Method,
		&deleted,
		&createdAt,
	); err != nil {
		return persistence.CheckIn{}, mapError(err)
	}

	event.Deleted = deleted != 0

	var err error
	if event.Timestamp, err = parseTime(timestamp); err != nil {
		return persistence.CheckIn{}, err
	}
	if event.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.CheckIn{}, err
	}
	return event, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
