package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/attendance-engine/internal/persistence"
)

// ScheduleRepository implements persistence.ScheduleRepository using SQLite.
type ScheduleRepository struct {
	pool *ConnectionPool
}

// NewScheduleRepository creates a new SQLite schedule repository.
func NewScheduleRepository(pool *ConnectionPool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

// UpsertClassConfig creates or replaces the per-class settings.
func (r *ScheduleRepository) UpsertClassConfig(ctx context.Context, class persistence.ClassConfig) error {
	if class.ClassKey == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO class_configs (class_key, name, study_days, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (class_key) DO UPDATE
		SET name = excluded.name, study_days = excluded.study_days, updated_at = excluded.updated_at
	`

	_, err := r.pool.db.ExecContext(ctx, query,
		class.ClassKey,
		class.Name,
		encodeStudyDays(class.StudyDays),
		formatTime(class.CreatedAt),
		formatTime(class.UpdatedAt),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// UpsertShiftSchedule creates or replaces the schedule for one class shift.
func (r *ScheduleRepository) UpsertShiftSchedule(ctx context.Context, shift persistence.ShiftSchedule) error {
	if shift.ClassKey == "" || shift.ShiftName == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO shift_schedules (class_key, shift_name, start_time, grace_minutes, late_window_minutes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (class_key, shift_name) DO UPDATE
		SET start_time = excluded.start_time,
		    grace_minutes = excluded.grace_minutes,
		    late_window_minutes = excluded.late_window_minutes,
		    updated_at = excluded.updated_at
	`

	_, err := r.pool.db.ExecContext(ctx, query,
		shift.ClassKey,
		shift.ShiftName,
		shift.StartTime,
		shift.GraceMinutes,
		shift.LateWindowMinutes,
		formatTime(shift.CreatedAt),
		formatTime(shift.UpdatedAt),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// DeleteShiftSchedule removes the schedule for one class shift.
func (r *ScheduleRepository) DeleteShiftSchedule(ctx context.Context, classKey, shiftName string) error {
	result, err := r.pool.db.ExecContext(ctx,
		`DELETE FROM shift_schedules WHERE class_key = ? AND shift_name = ?`,
		classKey, shiftName,
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

// LoadSnapshot reads all schedule configuration inside one transaction so a
// registry reload observes a consistent state.
func (r *ScheduleRepository) LoadSnapshot(ctx context.Context) (persistence.ScheduleSnapshot, error) {
	var snapshot persistence.ScheduleSnapshot

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		classes, err := loadClassConfigs(tx)
		if err != nil {
			return err
		}
		shifts, err := loadShiftSchedules(tx)
		if err != nil {
			return err
		}
		snapshot = persistence.ScheduleSnapshot{Classes: classes, Shifts: shifts}
		return nil
	})
	if err != nil {
		return persistence.ScheduleSnapshot{}, err
	}
	return snapshot, nil
}

func loadClassConfigs(tx *sql.Tx) ([]persistence.ClassConfig, error) {
	rows, err := tx.Query(`
		SELECT class_key, name, study_days, created_at, updated_at
		FROM class_configs
		ORDER BY class_key
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var classes []persistence.ClassConfig
	for rows.Next() {
		var (
			class                persistence.ClassConfig
			studyDays            string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&class.ClassKey, &class.Name, &studyDays, &createdAt, &updatedAt); err != nil {
			return nil, mapError(err)
		}
		if class.StudyDays, err = decodeStudyDays(studyDays); err != nil {
			return nil, err
		}
		if class.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if class.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		classes = append(classes, class)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return classes, nil
}

func loadShiftSchedules(tx *sql.Tx) ([]persistence.ShiftSchedule, error) {
	rows, err := tx.Query(`
		SELECT class_key, shift_name, start_time, grace_minutes, late_window_minutes, created_at, updated_at
		FROM shift_schedules
		ORDER BY class_key, shift_name
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var shifts []persistence.ShiftSchedule
	for rows.Next() {
		var (
			shift                persistence.ShiftSchedule
			createdAt, updatedAt string
		)
		if err := rows.Scan(
			&shift.ClassKey,
			&shift.ShiftName,
			&shift.StartTime,
			&shift.GraceMinutes,
			&shift.LateWindowMinutes,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, mapError(err)
		}
		if shift.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if shift.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return shifts, nil
}

// encodeStudyDays stores weekdays as a comma separated list of integers,
// Sunday being 0. An empty string means the class uses the default week.
func encodeStudyDays(days []time.Weekday) string {
	if len(days) == 0 {
		return ""
	}
	parts := make([]string, 0, len(days))
	for _, day := range days {
		parts = append(parts, strconv.Itoa(int(day)))
	}
	return strings.Join(parts, ",")
}

func decodeStudyDays(encoded string) ([]time.Weekday, error) {
	if encoded == "" {
		return nil, nil
	}
	parts := strings.Split(encoded, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || value < 0 || value > 6 {
			return nil, fmt.Errorf("sqlite: invalid study day %q: %w", part, persistence.ErrConstraintViolation)
		}
		days = append(days, time.Weekday(value))
	}
	return days, nil
}
