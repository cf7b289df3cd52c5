package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// migration is one ordered schema change. Migrations are embedded rather
// than scanned from disk so a deployment cannot drift from its binary.
type migration struct {
	version     int
	description string
	statements  []string
}

var migrations = []migration{
	{
		version:     1,
		description: "students and check-in events",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS students (
				id TEXT PRIMARY KEY,
				full_name TEXT NOT NULL,
				class_key TEXT NOT NULL,
				shift_name TEXT NOT NULL,
				phone TEXT,
				enrolled_on TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS check_ins (
				id TEXT PRIMARY KEY,
				student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
				class_key TEXT NOT NULL,
				shift_name TEXT NOT NULL,
				date TEXT NOT NULL,
				timestamp TEXT NOT NULL,
				method TEXT NOT NULL CHECK (method IN ('qr', 'face', 'manual', 'request')),
				deleted INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_check_ins_student_date ON check_ins(student_id, date)`,
			`CREATE INDEX IF NOT EXISTS idx_check_ins_class_date ON check_ins(class_key, shift_name, date)`,
		},
	},
	{
		version:     2,
		description: "absence permissions",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS permissions (
				id TEXT PRIMARY KEY,
				student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
				start_date TEXT NOT NULL,
				end_date TEXT NOT NULL,
				status TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
				note TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				CHECK (start_date <= end_date)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_permissions_student ON permissions(student_id, status)`,
		},
	},
	{
		version:     3,
		description: "class and shift schedules",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS class_configs (
				class_key TEXT PRIMARY KEY,
				name TEXT NOT NULL DEFAULT '',
				study_days TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS shift_schedules (
				class_key TEXT NOT NULL,
				shift_name TEXT NOT NULL,
				start_time TEXT NOT NULL,
				grace_minutes INTEGER NOT NULL CHECK (grace_minutes >= 0),
				late_window_minutes INTEGER NOT NULL CHECK (late_window_minutes > 0),
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				PRIMARY KEY (class_key, shift_name)
			)`,
		},
	},
	{
		version:     4,
		description: "operators and sessions",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS operators (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL UNIQUE COLLATE NOCASE,
				display_name TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				is_admin INTEGER NOT NULL DEFAULT 0,
				disabled INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				operator_id TEXT NOT NULL REFERENCES operators(id) ON DELETE CASCADE,
				token TEXT NOT NULL UNIQUE,
				expires_at TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				revoked_at TEXT
			)`,
		},
	},
}

// Migrate applies all pending migrations in order, each inside its own
// transaction, recording applied versions in schema_migrations.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	if _, err := cp.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("sqlite: initialize schema_migrations: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := cp.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("sqlite: read applied versions: %w", err)
	}
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			_ = rows.Close()
			return fmt.Errorf("sqlite: scan applied version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("sqlite: iterate applied versions: %w", err)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("sqlite: close version rows: %w", err)
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.statements {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("sqlite: migration %d (%s): %w", m.version, m.description, err)
				}
			}
			_, err := tx.Exec(`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
				m.version, m.description, formatTime(time.Now()))
			return err
		}); err != nil {
			return err
		}
	}

	return nil
}
