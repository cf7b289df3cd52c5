package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/attendance-engine/internal/persistence"
	"github.com/example/attendance-engine/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style persistence tests.
type SQLiteHarness struct {
	Students    persistence.StudentRepository
	CheckIns    persistence.CheckInRepository
	Permissions persistence.PermissionRepository
	Schedules   persistence.ScheduleRepository
	Operators   persistence.OperatorRepository
	Sessions    persistence.SessionRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := "file:" + filepath.Join(dir, "attendance.db")

	pool, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Students:    sqlite.NewStudentRepository(pool),
		CheckIns:    sqlite.NewCheckInRepository(pool),
		Permissions: sqlite.NewPermissionRepository(pool),
		Schedules:   sqlite.NewScheduleRepository(pool),
		Operators:   sqlite.NewOperatorRepository(pool),
		Sessions:    sqlite.NewSessionRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
