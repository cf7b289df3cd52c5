package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/attendance"
	"github.com/example/attendance-engine/internal/calendar"
	"github.com/example/attendance-engine/internal/persistence"
	"github.com/example/attendance-engine/internal/testfixtures"
)

func TestRandomHex(t *testing.T) {
	token := randomHex(32)
	if len(token) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(token))
	}
	if token == randomHex(32) {
		t.Fatal("expected consecutive tokens to differ")
	}
	if got := randomHex(0); len(got) != 32 {
		t.Fatalf("expected fallback width of 16 bytes, got %d characters", len(got))
	}
}

func TestStudentStoreAdapterRoundTrip(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	store := newStudentStoreAdapter(harness.Students)
	ctx := context.Background()

	phone := "+84-90-000-0001"
	student := application.Student{
		ID:         "student-1",
		FullName:   "Linh Tran",
		ClassKey:   "7a",
		ShiftName:  "morning",
		Phone:      &phone,
		EnrolledOn: calendar.Date("2026-01-05"),
		CreatedAt:  testfixtures.ReferenceTime(),
		UpdatedAt:  testfixtures.ReferenceTime(),
	}
	if err := store.CreateStudent(ctx, student); err != nil {
		t.Fatalf("CreateStudent returned error: %v", err)
	}

	loaded, err := store.GetStudent(ctx, "student-1")
	if err != nil {
		t.Fatalf("GetStudent returned error: %v", err)
	}
	if loaded.EnrolledOn != student.EnrolledOn {
		t.Fatalf("expected enrolled on %s, got %s", student.EnrolledOn, loaded.EnrolledOn)
	}
	if loaded.Phone == nil || *loaded.Phone != phone {
		t.Fatalf("expected phone %q, got %v", phone, loaded.Phone)
	}

	listed, err := store.ListStudentsByClassShift(ctx, "7a", "morning")
	if err != nil {
		t.Fatalf("ListStudentsByClassShift returned error: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != "student-1" {
		t.Fatalf("expected the created student in the class shift listing, got %+v", listed)
	}
}

func TestCheckInStoreAdapterConvertsDates(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	students := newStudentStoreAdapter(harness.Students)
	checkIns := newCheckInStoreAdapter(harness.CheckIns)
	ctx := context.Background()

	fixture := testfixtures.NewStudentFixture(testfixtures.WithStudentID("student-1"))
	if err := students.CreateStudent(ctx, fixture.Application()); err != nil {
		t.Fatalf("CreateStudent returned error: %v", err)
	}

	timestamp := testfixtures.ReferenceTime().Add(5 * time.Minute)
	event := application.CheckInEvent{
		ID:        "checkin-1",
		StudentID: "student-1",
		ClassKey:  "7a",
		ShiftName: "morning",
		Date:      calendar.DateOf(timestamp),
		Timestamp: timestamp,
		Method:    attendance.MethodQR,
		CreatedAt: timestamp,
	}
	if err := checkIns.CreateCheckIn(ctx, event); err != nil {
		t.Fatalf("CreateCheckIn returned error: %v", err)
	}

	loaded, err := checkIns.LatestForStudentDate(ctx, "student-1", event.Date)
	if err != nil {
		t.Fatalf("LatestForStudentDate returned error: %v", err)
	}
	if loaded.Method != attendance.MethodQR {
		t.Fatalf("expected method %s, got %s", attendance.MethodQR, loaded.Method)
	}
	if !loaded.Timestamp.Equal(timestamp) {
		t.Fatalf("expected timestamp %s, got %s", timestamp, loaded.Timestamp)
	}

	if err := checkIns.MarkDeleted(ctx, "checkin-1"); err != nil {
		t.Fatalf("MarkDeleted returned error: %v", err)
	}
	if _, err := checkIns.LatestForStudentDate(ctx, "student-1", event.Date); err == nil {
		t.Fatal("expected no authoritative event after soft delete")
	}
}

func TestScheduleStoreAdapterSnapshot(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	store := newScheduleStoreAdapter(harness.Schedules)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()

	studyDays := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	if err := store.UpsertClassConfig(ctx, "7a", "Grade 7 Section A", studyDays, now); err != nil {
		t.Fatalf("UpsertClassConfig returned error: %v", err)
	}
	shift := attendance.ShiftConfig{
		ClassKey:          "7a",
		ShiftName:         "morning",
		StartTime:         "07:00",
		GraceMinutes:      15,
		LateWindowMinutes: 60,
	}
	if err := store.UpsertShiftSchedule(ctx, shift, now); err != nil {
		t.Fatalf("UpsertShiftSchedule returned error: %v", err)
	}

	snapshot, err := store.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot returned error: %v", err)
	}
	if len(snapshot.Shifts) != 1 || snapshot.Shifts[0] != shift {
		t.Fatalf("expected shift %+v in snapshot, got %+v", shift, snapshot.Shifts)
	}
	days, ok := snapshot.StudyDays["7a"]
	if !ok {
		t.Fatal("expected study days for class 7a in snapshot")
	}
	if len(days) != len(studyDays) {
		t.Fatalf("expected %d study days, got %d", len(studyDays), len(days))
	}

	if err := store.DeleteShiftSchedule(ctx, "7a", "morning"); err != nil {
		t.Fatalf("DeleteShiftSchedule returned error: %v", err)
	}
	snapshot, err = store.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot returned error: %v", err)
	}
	if len(snapshot.Shifts) != 0 {
		t.Fatalf("expected no shifts after delete, got %+v", snapshot.Shifts)
	}
}

func TestSessionAndCredentialAdapters(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	credentials := newCredentialStoreAdapter(harness.Operators)
	sessions := newSessionStoreAdapter(harness.Sessions)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()

	hash, err := application.CreatePasswordHash("s3cret-pass", application.DefaultArgon2idParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash returned error: %v", err)
	}
	if err := harness.Operators.CreateOperator(ctx, persistence.Operator{
		ID:           "op-1",
		Email:        "staff@example.edu",
		DisplayName:  "Duty Staff",
		PasswordHash: hash,
		IsAdmin:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("CreateOperator returned error: %v", err)
	}

	creds, err := credentials.GetOperatorCredentialsByEmail(ctx, "staff@example.edu")
	if err != nil {
		t.Fatalf("GetOperatorCredentialsByEmail returned error: %v", err)
	}
	if creds.Operator.ID != "op-1" || !creds.Operator.IsAdmin {
		t.Fatalf("unexpected operator in credentials: %+v", creds.Operator)
	}
	if err := application.VerifyPassword(creds.PasswordHash, "s3cret-pass"); err != nil {
		t.Fatalf("stored hash failed verification: %v", err)
	}

	created, err := sessions.CreateSession(ctx, application.Session{
		ID:         "session-1",
		OperatorID: "op-1",
		Token:      "token-abc",
		ExpiresAt:  now.Add(12 * time.Hour),
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if created.RevokedAt != nil {
		t.Fatal("expected new session without revocation")
	}

	revoked, err := sessions.RevokeSession(ctx, "token-abc", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("RevokeSession returned error: %v", err)
	}
	if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected revocation at %s, got %v", now.Add(time.Hour), revoked.RevokedAt)
	}
}

func TestNewHolidayProviderWithoutFile(t *testing.T) {
	provider := newHolidayProvider(context.Background(), "", slog.Default())
	snapshot := provider.Snapshot()
	if snapshot == nil {
		t.Fatal("expected a holiday snapshot")
	}
	if snapshot.Len() != 0 {
		t.Fatalf("expected no holidays, got %d", snapshot.Len())
	}
}
