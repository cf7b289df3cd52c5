package application

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/example/attendance-engine/internal/attendance"
	"github.com/example/attendance-engine/internal/calendar"
)

func morningShift(classKey string) attendance.ShiftConfig {
	return attendance.ShiftConfig{
		ClassKey:          classKey,
		ShiftName:         "Morning",
		StartTime:         "07:00",
		GraceMinutes:      15,
		LateWindowMinutes: 60,
	}
}

func ictTime(date calendar.Date, hhmm string) time.Time {
	t, err := date.At(hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

func enrolledStudent(id, classKey string) Student {
	return Student{
		ID:         id,
		FullName:   "Student " + id,
		ClassKey:   classKey,
		ShiftName:  "Morning",
		EnrolledOn: "2025-10-01",
	}
}

func qrEvent(id, studentID string, date calendar.Date, hhmm string) CheckInEvent {
	ts := ictTime(date, hhmm)
	return CheckInEvent{
		ID:        id,
		StudentID: studentID,
		ClassKey:  "7A",
		ShiftName: "Morning",
		Date:      date,
		Timestamp: ts,
		Method:    attendance.MethodQR,
		CreatedAt: ts,
	}
}

func newTestReconciler(t *testing.T, students *studentStoreStub, checkIns *checkInStoreStub, permissions *permissionStoreStub, now time.Time) *ReconcilerService {
	t.Helper()
	provider := loadedProvider(t, newScheduleStoreStub(morningShift("7A")))
	return NewReconcilerService(
		students, checkIns, permissions, provider,
		&holidayStub{holidays: calendar.NewHolidays(nil)},
		nil,
		func() time.Time { return now },
	)
}

// Monday 2026-03-09 is an ordinary school day in every test below.
const testDay = calendar.Date("2026-03-09")

func TestReconcilerService_ResolveDay(t *testing.T) {
	t.Parallel()

	t.Run("classifies a timely check-in as present", func(t *testing.T) {
		t.Parallel()

		students := newStudentStoreStub(enrolledStudent("s1", "7A"))
		checkIns := newCheckInStoreStub(qrEvent("e1", "s1", testDay, "07:10"))
		svc := newTestReconciler(t, students, checkIns, newPermissionStoreStub(), ictTime(testDay, "12:00"))

		entry, err := svc.ResolveDay(context.Background(), "s1", testDay)
		if err != nil {
			t.Fatalf("ResolveDay failed: %v", err)
		}
		if entry.Record.Status != attendance.StatusPresent {
			t.Fatalf("expected present, got %s", entry.Record.Status)
		}
		if entry.Record.MinutesOffset == nil || *entry.Record.MinutesOffset != 10 {
			t.Fatalf("expected offset 10, got %v", entry.Record.MinutesOffset)
		}
		if entry.Flagged {
			t.Fatal("expected no anomaly flag for a 10 minute offset")
		}
	})

	t.Run("promotes a missing event to pending before today's cutoff", func(t *testing.T) {
		t.Parallel()

		students := newStudentStoreStub(enrolledStudent("s1", "7A"))
		svc := newTestReconciler(t, students, newCheckInStoreStub(), newPermissionStoreStub(), ictTime(testDay, "08:00"))

		entry, err := svc.ResolveDay(context.Background(), "s1", testDay)
		if err != nil {
			t.Fatalf("ResolveDay failed: %v", err)
		}
		if entry.Record.Status != attendance.StatusPending {
			t.Fatalf("expected pending before cutoff, got %s", entry.Record.Status)
		}
	})

	t.Run("resolves absent at the cutoff exactly", func(t *testing.T) {
		t.Parallel()

		students := newStudentStoreStub(enrolledStudent("s1", "7A"))
		svc := newTestReconciler(t, students, newCheckInStoreStub(), newPermissionStoreStub(), ictTime(testDay, "08:15"))

		entry, err := svc.ResolveDay(context.Background(), "s1", testDay)
		if err != nil {
			t.Fatalf("ResolveDay failed: %v", err)
		}
		if entry.Record.Status != attendance.StatusAbsent {
			t.Fatalf("expected absent at cutoff, got %s", entry.Record.Status)
		}
	})

	t.Run("never reports pending for past days", func(t *testing.T) {
		t.Parallel()

		students := newStudentStoreStub(enrolledStudent("s1", "7A"))
		svc := newTestReconciler(t, students, newCheckInStoreStub(), newPermissionStoreStub(), ictTime(testDay.AddDays(1), "07:00"))

		entry, err := svc.ResolveDay(context.Background(), "s1", testDay)
		if err != nil {
			t.Fatalf("ResolveDay failed: %v", err)
		}
		if entry.Record.Status != attendance.StatusAbsent {
			t.Fatalf("expected absent for a past day, got %s", entry.Record.Status)
		}
	})

	t.Run("applies the approved permission overlay", func(t *testing.T) {
		t.Parallel()

		students := newStudentStoreStub(enrolledStudent("s1", "7A"))
		permissions := newPermissionStoreStub(Permission{
			ID:        "p1",
			StudentID: "s1",
			StartDate: testDay,
			EndDate:   testDay,
			Status:    attendance.PermissionApproved,
		})
		svc := newTestReconciler(t, students, newCheckInStoreStub(), permissions, ictTime(testDay, "12:00"))

		entry, err := svc.ResolveDay(context.Background(), "s1", testDay)
		if err != nil {
			t.Fatalf("ResolveDay failed: %v", err)
		}
		if entry.Record.Status != attendance.StatusPermission {
			t.Fatalf("expected permission, got %s", entry.Record.Status)
		}
	})

	t.Run("a real check-in outranks a covering permission", func(t *testing.T) {
		t.Parallel()

		students := newStudentStoreStub(enrolledStudent("s1", "7A"))
		checkIns := newCheckInStoreStub(qrEvent("e1", "s1", testDay, "07:40"))
		permissions := newPermissionStoreStub(Permission{
			ID:        "p1",
			StudentID: "s1",
			StartDate: testDay,
			EndDate:   testDay,
			Status:    attendance.PermissionApproved,
		})
		svc := newTestReconciler(t, students, checkIns, permissions, ictTime(testDay, "12:00"))

		entry, err := svc.ResolveDay(context.Background(), "s1", testDay)
		if err != nil {
			t.Fatalf("ResolveDay failed: %v", err)
		}
		if entry.Record.Status != attendance.StatusLate {
			t.Fatalf("expected late despite permission, got %s", entry.Record.Status)
		}
	})

	t.Run("resolves unknown when the shift schedule is missing", func(t *testing.T) {
		t.Parallel()

		students := newStudentStoreStub(enrolledStudent("s1", "9C"))
		svc := newTestReconciler(t, students, newCheckInStoreStub(), newPermissionStoreStub(), ictTime(testDay, "12:00"))

		entry, err := svc.ResolveDay(context.Background(), "s1", testDay)
		if err != nil {
			t.Fatalf("ResolveDay failed: %v", err)
		}
		if entry.Record.Status != attendance.StatusUnknown {
			t.Fatalf("expected unknown, got %s", entry.Record.Status)
		}
		if entry.Record.Reason != attendance.ReasonConfigMissing {
			t.Fatalf("expected config_missing reason, got %s", entry.Record.Reason)
		}
	})

	t.Run("propagates a missing student", func(t *testing.T) {
		t.Parallel()

		svc := newTestReconciler(t, newStudentStoreStub(), newCheckInStoreStub(), newPermissionStoreStub(), ictTime(testDay, "12:00"))

		_, err := svc.ResolveDay(context.Background(), "ghost", testDay)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestReconcilerService_History(t *testing.T) {
	t.Parallel()

	t.Run("returns school days newest first and skips Sundays", func(t *testing.T) {
		t.Parallel()

		students := newStudentStoreStub(enrolledStudent("s1", "7A"))
		checkIns := newCheckInStoreStub(
			qrEvent("e1", "s1", "2026-03-06", "07:05"), // Friday
			qrEvent("e2", "s1", "2026-03-07", "07:25"), // Saturday
		)
		svc := newTestReconciler(t, students, checkIns, newPermissionStoreStub(), ictTime(testDay, "12:00"))

		entries, err := svc.History(context.Background(), "s1", 3)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}

		// Sunday 2026-03-08 is skipped.
		wantDates := []calendar.Date{"2026-03-09", "2026-03-07", "2026-03-06"}
		wantStatuses := []attendance.Status{attendance.StatusAbsent, attendance.StatusLate, attendance.StatusPresent}
		for i := range wantDates {
			if entries[i].Record.Date != wantDates[i] {
				t.Errorf("expected date %s at index %d, got %s", wantDates[i], i, entries[i].Record.Date)
			}
			if entries[i].Record.Status != wantStatuses[i] {
				t.Errorf("expected status %s on %s, got %s", wantStatuses[i], wantDates[i], entries[i].Record.Status)
			}
		}
	})

	t.Run("stops at the enrollment date", func(t *testing.T) {
		t.Parallel()

		student := enrolledStudent("s1", "7A")
		student.EnrolledOn = "2026-03-06"
		students := newStudentStoreStub(student)
		svc := newTestReconciler(t, students, newCheckInStoreStub(), newPermissionStoreStub(), ictTime(testDay, "12:00"))

		entries, err := svc.History(context.Background(), "s1", 10)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		// Only 2026-03-09 and 2026-03-07 fall after enrollment and are not Sunday.
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[len(entries)-1].Record.Date != "2026-03-07" {
			t.Errorf("expected oldest entry 2026-03-07, got %s", entries[len(entries)-1].Record.Date)
		}
	})
}

func TestReconcilerService_ClassDay(t *testing.T) {
	t.Parallel()

	t.Run("partitions flagged rows to the front preserving roster order", func(t *testing.T) {
		t.Parallel()

		students := newStudentStoreStub(
			enrolledStudent("s1", "7A"),
			enrolledStudent("s2", "7A"),
			enrolledStudent("s3", "7A"),
		)
		checkIns := newCheckInStoreStub(
			qrEvent("e1", "s1", testDay, "07:05"),
			// 95 minutes before start, beyond the anomaly threshold.
			qrEvent("e2", "s2", testDay, "05:25"),
			qrEvent("e3", "s3", testDay, "07:12"),
		)
		svc := newTestReconciler(t, students, checkIns, newPermissionStoreStub(), ictTime(testDay, "12:00"))

		result, err := svc.ClassDay(context.Background(), "Class 7A", "Morning", testDay)
		if err != nil {
			t.Fatalf("ClassDay failed: %v", err)
		}
		if !result.SchoolDay {
			t.Fatal("expected a school day")
		}
		if len(result.Rows) != 3 {
			t.Fatalf("expected 3 rows, got %d", len(result.Rows))
		}
		if result.Rows[0].StudentID != "s2" || !result.Rows[0].Flagged {
			t.Fatalf("expected flagged s2 first, got %s (flagged=%v)", result.Rows[0].StudentID, result.Rows[0].Flagged)
		}
		if result.Rows[1].StudentID != "s1" || result.Rows[2].StudentID != "s3" {
			t.Errorf("expected roster order s1, s3 after the flagged partition, got %s, %s",
				result.Rows[1].StudentID, result.Rows[2].StudentID)
		}
	})

	t.Run("returns an empty table on holidays", func(t *testing.T) {
		t.Parallel()

		students := newStudentStoreStub(enrolledStudent("s1", "7A"))
		provider := loadedProvider(t, newScheduleStoreStub(morningShift("7A")))
		svc := NewReconcilerService(
			students, newCheckInStoreStub(), newPermissionStoreStub(), provider,
			&holidayStub{holidays: calendar.NewHolidays([]calendar.Date{testDay})},
			nil,
			func() time.Time { return ictTime(testDay, "12:00") },
		)

		result, err := svc.ClassDay(context.Background(), "7A", "Morning", testDay)
		if err != nil {
			t.Fatalf("ClassDay failed: %v", err)
		}
		if result.SchoolDay {
			t.Fatal("expected a non-school day")
		}
		if len(result.Rows) != 0 {
			t.Fatalf("expected no rows, got %d", len(result.Rows))
		}
	})

	t.Run("excludes students not yet enrolled", func(t *testing.T) {
		t.Parallel()

		late := enrolledStudent("s2", "7A")
		late.EnrolledOn = calendar.Date("2026-03-09")
		students := newStudentStoreStub(enrolledStudent("s1", "7A"), late)
		svc := newTestReconciler(t, students, newCheckInStoreStub(), newPermissionStoreStub(), ictTime(testDay, "12:00"))

		result, err := svc.ClassDay(context.Background(), "7A", "Morning", testDay)
		if err != nil {
			t.Fatalf("ClassDay failed: %v", err)
		}
		if len(result.Rows) != 1 || result.Rows[0].StudentID != "s1" {
			t.Fatalf("expected only s1, got %d rows", len(result.Rows))
		}
	})

	t.Run("observes new events on every query", func(t *testing.T) {
		t.Parallel()

		students := newStudentStoreStub(enrolledStudent("s1", "7A"))
		checkIns := newCheckInStoreStub()
		svc := newTestReconciler(t, students, checkIns, newPermissionStoreStub(), ictTime(testDay, "12:00"))

		first, err := svc.ClassDay(context.Background(), "7A", "Morning", testDay)
		if err != nil {
			t.Fatalf("ClassDay failed: %v", err)
		}
		if first.Rows[0].Record.Status != attendance.StatusAbsent {
			t.Fatalf("expected absent, got %s", first.Rows[0].Record.Status)
		}

		if err := checkIns.CreateCheckIn(context.Background(), qrEvent("e1", "s1", testDay, "07:05")); err != nil {
			t.Fatalf("CreateCheckIn failed: %v", err)
		}
		fresh, err := svc.ClassDay(context.Background(), "7A", "Morning", testDay)
		if err != nil {
			t.Fatalf("ClassDay failed: %v", err)
		}
		if fresh.Rows[0].Record.Status != attendance.StatusPresent {
			t.Fatalf("expected present after the event landed, got %s", fresh.Rows[0].Record.Status)
		}
	})

	t.Run("promotes pending to absent once the cutoff passes", func(t *testing.T) {
		t.Parallel()

		students := newStudentStoreStub(enrolledStudent("s1", "7A"))
		// Cutoff is 08:15 for a 07:00 start with 15 grace and 60 late minutes.
		now := ictTime(testDay, "08:14")
		provider := loadedProvider(t, newScheduleStoreStub(morningShift("7A")))
		svc := NewReconcilerService(
			students, newCheckInStoreStub(), newPermissionStoreStub(), provider,
			&holidayStub{holidays: calendar.NewHolidays(nil)},
			nil,
			func() time.Time { return now },
		)

		before, err := svc.ClassDay(context.Background(), "7A", "Morning", testDay)
		if err != nil {
			t.Fatalf("ClassDay failed: %v", err)
		}
		if before.Rows[0].Record.Status != attendance.StatusPending {
			t.Fatalf("expected pending before the cutoff, got %s", before.Rows[0].Record.Status)
		}

		now = ictTime(testDay, "08:16")
		after, err := svc.ClassDay(context.Background(), "7A", "Morning", testDay)
		if err != nil {
			t.Fatalf("ClassDay failed: %v", err)
		}
		if after.Rows[0].Record.Status != attendance.StatusAbsent {
			t.Fatalf("after the late cutoff the day must resolve absent, got %s", after.Rows[0].Record.Status)
		}
	})

	t.Run("applies a schedule change on the next query", func(t *testing.T) {
		t.Parallel()

		students := newStudentStoreStub(enrolledStudent("s1", "7A"))
		checkIns := newCheckInStoreStub(qrEvent("e1", "s1", testDay, "07:20"))
		store := newScheduleStoreStub(morningShift("7A"))
		provider := loadedProvider(t, store)
		svc := NewReconcilerService(
			students, checkIns, newPermissionStoreStub(), provider,
			&holidayStub{holidays: calendar.NewHolidays(nil)},
			nil,
			func() time.Time { return ictTime(testDay, "12:00") },
		)

		before, err := svc.ClassDay(context.Background(), "7A", "Morning", testDay)
		if err != nil {
			t.Fatalf("ClassDay failed: %v", err)
		}
		if before.Rows[0].Record.Status != attendance.StatusLate {
			t.Fatalf("expected late under the 15-minute grace, got %s", before.Rows[0].Record.Status)
		}

		widened := morningShift("7A")
		widened.GraceMinutes = 30
		if err := store.UpsertShiftSchedule(context.Background(), widened, ictTime(testDay, "12:00")); err != nil {
			t.Fatalf("UpsertShiftSchedule failed: %v", err)
		}
		if err := provider.Reload(context.Background()); err != nil {
			t.Fatalf("Reload failed: %v", err)
		}

		after, err := svc.ClassDay(context.Background(), "7A", "Morning", testDay)
		if err != nil {
			t.Fatalf("ClassDay failed: %v", err)
		}
		if after.Rows[0].Record.Status != attendance.StatusPresent {
			t.Fatalf("expected present under the widened grace, got %s", after.Rows[0].Record.Status)
		}
	})

	t.Run("repeated resolution over fixed inputs is identical", func(t *testing.T) {
		t.Parallel()

		students := newStudentStoreStub(
			enrolledStudent("s1", "7A"),
			enrolledStudent("s2", "7A"),
		)
		checkIns := newCheckInStoreStub(
			qrEvent("e1", "s1", testDay, "07:05"),
			qrEvent("e2", "s2", testDay, "05:25"),
		)
		permissions := newPermissionStoreStub()
		svc := newTestReconciler(t, students, checkIns, permissions, ictTime(testDay, "12:00"))

		first, err := svc.ClassDay(context.Background(), "7A", "Morning", testDay)
		if err != nil {
			t.Fatalf("ClassDay failed: %v", err)
		}
		second, err := svc.ClassDay(context.Background(), "7A", "Morning", testDay)
		if err != nil {
			t.Fatalf("ClassDay failed: %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("expected identical tables, got\n%+v\nand\n%+v", first, second)
		}

		history1, err := svc.History(context.Background(), "s1", 5)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		history2, err := svc.History(context.Background(), "s1", 5)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if !reflect.DeepEqual(history1, history2) {
			t.Fatalf("expected identical histories, got\n%+v\nand\n%+v", history1, history2)
		}
	})
}
