package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/attendance"
	"github.com/example/attendance-engine/internal/calendar"
)

func asPrincipal(principal application.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.NewDecoder(recorder.Body).Decode(target); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

type authServiceStub struct {
	result    application.AuthenticateResult
	err       error
	loggedOut []string
}

func (s *authServiceStub) Authenticate(context.Context, application.AuthenticateParams) (application.AuthenticateResult, error) {
	if s.err != nil {
		return application.AuthenticateResult{}, s.err
	}
	return s.result, nil
}

func (s *authServiceStub) Logout(_ context.Context, token string) error {
	s.loggedOut = append(s.loggedOut, token)
	return nil
}

func TestAuthHandlers(t *testing.T) {
	t.Parallel()

	t.Run("login issues a session token via cookie and header", func(t *testing.T) {
		t.Parallel()

		expires := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
		stub := &authServiceStub{result: application.AuthenticateResult{
			Operator: application.Operator{ID: "op-1"},
			Session:  application.Session{Token: "token-1", ExpiresAt: expires},
		}}
		router := NewRouter(RouterConfig{Auth: NewAuthHandler(stub, nil)})

		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"email":"staff@school.test","password":"secret"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusCreated)
		}
		if got := recorder.Header().Get("X-Session-Token"); got != "token-1" {
			t.Fatalf("X-Session-Token = %q, want token-1", got)
		}
		cookie := recorder.Result().Cookies()
		if len(cookie) != 1 || cookie[0].Name != "session_token" || cookie[0].Value != "token-1" {
			t.Fatalf("cookies = %v, want one session_token cookie", cookie)
		}
		var resp loginResponse
		decodeResponse(t, recorder, &resp)
		if resp.Token != "token-1" {
			t.Fatalf("token = %q, want token-1", resp.Token)
		}
	})

	t.Run("invalid credentials map to 401", func(t *testing.T) {
		t.Parallel()

		stub := &authServiceStub{err: application.ErrInvalidCredentials}
		router := NewRouter(RouterConfig{Auth: NewAuthHandler(stub, nil)})

		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"email":"staff@school.test","password":"wrong"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusUnauthorized)
		}
		var resp errorResponse
		decodeResponse(t, recorder, &resp)
		if resp.ErrorCode != "AUTH_INVALID_CREDENTIALS" {
			t.Fatalf("error_code = %q, want AUTH_INVALID_CREDENTIALS", resp.ErrorCode)
		}
	})

	t.Run("logout revokes the presented session", func(t *testing.T) {
		t.Parallel()

		stub := &authServiceStub{}
		router := NewRouter(RouterConfig{Auth: NewAuthHandler(stub, nil)})

		req := httptest.NewRequest(http.MethodDelete, "/sessions/current", nil)
		req.Header.Set("Authorization", "Bearer token-1")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusNoContent)
		}
		if len(stub.loggedOut) != 1 || stub.loggedOut[0] != "token-1" {
			t.Fatalf("logged out tokens = %v, want [token-1]", stub.loggedOut)
		}
		cookies := recorder.Result().Cookies()
		if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
			t.Fatalf("cookies = %v, want one expired session_token cookie", cookies)
		}
	})

	t.Run("rejects unsupported methods", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{Auth: NewAuthHandler(&authServiceStub{}, nil)})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPut, "/sessions", nil))

		if recorder.Code != http.StatusMethodNotAllowed {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusMethodNotAllowed)
		}
		if got := recorder.Header().Get("Allow"); got != http.MethodPost {
			t.Fatalf("Allow = %q, want POST", got)
		}
	})
}

type studentServiceStub struct {
	student  application.Student
	students []application.Student
	err      error
	deleted  []string
}

func (s *studentServiceStub) CreateStudent(context.Context, application.Principal, application.StudentInput) (application.Student, error) {
	return s.student, s.err
}

func (s *studentServiceStub) UpdateStudent(context.Context, application.Principal, string, application.StudentInput) (application.Student, error) {
	return s.student, s.err
}

func (s *studentServiceStub) GetStudent(context.Context, string) (application.Student, error) {
	if s.err != nil {
		return application.Student{}, s.err
	}
	return s.student, nil
}

func (s *studentServiceStub) ListStudents(context.Context) ([]application.Student, error) {
	return s.students, s.err
}

func (s *studentServiceStub) DeleteStudent(_ context.Context, _ application.Principal, id string) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

type historyServiceStub struct {
	entries []application.HistoryEntry
	err     error
	lastN   int
}

func (s *historyServiceStub) History(_ context.Context, _ string, lastN int) ([]application.HistoryEntry, error) {
	s.lastN = lastN
	return s.entries, s.err
}

type warningServiceStub struct {
	summary application.WarningSummary
	err     error
	month   string
}

func (s *warningServiceStub) MonthSummary(_ context.Context, _ string, month string) (application.WarningSummary, error) {
	s.month = month
	return s.summary, s.err
}

func sampleStudent() application.Student {
	return application.Student{
		ID:         "s-1",
		FullName:   "Dara Chan",
		ClassKey:   "7a",
		ShiftName:  "morning",
		EnrolledOn: calendar.Date("2026-01-05"),
		CreatedAt:  time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
	}
}

func TestStudentHandlers(t *testing.T) {
	t.Parallel()

	t.Run("mutations require an authenticated principal", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{Students: NewStudentHandler(&studentServiceStub{}, nil, nil, nil)})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(`{}`)))

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusUnauthorized)
		}
	})

	t.Run("create returns the stored student", func(t *testing.T) {
		t.Parallel()

		stub := &studentServiceStub{student: sampleStudent()}
		router := NewRouter(RouterConfig{
			Students:   NewStudentHandler(stub, nil, nil, nil),
			Middleware: []func(http.Handler) http.Handler{asPrincipal(application.Principal{OperatorID: "op-1"})},
		})

		body := `{"full_name":"Dara Chan","class_key":"7A","shift_name":"morning","enrolled_on":"2026-01-05"}`
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(body)))

		if recorder.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusCreated)
		}
		var resp studentResponse
		decodeResponse(t, recorder, &resp)
		if resp.ID != "s-1" || resp.EnrolledOn != "2026-01-05" {
			t.Fatalf("response = %+v, want student s-1 enrolled 2026-01-05", resp)
		}
	})

	t.Run("missing students map to 404", func(t *testing.T) {
		t.Parallel()

		stub := &studentServiceStub{err: application.ErrNotFound}
		router := NewRouter(RouterConfig{Students: NewStudentHandler(stub, nil, nil, nil)})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/students/s-404", nil))

		if recorder.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusNotFound)
		}
	})

	t.Run("history validates the days parameter", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{Students: NewStudentHandler(&studentServiceStub{}, &historyServiceStub{}, nil, nil)})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/students/s-1/history?days=zero", nil))

		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusUnprocessableEntity)
		}
		var resp errorResponse
		decodeResponse(t, recorder, &resp)
		if _, ok := resp.Errors["days"]; !ok {
			t.Fatalf("errors = %v, want a days entry", resp.Errors)
		}
	})

	t.Run("history serializes resolved records", func(t *testing.T) {
		t.Parallel()

		offset := 10
		history := &historyServiceStub{entries: []application.HistoryEntry{{
			Record: attendance.DayRecord{
				StudentID:     "s-1",
				Date:          calendar.Date("2026-03-09"),
				Status:        attendance.StatusLate,
				MinutesOffset: &offset,
			},
			Flagged: false,
		}}}
		router := NewRouter(RouterConfig{Students: NewStudentHandler(&studentServiceStub{}, history, nil, nil)})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/students/s-1/history?days=7", nil))

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
		}
		if history.lastN != 7 {
			t.Fatalf("lastN = %d, want 7", history.lastN)
		}
		var resp []historyEntryResponse
		decodeResponse(t, recorder, &resp)
		if len(resp) != 1 || resp[0].Record.Status != "late" {
			t.Fatalf("response = %+v, want one late record", resp)
		}
	})

	t.Run("warnings pass the month through", func(t *testing.T) {
		t.Parallel()

		warnings := &warningServiceStub{summary: application.WarningSummary{
			StudentID:  "s-1",
			Month:      "2026-03",
			AbsentDays: 6,
			LateDays:   2,
			Flagged:    true,
		}}
		router := NewRouter(RouterConfig{Students: NewStudentHandler(&studentServiceStub{}, nil, warnings, nil)})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/students/s-1/warnings?month=2026-03", nil))

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
		}
		if warnings.month != "2026-03" {
			t.Fatalf("month = %q, want 2026-03", warnings.month)
		}
		var resp warningSummaryResponse
		decodeResponse(t, recorder, &resp)
		if resp.AbsentDays != 6 || resp.LateDays != 2 || !resp.Flagged {
			t.Fatalf("response = %+v, want 6 absences and 2 lates flagged", resp)
		}
	})
}

type recordServiceStub struct {
	event  application.CheckInEvent
	edit   application.EditTimestampResult
	err    error
	params application.CheckInParams
}

func (s *recordServiceStub) CheckIn(_ context.Context, params application.CheckInParams) (application.CheckInEvent, error) {
	s.params = params
	return s.event, s.err
}

func (s *recordServiceStub) EditTimestamp(context.Context, application.EditTimestampParams) (application.EditTimestampResult, error) {
	return s.edit, s.err
}

type tableServiceStub struct {
	result application.ClassDayResult
	entry  application.HistoryEntry
	err    error
}

func (s *tableServiceStub) ClassDay(context.Context, string, string, calendar.Date) (application.ClassDayResult, error) {
	return s.result, s.err
}

func (s *tableServiceStub) ResolveDay(context.Context, string, calendar.Date) (application.HistoryEntry, error) {
	return s.entry, s.err
}

func TestRecordHandlers(t *testing.T) {
	t.Parallel()

	t.Run("check-in rejects malformed timestamps", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{Records: NewRecordHandler(&recordServiceStub{}, &tableServiceStub{}, nil)})

		body := `{"student_id":"s-1","timestamp":"yesterday","method":"qr"}`
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/check-ins", strings.NewReader(body)))

		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusUnprocessableEntity)
		}
	})

	t.Run("check-in records the event", func(t *testing.T) {
		t.Parallel()

		stub := &recordServiceStub{event: application.CheckInEvent{
			ID:        "e-1",
			StudentID: "s-1",
			Date:      calendar.Date("2026-03-09"),
			Timestamp: time.Date(2026, time.March, 9, 0, 5, 0, 0, time.UTC),
			Method:    attendance.MethodQR,
		}}
		router := NewRouter(RouterConfig{Records: NewRecordHandler(stub, &tableServiceStub{}, nil)})

		body := `{"student_id":"s-1","timestamp":"2026-03-09T07:05:00+07:00","method":"qr"}`
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/check-ins", strings.NewReader(body)))

		if recorder.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusCreated)
		}
		if stub.params.Method != attendance.MethodQR {
			t.Fatalf("method = %q, want qr", stub.params.Method)
		}
		var resp checkInEventResponse
		decodeResponse(t, recorder, &resp)
		if resp.ID != "e-1" || resp.Date != "2026-03-09" {
			t.Fatalf("response = %+v, want event e-1 on 2026-03-09", resp)
		}
	})

	t.Run("class table requires class, shift, and date", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{Records: NewRecordHandler(&recordServiceStub{}, &tableServiceStub{}, nil)})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/records?class=7A", nil))

		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusUnprocessableEntity)
		}
		var resp errorResponse
		decodeResponse(t, recorder, &resp)
		if _, ok := resp.Errors["shift"]; !ok {
			t.Fatalf("errors = %v, want a shift entry", resp.Errors)
		}
		if _, ok := resp.Errors["date"]; !ok {
			t.Fatalf("errors = %v, want a date entry", resp.Errors)
		}
	})

	t.Run("class table serializes flagged rows first", func(t *testing.T) {
		t.Parallel()

		tables := &tableServiceStub{result: application.ClassDayResult{
			ClassKey:  "7a",
			ShiftName: "morning",
			Date:      calendar.Date("2026-03-09"),
			SchoolDay: true,
			Rows: []application.TableRow{
				{StudentID: "s-2", FullName: "Flagged First", Flagged: true, Record: attendance.DayRecord{Status: attendance.StatusPresent}},
				{StudentID: "s-1", FullName: "Second", Record: attendance.DayRecord{Status: attendance.StatusAbsent}},
			},
		}}
		router := NewRouter(RouterConfig{Records: NewRecordHandler(&recordServiceStub{}, tables, nil)})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/records?class=7A&shift=morning&date=2026-03-09", nil))

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
		}
		var resp classDayResponse
		decodeResponse(t, recorder, &resp)
		if !resp.SchoolDay || len(resp.Rows) != 2 {
			t.Fatalf("response = %+v, want a school day with two rows", resp)
		}
		if !resp.Rows[0].Flagged || resp.Rows[0].StudentID != "s-2" {
			t.Fatalf("rows = %+v, want the flagged row first", resp.Rows)
		}
	})

	t.Run("edits require an authenticated principal", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{Records: NewRecordHandler(&recordServiceStub{}, &tableServiceStub{}, nil)})

		body := `{"timestamp":"2026-03-09T07:05:00+07:00"}`
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPut, "/records/s-1/2026-03-09", strings.NewReader(body)))

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusUnauthorized)
		}
	})

	t.Run("edit returns the superseding event and record", func(t *testing.T) {
		t.Parallel()

		stub := &recordServiceStub{edit: application.EditTimestampResult{
			Event: application.CheckInEvent{ID: "e-2", StudentID: "s-1", Date: calendar.Date("2026-03-09"), Method: attendance.MethodManual},
			Record: attendance.DayRecord{
				StudentID: "s-1",
				Date:      calendar.Date("2026-03-09"),
				Status:    attendance.StatusPresent,
			},
		}}
		router := NewRouter(RouterConfig{
			Records:    NewRecordHandler(stub, &tableServiceStub{}, nil),
			Middleware: []func(http.Handler) http.Handler{asPrincipal(application.Principal{OperatorID: "op-1"})},
		})

		body := `{"timestamp":"2026-03-09T07:05:00+07:00"}`
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPut, "/records/s-1/2026-03-09", strings.NewReader(body)))

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
		}
		var resp editTimestampResponse
		decodeResponse(t, recorder, &resp)
		if resp.Event.Method != "manual" || resp.Record.Status != "present" {
			t.Fatalf("response = %+v, want a manual event resolving present", resp)
		}
	})

	t.Run("future timestamps map to 422", func(t *testing.T) {
		t.Parallel()

		stub := &recordServiceStub{err: application.ErrFutureTimestamp}
		router := NewRouter(RouterConfig{
			Records:    NewRecordHandler(stub, &tableServiceStub{}, nil),
			Middleware: []func(http.Handler) http.Handler{asPrincipal(application.Principal{OperatorID: "op-1"})},
		})

		body := `{"timestamp":"2027-01-01T07:00:00+07:00"}`
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPut, "/records/s-1/2027-01-01", strings.NewReader(body)))

		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusUnprocessableEntity)
		}
	})
}

type permissionServiceStub struct {
	permission  application.Permission
	permissions []application.Permission
	err         error
	reviewedID  string
	approved    bool
}

func (s *permissionServiceStub) Submit(context.Context, application.PermissionInput) (application.Permission, error) {
	return s.permission, s.err
}

func (s *permissionServiceStub) Review(_ context.Context, _ application.Principal, id string, approve bool) (application.Permission, error) {
	s.reviewedID = id
	s.approved = approve
	return s.permission, s.err
}

func (s *permissionServiceStub) ListForStudent(context.Context, string) ([]application.Permission, error) {
	return s.permissions, s.err
}

func TestPermissionHandlers(t *testing.T) {
	t.Parallel()

	t.Run("submit returns the pending request", func(t *testing.T) {
		t.Parallel()

		stub := &permissionServiceStub{permission: application.Permission{
			ID:        "p-1",
			StudentID: "s-1",
			StartDate: calendar.Date("2026-03-10"),
			EndDate:   calendar.Date("2026-03-12"),
			Status:    attendance.PermissionPending,
		}}
		router := NewRouter(RouterConfig{Permissions: NewPermissionHandler(stub, nil)})

		body := `{"student_id":"s-1","start_date":"2026-03-10","end_date":"2026-03-12"}`
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/permissions", strings.NewReader(body)))

		if recorder.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusCreated)
		}
		var resp permissionResponse
		decodeResponse(t, recorder, &resp)
		if resp.Status != "pending" {
			t.Fatalf("status = %q, want pending", resp.Status)
		}
	})

	t.Run("review requires the approve field", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{
			Permissions: NewPermissionHandler(&permissionServiceStub{}, nil),
			Middleware:  []func(http.Handler) http.Handler{asPrincipal(application.Principal{OperatorID: "op-1"})},
		})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/permissions/p-1/review", strings.NewReader(`{}`)))

		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusUnprocessableEntity)
		}
	})

	t.Run("review passes the decision through", func(t *testing.T) {
		t.Parallel()

		stub := &permissionServiceStub{permission: application.Permission{ID: "p-1", Status: attendance.PermissionApproved}}
		router := NewRouter(RouterConfig{
			Permissions: NewPermissionHandler(stub, nil),
			Middleware:  []func(http.Handler) http.Handler{asPrincipal(application.Principal{OperatorID: "op-1"})},
		})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/permissions/p-1/review", strings.NewReader(`{"approve":true}`)))

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
		}
		if stub.reviewedID != "p-1" || !stub.approved {
			t.Fatalf("reviewed %q approve=%v, want p-1 approved", stub.reviewedID, stub.approved)
		}
	})

	t.Run("student permissions are listed", func(t *testing.T) {
		t.Parallel()

		stub := &permissionServiceStub{permissions: []application.Permission{
			{ID: "p-2", StudentID: "s-1", Status: attendance.PermissionRejected},
			{ID: "p-1", StudentID: "s-1", Status: attendance.PermissionApproved},
		}}
		router := NewRouter(RouterConfig{
			Students:    NewStudentHandler(&studentServiceStub{}, nil, nil, nil),
			Permissions: NewPermissionHandler(stub, nil),
		})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/students/s-1/permissions", nil))

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
		}
		var resp []permissionResponse
		decodeResponse(t, recorder, &resp)
		if len(resp) != 2 || resp[0].ID != "p-2" {
			t.Fatalf("response = %+v, want two permissions, p-2 first", resp)
		}
	})
}

type scheduleServiceStub struct {
	shifts       []attendance.ShiftConfig
	err          error
	deletedClass string
	deletedShift string
}

func (s *scheduleServiceStub) ListShiftSchedules(context.Context) ([]attendance.ShiftConfig, error) {
	return s.shifts, s.err
}

func (s *scheduleServiceStub) UpsertShiftSchedule(context.Context, application.Principal, application.ShiftScheduleInput) error {
	return s.err
}

func (s *scheduleServiceStub) UpsertClassConfig(context.Context, application.Principal, application.ClassConfigInput) error {
	return s.err
}

func (s *scheduleServiceStub) DeleteShiftSchedule(_ context.Context, _ application.Principal, classKey, shiftName string) error {
	s.deletedClass = classKey
	s.deletedShift = shiftName
	return s.err
}

func TestScheduleHandlers(t *testing.T) {
	t.Parallel()

	adminware := []func(http.Handler) http.Handler{asPrincipal(application.Principal{OperatorID: "op-1", IsAdmin: true})}

	t.Run("validation failures map to 422 with field errors", func(t *testing.T) {
		t.Parallel()

		stub := &scheduleServiceStub{err: &application.ValidationError{FieldErrors: map[string]string{
			"start_time": "start time must be in HH:MM format",
		}}}
		router := NewRouter(RouterConfig{Schedules: NewScheduleHandler(stub, nil), Middleware: adminware})

		body := `{"class_key":"7A","shift_name":"morning","start_time":"7am"}`
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPut, "/schedules/shifts", strings.NewReader(body)))

		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusUnprocessableEntity)
		}
		var resp errorResponse
		decodeResponse(t, recorder, &resp)
		if _, ok := resp.Errors["start_time"]; !ok {
			t.Fatalf("errors = %v, want a start_time entry", resp.Errors)
		}
	})

	t.Run("non-admin mutations map to 403", func(t *testing.T) {
		t.Parallel()

		stub := &scheduleServiceStub{err: application.ErrUnauthorized}
		router := NewRouter(RouterConfig{
			Schedules:  NewScheduleHandler(stub, nil),
			Middleware: []func(http.Handler) http.Handler{asPrincipal(application.Principal{OperatorID: "op-2"})},
		})

		body := `{"class_key":"7A","name":"Class 7A"}`
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPut, "/schedules/classes", strings.NewReader(body)))

		if recorder.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusForbidden)
		}
	})

	t.Run("delete parses the class and shift from the path", func(t *testing.T) {
		t.Parallel()

		stub := &scheduleServiceStub{}
		router := NewRouter(RouterConfig{Schedules: NewScheduleHandler(stub, nil), Middleware: adminware})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodDelete, "/schedules/shifts/7A/morning", nil))

		if recorder.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusNoContent)
		}
		if stub.deletedClass != "7A" || stub.deletedShift != "morning" {
			t.Fatalf("deleted %q/%q, want 7A/morning", stub.deletedClass, stub.deletedShift)
		}
	})

	t.Run("shift schedules are listed", func(t *testing.T) {
		t.Parallel()

		stub := &scheduleServiceStub{shifts: []attendance.ShiftConfig{{
			ClassKey:          "7a",
			ShiftName:         "morning",
			StartTime:         "07:00",
			GraceMinutes:      15,
			LateWindowMinutes: 60,
		}}}
		router := NewRouter(RouterConfig{Schedules: NewScheduleHandler(stub, nil), Middleware: adminware})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/schedules/shifts", nil))

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
		}
		var resp []shiftScheduleResponse
		decodeResponse(t, recorder, &resp)
		if len(resp) != 1 || resp[0].StartTime != "07:00" {
			t.Fatalf("response = %+v, want one 07:00 shift", resp)
		}
	})
}

type notificationServiceStub struct {
	result application.RunResult
	err    error
	shift  string
}

func (s *notificationServiceStub) RunShift(_ context.Context, shiftName string) (application.RunResult, error) {
	s.shift = shiftName
	return s.result, s.err
}

func TestNotificationHandler(t *testing.T) {
	t.Parallel()

	t.Run("run requires a shift", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{
			Notifications: NewNotificationHandler(&notificationServiceStub{}, nil),
			Middleware:    []func(http.Handler) http.Handler{asPrincipal(application.Principal{OperatorID: "op-1"})},
		})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/notifications/run", nil))

		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusUnprocessableEntity)
		}
	})

	t.Run("run reports the sweep counts", func(t *testing.T) {
		t.Parallel()

		stub := &notificationServiceStub{result: application.RunResult{
			ShiftName: "morning",
			Date:      calendar.Date("2026-03-09"),
			Notified:  4,
			Failed:    1,
		}}
		router := NewRouter(RouterConfig{
			Notifications: NewNotificationHandler(stub, nil),
			Middleware:    []func(http.Handler) http.Handler{asPrincipal(application.Principal{OperatorID: "op-1"})},
		})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/notifications/run?shift=morning", nil))

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
		}
		if stub.shift != "morning" {
			t.Fatalf("shift = %q, want morning", stub.shift)
		}
		var resp runResultResponse
		decodeResponse(t, recorder, &resp)
		if resp.Notified != 4 || resp.Failed != 1 {
			t.Fatalf("response = %+v, want notified 4 failed 1", resp)
		}
	})
}
