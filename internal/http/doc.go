// Package http provides HTTP handlers and middleware for the attendance API.
//
// The router exposes the following endpoints:
//   - POST /sessions: issues a session token. Body: {"email","password"}.
//     Response: {"token","expires_at"} with the token also surfaced via the
//     `X-Session-Token` header and a `session_token` cookie.
//   - DELETE /sessions/current: revokes the current session token extracted
//     from the Authorization header or session cookie. Returns 204 No Content
//     and clears the cookie.
//   - DELETE /sessions/{token}: administrator revocation of an arbitrary token.
//   - GET /students, POST /students, GET /students/{id}, PUT /students/{id},
//     DELETE /students/{id}: student roster management exchanging the
//     `studentRequest`/`studentResponse` payloads defined in student_handler.go.
//     Deletion requires admin privileges.
//   - GET /students/{id}/history?days=N: resolved attendance records for the
//     student's last N school days, newest first.
//   - GET /students/{id}/warnings?month=YYYY-MM: monthly absence summary with
//     the warning flag.
//   - GET /students/{id}/permissions: absence-permission requests filed for
//     one student.
//   - POST /check-ins: records a device-captured check-in event. Body:
//     {"student_id","timestamp","method"}.
//   - GET /records?class=&shift=&date=: the resolved attendance table for one
//     class shift on one date. Flagged rows sort first.
//   - GET /records/{studentID}/{date}: the resolved record for one student on
//     one date.
//   - PUT /records/{studentID}/{date}: operator correction of a check-in time.
//     The previous event is superseded, not overwritten.
//   - POST /permissions, POST /permissions/{id}/review: absence-permission
//     submission and review.
//   - GET /schedules/shifts, PUT /schedules/shifts, PUT /schedules/classes,
//     DELETE /schedules/shifts/{class}/{shift}: administrator controlled shift
//     and class configuration.
//   - POST /notifications/run?shift=: triggers an absence-notification sweep
//     for one shift on demand.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
