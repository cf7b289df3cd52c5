package http

import (
	"context"

	"github.com/example/attendance-engine/internal/application"
)

type contextKey string

const (
	principalContextKey    contextKey = "principal"
	studentIDContextKey    contextKey = "student_id"
	permissionIDContextKey contextKey = "permission_id"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithStudentID injects the student identifier resolved from the request path.
func ContextWithStudentID(ctx context.Context, studentID string) context.Context {
	return context.WithValue(ctx, studentIDContextKey, studentID)
}

// StudentIDFromContext extracts a student identifier previously associated with the context.
func StudentIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(studentIDContextKey).(string)
	return id, ok
}

// ContextWithPermissionID injects the permission identifier resolved from the request path.
func ContextWithPermissionID(ctx context.Context, permissionID string) context.Context {
	return context.WithValue(ctx, permissionIDContextKey, permissionID)
}

// PermissionIDFromContext extracts a permission identifier previously associated with the context.
func PermissionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(permissionIDContextKey).(string)
	return id, ok
}
