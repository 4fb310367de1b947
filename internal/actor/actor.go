// Package actor carries the already-resolved caller role through a
// context.Context. Role resolution (authentication, directory lookups)
// happens upstream; this package only transports the answer.
package actor

import (
	"context"

	"github.com/alexanderramin/cronograma/internal/domain"
)

type ctxKey struct{}

// DefaultRole is assumed when the context carries no role.
const DefaultRole = domain.RolePlanner

// WithRole returns a copy of ctx carrying role.
func WithRole(ctx context.Context, role domain.Role) context.Context {
	return context.WithValue(ctx, ctxKey{}, role)
}

// RoleFrom returns the role stored in ctx, or DefaultRole.
func RoleFrom(ctx context.Context) domain.Role {
	if role, ok := ctx.Value(ctxKey{}).(domain.Role); ok && role != "" {
		return role
	}
	return DefaultRole
}

// Parse validates a role string.
func Parse(s string) (domain.Role, error) {
	role := domain.Role(s)
	if !domain.ValidRoles[role] {
		return "", domain.Invalidf("unknown role %q (valid: planner, executor, pmo_reviewer, sponsor_reviewer, admin)", s)
	}
	return role, nil
}
