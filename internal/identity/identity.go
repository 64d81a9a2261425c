// Package identity carries the authenticated caller through request contexts.
package identity

import (
	"context"
	"fmt"
)

// Role is the caller's authorization level.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Validate checks that r is a known role.
func (r Role) Validate() error {
	switch r {
	case RoleAdmin, RoleUser:
		return nil
	default:
		return fmt.Errorf("invalid role: %s (must be admin or user)", r)
	}
}

// Identity is a verified (user, role) pair. User is the account email.
type Identity struct {
	User string `json:"user"`
	Role Role   `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanAccess reports whether i may read a resource owned by owner.
func (i Identity) CanAccess(owner string) bool {
	return i.User == owner || i.IsAdmin()
}

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored in ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
