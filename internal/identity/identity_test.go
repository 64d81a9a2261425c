package identity_test

import (
	"context"
	"testing"

	"github.com/JaimeStill/rag-lab/internal/identity"
)

func TestIdentity_CanAccess(t *testing.T) {
	tests := []struct {
		name  string
		id    identity.Identity
		owner string
		want  bool
	}{
		{"owner", identity.Identity{User: "a@example.com", Role: identity.RoleUser}, "a@example.com", true},
		{"other user", identity.Identity{User: "b@example.com", Role: identity.RoleUser}, "a@example.com", false},
		{"admin", identity.Identity{User: "admin@example.com", Role: identity.RoleAdmin}, "a@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.CanAccess(tt.owner); got != tt.want {
				t.Errorf("CanAccess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContext(t *testing.T) {
	if _, ok := identity.FromContext(context.Background()); ok {
		t.Error("FromContext() ok = true on empty context")
	}

	want := identity.Identity{User: "a@example.com", Role: identity.RoleUser}
	got, ok := identity.FromContext(identity.WithIdentity(context.Background(), want))
	if !ok || got != want {
		t.Errorf("FromContext() = %+v, %v, want %+v, true", got, ok, want)
	}
}

func TestRole_Validate(t *testing.T) {
	if err := identity.Role("root").Validate(); err == nil {
		t.Error("Validate() should reject unknown role")
	}
	if err := identity.RoleAdmin.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
