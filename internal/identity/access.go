// Package identity resolves bearer tokens into a per-request AccessContext and
// answers role, permission and ownership questions about it.
package identity

import (
	"context"

	"marketplace/internal/models"
)

// AccessContext is the authenticated principal of one request. It is built
// once by the Resolver and never mutated afterwards.
type AccessContext struct {
	UserID      string
	Email       string
	Status      models.UserStatus
	IsBanned    bool
	Roles       []string
	permissions map[string]struct{}
}

// NewAccessContext builds a principal from a user with preloaded roles and
// role permissions.
func NewAccessContext(u *models.User) *AccessContext {
	ac := &AccessContext{
		UserID:      u.ID,
		Email:       u.Email,
		Status:      u.Status,
		IsBanned:    u.IsBanned,
		Roles:       u.RoleNames(),
		permissions: make(map[string]struct{}),
	}
	for _, p := range u.PermissionNames() {
		ac.permissions[p] = struct{}{}
	}
	return ac
}

// HasRole reports role membership.
func (a *AccessContext) HasRole(name string) bool {
	if a == nil {
		return false
	}
	for _, r := range a.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// HasAny reports whether the principal holds at least one of perms.
func (a *AccessContext) HasAny(perms ...string) bool {
	if a == nil {
		return false
	}
	for _, p := range perms {
		if _, ok := a.permissions[p]; ok {
			return true
		}
	}
	return false
}

func (a *AccessContext) IsAdmin() bool {
	return a.HasRole(models.RoleAdministrator)
}

// Permissions lists the flattened permission names.
func (a *AccessContext) Permissions() []string {
	if a == nil {
		return nil
	}
	out := make([]string, 0, len(a.permissions))
	for p := range a.permissions {
		out = append(out, p)
	}
	return out
}

type ctxKey struct{}

// WithContext stores ac in ctx.
func WithContext(ctx context.Context, ac *AccessContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, ac)
}

// FromContext returns the principal stored in ctx, or nil for anonymous requests.
func FromContext(ctx context.Context) *AccessContext {
	ac, _ := ctx.Value(ctxKey{}).(*AccessContext)
	return ac
}

// UserIDOf returns the principal's id, empty for anonymous requests.
func UserIDOf(ac *AccessContext) string {
	if ac == nil {
		return ""
	}
	return ac.UserID
}
