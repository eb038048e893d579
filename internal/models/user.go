package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type User struct {
	Base
	FirstName       string         `gorm:"not null" json:"first_name"`
	LastName        string         `json:"last_name"`
	Email           string         `gorm:"uniqueIndex;not null" json:"email,omitempty"`
	Password        string         `gorm:"not null" json:"-"`
	Phone           *string        `json:"phone"`
	Status          UserStatus     `gorm:"not null;default:'pending'" json:"status,omitempty"`
	IsBanned        bool           `gorm:"not null;default:false" json:"is_banned"`
	EmailVerifiedAt *time.Time     `json:"email_verified_at"`
	Provider        string         `gorm:"not null;default:'local'" json:"provider,omitempty"` // local or google
	ProviderID      string         `gorm:"index" json:"-"`
	ProviderData    datatypes.JSON `json:"-"`
	Roles           []Role         `gorm:"many2many:user_roles;" json:"roles,omitempty"`
	ProfilePicture  *Media         `gorm:"-" json:"profile_picture,omitempty"`
}

func (u *User) MediaOwner() (OwnerKind, string) { return OwnerUser, u.ID }

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// RoleNames lists the names of the preloaded roles.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// PermissionNames flattens the preloaded role permissions, without duplicates.
func (u *User) PermissionNames() []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, r := range u.Roles {
		for _, p := range r.Permissions {
			if _, ok := seen[p.Name]; ok {
				continue
			}
			seen[p.Name] = struct{}{}
			names = append(names, p.Name)
		}
	}
	return names
}

type Role struct {
	Base
	Name        string       `gorm:"uniqueIndex;not null" json:"name"`
	GuardName   string       `gorm:"not null;default:'api'" json:"guard_name"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
}

type Permission struct {
	Base
	Name      string `gorm:"uniqueIndex;not null" json:"name"`
	GuardName string `gorm:"not null;default:'api'" json:"guard_name"`
}

// PasswordReset stores a bcrypt hash of a one-time code.
type PasswordReset struct {
	Base
	User      *User     `json:"user,omitempty"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Code      string    `gorm:"not null" json:"-"`
	Used      bool      `gorm:"not null;default:false" json:"used"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
}

// Usable reports whether the code can still be redeemed at now.
func (p *PasswordReset) Usable(now time.Time) bool {
	return !p.Used && now.Before(p.ExpiresAt)
}
