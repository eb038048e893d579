// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"marketplace/internal/db"
	"marketplace/internal/identity"
	"marketplace/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DB returns a migrated and seeded sqlite database under t.TempDir.
func DB(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "marketplace_test.db"), "silent")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if err := models.SeedPermissions(gdb); err != nil {
		t.Fatalf("seed permissions: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })

	return gdb
}

// UserOption customizes a fixture user.
type UserOption func(*models.User)

func Banned() UserOption { return func(u *models.User) { u.IsBanned = true } }

func WithPassword(plain string) UserOption {
	return func(u *models.User) {
		hash, _ := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
		u.Password = string(hash)
	}
}

// User creates an approved user holding the named roles.
func User(t testing.TB, gdb *gorm.DB, email string, roles []string, opts ...UserOption) *models.User {
	t.Helper()

	found, err := models.GetRolesByName(gdb, roles...)
	if err != nil {
		t.Fatalf("load roles: %v", err)
	}
	u := &models.User{
		FirstName: "Test",
		LastName:  email,
		Email:     email,
		Password:  "x",
		Status:    models.UserStatusApproved,
		Roles:     found,
	}
	for _, opt := range opts {
		opt(u)
	}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

// Admin creates a user with the administrator role.
func Admin(t testing.TB, gdb *gorm.DB, email string) *models.User {
	return User(t, gdb, email, []string{models.RoleAdministrator})
}

// Access builds the AccessContext for u the way the resolver would.
func Access(t testing.TB, gdb *gorm.DB, u *models.User) *identity.AccessContext {
	t.Helper()

	ac, err := identity.NewResolver(gdb, "test-secret").Load(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("load access context: %v", err)
	}
	return ac
}

// Company creates a company owned and created by owner.
func Company(t testing.TB, gdb *gorm.DB, owner *models.User, slug string) *models.Company {
	t.Helper()

	c := &models.Company{
		UserID:    owner.ID,
		CreatedBy: owner.ID,
		Name:      slug,
		Slug:      slug,
		Status:    models.CompanyStatusCreatedByUser,
		IsActive:  true,
	}
	if err := gdb.Create(c).Error; err != nil {
		t.Fatalf("create company %s: %v", slug, err)
	}
	return c
}

// Proposal creates a proposal by author with the given status.
func Proposal(t testing.TB, gdb *gorm.DB, author *models.User, title string, status models.ProposalStatus) *models.SourcingProposal {
	t.Helper()

	p := &models.SourcingProposal{
		UserID:        author.ID,
		Title:         title,
		Description:   title + " description",
		PaymentMethod: "cash",
		Status:        status,
	}
	if err := gdb.Create(p).Error; err != nil {
		t.Fatalf("create proposal %s: %v", title, err)
	}
	return p
}
