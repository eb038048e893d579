package services

import (
	"context"
	"testing"

	"marketplace/internal/apperr"
	"marketplace/internal/models"
	"marketplace/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminManagement(t *testing.T) {
	e := newEnv(t)
	svc := NewUserService(e.db, e.media)
	root := testutil.Admin(t, e.db, "root@example.com")
	testutil.User(t, e.db, "plain@example.com", []string{models.RoleUser})
	ctx := context.Background()

	admin, err := svc.CreateAdmin(ctx, CreateAdminInput{FirstName: "Ops", Email: "Ops@Example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", admin.Email)
	assert.Equal(t, models.UserStatusApproved, admin.Status)

	_, err = svc.CreateAdmin(ctx, CreateAdminInput{FirstName: "Dup", Email: "plain@example.com", Password: "secret123"})
	assert.True(t, apperr.Is(err, apperr.Validation))

	items, meta, err := svc.ListAdmins(ctx, firstPage())
	require.NoError(t, err)
	assert.EqualValues(t, 2, meta.Total)
	for _, u := range items {
		assert.Contains(t, u.RoleNames(), models.RoleAdministrator)
	}

	updated, err := svc.UpdateAdmin(ctx, admin.ID, UpdateAdminInput{LastName: strPtr("Team")})
	require.NoError(t, err)
	assert.Equal(t, "Team", updated.LastName)

	plain, err := models.GetUserByEmail("plain@example.com", e.db)
	require.NoError(t, err)
	_, err = svc.UpdateAdmin(ctx, plain.ID, UpdateAdminInput{LastName: strPtr("x")})
	assert.True(t, apperr.Is(err, apperr.NotFound))

	assert.True(t, apperr.Is(svc.DeleteAdmin(ctx, root.ID, root.ID), apperr.BadRequest))
	require.NoError(t, svc.DeleteAdmin(ctx, root.ID, admin.ID))
	_, meta, err = svc.ListAdmins(ctx, firstPage())
	require.NoError(t, err)
	assert.EqualValues(t, 1, meta.Total)
}

func TestUserManagement(t *testing.T) {
	e := newEnv(t)
	svc := NewUserService(e.db, e.media)
	root := testutil.Admin(t, e.db, "root@example.com")
	target := testutil.User(t, e.db, "target@example.com", []string{models.RoleUser})
	ctx := context.Background()

	items, _, err := svc.ListUsers(ctx, "TARGET", firstPage())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, target.ID, items[0].ID)

	banned, err := svc.ToggleBan(ctx, root.ID, target.ID)
	require.NoError(t, err)
	assert.True(t, banned)
	banned, err = svc.ToggleBan(ctx, root.ID, target.ID)
	require.NoError(t, err)
	assert.False(t, banned)

	_, err = svc.ToggleBan(ctx, root.ID, root.ID)
	assert.True(t, apperr.Is(err, apperr.BadRequest))

	assert.True(t, apperr.Is(svc.SetPassword(ctx, target.ID, SetPasswordInput{Password: "short"}), apperr.Validation))
	require.NoError(t, svc.SetPassword(ctx, target.ID, SetPasswordInput{Password: "longenough"}))

	assert.True(t, apperr.Is(svc.DeleteUser(ctx, root.ID, root.ID), apperr.BadRequest))
	require.NoError(t, svc.DeleteUser(ctx, root.ID, target.ID))
	assert.True(t, apperr.Is(svc.DeleteUser(ctx, root.ID, target.ID), apperr.NotFound))
}

func TestRoleManagement(t *testing.T) {
	e := newEnv(t)
	svc := NewRoleService(e.db)
	ctx := context.Background()

	perms, err := svc.Permissions(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, perms)

	r, err := svc.Create(ctx, RoleInput{Name: "moderator", Permissions: []string{perms[0].ID}})
	require.NoError(t, err)

	shown, err := svc.Show(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, shown.Permissions, 1)

	_, err = svc.Create(ctx, RoleInput{Name: "ghost", Permissions: []string{"0f9a1c52-4c1e-4f4e-9c63-3a3c6a1b2d00"}})
	assert.True(t, apperr.Is(err, apperr.Validation))

	updated, err := svc.Update(ctx, r.ID, UpdateRoleInput{Name: strPtr("reviewer"), Permissions: []string{}})
	require.NoError(t, err)
	assert.Empty(t, updated.Permissions)

	roles, err := svc.List(ctx)
	require.NoError(t, err)
	var admin models.Role
	for _, role := range roles {
		if role.Name == models.RoleAdministrator {
			admin = role
		}
	}
	require.NotEmpty(t, admin.ID)

	_, err = svc.Update(ctx, admin.ID, UpdateRoleInput{Name: strPtr("root")})
	assert.True(t, apperr.Is(err, apperr.Forbidden))
	assert.True(t, apperr.Is(svc.Delete(ctx, admin.ID), apperr.Forbidden))

	require.NoError(t, svc.Delete(ctx, r.ID))
	_, err = svc.Show(ctx, r.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
