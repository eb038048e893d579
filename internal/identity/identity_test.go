package identity_test

import (
	"context"
	"math/rand"
	"reflect"
	"sort"
	"testing"
	"testing/quick"
	"time"

	"marketplace/internal/apperr"
	"marketplace/internal/identity"
	"marketplace/internal/models"
	"marketplace/internal/testutil"
	"marketplace/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func bearer(t *testing.T, userID string, ttl time.Duration) string {
	t.Helper()
	token, err := utils.GenerateJWT(userID, "x@y.z", secret, ttl)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestResolveRejectsBadCredentials(t *testing.T) {
	gdb := testutil.DB(t)
	r := identity.NewResolver(gdb, secret)
	ctx := context.Background()

	cases := map[string]string{
		"missing":   "",
		"no scheme": "abc.def.ghi",
		"empty":     "Bearer ",
		"garbage":   "Bearer not-a-token",
		"expired":   bearer(t, "u", -time.Minute),
		"unknown":   bearer(t, "2b1f2c1e-0000-4000-8000-000000000000", time.Hour),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(ctx, header)
			assert.True(t, apperr.Is(err, apperr.Unauthenticated), "got %v", err)
		})
	}
}

func TestResolveDeletedUserIsUnauthenticated(t *testing.T) {
	gdb := testutil.DB(t)
	u := testutil.User(t, gdb, "gone@x.io", []string{models.RoleUser})
	require.NoError(t, gdb.Delete(u).Error)

	_, err := identity.NewResolver(gdb, secret).Resolve(context.Background(), bearer(t, u.ID, time.Hour))
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
}

func TestResolveBannedIsForbidden(t *testing.T) {
	gdb := testutil.DB(t)
	u := testutil.Admin(t, gdb, "banned@x.io")
	require.NoError(t, gdb.Model(u).Update("is_banned", true).Error)

	_, err := identity.NewResolver(gdb, secret).Resolve(context.Background(), bearer(t, u.ID, time.Hour))
	require.Error(t, err)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
	assert.Equal(t, "Account is banned", apperr.From(err).Message)
}

func TestResolveFlattensPermissions(t *testing.T) {
	gdb := testutil.DB(t)

	var perm models.Permission
	require.NoError(t, gdb.Where("name = ?", models.PermMoreView).First(&perm).Error)
	for _, name := range []string{models.RoleBuyer, models.RoleSeller} {
		var role models.Role
		require.NoError(t, gdb.Where("name = ?", name).First(&role).Error)
		require.NoError(t, gdb.Model(&role).Association("Permissions").Append(&perm))
	}
	u := testutil.User(t, gdb, "both@x.io", []string{models.RoleBuyer, models.RoleSeller})

	ac, err := identity.NewResolver(gdb, secret).Resolve(context.Background(), bearer(t, u.ID, time.Hour))
	require.NoError(t, err)

	assert.Equal(t, u.ID, ac.UserID)
	assert.Equal(t, []string{models.PermMoreView}, ac.Permissions())
	assert.True(t, ac.HasAny(models.PermMoreEdit, models.PermMoreView))
	assert.False(t, ac.HasAny(models.PermMoreEdit))
	assert.False(t, ac.HasAny())
	assert.True(t, ac.HasRole(models.RoleSeller))
	assert.False(t, ac.IsAdmin())

	roles := append([]string(nil), ac.Roles...)
	sort.Strings(roles)
	assert.Equal(t, []string{models.RoleBuyer, models.RoleSeller}, roles)
}

func TestAdministratorHoldsEveryPermission(t *testing.T) {
	gdb := testutil.DB(t)
	ac := testutil.Access(t, gdb, testutil.Admin(t, gdb, "root@x.io"))

	assert.True(t, ac.IsAdmin())
	for _, p := range models.DefaultPermissions {
		assert.True(t, ac.HasAny(p), p)
	}
}

func TestContextRoundTrip(t *testing.T) {
	assert.Nil(t, identity.FromContext(context.Background()))

	ac := identity.NewAccessContext(&models.User{Base: models.Base{ID: "u1"}})
	ctx := identity.WithContext(context.Background(), ac)
	assert.Same(t, ac, identity.FromContext(ctx))
	assert.Equal(t, "u1", identity.UserIDOf(ac))
	assert.Equal(t, "", identity.UserIDOf(nil))
}

// principalCase draws ids from a tiny alphabet so owner collisions are common.
type principalCase struct {
	Principal, Owner, Creator string
	Admin                     bool
}

func (principalCase) Generate(r *rand.Rand, _ int) reflect.Value {
	ids := []string{"a", "b", "c", "d"}
	return reflect.ValueOf(principalCase{
		Principal: ids[r.Intn(len(ids))],
		Owner:     ids[r.Intn(len(ids))],
		Creator:   ids[r.Intn(len(ids))],
		Admin:     r.Intn(4) == 0,
	})
}

func TestCanMutateProperty(t *testing.T) {
	property := func(c principalCase) bool {
		user := &models.User{Base: models.Base{ID: c.Principal}}
		if c.Admin {
			user.Roles = []models.Role{{Name: models.RoleAdministrator}}
		}
		ac := identity.NewAccessContext(user)
		company := &models.Company{UserID: c.Owner, CreatedBy: c.Creator}

		want := c.Admin || c.Principal == c.Owner || c.Principal == c.Creator
		return identity.CanMutate(ac, company) == want
	}
	require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 500}))
}

func TestCanMutateAnonymous(t *testing.T) {
	assert.False(t, identity.CanMutate(nil, &models.Company{UserID: "", CreatedBy: ""}))
	assert.False(t, identity.CanMutate(identity.NewAccessContext(&models.User{}), &models.Company{}))
}
