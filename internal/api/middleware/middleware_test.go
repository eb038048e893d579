package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace/internal/apperr"
	"marketplace/internal/identity"
	"marketplace/internal/models"
	"marketplace/internal/tasks/rate"
	"marketplace/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	ac  *identity.AccessContext
	err error
}

func (s stubResolver) Resolve(context.Context, string) (*identity.AccessContext, error) {
	return s.ac, s.err
}

func newContext(header string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func reached(seen *bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		*seen = true
		return c.NoContent(http.StatusNoContent)
	}
}

func TestMiddlewareAttachesPrincipal(t *testing.T) {
	ac := &identity.AccessContext{UserID: "u1"}
	m := NewAuthMiddleware(stubResolver{ac: ac})
	c, _ := newContext("Bearer good")

	var seen bool
	require.NoError(t, m.Middleware()(reached(&seen))(c))
	assert.True(t, seen)
	assert.Same(t, ac, Principal(c))
	assert.Same(t, ac, identity.FromContext(c.Request().Context()))
}

func TestMiddlewareRejectsInvalidToken(t *testing.T) {
	m := NewAuthMiddleware(stubResolver{err: apperr.NewUnauthenticated("Unauthenticated")})
	c, _ := newContext("Bearer bad")

	var seen bool
	err := m.Middleware()(reached(&seen))(c)
	assert.False(t, seen)
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
}

func TestOptionalTreatsInvalidTokenAsAnonymous(t *testing.T) {
	m := NewAuthMiddleware(stubResolver{err: apperr.NewUnauthenticated("Unauthenticated")})
	c, _ := newContext("Bearer bad")

	var seen bool
	require.NoError(t, m.Optional()(reached(&seen))(c))
	assert.True(t, seen)
	assert.Nil(t, Principal(c))
}

func TestRequireAdmin(t *testing.T) {
	gdb := testutil.DB(t)
	admin := testutil.Access(t, gdb, testutil.Admin(t, gdb, "admin@example.com"))
	member := testutil.Access(t, gdb, testutil.User(t, gdb, "member@example.com", []string{models.RoleBuyer}))

	cases := []struct {
		name    string
		ac      *identity.AccessContext
		message string
	}{
		{"anonymous", nil, "Access denied"},
		{"member", member, "Admin access required"},
		{"admin", admin, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newContext("")
			if tc.ac != nil {
				attach(c, tc.ac)
			}
			var seen bool
			err := RequireAdmin()(reached(&seen))(c)
			if tc.message == "" {
				require.NoError(t, err)
				assert.True(t, seen)
				return
			}
			assert.False(t, seen)
			assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
			assert.Equal(t, tc.message, apperr.From(err).Message)
		})
	}
}

func TestRequirePermissions(t *testing.T) {
	gdb := testutil.DB(t)
	admin := testutil.Access(t, gdb, testutil.Admin(t, gdb, "admin@example.com"))
	member := testutil.Access(t, gdb, testutil.User(t, gdb, "member@example.com", []string{models.RoleUser}))

	mw := RequirePermissions(models.PermUserManagement, models.PermMoreEdit)

	c, _ := newContext("")
	attach(c, admin)
	var seen bool
	require.NoError(t, mw(reached(&seen))(c))
	assert.True(t, seen)

	c, _ = newContext("")
	attach(c, member)
	seen = false
	err := mw(reached(&seen))(c)
	assert.False(t, seen)
	assert.Equal(t, "Insufficient permissions", apperr.From(err).Message)
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := rate.NewWindowLimiter(client, rate.Config{Name: "auth", RateLimit: rate.RateLimit{Window: time.Minute, Max: 2}})
	mw := RateLimit(limiter, MsgTooManyAuthAttempts)

	for i := 0; i < 2; i++ {
		c, rec := newContext("")
		var seen bool
		require.NoError(t, mw(reached(&seen))(c))
		assert.True(t, seen)
		assert.Equal(t, "2", rec.Header().Get("RateLimit-Limit"))
	}

	c, rec := newContext("")
	var seen bool
	err := mw(reached(&seen))(c)
	assert.False(t, seen)
	assert.Equal(t, apperr.TooManyRequests, apperr.KindOf(err))
	assert.Equal(t, MsgTooManyAuthAttempts, apperr.From(err).Message)
	assert.Equal(t, "0", rec.Header().Get("RateLimit-Remaining"))
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	limiter := rate.NewWindowLimiter(client, rate.Config{Name: "api", RateLimit: rate.RateLimit{Window: time.Minute, Max: 1}})
	c, _ := newContext("")
	var seen bool
	require.NoError(t, RateLimit(limiter, MsgTooManyRequests)(reached(&seen))(c))
	assert.True(t, seen)
}

func TestBurstLimit(t *testing.T) {
	e := echo.New()
	// The limiter reports denials through the error handler, not its return value.
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		ae := apperr.From(err)
		_ = c.JSON(ae.Kind.Status(), map[string]string{"message": ae.Message})
	}
	var hits int
	e.GET("/", func(c echo.Context) error {
		hits++
		return c.NoContent(http.StatusNoContent)
	}, BurstLimit(0.001, 1))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), MsgTooManyRequests)
	assert.Equal(t, 1, hits)
}

func TestIDParams(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		ae := apperr.From(err)
		_ = c.JSON(ae.Kind.Status(), map[string]string{"message": ae.Message})
	}
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	g := e.Group("", IDParams())
	g.GET("/proposals/:id", ok)
	g.GET("/proposals/:proposalId/images/:mediaId", ok)
	g.GET("/company/:slug/product/:product_id", ok)

	valid := "9b2f1c1e-3d4b-4a57-9c61-2f8f6f3b8c10"
	cases := []struct {
		path string
		code int
	}{
		{"/proposals/" + valid, http.StatusNoContent},
		{"/proposals/123", http.StatusNotFound},
		{"/proposals/" + valid + "/images/nope", http.StatusNotFound},
		{"/company/acme/product/" + valid, http.StatusNoContent},
		{"/company/acme/product/7", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		assert.Equal(t, tc.code, rec.Code, tc.path)
	}
}
