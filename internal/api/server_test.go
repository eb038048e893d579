package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"marketplace/internal/config"
	"marketplace/internal/models"
	"marketplace/internal/services"
	"marketplace/internal/testutil"
	"marketplace/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type nopMail struct{}

func (nopMail) EnqueuePasswordOTP(context.Context, string, string, string) error { return nil }
func (nopMail) EnqueueWelcome(context.Context, string, string) error             { return nil }

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Code    int             `json:"code"`
}

type testServer struct {
	t   *testing.T
	cfg *config.Config
	db  *gorm.DB
	srv *Server
}

func newTestServer(t *testing.T, tweak func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.LoadTestConfig()
	if tweak != nil {
		tweak(cfg)
	}
	gdb := testutil.DB(t)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	storage := services.NewMemoryStorage(cfg.Server.PublicURL)
	models.RegisterMediaURLGenerator(storage)
	t.Cleanup(func() { models.RegisterMediaURLGenerator(nil) })
	media := services.NewMediaService(storage)

	srv, err := NewServer(cfg, Deps{
		DB:         gdb,
		Media:      media,
		Auth:       services.NewAuthService(gdb, media, nopMail{}, nil, cfg.JWT.Secret, cfg.JWT.TTL),
		Redis:      rdb,
		LocalMedia: storage,
	})
	require.NoError(t, err)
	return &testServer{t: t, cfg: cfg, db: gdb, srv: srv}
}

func (ts *testServer) token(u *models.User) string {
	tok, err := utils.GenerateJWT(u.ID, u.Email, ts.cfg.JWT.Secret, ts.cfg.JWT.TTL)
	require.NoError(ts.t, err)
	return "Bearer " + tok
}

func (ts *testServer) do(req *http.Request, auth string) (*httptest.ResponseRecorder, envelope) {
	ts.t.Helper()
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	ts.srv.Echo().ServeHTTP(rec, req)

	var env envelope
	if req.Method != http.MethodHead {
		require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (ts *testServer) json(method, path, auth string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return ts.do(req, auth)
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.json(http.MethodGet, "/api/v1/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Status)
	assert.Equal(t, "Route not found", env.Message)
	assert.Equal(t, http.StatusNotFound, env.Code)
}

func TestPanicIsRenderedAsInternalError(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.srv.Echo().GET("/boom", func(echo.Context) error { panic("kaboom") })

	rec, env := ts.json(http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", env.Message)
}

func TestRegisterLoginAndProfile(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.json(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      "ada@example.com",
		"password":   "secret123",
		"user_type":  "buyer",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Registration successful!", env.Message)

	rec, env = ts.json(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login services.AuthResult
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.Equal(t, "Bearer", login.TokenType)
	assert.Contains(t, login.Roles, models.RoleBuyer)

	rec, env = ts.json(http.MethodGet, "/api/v1/auth/user", "Bearer "+login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, env.Status)
	assert.Contains(t, string(env.Data), "ada@example.com")
}

func TestValidationErrorsCarryFields(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.json(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &fields))
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.json(http.MethodGet, "/api/v1/auth/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Status)

	rec, _ = ts.json(http.MethodGet, "/api/v1/auth/user", "Bearer garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBannedUserIsRefusedBeforePermissions(t *testing.T) {
	ts := newTestServer(t, nil)
	banned := testutil.User(t, ts.db, "banned@example.com", []string{models.RoleAdministrator}, testutil.Banned())

	rec, env := ts.json(http.MethodGet, "/api/v1/admin/user-management", ts.token(banned), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Account is banned", env.Message)
}

func TestAdminGate(t *testing.T) {
	ts := newTestServer(t, nil)
	member := testutil.User(t, ts.db, "member@example.com", []string{models.RoleUser})
	admin := testutil.Admin(t, ts.db, "admin@example.com")

	rec, env := ts.json(http.MethodGet, "/api/v1/admin/user-management", ts.token(member), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin access required", env.Message)

	rec, _ = ts.json(http.MethodGet, "/api/v1/admin/user-management", ts.token(admin), nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func multipartProposal(t *testing.T, fields map[string]string, images int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for i := 0; i < images; i++ {
		part, err := w.CreateFormFile("images", "photo.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func listedIDs(t *testing.T, env envelope) []string {
	t.Helper()
	var page struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	ids := make([]string, 0, len(page.Data))
	for _, p := range page.Data {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestProposalReviewFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	author := testutil.User(t, ts.db, "author@example.com", []string{models.RoleBuyer})
	admin := testutil.Admin(t, ts.db, "admin@example.com")

	body, ctype := multipartProposal(t, map[string]string{
		"title":          "Cotton yarn",
		"description":    "Need 20 tons",
		"payment_method": "bank_transfer",
		"quantity":       "20",
		"unit":           "ton",
		"price":          "1500.50",
		"currency":       "USD",
	}, 2)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/my/sourcing-proposals/store", body)
	req.Header.Set(echo.HeaderContentType, ctype)
	rec, env := ts.do(req, ts.token(author))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.SourcingProposal
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, models.ProposalStatusPending, created.Status)

	// Pending proposals stay out of the public list
	_, env = ts.json(http.MethodGet, "/api/v1/sourcing-proposals/list", "", nil)
	assert.NotContains(t, listedIDs(t, env), created.ID)

	rec, _ = ts.json(http.MethodPost, "/api/v1/admin/sourcing-proposals/"+created.ID+"/approve", ts.token(admin), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, env = ts.json(http.MethodGet, "/api/v1/sourcing-proposals/list", "", nil)
	assert.Contains(t, listedIDs(t, env), created.ID)

	// A second review is a conflict
	rec, _ = ts.json(http.MethodPost, "/api/v1/admin/sourcing-proposals/"+created.ID+"/reject", ts.token(admin), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Favorite toggle round trip
	rec, env = ts.json(http.MethodPost, "/api/v1/favorites/sourcing-proposals/"+created.ID+"/toggle", ts.token(admin), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"is_favorited":true}`, string(env.Data))
	_, env = ts.json(http.MethodPost, "/api/v1/favorites/sourcing-proposals/"+created.ID+"/toggle", ts.token(admin), nil)
	assert.JSONEq(t, `{"is_favorited":false}`, string(env.Data))
}

func TestUploadRejectsNonImages(t *testing.T) {
	ts := newTestServer(t, nil)
	author := testutil.User(t, ts.db, "author@example.com", []string{models.RoleBuyer})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "Fake"))
	require.NoError(t, w.WriteField("description", "Fake"))
	require.NoError(t, w.WriteField("payment_method", "cash"))
	part, err := w.CreateFormFile("images", "evil.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("#!/bin/sh\necho not an image\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/my/sourcing-proposals/store", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec, env := ts.do(req, ts.token(author))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only image files are allowed", env.Message)
}

func TestAuthRoutesAreThrottled(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) { cfg.RateLimit.AuthMax = 2 })

	body := map[string]string{"email": "ghost@example.com", "password": "whatever1"}
	for i := 0; i < 2; i++ {
		rec, _ := ts.json(http.MethodPost, "/api/v1/auth/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec, env := ts.json(http.MethodPost, "/api/v1/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many authentication attempts, please try again later", env.Message)
	assert.True(t, strings.HasPrefix(rec.Header().Get("RateLimit-Limit"), "2"))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.json(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", env.Message)
}

func TestCompanyFAQsAreOwnerScoped(t *testing.T) {
	ts := newTestServer(t, nil)
	owner := testutil.User(t, ts.db, "owner@example.com", []string{models.RoleSeller})
	other := testutil.User(t, ts.db, "other@example.com", []string{models.RoleSeller})
	testutil.Company(t, ts.db, owner, "acme-textiles")

	rec, env := ts.json(http.MethodPost, "/api/v1/my/company/acme-textiles/faq/store", ts.token(owner),
		map[string]string{"question": "MOQ?", "answer": "500 units"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var faq models.CompanyFAQ
	require.NoError(t, json.Unmarshal(env.Data, &faq))
	assert.NotEmpty(t, faq.ID)

	rec, env = ts.json(http.MethodGet, "/api/v1/my/company/acme-textiles/faq", ts.token(other), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Company not found", env.Message)

	rec, _ = ts.json(http.MethodDelete, "/api/v1/my/company/acme-textiles/faq/"+faq.ID, ts.token(other), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = ts.json(http.MethodGet, "/api/v1/my/company/acme-textiles/faq/"+faq.ID+"/delete", ts.token(owner), nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = ts.json(http.MethodGet, "/api/v1/my/company/acme-textiles/faq", ts.token(owner), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestMalformedIDIsNotFound(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := testutil.Admin(t, ts.db, "admin@example.com")

	rec, env := ts.json(http.MethodGet, "/api/v1/sourcing-proposals/123", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Record not found", env.Message)

	rec, _ = ts.json(http.MethodPost, "/api/v1/admin/company-claims/not-a-uuid/status", ts.token(admin),
		map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicCompanyDirectory(t *testing.T) {
	ts := newTestServer(t, nil)
	owner := testutil.User(t, ts.db, "owner@example.com", []string{models.RoleSeller})
	fan := testutil.User(t, ts.db, "fan@example.com", []string{models.RoleBuyer})
	acme := testutil.Company(t, ts.db, owner, "acme-textiles")
	hidden := testutil.Company(t, ts.db, owner, "hidden-textiles")
	require.NoError(t, ts.db.Model(hidden).Update("is_active", false).Error)
	require.NoError(t, ts.db.Create(&models.CompanyFavorite{UserID: fan.ID, CompanyID: acme.ID}).Error)

	rec, env := ts.json(http.MethodPost, "/api/v1/company/list", "", map[string]string{"keyword": "textiles"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{acme.ID}, listedIDs(t, env))

	rec, env = ts.json(http.MethodPost, "/api/v1/company/list", ts.token(fan), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page struct {
		Data []struct {
			IsFavorite bool `json:"is_favorite"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Data, 1)
	assert.True(t, page.Data[0].IsFavorite)

	rec, _ = ts.json(http.MethodPost, "/api/v1/company/list", "", map[string]interface{}{"business_type_ids": []string{"abc"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec, _ = ts.json(http.MethodGet, "/api/v1/company/filter-options", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = ts.json(http.MethodGet, "/api/v1/company/acme-textiles", ts.token(fan), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var profile struct {
		Slug       string `json:"slug"`
		ViewCount  int64  `json:"view_count"`
		IsFavorite bool   `json:"is_favorite"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "acme-textiles", profile.Slug)
	assert.Equal(t, int64(1), profile.ViewCount)
	assert.True(t, profile.IsFavorite)

	rec, env = ts.json(http.MethodGet, "/api/v1/company/hidden-textiles", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Company not found", env.Message)
}

func TestAdminDashboard(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := testutil.Admin(t, ts.db, "admin@example.com")
	member := testutil.User(t, ts.db, "member@example.com", []string{models.RoleUser})
	testutil.Company(t, ts.db, member, "acme")
	testutil.Proposal(t, ts.db, member, "Denim", models.ProposalStatusPending)

	rec, _ := ts.json(http.MethodGet, "/api/v1/admin/dashboard", ts.token(member), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := ts.json(http.MethodGet, "/api/v1/admin/dashboard", ts.token(admin), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Dashboard data fetched", env.Message)

	var d services.Dashboard
	require.NoError(t, json.Unmarshal(env.Data, &d))
	assert.Equal(t, int64(2), d.Stats.TotalUsers)
	assert.Equal(t, int64(1), d.Stats.TotalCompanies)
	assert.Equal(t, int64(1), d.Stats.ActiveCompanies)
	assert.Equal(t, int64(1), d.Stats.PendingProposals)
	assert.Zero(t, d.Stats.TotalClaims)
	require.Len(t, d.RecentUsers, 2)
	assert.Equal(t, "member@example.com", d.RecentUsers[0].Email)
	require.Len(t, d.RecentCompanies, 1)
	assert.Equal(t, "acme", d.RecentCompanies[0].Slug)
}
