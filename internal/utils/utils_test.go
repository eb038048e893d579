package utils

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"marketplace/internal/db"
	"marketplace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("user-1", "a@b.c", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.ID)
	assert.Equal(t, "a@b.c", claims.Email)

	_, err = ParseJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestJWTExpired(t *testing.T) {
	token, err := GenerateJWT("user-1", "a@b.c", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(token, "secret")
	assert.Error(t, err)
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateOTP(6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.Regexp(t, `^[0-9]{6}$`, code)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Acme Textiles Ltd.":      "acme-textiles-ltd",
		"  Café  Crème  ":         "cafe-creme",
		"Steel & Iron -- Works_1": "steel-iron-works-1",
		"!!!":                     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestUniqueSlug(t *testing.T) {
	gdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "slug.db"), "silent")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	owner := &models.User{FirstName: "O", Email: "o@x.io", Password: "x"}
	require.NoError(t, gdb.Create(owner).Error)

	first, err := UniqueSlug(gdb, "companies", "Acme Corp", "")
	require.NoError(t, err)
	assert.Equal(t, "acme-corp", first)

	c := &models.Company{UserID: owner.ID, CreatedBy: owner.ID, Name: "Acme Corp", Slug: first, Status: models.CompanyStatusCreatedByUser}
	require.NoError(t, gdb.Create(c).Error)

	second, err := UniqueSlug(gdb, "companies", "Acme Corp", "")
	require.NoError(t, err)
	assert.Equal(t, "acme-corp-1", second)

	own, err := UniqueSlug(gdb, "companies", "Acme Corp", c.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme-corp", own)
}

func TestParsePage(t *testing.T) {
	query := func(values map[string]string) func(string) string {
		return func(k string) string { return values[k] }
	}

	assert.Equal(t, Page{Page: 1, PerPage: 10}, ParsePage(query(nil)))
	assert.Equal(t, Page{Page: 3, PerPage: 25}, ParsePage(query(map[string]string{"page": "3", "per_page": "25"})))
	assert.Equal(t, Page{Page: 1, PerPage: 5}, ParsePage(query(map[string]string{"page": "-2", "perPage": "5"})))
	assert.Equal(t, Page{Page: 1, PerPage: 100}, ParsePage(query(map[string]string{"per_page": "500"})))
	assert.Equal(t, Page{Page: 1, PerPage: 1}, ParsePage(query(map[string]string{"per_page": "-4"})))
	assert.Equal(t, Page{Page: 1, PerPage: 10}, ParsePage(query(map[string]string{"page": "abc", "per_page": "x"})))
}

func TestPageMeta(t *testing.T) {
	p := Page{Page: 2, PerPage: 10}
	assert.Equal(t, 10, p.Offset())
	assert.Equal(t, Meta{CurrentPage: 2, LastPage: 3, Total: 21, PerPage: 10}, p.Meta(21))
	assert.Equal(t, 0, p.Meta(0).LastPage)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.9:5123"
	assert.Equal(t, "10.0.0.9", ClientIP(r))

	r.Header.Set("X-Real-IP", "192.168.1.4")
	assert.Equal(t, "192.168.1.4", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(r))
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"10.0.0.9:5123", "10.0.0.9"},
		{"[::ffff:10.0.0.9]:5123", "10.0.0.9"},
		{"[2001:db8:1:2:aaaa::1]:443", "2001:db8:1:2::/64"},
		{"[2001:db8:1:2:bbbb::7]:443", "2001:db8:1:2::/64"},
		{"pipe", "pipe"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = tt.remote
		assert.Equal(t, tt.want, ClientKey(r), tt.remote)
	}
}

func TestToJSON(t *testing.T) {
	col, err := ToJSON(json.RawMessage(` { "lat" : 1 } `))
	require.NoError(t, err)
	assert.Equal(t, `{"lat":1}`, string(col))

	for _, empty := range []string{"", "null", "  "} {
		col, err := ToJSON(json.RawMessage(empty))
		require.NoError(t, err)
		assert.Nil(t, col)
	}

	_, err = ToJSON(json.RawMessage(`{"lat":`))
	assert.Error(t, err)
}

func TestJSONToMap(t *testing.T) {
	m, err := JSONToMap([]byte(`{"lat":23.8}`))
	require.NoError(t, err)
	assert.Equal(t, 23.8, m["lat"])

	m, err = JSONToMap(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = JSONToMap([]byte(`[1,2]`))
	assert.Error(t, err)
}
