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

func slugs(items []models.Company) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].Slug
	}
	return out
}

func TestPublicListFilters(t *testing.T) {
	e := newEnv(t)
	svc := NewCompanyService(e.db, e.media)
	cat := seedCatalog(t, e)
	owner := testutil.User(t, e.db, "owner@example.com", []string{models.RoleSeller})
	ctx := context.Background()

	knit := testutil.Company(t, e.db, owner, "knit-works")
	require.NoError(t, e.db.Model(knit).Updates(map[string]interface{}{
		"location_id": cat.location.ID,
		"manpower":    "50-100",
		"moto":        "Knitwear for everyone",
	}).Error)
	require.NoError(t, e.db.Model(knit).Association("BusinessCategories").Append(&cat.category))
	require.NoError(t, e.db.Model(knit).Association("Certificates").Append(&cat.cert))

	shoes := testutil.Company(t, e.db, owner, "shoe-co")
	require.NoError(t, e.db.Model(shoes).Update("manpower", "500+").Error)
	require.NoError(t, e.db.Model(shoes).Association("BusinessCategories").Append(&cat.other))
	require.NoError(t, e.db.Model(shoes).Association("BusinessTypes").Append(&cat.kind))

	hidden := testutil.Company(t, e.db, owner, "hidden-knit")
	require.NoError(t, e.db.Model(hidden).Update("is_active", false).Error)
	gone := testutil.Company(t, e.db, owner, "gone-knit")
	require.NoError(t, e.db.Delete(gone).Error)

	cases := []struct {
		name string
		in   CompanySearch
		want []string
	}{
		{"everything active", CompanySearch{}, []string{"shoe-co", "knit-works"}},
		{"keyword in moto", CompanySearch{Keyword: "KNITWEAR"}, []string{"knit-works"}},
		{"keyword in name", CompanySearch{Keyword: "knit"}, []string{"knit-works"}},
		{"location", CompanySearch{LocationID: cat.location.ID}, []string{"knit-works"}},
		{"business category", CompanySearch{BusinessCategoryIDs: []string{cat.other.ID}}, []string{"shoe-co"}},
		{"business type", CompanySearch{BusinessTypeIDs: []string{cat.kind.ID}}, []string{"shoe-co"}},
		{"certificate", CompanySearch{CertificateIDs: []string{cat.cert.ID}}, []string{"knit-works"}},
		{"manpower", CompanySearch{Manpower: []string{"500+", "10-20"}}, []string{"shoe-co"}},
		{"combined", CompanySearch{Keyword: "knit", BusinessTypeIDs: []string{cat.kind.ID}}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, meta, err := svc.PublicList(ctx, "", tc.in, firstPage())
			require.NoError(t, err)
			assert.Equal(t, tc.want, slugs(items))
			assert.Equal(t, int64(len(tc.want)), meta.Total)
		})
	}
}

func TestPublicListMarksViewerFavorites(t *testing.T) {
	e := newEnv(t)
	svc := NewCompanyService(e.db, e.media)
	favorites := NewFavoriteService(e.db, e.media)
	owner := testutil.User(t, e.db, "owner@example.com", []string{models.RoleSeller})
	fan := testutil.User(t, e.db, "fan@example.com", []string{models.RoleBuyer})
	liked := testutil.Company(t, e.db, owner, "liked")
	testutil.Company(t, e.db, owner, "other")
	ctx := context.Background()

	_, err := favorites.ToggleCompany(ctx, fan.ID, liked.Slug)
	require.NoError(t, err)

	items, _, err := svc.PublicList(ctx, fan.ID, CompanySearch{}, firstPage())
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, c := range items {
		assert.Equal(t, c.ID == liked.ID, c.IsFavorite, c.Slug)
	}

	anon, _, err := svc.PublicList(ctx, "", CompanySearch{}, firstPage())
	require.NoError(t, err)
	for _, c := range anon {
		assert.False(t, c.IsFavorite)
	}
}

func TestCompanyFilterOptions(t *testing.T) {
	e := newEnv(t)
	svc := NewCompanyService(e.db, e.media)
	seedCatalog(t, e)
	owner := testutil.User(t, e.db, "owner@example.com", []string{models.RoleSeller})
	ctx := context.Background()

	for slug, manpower := range map[string]string{"a": "50-100", "b": "50-100", "c": "10-20"} {
		c := testutil.Company(t, e.db, owner, slug)
		require.NoError(t, e.db.Model(c).Update("manpower", manpower).Error)
	}
	inactive := testutil.Company(t, e.db, owner, "d")
	require.NoError(t, e.db.Model(inactive).Updates(map[string]interface{}{"manpower": "1000+", "is_active": false}).Error)

	opts, err := svc.FilterOptions(ctx)
	require.NoError(t, err)
	assert.Len(t, opts.Locations, 1)
	assert.Len(t, opts.BusinessCategories, 2)
	assert.Equal(t, "Apparel", opts.BusinessCategories[0].Name)
	assert.Len(t, opts.BusinessTypes, 1)
	assert.Len(t, opts.Certificates, 1)
	assert.Equal(t, []string{"10-20", "50-100"}, opts.Manpower)
}

func TestShowCompanyProfile(t *testing.T) {
	e := newEnv(t)
	svc := NewCompanyService(e.db, e.media)
	favorites := NewFavoriteService(e.db, e.media)
	cat := seedCatalog(t, e)
	owner := testutil.User(t, e.db, "owner@example.com", []string{models.RoleSeller})
	fan := testutil.User(t, e.db, "fan@example.com", []string{models.RoleBuyer})
	ac := testutil.Access(t, e.db, owner)
	c := testutil.Company(t, e.db, owner, "acme")
	ctx := context.Background()

	_, err := svc.StoreProduct(ctx, ac, c.Slug, ProductInput{
		ProductCategoryID: cat.product.ID,
		Name:              "Polo",
		PriceRange:        price("4.50"),
		MOQ:               "500",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, e.db.Create(&models.CompanyFAQ{
		CompanyRef: models.CompanyRef{CompanyID: c.ID},
		Question:   "Do you ship?",
		Answer:     "Worldwide",
	}).Error)
	_, err = favorites.ToggleCompany(ctx, fan.ID, c.Slug)
	require.NoError(t, err)

	profile, err := svc.Show(ctx, fan.ID, c.Slug)
	require.NoError(t, err)
	assert.Equal(t, c.ID, profile.ID)
	assert.True(t, profile.IsFavorite)
	assert.Equal(t, int64(1), profile.ViewCount)
	require.Len(t, profile.Products, 1)
	assert.Equal(t, "Polo", profile.Products[0].Name)
	require.Len(t, profile.FAQs, 1)
	assert.Empty(t, profile.Clients)
	assert.Empty(t, profile.DecisionMakers)
	assert.Nil(t, profile.Overview)
	assert.Nil(t, profile.Contact)

	again, err := svc.Show(ctx, "", c.Slug)
	require.NoError(t, err)
	assert.False(t, again.IsFavorite)
	assert.Equal(t, int64(2), again.ViewCount)

	var stored models.Company
	require.NoError(t, e.db.First(&stored, "id = ?", c.ID).Error)
	assert.Equal(t, int64(2), stored.ViewCount)
}

func TestShowHidesInactiveAndDeletedCompanies(t *testing.T) {
	e := newEnv(t)
	svc := NewCompanyService(e.db, e.media)
	owner := testutil.User(t, e.db, "owner@example.com", []string{models.RoleSeller})
	inactive := testutil.Company(t, e.db, owner, "inactive")
	require.NoError(t, e.db.Model(inactive).Update("is_active", false).Error)
	deleted := testutil.Company(t, e.db, owner, "deleted")
	require.NoError(t, e.db.Delete(deleted).Error)
	ctx := context.Background()

	for _, slug := range []string{"inactive", "deleted", "missing"} {
		_, err := svc.Show(ctx, "", slug)
		require.Error(t, err, slug)
		assert.True(t, apperr.Is(err, apperr.NotFound), slug)
		assert.Equal(t, "Company not found", apperr.From(err).Message, slug)
	}

	var stored models.Company
	require.NoError(t, e.db.First(&stored, "id = ?", inactive.ID).Error)
	assert.Zero(t, stored.ViewCount)
}
