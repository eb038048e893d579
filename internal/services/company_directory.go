package services

import (
	"context"
	"strings"

	"marketplace/internal/apperr"
	"marketplace/internal/models"
	"marketplace/internal/utils"
	console "marketplace/internal/utils/logger"

	"gorm.io/gorm"
)

var companyLog = console.New("COMPANY")

// CompanySearch is the body of the public company listing.
type CompanySearch struct {
	Keyword             string   `json:"keyword" validate:"omitempty,max=255"`
	LocationID          string   `json:"location_id" validate:"omitempty,uuid"`
	BusinessCategoryIDs []string `json:"business_category_ids" validate:"omitempty,dive,uuid"`
	BusinessTypeIDs     []string `json:"business_type_ids" validate:"omitempty,dive,uuid"`
	CertificateIDs      []string `json:"certificate_ids" validate:"omitempty,dive,uuid"`
	Manpower            []string `json:"manpower" validate:"omitempty,dive,max=255"`
	Page                int      `json:"page"`
	PerPage             int      `json:"per_page"`
}

// CompanyFilterOptions lists the vocabularies of the company search form.
type CompanyFilterOptions struct {
	Locations          []models.Location         `json:"locations"`
	BusinessCategories []models.BusinessCategory `json:"business_categories"`
	BusinessTypes      []models.BusinessType     `json:"business_types"`
	Certificates       []models.Certificate      `json:"certificates"`
	Manpower           []string                  `json:"manpower"`
}

// PublicCompany is the public profile of a company.
type PublicCompany struct {
	*models.Company
	Overview       *models.CompanyOverview `json:"overview"`
	Contact        *models.BusinessContact `json:"contact"`
	Products       []models.Product        `json:"products"`
	Clients        []models.CompanyClient  `json:"clients"`
	FAQs           []models.CompanyFAQ     `json:"faqs"`
	DecisionMakers []models.DecisionMaker  `json:"decision_makers"`
}

func (s *CompanyService) public(ctx context.Context) *gorm.DB {
	return s.withPivots(ctx).Model(&models.Company{}).Where("companies.is_active = ?", true)
}

func pivotFilter(q *gorm.DB, table, column string, ids []string) *gorm.DB {
	if len(ids) == 0 {
		return q
	}
	return q.Where("companies.id IN (?)", q.Session(&gorm.Session{NewDB: true}).
		Table(table).
		Select("company_id").
		Where(column+" IN ?", ids))
}

func (in CompanySearch) apply(q *gorm.DB) *gorm.DB {
	if kw := strings.TrimSpace(in.Keyword); kw != "" {
		like := contains(kw)
		q = q.Where(
			"(LOWER(companies.name) LIKE ? OR LOWER(COALESCE(companies.moto, '')) LIKE ? OR LOWER(COALESCE(companies.tags, '')) LIKE ? OR LOWER(COALESCE(companies.about, '')) LIKE ? OR LOWER(COALESCE(companies.keywords, '')) LIKE ?)",
			like, like, like, like, like,
		)
	}
	if in.LocationID != "" {
		q = q.Where("companies.location_id = ?", in.LocationID)
	}
	if len(in.Manpower) > 0 {
		q = q.Where("companies.manpower IN ?", in.Manpower)
	}
	q = pivotFilter(q, "company_business_categories", "business_category_id", in.BusinessCategoryIDs)
	q = pivotFilter(q, "company_business_types", "business_type_id", in.BusinessTypeIDs)
	q = pivotFilter(q, "company_certificates", "certificate_id", in.CertificateIDs)
	return q
}

// markFavorites sets IsFavorite on the companies viewerID has favorited.
func (s *CompanyService) markFavorites(ctx context.Context, viewerID string, items []models.Company) error {
	if viewerID == "" || len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	var favIDs []string
	if err := s.db.WithContext(ctx).Model(&models.CompanyFavorite{}).
		Where("user_id = ? AND company_id IN ?", viewerID, ids).
		Pluck("company_id", &favIDs).Error; err != nil {
		return err
	}
	fav := make(map[string]bool, len(favIDs))
	for _, id := range favIDs {
		fav[id] = true
	}
	for i := range items {
		items[i].IsFavorite = fav[items[i].ID]
	}
	return nil
}

// PublicList returns active companies matching in, newest first.
func (s *CompanyService) PublicList(ctx context.Context, viewerID string, in CompanySearch, p utils.Page) ([]models.Company, utils.Meta, error) {
	q := in.apply(s.public(ctx)).Order("companies.created_at DESC")

	var items []models.Company
	meta, err := utils.Paginate(q, p, &items)
	if err != nil {
		return nil, utils.Meta{}, err
	}
	if err := s.decorate(ctx, items); err != nil {
		return nil, utils.Meta{}, err
	}
	if err := s.markFavorites(ctx, viewerID, items); err != nil {
		return nil, utils.Meta{}, err
	}
	return items, meta, nil
}

// FilterOptions returns the catalogs and the manpower values in use.
func (s *CompanyService) FilterOptions(ctx context.Context) (*CompanyFilterOptions, error) {
	opts := &CompanyFilterOptions{
		Locations:          []models.Location{},
		BusinessCategories: []models.BusinessCategory{},
		BusinessTypes:      []models.BusinessType{},
		Certificates:       []models.Certificate{},
		Manpower:           []string{},
	}
	db := s.db.WithContext(ctx)
	for _, dst := range []interface{}{&opts.Locations, &opts.BusinessCategories, &opts.BusinessTypes, &opts.Certificates} {
		if err := db.Order("name ASC").Find(dst).Error; err != nil {
			return nil, err
		}
	}
	if err := db.Model(&models.Company{}).
		Where("is_active = ? AND manpower IS NOT NULL AND manpower <> ''", true).
		Distinct("manpower").
		Order("manpower ASC").
		Pluck("manpower", &opts.Manpower).Error; err != nil {
		return nil, err
	}
	return opts, nil
}

// Show returns the public profile of an active company and counts the view.
func (s *CompanyService) Show(ctx context.Context, viewerID, slug string) (*PublicCompany, error) {
	var items []models.Company
	if err := s.public(ctx).Where("companies.slug = ?", slug).Limit(1).Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.NewNotFound("Company not found")
	}
	if err := s.decorate(ctx, items); err != nil {
		return nil, err
	}
	if err := s.markFavorites(ctx, viewerID, items); err != nil {
		return nil, err
	}
	c := &items[0]

	out := &PublicCompany{Company: c, FAQs: []models.CompanyFAQ{}, DecisionMakers: []models.DecisionMaker{}}
	db := s.db.WithContext(ctx)

	var overviews []models.CompanyOverview
	if err := db.Where("company_id = ?", c.ID).Limit(1).Find(&overviews).Error; err != nil {
		return nil, err
	}
	if len(overviews) > 0 {
		out.Overview = &overviews[0]
	}
	var contacts []models.BusinessContact
	if err := db.Where("company_id = ?", c.ID).Limit(1).Find(&contacts).Error; err != nil {
		return nil, err
	}
	if len(contacts) > 0 {
		out.Contact = &contacts[0]
	}

	var err error
	if out.Products, err = s.productsOf(ctx, c.ID); err != nil {
		return nil, err
	}
	if out.Clients, err = s.clientsOf(ctx, c.ID); err != nil {
		return nil, err
	}
	if err := db.Where("company_id = ?", c.ID).Order("created_at ASC").Find(&out.FAQs).Error; err != nil {
		return nil, err
	}
	if err := db.Where("company_id = ?", c.ID).Order("created_at ASC").Find(&out.DecisionMakers).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.Company{}).
		Where("id = ?", c.ID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
		companyLog.Warn("Failed to count view of company %s: %v", c.ID, err)
	} else {
		c.ViewCount++
	}
	return out, nil
}
