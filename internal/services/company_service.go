package services

import (
	"context"
	"encoding/json"
	"strings"

	"marketplace/internal/apperr"
	"marketplace/internal/identity"
	"marketplace/internal/models"
	"marketplace/internal/utils"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CompanyFields struct {
	Manpower           *string  `json:"manpower" validate:"omitempty,max=255"`
	Moto               *string  `json:"moto" validate:"omitempty,max=255"`
	Tags               *string  `json:"tags"`
	About              *string  `json:"about"`
	Keywords           *string  `json:"keywords"`
	BusinessCategories []string `json:"business_categories" validate:"omitempty,dive,uuid"`
	BusinessTypes      []string `json:"business_types" validate:"omitempty,dive,uuid"`
}

type CreateCompanyInput struct {
	Name         string   `json:"name" validate:"required,max=255"`
	LocationID   string   `json:"location_id" validate:"required,uuid"`
	Certificates []string `json:"certificates" validate:"omitempty,dive,uuid"`
	CompanyFields
}

type UpdateCompanyInput struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=255"`
	LocationID *string `json:"location_id" validate:"omitempty,uuid"`
	CompanyFields
}

type OverviewInput struct {
	MOQ                    *string         `json:"moq"`
	LeadTime               *string         `json:"lead_time"`
	LeadTimeUnit           *string         `json:"lead_time_unit"`
	ShipmentTerm           *string         `json:"shipment_term"`
	PaymentPolicy          *string         `json:"payment_policy"`
	TotalUnits             *string         `json:"total_units"`
	ProductionCapacity     *string         `json:"production_capacity"`
	ProductionCapacityUnit *string         `json:"production_capacity_unit"`
	MarketShare            json.RawMessage `json:"market_share" swaggertype:"object"`
	YearlyTurnover         json.RawMessage `json:"yearly_turnover" swaggertype:"object"`
	IsManufacturer         *bool           `json:"is_manufacturer"`
}

type ContactInput struct {
	Address        *string         `json:"address"`
	FactoryAddress *string         `json:"factory_address"`
	Email          string          `json:"email" validate:"required,email"`
	Phone          *string         `json:"phone" validate:"omitempty,max=50"`
	Whatsapp       *string         `json:"whatsapp" validate:"omitempty,max=50"`
	Website        *string         `json:"website" validate:"omitempty,url"`
	LatLong        json.RawMessage `json:"lat_long" swaggertype:"object"`
}

type ProductInput struct {
	Name              string           `json:"name"`
	ProductCategoryID string           `json:"product_category_id"`
	PriceRange        *decimal.Decimal `json:"price_range"`
	PriceMax          *decimal.Decimal `json:"price_max"`
	MOQ               string           `json:"moq"`
}

type ClientInput struct {
	Name *string `json:"name" validate:"omitempty,max=255"`
}

// CompanyDetail is the edit view of a company.
type CompanyDetail struct {
	*models.Company
	Products []models.Product       `json:"products"`
	Overview *models.CompanyOverview `json:"overview"`
}

type CompanyService struct {
	db    *gorm.DB
	media *MediaService
}

func NewCompanyService(db *gorm.DB, media *MediaService) *CompanyService {
	return &CompanyService{db: db, media: media}
}

// MutableCompany loads a company the principal may change. Missing companies
// and companies owned by someone else are both NotFound.
func (s *CompanyService) MutableCompany(ctx context.Context, ac *identity.AccessContext, slug string) (*models.Company, error) {
	return s.mutable(ctx, s.db, ac, slug)
}

func (s *CompanyService) mutable(ctx context.Context, db *gorm.DB, ac *identity.AccessContext, slug string) (*models.Company, error) {
	var c models.Company
	if err := db.WithContext(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.NewNotFound("Company not found")
		}
		return nil, err
	}
	if !identity.CanMutate(ac, &c) {
		return nil, apperr.NewNotFound("Company not found")
	}
	return &c, nil
}

func (s *CompanyService) withPivots(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Location").
		Preload("BusinessCategory").
		Preload("BusinessCategories").
		Preload("BusinessTypes").
		Preload("Certificates")
}

func (s *CompanyService) decorate(ctx context.Context, items []models.Company) error {
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	logos, err := s.media.ByOwner(ctx, s.db, models.OwnerCompany, ids, models.CollectionCompanyLogo)
	if err != nil {
		return err
	}
	for i := range items {
		if l := logos[items[i].ID]; len(l) > 0 {
			items[i].Logo = &l[len(l)-1]
		}
	}
	return nil
}

// MyList returns the companies the user currently owns.
func (s *CompanyService) MyList(ctx context.Context, userID string) ([]models.Company, error) {
	items := []models.Company{}
	if err := s.withPivots(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	if err := s.decorate(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// lookup loads every row of T with the given ids and fails validation on
// unknown ones.
func lookup[T any](tx *gorm.DB, field string, ids []string) ([]T, error) {
	rows := []T{}
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return rows, nil
	}
	if err := tx.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) != len(ids) {
		return nil, apperr.NewValidation("Validation failed", map[string]string{
			field: "one or more selected values do not exist",
		})
	}
	return rows, nil
}

// syncCategories replaces the category pivot and makes the first id primary.
func syncCategories(tx *gorm.DB, c *models.Company, ids []string) error {
	cats, err := lookup[models.BusinessCategory](tx, "business_categories", ids)
	if err != nil {
		return err
	}
	if err := tx.Model(c).Association("BusinessCategories").Replace(cats); err != nil {
		return err
	}
	var primary *string
	if len(ids) > 0 {
		primary = &ids[0]
	}
	return tx.Model(c).Update("business_category_id", primary).Error
}

func syncTypes(tx *gorm.DB, c *models.Company, ids []string) error {
	types, err := lookup[models.BusinessType](tx, "business_types", ids)
	if err != nil {
		return err
	}
	return tx.Model(c).Association("BusinessTypes").Replace(types)
}

func syncCertificates(tx *gorm.DB, c *models.Company, ids []string) error {
	certs, err := lookup[models.Certificate](tx, "certificates", ids)
	if err != nil {
		return err
	}
	return tx.Model(c).Association("Certificates").Replace(certs)
}

// Store creates a company owned and created by the principal. Administrators
// create companies with status created_by_admin.
func (s *CompanyService) Store(ctx context.Context, ac *identity.AccessContext, in CreateCompanyInput, logo *Upload) (*models.Company, error) {
	status := models.CompanyStatusCreatedByUser
	if ac.IsAdmin() {
		status = models.CompanyStatusCreatedByAdmin
	}

	c := &models.Company{
		UserID:     ac.UserID,
		CreatedBy:  ac.UserID,
		Name:       strings.TrimSpace(in.Name),
		Status:     status,
		IsActive:   true,
		LocationID: &in.LocationID,
		Manpower:   in.Manpower,
		Moto:       in.Moto,
		Tags:       in.Tags,
		About:      in.About,
		Keywords:   in.Keywords,
	}

	var staged []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lookup[models.Location](tx, "location_id", []string{in.LocationID}); err != nil {
			return err
		}
		slug, err := utils.UniqueSlug(tx, "companies", c.Name, "")
		if err != nil {
			return err
		}
		c.Slug = slug
		if err := tx.Omit("BusinessCategories", "BusinessTypes", "Certificates").Create(c).Error; err != nil {
			return err
		}
		if len(in.BusinessCategories) > 0 {
			if err := syncCategories(tx, c, in.BusinessCategories); err != nil {
				return err
			}
		}
		if len(in.BusinessTypes) > 0 {
			if err := syncTypes(tx, c, in.BusinessTypes); err != nil {
				return err
			}
		}
		if len(in.Certificates) > 0 {
			if err := syncCertificates(tx, c, in.Certificates); err != nil {
				return err
			}
		}
		if logo != nil {
			if _, err := s.media.Attach(ctx, tx, c, models.CollectionCompanyLogo, *logo, &staged); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.media.Purge(ctx, staged)
		return nil, err
	}
	return c, nil
}

// Edit returns the company with its products and overview.
func (s *CompanyService) Edit(ctx context.Context, ac *identity.AccessContext, slug string) (*CompanyDetail, error) {
	c, err := s.MutableCompany(ctx, ac, slug)
	if err != nil {
		return nil, err
	}

	items := []models.Company{}
	if err := s.withPivots(ctx).Where("id = ?", c.ID).Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.NewNotFound("Company not found")
	}
	if err := s.decorate(ctx, items); err != nil {
		return nil, err
	}

	products, err := s.Products(ctx, ac, slug)
	if err != nil {
		return nil, err
	}
	overview, err := s.Overview(ctx, ac, slug)
	if err != nil {
		return nil, err
	}
	return &CompanyDetail{Company: &items[0], Products: products, Overview: overview}, nil
}

// Update changes a company. A new name regenerates the slug, pivots are
// resynced only when sent and a new logo replaces the old one.
func (s *CompanyService) Update(ctx context.Context, ac *identity.AccessContext, slug string, in UpdateCompanyInput, logo *Upload) (*models.Company, error) {
	var (
		c       *models.Company
		staged  []string
		removed []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if c, err = s.mutable(ctx, tx, ac, slug); err != nil {
			return err
		}

		changes := map[string]interface{}{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			next, err := utils.UniqueSlug(tx, "companies", name, c.ID)
			if err != nil {
				return err
			}
			changes["name"] = name
			changes["slug"] = next
		}
		if in.LocationID != nil {
			if _, err := lookup[models.Location](tx, "location_id", []string{*in.LocationID}); err != nil {
				return err
			}
			changes["location_id"] = *in.LocationID
		}
		for col, v := range map[string]*string{
			"manpower": in.Manpower,
			"moto":     in.Moto,
			"tags":     in.Tags,
			"about":    in.About,
			"keywords": in.Keywords,
		} {
			if v != nil {
				changes[col] = *v
			}
		}
		if len(changes) > 0 {
			if err := tx.Model(c).Updates(changes).Error; err != nil {
				return err
			}
		}

		if in.BusinessCategories != nil {
			if err := syncCategories(tx, c, in.BusinessCategories); err != nil {
				return err
			}
		}
		if in.BusinessTypes != nil {
			if err := syncTypes(tx, c, in.BusinessTypes); err != nil {
				return err
			}
		}
		if logo != nil {
			_, old, err := s.media.Replace(ctx, tx, c, models.CollectionCompanyLogo, *logo, &staged)
			if err != nil {
				return err
			}
			removed = old
		}
		return nil
	})
	if err != nil {
		s.media.Purge(ctx, staged)
		return nil, err
	}
	s.media.Purge(ctx, removed)
	return c, nil
}

// UpdateCertificates replaces the certificate set of a company.
func (s *CompanyService) UpdateCertificates(ctx context.Context, ac *identity.AccessContext, slug string, ids []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.mutable(ctx, tx, ac, slug)
		if err != nil {
			return err
		}
		return syncCertificates(tx, c, ids)
	})
}

// Overview returns the company overview, nil when none was saved.
func (s *CompanyService) Overview(ctx context.Context, ac *identity.AccessContext, slug string) (*models.CompanyOverview, error) {
	c, err := s.MutableCompany(ctx, ac, slug)
	if err != nil {
		return nil, err
	}
	var rows []models.CompanyOverview
	if err := s.db.WithContext(ctx).Where("company_id = ?", c.ID).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// jsonColumns normalises the JSON fields of a request. Fields that are not
// valid JSON fail validation under their own name.
func jsonColumns(fields map[string]json.RawMessage) (map[string]datatypes.JSON, error) {
	out := make(map[string]datatypes.JSON, len(fields))
	invalid := map[string]string{}
	for name, raw := range fields {
		col, err := utils.ToJSON(raw)
		if err != nil {
			invalid[name] = "must be valid JSON"
			continue
		}
		out[name] = col
	}
	if len(invalid) > 0 {
		return nil, apperr.NewValidation("Validation failed", invalid)
	}
	return out, nil
}

// SaveOverview creates or replaces the overview of a company. Absent fields
// are cleared.
func (s *CompanyService) SaveOverview(ctx context.Context, ac *identity.AccessContext, slug string, in OverviewInput) (*models.CompanyOverview, error) {
	cols, err := jsonColumns(map[string]json.RawMessage{
		"market_share":    in.MarketShare,
		"yearly_turnover": in.YearlyTurnover,
	})
	if err != nil {
		return nil, err
	}

	var ov models.CompanyOverview
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.mutable(ctx, tx, ac, slug)
		if err != nil {
			return err
		}
		if err := tx.Where(models.CompanyOverview{CompanyID: c.ID}).FirstOrInit(&ov).Error; err != nil {
			return err
		}
		ov.MOQ = in.MOQ
		ov.LeadTime = in.LeadTime
		ov.LeadTimeUnit = in.LeadTimeUnit
		ov.ShipmentTerm = in.ShipmentTerm
		ov.PaymentPolicy = in.PaymentPolicy
		ov.TotalUnits = in.TotalUnits
		ov.ProductionCapacity = in.ProductionCapacity
		ov.ProductionCapacityUnit = in.ProductionCapacityUnit
		ov.MarketShare = cols["market_share"]
		ov.YearlyTurnover = cols["yearly_turnover"]
		ov.IsManufacturer = in.IsManufacturer
		return tx.Save(&ov).Error
	})
	if err != nil {
		return nil, err
	}
	return &ov, nil
}

// Contact returns the business contact of a company, nil when none was saved.
func (s *CompanyService) Contact(ctx context.Context, ac *identity.AccessContext, slug string) (*models.BusinessContact, error) {
	c, err := s.MutableCompany(ctx, ac, slug)
	if err != nil {
		return nil, err
	}
	var rows []models.BusinessContact
	if err := s.db.WithContext(ctx).Where("company_id = ?", c.ID).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// SaveContact creates or replaces the business contact of a company.
func (s *CompanyService) SaveContact(ctx context.Context, ac *identity.AccessContext, slug string, in ContactInput) (*models.BusinessContact, error) {
	cols, err := jsonColumns(map[string]json.RawMessage{"lat_long": in.LatLong})
	if err != nil {
		return nil, err
	}
	if _, err := utils.JSONToMap(cols["lat_long"]); err != nil {
		return nil, apperr.NewValidation("Validation failed", map[string]string{"lat_long": "must be a JSON object"})
	}

	var bc models.BusinessContact
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.mutable(ctx, tx, ac, slug)
		if err != nil {
			return err
		}
		if err := tx.Where(models.BusinessContact{CompanyID: c.ID}).FirstOrInit(&bc).Error; err != nil {
			return err
		}
		bc.Address = in.Address
		bc.FactoryAddress = in.FactoryAddress
		bc.Email = strings.TrimSpace(in.Email)
		bc.Phone = in.Phone
		bc.Whatsapp = in.Whatsapp
		bc.Website = in.Website
		bc.LatLong = cols["lat_long"]
		return tx.Save(&bc).Error
	})
	if err != nil {
		return nil, err
	}
	return &bc, nil
}

// Products lists the products of a company with their category and image.
func (s *CompanyService) Products(ctx context.Context, ac *identity.AccessContext, slug string) ([]models.Product, error) {
	c, err := s.MutableCompany(ctx, ac, slug)
	if err != nil {
		return nil, err
	}
	return s.productsOf(ctx, c.ID)
}

func (s *CompanyService) productsOf(ctx context.Context, companyID string) ([]models.Product, error) {
	items := []models.Product{}
	if err := s.db.WithContext(ctx).Preload("ProductCategory").
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}

	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	images, err := s.media.ByOwner(ctx, s.db, models.OwnerProduct, ids, models.CollectionImage)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if img := images[items[i].ID]; len(img) > 0 {
			items[i].Image = &img[len(img)-1]
		}
	}
	return items, nil
}

func (in ProductInput) check() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return apperr.NewBadRequest("Product name is required")
	case strings.TrimSpace(in.ProductCategoryID) == "":
		return apperr.NewBadRequest("Product category is required")
	case strings.TrimSpace(in.MOQ) == "":
		return apperr.NewBadRequest("Minimum order quantity is required")
	}
	if in.PriceRange != nil && in.PriceRange.IsNegative() || in.PriceMax != nil && in.PriceMax.IsNegative() {
		return apperr.NewValidation("Validation failed", map[string]string{"price_range": "prices must not be negative"})
	}
	return nil
}

// StoreProduct adds a product, with an optional image, to a company.
func (s *CompanyService) StoreProduct(ctx context.Context, ac *identity.AccessContext, slug string, in ProductInput, image *Upload) (*models.Product, error) {
	if err := in.check(); err != nil {
		return nil, err
	}

	var (
		p      *models.Product
		staged []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.mutable(ctx, tx, ac, slug)
		if err != nil {
			return err
		}
		if _, err := lookup[models.ProductCategory](tx, "product_category_id", []string{in.ProductCategoryID}); err != nil {
			return err
		}

		p = &models.Product{
			ProductCategoryID: in.ProductCategoryID,
			Name:              strings.TrimSpace(in.Name),
			PriceMax:          in.PriceMax,
			MOQ:               strings.TrimSpace(in.MOQ),
			CreatedBy:         ac.UserID,
		}
		p.SetCompanyID(c.ID)
		if in.PriceRange != nil {
			p.PriceRange = *in.PriceRange
		}
		if err := tx.Omit("ProductCategory").Create(p).Error; err != nil {
			return err
		}
		if image != nil {
			if p.Image, err = s.media.Attach(ctx, tx, p, models.CollectionImage, *image, &staged); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.media.Purge(ctx, staged)
		return nil, err
	}
	return p, nil
}

func (s *CompanyService) product(tx *gorm.DB, companyID, id string) (*models.Product, error) {
	var p models.Product
	if err := tx.Where("id = ? AND company_id = ?", id, companyID).First(&p).Error; err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.NewNotFound("Product not found")
		}
		return nil, err
	}
	return &p, nil
}

// UpdateProduct changes the non-empty fields of a product. A new image
// replaces the old one.
func (s *CompanyService) UpdateProduct(ctx context.Context, ac *identity.AccessContext, slug, id string, in ProductInput, image *Upload) (*models.Product, error) {
	var (
		p       *models.Product
		staged  []string
		removed []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.mutable(ctx, tx, ac, slug)
		if err != nil {
			return err
		}
		if p, err = s.product(tx, c.ID, id); err != nil {
			return err
		}

		changes := map[string]interface{}{}
		if name := strings.TrimSpace(in.Name); name != "" {
			changes["name"] = name
		}
		if in.ProductCategoryID != "" {
			if _, err := lookup[models.ProductCategory](tx, "product_category_id", []string{in.ProductCategoryID}); err != nil {
				return err
			}
			changes["product_category_id"] = in.ProductCategoryID
		}
		if moq := strings.TrimSpace(in.MOQ); moq != "" {
			changes["moq"] = moq
		}
		if in.PriceRange != nil {
			changes["price_range"] = *in.PriceRange
		}
		if in.PriceMax != nil {
			changes["price_max"] = *in.PriceMax
		}
		if len(changes) > 0 {
			if err := tx.Model(p).Updates(changes).Error; err != nil {
				return err
			}
		}

		if image != nil {
			if p.Image, removed, err = s.media.Replace(ctx, tx, p, models.CollectionImage, *image, &staged); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.media.Purge(ctx, staged)
		return nil, err
	}
	s.media.Purge(ctx, removed)
	return p, nil
}

// DeleteProduct soft deletes a product and drops its image.
func (s *CompanyService) DeleteProduct(ctx context.Context, ac *identity.AccessContext, slug, id string) error {
	var removed []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.mutable(ctx, tx, ac, slug)
		if err != nil {
			return err
		}
		p, err := s.product(tx, c.ID, id)
		if err != nil {
			return err
		}
		if removed, err = s.media.DetachAll(ctx, tx, p); err != nil {
			return err
		}
		return tx.Delete(p).Error
	})
	if err != nil {
		return err
	}
	s.media.Purge(ctx, removed)
	return nil
}

// Clients lists the clients of a company with their image.
func (s *CompanyService) Clients(ctx context.Context, ac *identity.AccessContext, slug string) ([]models.CompanyClient, error) {
	c, err := s.MutableCompany(ctx, ac, slug)
	if err != nil {
		return nil, err
	}
	return s.clientsOf(ctx, c.ID)
}

func (s *CompanyService) clientsOf(ctx context.Context, companyID string) ([]models.CompanyClient, error) {
	items := []models.CompanyClient{}
	if err := s.db.WithContext(ctx).Where("company_id = ?", companyID).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}

	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	images, err := s.media.ByOwner(ctx, s.db, models.OwnerCompanyClient, ids, models.CollectionImage)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if img := images[items[i].ID]; len(img) > 0 {
			items[i].Image = &img[len(img)-1]
		}
	}
	return items, nil
}

// StoreClient adds a client logo to a company. The image is required.
func (s *CompanyService) StoreClient(ctx context.Context, ac *identity.AccessContext, slug string, in ClientInput, image *Upload) (*models.CompanyClient, error) {
	if image == nil {
		return nil, apperr.NewBadRequest("Client image is required")
	}

	var (
		cl     *models.CompanyClient
		staged []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.mutable(ctx, tx, ac, slug)
		if err != nil {
			return err
		}
		cl = &models.CompanyClient{Name: in.Name}
		cl.SetCompanyID(c.ID)
		if err := tx.Create(cl).Error; err != nil {
			return err
		}
		cl.Image, err = s.media.Attach(ctx, tx, cl, models.CollectionImage, *image, &staged)
		return err
	})
	if err != nil {
		s.media.Purge(ctx, staged)
		return nil, err
	}
	return cl, nil
}

func (s *CompanyService) client(tx *gorm.DB, companyID, id string) (*models.CompanyClient, error) {
	var cl models.CompanyClient
	if err := tx.Where("id = ? AND company_id = ?", id, companyID).First(&cl).Error; err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.NewNotFound("Client not found")
		}
		return nil, err
	}
	return &cl, nil
}

// UpdateClient renames a client and optionally replaces its image.
func (s *CompanyService) UpdateClient(ctx context.Context, ac *identity.AccessContext, slug, id string, in ClientInput, image *Upload) (*models.CompanyClient, error) {
	var (
		cl      *models.CompanyClient
		staged  []string
		removed []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.mutable(ctx, tx, ac, slug)
		if err != nil {
			return err
		}
		if cl, err = s.client(tx, c.ID, id); err != nil {
			return err
		}
		if in.Name != nil {
			if err := tx.Model(cl).Update("name", *in.Name).Error; err != nil {
				return err
			}
		}
		if image != nil {
			if cl.Image, removed, err = s.media.Replace(ctx, tx, cl, models.CollectionImage, *image, &staged); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.media.Purge(ctx, staged)
		return nil, err
	}
	s.media.Purge(ctx, removed)
	return cl, nil
}

// DeleteClient soft deletes a client and drops its image.
func (s *CompanyService) DeleteClient(ctx context.Context, ac *identity.AccessContext, slug, id string) error {
	var removed []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.mutable(ctx, tx, ac, slug)
		if err != nil {
			return err
		}
		cl, err := s.client(tx, c.ID, id)
		if err != nil {
			return err
		}
		if removed, err = s.media.DetachAll(ctx, tx, cl); err != nil {
			return err
		}
		return tx.Delete(cl).Error
	})
	if err != nil {
		return err
	}
	s.media.Purge(ctx, removed)
	return nil
}
