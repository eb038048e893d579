package services

import (
	"context"
	"strings"
	"time"

	"marketplace/internal/apperr"
	"marketplace/internal/events"
	"marketplace/internal/identity"
	"marketplace/internal/models"
	"marketplace/internal/utils"
	console "marketplace/internal/utils/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var proposalLog = console.New("PROPOSALS")

const MaxProposalImages = 10

// PriceRanges are the accepted price_range buckets. A nil max is unbounded.
var PriceRanges = []PriceRange{
	{Key: "0-100", Min: decimal.NewFromInt(0), Max: decimalPtr(100)},
	{Key: "100-500", Min: decimal.NewFromInt(100), Max: decimalPtr(500)},
	{Key: "500-1000", Min: decimal.NewFromInt(500), Max: decimalPtr(1000)},
	{Key: "1000-5000", Min: decimal.NewFromInt(1000), Max: decimalPtr(5000)},
	{Key: "5000-10000", Min: decimal.NewFromInt(5000), Max: decimalPtr(10000)},
	{Key: "10000+", Min: decimal.NewFromInt(10000)},
}

type PriceRange struct {
	Key string           `json:"key"`
	Min decimal.Decimal  `json:"min"`
	Max *decimal.Decimal `json:"max"`
}

func decimalPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func priceRange(key string) (PriceRange, bool) {
	for _, r := range PriceRanges {
		if r.Key == key {
			return r, true
		}
	}
	return PriceRange{}, false
}

// ProposalFilter narrows the public listing. A known PriceRange overrides
// MinPrice and MaxPrice.
type ProposalFilter struct {
	LocationID         string
	CompanyName        string
	Title              string
	Currency           string
	MinPrice           *decimal.Decimal
	MaxPrice           *decimal.Decimal
	PriceRange         string
	ProductCategoryIDs []string
}

// ParseProposalFilter reads the listing filters from query values. Unparsable
// prices are ignored.
func ParseProposalFilter(get func(string) string, all func(string) []string) ProposalFilter {
	f := ProposalFilter{
		LocationID:  strings.TrimSpace(get("location_id")),
		CompanyName: strings.TrimSpace(get("company_name")),
		Title:       strings.TrimSpace(get("title")),
		Currency:    strings.TrimSpace(get("currency")),
		PriceRange:  strings.TrimSpace(get("price_range")),
	}
	if d, err := decimal.NewFromString(get("min_price")); err == nil {
		f.MinPrice = &d
	}
	if d, err := decimal.NewFromString(get("max_price")); err == nil {
		f.MaxPrice = &d
	}

	var ids []string
	for _, key := range []string{"product_category_id", "product_category_id[]", "product_category_ids"} {
		for _, raw := range all(key) {
			for _, id := range strings.Split(raw, ",") {
				if id = strings.TrimSpace(id); id != "" {
					ids = append(ids, id)
				}
			}
		}
	}
	f.ProductCategoryIDs = ids
	return f
}

// categoryIDs keeps the well formed ids. ok is false when ids were given but
// none of them can match.
func (f ProposalFilter) categoryIDs() (ids []string, ok bool) {
	for _, id := range f.ProductCategoryIDs {
		if models.ValidID(id) {
			ids = append(ids, id)
		}
	}
	return ids, len(ids) > 0 || len(f.ProductCategoryIDs) == 0
}

func (f ProposalFilter) apply(q *gorm.DB) *gorm.DB {
	if f.LocationID != "" {
		if !models.ValidID(f.LocationID) {
			return q.Where("1 = 0")
		}
		q = q.Where("sourcing_proposals.location_id = ?", f.LocationID)
	}
	if f.CompanyName != "" {
		q = q.Where("LOWER(sourcing_proposals.company_name) LIKE ?", contains(f.CompanyName))
	}
	if f.Title != "" {
		q = q.Where("LOWER(sourcing_proposals.title) LIKE ?", contains(f.Title))
	}
	if f.Currency != "" {
		q = q.Where("sourcing_proposals.currency = ?", f.Currency)
	}

	lower, upper := f.MinPrice, f.MaxPrice
	if r, ok := priceRange(f.PriceRange); ok {
		floor := r.Min
		lower, upper = &floor, r.Max
	}
	if lower != nil {
		q = q.Where("sourcing_proposals.price >= ?", *lower)
	}
	if upper != nil {
		q = q.Where("sourcing_proposals.price <= ?", *upper)
	}

	ids, ok := f.categoryIDs()
	if !ok {
		return q.Where("1 = 0")
	}
	if len(ids) > 0 {
		q = q.Where("sourcing_proposals.id IN (?)", q.Session(&gorm.Session{NewDB: true}).
			Table("product_category_sourcing_proposal").
			Select("sourcing_proposal_id").
			Where("product_category_id IN ?", ids))
	}
	return q
}

func contains(s string) string {
	return "%" + strings.ToLower(s) + "%"
}

// ProposalFields are the optional descriptive fields shared by create and update.
type ProposalFields struct {
	Quantity           *decimal.Decimal `json:"quantity"`
	Unit               *string          `json:"unit" validate:"omitempty,proposal_unit"`
	Price              *decimal.Decimal `json:"price"`
	Currency           *string          `json:"currency" validate:"omitempty,currency"`
	DeliveryInfo       *string          `json:"delivery_info"`
	CompanyName        *string          `json:"company_name" validate:"omitempty,max=255"`
	CompanySlug        *string          `json:"company_slug" validate:"omitempty,max=255"`
	Email              *string          `json:"email" validate:"omitempty,email"`
	Phone              *string          `json:"phone" validate:"omitempty,max=50"`
	Whatsapp           *string          `json:"whatsapp" validate:"omitempty,max=50"`
	Address            *string          `json:"address"`
	LocationID         *string          `json:"location_id" validate:"omitempty,uuid"`
	ProductCategoryIDs []string         `json:"product_category_ids" validate:"omitempty,dive,uuid"`
}

type CreateProposalInput struct {
	Title         string `json:"title" validate:"required,max=255"`
	Description   string `json:"description" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required,payment_method"`
	ProposalFields
}

type UpdateProposalInput struct {
	Title         *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description   *string `json:"description" validate:"omitempty,min=1"`
	PaymentMethod *string `json:"payment_method" validate:"omitempty,payment_method"`
	ProposalFields
}

func (f ProposalFields) check() error {
	fields := map[string]string{}
	if f.Quantity != nil && f.Quantity.IsNegative() {
		fields["quantity"] = "quantity must not be negative"
	}
	if f.Price != nil && f.Price.IsNegative() {
		fields["price"] = "price must not be negative"
	}
	if len(fields) > 0 {
		return apperr.NewValidation("Validation failed", fields)
	}
	return nil
}

func (f ProposalFields) updates() map[string]interface{} {
	u := map[string]interface{}{}
	set := func(col string, v interface{}, ok bool) {
		if ok {
			u[col] = v
		}
	}
	set("quantity", f.Quantity, f.Quantity != nil)
	set("unit", f.Unit, f.Unit != nil)
	set("price", f.Price, f.Price != nil)
	set("currency", f.Currency, f.Currency != nil)
	set("delivery_info", f.DeliveryInfo, f.DeliveryInfo != nil)
	set("company_name", f.CompanyName, f.CompanyName != nil)
	set("company_slug", f.CompanySlug, f.CompanySlug != nil)
	set("email", f.Email, f.Email != nil)
	set("phone", f.Phone, f.Phone != nil)
	set("whatsapp", f.Whatsapp, f.Whatsapp != nil)
	set("address", f.Address, f.Address != nil)
	set("location_id", f.LocationID, f.LocationID != nil)
	return u
}

// FilterOptions lists the vocabularies a client needs to build filters and
// proposal forms.
type FilterOptions struct {
	Locations         []models.Location        `json:"locations"`
	ProductCategories []models.ProductCategory `json:"product_categories"`
	Units             []string                 `json:"units"`
	Currencies        []string                 `json:"currencies"`
	PaymentMethods    []string                 `json:"payment_methods"`
	PriceRanges       []PriceRange             `json:"price_ranges"`
}

type ProposalService struct {
	db         *gorm.DB
	media      *MediaService
	dispatcher *events.Dispatcher
	now        func() time.Time
}

func NewProposalService(db *gorm.DB, media *MediaService, dispatcher *events.Dispatcher) *ProposalService {
	return &ProposalService{db: db, media: media, dispatcher: dispatcher, now: time.Now}
}

func publicUser(db *gorm.DB) *gorm.DB {
	return db.Select("id", "first_name", "last_name")
}

func (s *ProposalService) listQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.SourcingProposal{}).
		Preload("User", publicUser).
		Preload("Location").
		Preload("ProductCategories").
		Order("sourcing_proposals.created_at DESC")
}

// PublicList returns approved, non-deleted proposals matching f, newest first.
func (s *ProposalService) PublicList(ctx context.Context, viewerID string, f ProposalFilter, p utils.Page) ([]models.SourcingProposal, utils.Meta, error) {
	q := f.apply(s.listQuery(ctx).Where("sourcing_proposals.status = ?", models.ProposalStatusApproved))

	var items []models.SourcingProposal
	meta, err := utils.Paginate(q, p, &items)
	if err != nil {
		return nil, utils.Meta{}, err
	}
	if err := s.decorate(ctx, viewerID, items); err != nil {
		return nil, utils.Meta{}, err
	}
	return items, meta, nil
}

// Mine returns the author's own proposals in any status.
func (s *ProposalService) Mine(ctx context.Context, userID string, p utils.Page) ([]models.SourcingProposal, utils.Meta, error) {
	var items []models.SourcingProposal
	meta, err := utils.Paginate(s.listQuery(ctx).Where("sourcing_proposals.user_id = ?", userID), p, &items)
	if err != nil {
		return nil, utils.Meta{}, err
	}
	if err := s.decorate(ctx, userID, items); err != nil {
		return nil, utils.Meta{}, err
	}
	return items, meta, nil
}

// AdminList returns every non-deleted proposal, optionally of one status.
func (s *ProposalService) AdminList(ctx context.Context, status string, p utils.Page) ([]models.SourcingProposal, utils.Meta, error) {
	q := s.listQuery(ctx)
	if status != "" {
		switch models.ProposalStatus(status) {
		case models.ProposalStatusPending, models.ProposalStatusApproved, models.ProposalStatusRejected:
			q = q.Where("sourcing_proposals.status = ?", status)
		default:
			return nil, utils.Meta{}, apperr.NewValidation("Invalid status", map[string]string{
				"status": "status must be pending, approved or rejected",
			})
		}
	}

	var items []models.SourcingProposal
	meta, err := utils.Paginate(q, p, &items)
	if err != nil {
		return nil, utils.Meta{}, err
	}
	if err := s.decorate(ctx, "", items); err != nil {
		return nil, utils.Meta{}, err
	}
	return items, meta, nil
}

// decorate fills images and the viewer's favorite flag.
func (s *ProposalService) decorate(ctx context.Context, viewerID string, items []models.SourcingProposal) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}

	images, err := s.media.ByOwner(ctx, s.db, models.OwnerProposal, ids, models.CollectionProposalImages)
	if err != nil {
		return err
	}

	favorited := map[string]bool{}
	if viewerID != "" {
		var favIDs []string
		if err := s.db.WithContext(ctx).Model(&models.FavoriteProposal{}).
			Where("user_id = ? AND sourcing_proposal_id IN ?", viewerID, ids).
			Pluck("sourcing_proposal_id", &favIDs).Error; err != nil {
			return err
		}
		for _, id := range favIDs {
			favorited[id] = true
		}
	}

	for i := range items {
		items[i].Images = images[items[i].ID]
		if items[i].Images == nil {
			items[i].Images = []models.Media{}
		}
		items[i].IsFavorited = favorited[items[i].ID]
	}
	return nil
}

// Show returns the detail view of a proposal and counts the view. Pending and
// rejected proposals are visible only to their author and administrators.
func (s *ProposalService) Show(ctx context.Context, ac *identity.AccessContext, id string) (*models.SourcingProposal, error) {
	var p models.SourcingProposal
	err := s.db.WithContext(ctx).
		Preload("User", publicUser).
		Preload("Location").
		Preload("ProductCategories").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Comments.User", publicUser).
		Preload("Comments.Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Comments.Replies.User", publicUser).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.NewNotFound("Proposal not found")
		}
		return nil, err
	}

	isAdmin := ac != nil && ac.IsAdmin()
	if !p.VisibleTo(identity.UserIDOf(ac), isAdmin) {
		return nil, apperr.NewNotFound("Proposal not found")
	}

	items := []models.SourcingProposal{p}
	if err := s.decorate(ctx, identity.UserIDOf(ac), items); err != nil {
		return nil, err
	}
	p = items[0]

	if err := s.db.WithContext(ctx).Model(&models.SourcingProposal{}).
		Where("id = ?", p.ID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
		proposalLog.Warn("Failed to count view of proposal %s: %v", p.ID, err)
	} else {
		p.ViewCount++
	}
	return &p, nil
}

func (s *ProposalService) categories(ctx context.Context, tx *gorm.DB, ids []string) ([]models.ProductCategory, error) {
	cats := []models.ProductCategory{}
	if len(ids) == 0 {
		return cats, nil
	}
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&cats).Error; err != nil {
		return nil, err
	}
	if len(cats) != len(uniqueStrings(ids)) {
		return nil, apperr.NewValidation("Validation failed", map[string]string{
			"product_category_ids": "one or more product categories do not exist",
		})
	}
	return cats, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func checkImageCount(n int) error {
	if n > MaxProposalImages {
		return apperr.NewValidation("Validation failed", map[string]string{
			"images": "at most 10 images are allowed",
		})
	}
	return nil
}

// Create stores a pending proposal with its categories and images in one
// transaction. Stored objects are removed when the transaction fails.
func (s *ProposalService) Create(ctx context.Context, userID string, in CreateProposalInput, uploads []Upload) (*models.SourcingProposal, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	if err := checkImageCount(len(uploads)); err != nil {
		return nil, err
	}

	p := &models.SourcingProposal{
		UserID:        userID,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		PaymentMethod: in.PaymentMethod,
		Quantity:      in.Quantity,
		Unit:          in.Unit,
		Price:         in.Price,
		Currency:      in.Currency,
		DeliveryInfo:  in.DeliveryInfo,
		CompanyName:   in.CompanyName,
		CompanySlug:   in.CompanySlug,
		Email:         in.Email,
		Phone:         in.Phone,
		Whatsapp:      in.Whatsapp,
		Address:       in.Address,
		LocationID:    in.LocationID,
		Status:        models.ProposalStatusPending,
	}

	var staged []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cats, err := s.categories(ctx, tx, in.ProductCategoryIDs)
		if err != nil {
			return err
		}
		if err := tx.Omit("ProductCategories", "Comments", "User", "Location").Create(p).Error; err != nil {
			return err
		}
		if len(cats) > 0 {
			if err := tx.Model(p).Association("ProductCategories").Replace(cats); err != nil {
				return err
			}
		}
		for _, up := range uploads {
			if _, err := s.media.Attach(ctx, tx, p, models.CollectionProposalImages, up, &staged); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.media.Purge(ctx, staged)
		return nil, err
	}

	return s.owned(ctx, s.db, userID, p.ID)
}

// owned loads a proposal of userID for mutation and its detail response.
func (s *ProposalService) owned(ctx context.Context, db *gorm.DB, userID, id string) (*models.SourcingProposal, error) {
	var p models.SourcingProposal
	if err := db.WithContext(ctx).
		Preload("Location").
		Preload("ProductCategories").
		Where("id = ? AND user_id = ?", id, userID).
		First(&p).Error; err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.NewNotFound("Proposal not found")
		}
		return nil, err
	}
	items := []models.SourcingProposal{p}
	if err := s.decorate(ctx, userID, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// Update changes the author's proposal. Categories are resynced only when
// sent, images are appended and status is left alone.
func (s *ProposalService) Update(ctx context.Context, userID, id string, in UpdateProposalInput, uploads []Upload) (*models.SourcingProposal, error) {
	if err := in.check(); err != nil {
		return nil, err
	}

	var staged []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.SourcingProposal
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&p).Error; err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return apperr.NewNotFound("Proposal not found")
			}
			return err
		}

		existing, err := s.media.List(ctx, tx, &p, models.CollectionProposalImages)
		if err != nil {
			return err
		}
		if err := checkImageCount(len(existing) + len(uploads)); err != nil {
			return err
		}

		changes := in.updates()
		if in.Title != nil {
			changes["title"] = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			changes["description"] = *in.Description
		}
		if in.PaymentMethod != nil {
			changes["payment_method"] = *in.PaymentMethod
		}
		if len(changes) > 0 {
			if err := tx.Model(&p).Updates(changes).Error; err != nil {
				return err
			}
		}

		if in.ProductCategoryIDs != nil {
			cats, err := s.categories(ctx, tx, in.ProductCategoryIDs)
			if err != nil {
				return err
			}
			if err := tx.Model(&p).Association("ProductCategories").Replace(cats); err != nil {
				return err
			}
		}

		for _, up := range uploads {
			if _, err := s.media.Attach(ctx, tx, &p, models.CollectionProposalImages, up, &staged); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.media.Purge(ctx, staged)
		return nil, err
	}

	return s.owned(ctx, s.db, userID, id)
}

// Destroy soft deletes the author's proposal.
func (s *ProposalService) Destroy(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.SourcingProposal{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFound("Proposal not found")
	}
	return nil
}

// DeleteImage removes one image of the author's proposal.
func (s *ProposalService) DeleteImage(ctx context.Context, userID, proposalID, mediaID string) error {
	var removed []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.SourcingProposal
		if err := tx.Where("id = ? AND user_id = ?", proposalID, userID).First(&p).Error; err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return apperr.NewNotFound("Proposal not found")
			}
			return err
		}
		keys, err := s.media.Detach(ctx, tx, &p, mediaID)
		removed = keys
		return err
	})
	if err != nil {
		return err
	}
	s.media.Purge(ctx, removed)
	return nil
}

func (s *ProposalService) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	opts := &FilterOptions{
		Locations:         []models.Location{},
		ProductCategories: []models.ProductCategory{},
		Units:             models.ProposalUnits,
		Currencies:        models.ProposalCurrencies,
		PaymentMethods:    models.PaymentMethods,
		PriceRanges:       PriceRanges,
	}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&opts.Locations).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&opts.ProductCategories).Error; err != nil {
		return nil, err
	}
	return opts, nil
}

// Approve adjudicates a pending proposal and notifies its author after commit.
func (s *ProposalService) Approve(ctx context.Context, adminID, id string, notes *string) (*models.SourcingProposal, error) {
	return s.adjudicate(ctx, id, func(p *models.SourcingProposal) ([]events.Notification, error) {
		return p.Approve(adminID, notes, s.now().UTC())
	})
}

// Reject adjudicates a pending proposal and notifies its author after commit.
func (s *ProposalService) Reject(ctx context.Context, id string, notes *string) (*models.SourcingProposal, error) {
	return s.adjudicate(ctx, id, func(p *models.SourcingProposal) ([]events.Notification, error) {
		return p.Reject(notes)
	})
}

func (s *ProposalService) adjudicate(ctx context.Context, id string, transition func(*models.SourcingProposal) ([]events.Notification, error)) (*models.SourcingProposal, error) {
	var (
		p     models.SourcingProposal
		notes []events.Notification
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return apperr.NewNotFound("Proposal not found")
			}
			return err
		}

		var err error
		if notes, err = transition(&p); err != nil {
			return err
		}

		res := tx.Model(&models.SourcingProposal{}).
			Where("id = ? AND status = ?", p.ID, models.ProposalStatusPending).
			Updates(map[string]interface{}{
				"status":      p.Status,
				"approved_by": p.ApprovedBy,
				"approved_at": p.ApprovedAt,
				"admin_notes": p.AdminNotes,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NewConflict("Proposal has already been adjudicated")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(notes...)
	return &p, nil
}

// AdminDelete soft deletes any proposal.
func (s *ProposalService) AdminDelete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SourcingProposal{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFound("Proposal not found")
	}
	return nil
}
