package services

import (
	"context"

	"marketplace/internal/apperr"
	"marketplace/internal/models"
	"marketplace/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavoriteService keeps at most one favorite row per (user, proposal) and per
// (user, company). Inserts tolerate a concurrent duplicate.
type FavoriteService struct {
	db    *gorm.DB
	media *MediaService
}

func NewFavoriteService(db *gorm.DB, media *MediaService) *FavoriteService {
	return &FavoriteService{db: db, media: media}
}

func (s *FavoriteService) proposal(ctx context.Context, db *gorm.DB, id string) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.SourcingProposal{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.NewNotFound("Proposal not found")
	}
	return nil
}

// Toggle flips the favorite state and returns the new one.
func (s *FavoriteService) Toggle(ctx context.Context, userID, proposalID string) (bool, error) {
	favorited := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.proposal(ctx, tx, proposalID); err != nil {
			return err
		}
		res := tx.Where("user_id = ? AND sourcing_proposal_id = ?", userID, proposalID).Delete(&models.FavoriteProposal{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		favorited = true
		return s.insert(tx, userID, proposalID)
	})
	return favorited, err
}

func (s *FavoriteService) insert(tx *gorm.DB, userID, proposalID string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.FavoriteProposal{UserID: userID, SourcingProposalID: proposalID}).Error
}

// Add marks a proposal as favorite. Adding twice is a no-op.
func (s *FavoriteService) Add(ctx context.Context, userID, proposalID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.proposal(ctx, tx, proposalID); err != nil {
			return err
		}
		return s.insert(tx, userID, proposalID)
	})
}

// Remove clears a favorite. Removing a missing favorite is a no-op.
func (s *FavoriteService) Remove(ctx context.Context, userID, proposalID string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND sourcing_proposal_id = ?", userID, proposalID).
		Delete(&models.FavoriteProposal{}).Error
}

// List returns the user's favorite proposals that are not deleted.
func (s *FavoriteService) List(ctx context.Context, userID string, p utils.Page) ([]models.SourcingProposal, utils.Meta, error) {
	q := s.db.WithContext(ctx).
		Model(&models.SourcingProposal{}).
		Joins("JOIN favorite_proposals ON favorite_proposals.sourcing_proposal_id = sourcing_proposals.id").
		Where("favorite_proposals.user_id = ?", userID).
		Preload("User", publicUser).
		Preload("Location").
		Preload("ProductCategories").
		Order("favorite_proposals.created_at DESC")

	var items []models.SourcingProposal
	meta, err := utils.Paginate(q, p, &items)
	if err != nil {
		return nil, utils.Meta{}, err
	}

	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	images, err := s.media.ByOwner(ctx, s.db, models.OwnerProposal, ids, models.CollectionProposalImages)
	if err != nil {
		return nil, utils.Meta{}, err
	}
	for i := range items {
		items[i].Images = images[items[i].ID]
		if items[i].Images == nil {
			items[i].Images = []models.Media{}
		}
		items[i].IsFavorited = true
	}
	return items, meta, nil
}

// ToggleCompany flips the favorite state of a company addressed by slug.
func (s *FavoriteService) ToggleCompany(ctx context.Context, userID, slug string) (bool, error) {
	favorite := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Company
		if err := tx.Where("slug = ?", slug).First(&c).Error; err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return apperr.NewNotFound("Company not found")
			}
			return err
		}
		res := tx.Where("user_id = ? AND company_id = ?", userID, c.ID).Delete(&models.CompanyFavorite{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		favorite = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.CompanyFavorite{UserID: userID, CompanyID: c.ID}).Error
	})
	return favorite, err
}

// ListCompanies returns the user's favorite companies that are not deleted.
func (s *FavoriteService) ListCompanies(ctx context.Context, userID string, p utils.Page) ([]models.Company, utils.Meta, error) {
	q := s.db.WithContext(ctx).
		Model(&models.Company{}).
		Joins("JOIN company_user ON company_user.company_id = companies.id").
		Where("company_user.user_id = ?", userID).
		Preload("Location").
		Preload("BusinessCategory").
		Order("company_user.created_at DESC")

	var items []models.Company
	meta, err := utils.Paginate(q, p, &items)
	if err != nil {
		return nil, utils.Meta{}, err
	}

	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	logos, err := s.media.ByOwner(ctx, s.db, models.OwnerCompany, ids, models.CollectionCompanyLogo)
	if err != nil {
		return nil, utils.Meta{}, err
	}
	for i := range items {
		if l := logos[items[i].ID]; len(l) > 0 {
			items[i].Logo = &l[len(l)-1]
		}
		items[i].IsFavorite = true
	}
	return items, meta, nil
}
