package services

import (
	"context"
	"strings"
	"time"

	"marketplace/internal/apperr"
	"marketplace/internal/events"
	"marketplace/internal/models"
	"marketplace/internal/utils"

	"gorm.io/gorm"
)

type SubmitClaimInput struct {
	CompanyID string  `json:"company_id" validate:"required,uuid"`
	Message   *string `json:"message" validate:"omitempty,max=2000"`
}

type ClaimService struct {
	db         *gorm.DB
	dispatcher *events.Dispatcher
	now        func() time.Time
}

func NewClaimService(db *gorm.DB, dispatcher *events.Dispatcher) *ClaimService {
	return &ClaimService{db: db, dispatcher: dispatcher, now: time.Now}
}

func errPendingClaim() error {
	return apperr.NewConflict("You already have a pending claim for this company")
}

// Submit files a pending claim. A company that is already claimed, or a
// second pending claim by the same user, is a Conflict.
func (s *ClaimService) Submit(ctx context.Context, userID string, in SubmitClaimInput) (*models.CompanyClaim, error) {
	claim := &models.CompanyClaim{
		CompanyID: in.CompanyID,
		UserID:    userID,
		Status:    models.ClaimStatusPending,
	}
	if in.Message != nil {
		msg := strings.TrimSpace(*in.Message)
		claim.Message = &msg
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var company models.Company
		if err := tx.Where("id = ?", in.CompanyID).First(&company).Error; err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return apperr.NewNotFound("Company not found")
			}
			return err
		}
		if company.Status == models.CompanyStatusClaimed {
			return apperr.NewConflict("Company has already been claimed")
		}

		var pending int64
		if err := tx.Model(&models.CompanyClaim{}).
			Where("company_id = ? AND user_id = ? AND status = ?", company.ID, userID, models.ClaimStatusPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return errPendingClaim()
		}

		// idx_company_claims_one_pending catches submissions racing past the count.
		if err := tx.Create(claim).Error; err != nil {
			if apperr.IsDuplicateKey(err) {
				return errPendingClaim()
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// List returns claims with company and claimant, optionally of one status.
func (s *ClaimService) List(ctx context.Context, status string, p utils.Page) ([]models.CompanyClaim, utils.Meta, error) {
	q := s.db.WithContext(ctx).
		Model(&models.CompanyClaim{}).
		Preload("Company").
		Preload("User", publicUser).
		Order("created_at DESC")
	if status != "" {
		switch models.ClaimStatus(status) {
		case models.ClaimStatusPending, models.ClaimStatusApproved, models.ClaimStatusCancelled:
			q = q.Where("status = ?", status)
		default:
			return nil, utils.Meta{}, apperr.NewValidation("Invalid claim status", map[string]string{
				"status": "status must be pending, approved or cancelled",
			})
		}
	}

	var items []models.CompanyClaim
	meta, err := utils.Paginate(q, p, &items)
	if err != nil {
		return nil, utils.Meta{}, err
	}
	return items, meta, nil
}

// Adjudicate resolves a pending claim. Approval hands the company to the
// claimant and cancels every other pending claim for it, all in one
// transaction. Claimants are notified after commit.
func (s *ClaimService) Adjudicate(ctx context.Context, adminID, claimID, decision string) (*models.CompanyClaim, error) {
	status, err := models.ParseClaimDecision(decision)
	if err != nil {
		return nil, err
	}

	var (
		claim models.CompanyClaim
		notes []events.Notification
	)
	at := s.now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", claimID).First(&claim).Error; err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return apperr.NewNotFound("Claim not found")
			}
			return err
		}

		var err error
		if notes, err = claim.Resolve(status, adminID, at); err != nil {
			return err
		}

		res := tx.Model(&models.CompanyClaim{}).
			Where("id = ? AND status = ?", claim.ID, models.ClaimStatusPending).
			Updates(map[string]interface{}{
				"status":      claim.Status,
				"resolved_by": claim.ResolvedBy,
				"resolved_at": claim.ResolvedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NewConflict("Claim has already been resolved")
		}

		if status != models.ClaimStatusApproved {
			return nil
		}

		res = tx.Model(&models.Company{}).
			Where("id = ?", claim.CompanyID).
			Updates(map[string]interface{}{
				"user_id": claim.UserID,
				"status":  models.CompanyStatusClaimed,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NewNotFound("Company not found")
		}

		var others []models.CompanyClaim
		if err := tx.Where("company_id = ? AND status = ? AND id <> ?", claim.CompanyID, models.ClaimStatusPending, claim.ID).
			Find(&others).Error; err != nil {
			return err
		}
		for i := range others {
			more, err := others[i].Resolve(models.ClaimStatusCancelled, adminID, at)
			if err != nil {
				return err
			}
			notes = append(notes, more...)
		}
		if len(others) > 0 {
			if err := tx.Model(&models.CompanyClaim{}).
				Where("company_id = ? AND status = ? AND id <> ?", claim.CompanyID, models.ClaimStatusPending, claim.ID).
				Updates(map[string]interface{}{
					"status":      models.ClaimStatusCancelled,
					"resolved_by": adminID,
					"resolved_at": at,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(notes...)
	return &claim, nil
}
