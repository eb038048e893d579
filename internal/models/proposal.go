package models

import (
	"time"

	"marketplace/internal/apperr"
	"marketplace/internal/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SourcingProposal struct {
	Base
	UserID        string           `gorm:"type:uuid;not null;index;<-:create" json:"user_id"`
	User          *User            `json:"user,omitempty"`
	Title         string           `gorm:"not null" json:"title"`
	Description   string           `gorm:"type:text;not null" json:"description"`
	Quantity      *decimal.Decimal `gorm:"type:numeric(15,2)" json:"quantity"`
	Unit          *string          `json:"unit"`
	Price         *decimal.Decimal `gorm:"type:numeric(15,2);index" json:"price"`
	Currency      *string          `gorm:"index" json:"currency"`
	PaymentMethod string           `gorm:"not null" json:"payment_method"`
	DeliveryInfo  *string          `gorm:"type:text" json:"delivery_info"`
	CompanyName   *string          `json:"company_name"`
	CompanySlug   *string          `json:"company_slug"`
	Email         *string          `json:"email"`
	Phone         *string          `json:"phone"`
	Whatsapp      *string          `json:"whatsapp"`
	Address       *string          `json:"address"`
	LocationID    *string          `gorm:"type:uuid;index" json:"location_id"`
	Location      *Location        `json:"location,omitempty"`
	Status        ProposalStatus   `gorm:"not null;default:'pending';index" json:"status"`
	ApprovedBy    *string          `gorm:"type:uuid" json:"approved_by"`
	ApprovedAt    *time.Time       `json:"approved_at"`
	AdminNotes    *string          `gorm:"type:text" json:"admin_notes"`
	ViewCount     int64            `gorm:"not null;default:0" json:"view_count"`

	ProductCategories []ProductCategory `gorm:"many2many:product_category_sourcing_proposal;" json:"product_categories,omitempty"`
	Comments          []ProposalComment `json:"comments,omitempty"`
	Images            []Media           `gorm:"-" json:"images"`
	IsFavorited       bool              `gorm:"-" json:"is_favorited"`
}

func (p *SourcingProposal) MediaOwner() (OwnerKind, string) { return OwnerProposal, p.ID }

// VisibleTo reports whether the detail view may show the proposal to viewer.
// An empty viewer is anonymous.
func (p *SourcingProposal) VisibleTo(viewerID string, isAdmin bool) bool {
	if p.DeletedAt.Valid {
		return false
	}
	if p.Status == ProposalStatusApproved || isAdmin {
		return true
	}
	return viewerID != "" && viewerID == p.UserID
}

func (p *SourcingProposal) statusChanged() []events.Notification {
	return []events.Notification{{
		UserID: p.UserID,
		Event:  events.ProposalStatusChanged,
		Payload: map[string]interface{}{
			"id":     p.ID,
			"title":  p.Title,
			"status": p.Status,
		},
	}}
}

func (p *SourcingProposal) adjudicable() error {
	if p.Status != ProposalStatusPending {
		return apperr.NewConflict("Proposal has already been " + string(p.Status))
	}
	return nil
}

// Approve moves a pending proposal to approved and returns the author's
// notification.
func (p *SourcingProposal) Approve(adminID string, notes *string, at time.Time) ([]events.Notification, error) {
	if err := p.adjudicable(); err != nil {
		return nil, err
	}
	p.Status = ProposalStatusApproved
	p.ApprovedBy = &adminID
	p.ApprovedAt = &at
	if notes != nil {
		p.AdminNotes = notes
	}
	return p.statusChanged(), nil
}

// Reject moves a pending proposal to rejected. Approval fields stay unset.
func (p *SourcingProposal) Reject(notes *string) ([]events.Notification, error) {
	if err := p.adjudicable(); err != nil {
		return nil, err
	}
	p.Status = ProposalStatusRejected
	if notes != nil {
		p.AdminNotes = notes
	}
	return p.statusChanged(), nil
}

// NewComment returns the notification owed to the author for a comment by
// commenterID. Authors commenting on their own proposal are not notified.
func (p *SourcingProposal) NewComment(commenterID string, c *ProposalComment) []events.Notification {
	if commenterID == p.UserID {
		return nil
	}
	return []events.Notification{{
		UserID: p.UserID,
		Event:  events.ProposalNewComment,
		Payload: map[string]interface{}{
			"proposal_id": p.ID,
			"comment":     c,
		},
	}}
}

type ProposalComment struct {
	Base
	SourcingProposalID string          `gorm:"type:uuid;not null;index" json:"sourcing_proposal_id"`
	UserID             string          `gorm:"type:uuid;not null;index" json:"user_id"`
	User               *User           `json:"user,omitempty"`
	Comment            string          `gorm:"type:text;not null" json:"comment"`
	Replies            []ProposalReply `gorm:"foreignKey:CommentID" json:"replies"`
}

type ProposalReply struct {
	Base
	CommentID string `gorm:"type:uuid;not null;index" json:"comment_id"`
	UserID    string `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User  `json:"user,omitempty"`
	Reply     string `gorm:"type:text;not null" json:"reply"`
}

// FavoriteProposal is unique per (user, proposal).
type FavoriteProposal struct {
	ID                 string            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             string            `gorm:"type:uuid;not null;uniqueIndex:idx_favorite_pair" json:"user_id"`
	SourcingProposalID string            `gorm:"type:uuid;not null;uniqueIndex:idx_favorite_pair" json:"sourcing_proposal_id"`
	SourcingProposal   *SourcingProposal `json:"sourcing_proposal,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

func (f *FavoriteProposal) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}
