package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *Base) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// ResetID clears a client supplied id so BeforeCreate assigns a fresh one.
func (base *Base) ResetID() { base.ID = "" }

// ValidID reports whether id can address a row. Primary keys are uuids.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusApproved UserStatus = "approved"
	UserStatusRejected UserStatus = "rejected"
)

// Role names
const (
	RoleAdministrator = "administrator"
	RoleUser          = "user"
	RoleBuyer         = "buyer"
	RoleSeller        = "seller"
	RoleTalent        = "talent"
)

// Permission names
const (
	PermAccessDashboard      = "AccessDashboard"
	PermAccessManagementView = "AccessManagement-View"
	PermAccessManagementEdit = "AccessManagement-Edit"
	PermUserManagement       = "UserManagement"
	PermBusinessManagerView  = "BusinessManager-View"
	PermBusinessManagerEdit  = "BusinessManager-Edit"
	PermCompanyView          = "Company-View"
	PermCompanyEdit          = "Company-Edit"
	PermBlogView             = "Blog-View"
	PermBlogEdit             = "Blog-Edit"
	PermPricingView          = "Pricing-View"
	PermPricingEdit          = "Pricing-Edit"
	PermMoreView             = "More-View"
	PermMoreEdit             = "More-Edit"
)

type CompanyStatus string

const (
	CompanyStatusCreatedByAdmin CompanyStatus = "created_by_admin"
	CompanyStatusCreatedByUser  CompanyStatus = "created_by_user"
	CompanyStatusClaimed        CompanyStatus = "claimed"
)

type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusApproved ProposalStatus = "approved"
	ProposalStatusRejected ProposalStatus = "rejected"
)

type ClaimStatus string

const (
	ClaimStatusPending   ClaimStatus = "pending"
	ClaimStatusApproved  ClaimStatus = "approved"
	ClaimStatusCancelled ClaimStatus = "cancelled"
)

// Proposal vocabularies
var (
	ProposalUnits = []string{"pieces", "kg", "meter", "yard", "ton", "liter", "box", "container"}

	ProposalCurrencies = []string{"USD", "EUR", "GBP", "JPY", "CNY", "INR", "BDT", "AUD", "CAD", "CHF"}

	PaymentMethods = []string{
		"cash", "bank_transfer", "letter_of_credit", "paypal", "escrow",
		"credit_card", "advance_payment", "payment_on_delivery", "other",
	}
)
