package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Company struct {
	Base
	UserID             string            `gorm:"type:uuid;not null;index" json:"user_id"`
	User               *User             `json:"user,omitempty"`
	CreatedBy          string            `gorm:"type:uuid;not null;<-:create" json:"created_by"`
	Name               string            `gorm:"not null" json:"name"`
	Slug               string            `gorm:"uniqueIndex;not null" json:"slug"`
	Status             CompanyStatus     `gorm:"not null" json:"status"`
	IsActive           bool              `gorm:"not null;default:true" json:"is_active"`
	LocationID         *string           `gorm:"type:uuid" json:"location_id"`
	Location           *Location         `json:"location,omitempty"`
	BusinessCategoryID *string           `gorm:"type:uuid" json:"business_category_id"`
	BusinessCategory   *BusinessCategory `json:"business_category,omitempty"`
	Manpower           *string           `json:"manpower"`
	Moto               *string           `json:"moto"`
	Tags               *string           `json:"tags"`
	About              *string           `json:"about"`
	Keywords           *string           `json:"keywords"`
	ViewCount          int64             `gorm:"not null;default:0" json:"view_count"`

	BusinessCategories []BusinessCategory `gorm:"many2many:company_business_categories;" json:"business_categories,omitempty"`
	BusinessTypes      []BusinessType     `gorm:"many2many:company_business_types;" json:"business_types,omitempty"`
	Certificates       []Certificate      `gorm:"many2many:company_certificates;" json:"certificates,omitempty"`

	Logo       *Media `gorm:"-" json:"logo,omitempty"`
	IsFavorite bool   `gorm:"-" json:"is_favorite"`
}

func (c *Company) MediaOwner() (OwnerKind, string) { return OwnerCompany, c.ID }

// CompanyFavorite is a row of the company_user pivot.
type CompanyFavorite struct {
	UserID    string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	CompanyID string    `gorm:"type:uuid;primaryKey" json:"company_id"`
	Company   *Company  `json:"company,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (CompanyFavorite) TableName() string { return "company_user" }

// CompanyOwned is implemented by rows that live under a single company.
type CompanyOwned interface {
	SetCompanyID(id string)
	ResetID()
}

type CompanyRef struct {
	CompanyID string `gorm:"type:uuid;not null;index" json:"company_id"`
}

func (r *CompanyRef) SetCompanyID(id string) { r.CompanyID = id }

type CompanyOverview struct {
	Base
	CompanyID              string         `gorm:"type:uuid;not null;uniqueIndex" json:"company_id"`
	MOQ                    *string        `gorm:"column:moq" json:"moq"`
	LeadTime               *string        `json:"lead_time"`
	LeadTimeUnit           *string        `json:"lead_time_unit"`
	ShipmentTerm           *string        `json:"shipment_term"`
	PaymentPolicy          *string        `json:"payment_policy"`
	TotalUnits             *string        `json:"total_units"`
	ProductionCapacity     *string        `json:"production_capacity"`
	ProductionCapacityUnit *string        `json:"production_capacity_unit"`
	MarketShare            datatypes.JSON `json:"market_share"`
	YearlyTurnover         datatypes.JSON `json:"yearly_turnover"`
	IsManufacturer         *bool          `json:"is_manufacturer"`
}

type Product struct {
	Base
	CompanyRef
	ProductCategoryID string           `gorm:"type:uuid;not null" json:"product_category_id" validate:"required"`
	ProductCategory   *ProductCategory `json:"product_category,omitempty" validate:"-"`
	Name              string           `gorm:"not null" json:"name" validate:"required,max=255"`
	PriceRange        decimal.Decimal  `gorm:"type:numeric(15,2);not null;default:0" json:"price_range"`
	PriceMax          *decimal.Decimal `gorm:"type:numeric(15,2)" json:"price_max"`
	MOQ               string           `gorm:"column:moq;not null" json:"moq" validate:"required"`
	CreatedBy         string           `gorm:"type:uuid;<-:create" json:"created_by"`
	Image             *Media           `gorm:"-" json:"image,omitempty" validate:"-"`
}

func (p *Product) MediaOwner() (OwnerKind, string) { return OwnerProduct, p.ID }

type CompanyFAQ struct {
	Base
	CompanyRef
	Question string `gorm:"not null" json:"question" validate:"required"`
	Answer   string `gorm:"type:text;not null" json:"answer" validate:"required"`
}

func (CompanyFAQ) TableName() string { return "company_faqs" }

type CompanyClient struct {
	Base
	CompanyRef
	Name  *string `json:"name"`
	Image *Media  `gorm:"-" json:"image,omitempty"`
}

func (c *CompanyClient) MediaOwner() (OwnerKind, string) { return OwnerCompanyClient, c.ID }

type BusinessContact struct {
	Base
	CompanyID      string         `gorm:"type:uuid;not null;uniqueIndex" json:"company_id"`
	Address        *string        `json:"address"`
	FactoryAddress *string        `json:"factory_address"`
	Email          string         `gorm:"not null" json:"email"`
	Phone          *string        `json:"phone"`
	Whatsapp       *string        `json:"whatsapp"`
	Website        *string        `json:"website"`
	LatLong        datatypes.JSON `json:"lat_long"`
}

type DecisionMaker struct {
	Base
	CompanyRef
	Name        string  `gorm:"not null" json:"name" validate:"required,max=255"`
	Email       string  `gorm:"not null" json:"email" validate:"required,email"`
	Phone       *string `json:"phone" validate:"omitempty,max=50"`
	Whatsapp    *string `json:"whatsapp" validate:"omitempty,max=50"`
	Designation string  `gorm:"not null" json:"designation" validate:"required,max=255"`
}
