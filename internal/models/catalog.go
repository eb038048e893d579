package models

// Catalog rows referenced by company and proposal pivots.

type Location struct {
	Base
	Name        string `gorm:"not null" json:"name"`
	CountryCode string `json:"country_code"`
	PhoneCode   string `json:"phone_code"`
	FlagPath    string `json:"flag_path"`
}

type ProductCategory struct {
	Base
	Name string `gorm:"not null" json:"name"`
}

type BusinessCategory struct {
	Base
	Name string `gorm:"not null" json:"name"`
}

type BusinessType struct {
	Base
	Name string `gorm:"not null" json:"name"`
}

type Certificate struct {
	Base
	Name string `gorm:"not null" json:"name"`
}
