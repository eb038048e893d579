package models

import (
	"strings"

	"gorm.io/gorm"
)

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Permission{}, &Role{}, &User{}, &PasswordReset{},
		&Location{}, &ProductCategory{}, &BusinessCategory{}, &BusinessType{}, &Certificate{},
		&Company{}, &CompanyFavorite{}, &CompanyOverview{}, &Product{}, &CompanyFAQ{},
		&CompanyClient{}, &BusinessContact{}, &DecisionMaker{}, &CompanyClaim{},
		&SourcingProposal{}, &ProposalComment{}, &ProposalReply{}, &FavoriteProposal{},
		&Media{},
	}
}

// GetUserByEmail loads a non-deleted user by case-insensitive email.
func GetUserByEmail(email string, db *gorm.DB) (*User, error) {
	user := &User{}
	if err := db.Preload("Roles").Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// GetRolesByName loads roles by name, skipping unknown names.
func GetRolesByName(db *gorm.DB, names ...string) ([]Role, error) {
	var roles []Role
	if len(names) == 0 {
		return roles, nil
	}
	if err := db.Where("name IN ?", names).Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}
