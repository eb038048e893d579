package services

import (
	"context"
	"time"

	"marketplace/internal/models"

	"gorm.io/gorm"
)

const dashboardRecent = 5

type DashboardStats struct {
	TotalUsers       int64 `json:"total_users"`
	TotalCompanies   int64 `json:"total_companies"`
	ActiveCompanies  int64 `json:"active_companies"`
	TotalProposals   int64 `json:"total_proposals"`
	PendingProposals int64 `json:"pending_proposals"`
	TotalClaims      int64 `json:"total_claims"`
	PendingClaims    int64 `json:"pending_claims"`
}

type RecentUser struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type RecentCompany struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Slug      string               `json:"slug"`
	Status    models.CompanyStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
}

// Dashboard is the landing page of the back office.
type Dashboard struct {
	Stats           DashboardStats  `json:"stats"`
	RecentUsers     []RecentUser    `json:"recent_users"`
	RecentCompanies []RecentCompany `json:"recent_companies"`
}

// Dashboard counts the live rows of the marketplace and lists the newest
// users and companies.
func (s *UserService) Dashboard(ctx context.Context) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	out := &Dashboard{RecentUsers: []RecentUser{}, RecentCompanies: []RecentCompany{}}

	counts := []struct {
		dst *int64
		q   *gorm.DB
	}{
		{&out.Stats.TotalUsers, db.Model(&models.User{})},
		{&out.Stats.TotalCompanies, db.Model(&models.Company{})},
		{&out.Stats.ActiveCompanies, db.Model(&models.Company{}).Where("is_active = ?", true)},
		{&out.Stats.TotalProposals, db.Model(&models.SourcingProposal{})},
		{&out.Stats.PendingProposals, db.Model(&models.SourcingProposal{}).Where("status = ?", models.ProposalStatusPending)},
		{&out.Stats.TotalClaims, db.Model(&models.CompanyClaim{})},
		{&out.Stats.PendingClaims, db.Model(&models.CompanyClaim{}).Where("status = ?", models.ClaimStatusPending)},
	}
	for _, c := range counts {
		if err := c.q.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	if err := db.Model(&models.User{}).
		Select("id", "first_name", "last_name", "email", "created_at").
		Order("created_at DESC").
		Limit(dashboardRecent).
		Find(&out.RecentUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Company{}).
		Select("id", "name", "slug", "status", "created_at").
		Order("created_at DESC").
		Limit(dashboardRecent).
		Find(&out.RecentCompanies).Error; err != nil {
		return nil, err
	}
	return out, nil
}
