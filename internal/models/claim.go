package models

import (
	"time"

	"marketplace/internal/apperr"
	"marketplace/internal/events"
)

// CompanyClaim is a request by a user to take over a company. Once resolved it
// never changes again. A user holds at most one pending claim per company.
type CompanyClaim struct {
	Base
	CompanyID  string      `gorm:"type:uuid;not null;index;uniqueIndex:idx_company_claims_one_pending,priority:1,where:status = 'pending'" json:"company_id"`
	Company    *Company    `json:"company,omitempty"`
	UserID     string      `gorm:"type:uuid;not null;index;uniqueIndex:idx_company_claims_one_pending,priority:2" json:"user_id"`
	User       *User       `json:"user,omitempty"`
	Message    *string     `gorm:"type:text" json:"message"`
	Status     ClaimStatus `gorm:"not null;default:'pending';index" json:"status"`
	ResolvedBy *string     `gorm:"type:uuid" json:"resolved_by"`
	ResolvedAt *time.Time  `json:"resolved_at"`
}

// ParseClaimDecision maps an admin decision onto a terminal claim status.
// "rejected" is accepted as a synonym of cancelled.
func ParseClaimDecision(s string) (ClaimStatus, error) {
	switch s {
	case string(ClaimStatusApproved):
		return ClaimStatusApproved, nil
	case string(ClaimStatusCancelled), "rejected":
		return ClaimStatusCancelled, nil
	}
	return "", apperr.NewValidation("Invalid claim status", map[string]string{
		"status": "status must be approved or cancelled",
	})
}

// Resolve applies decision to a pending claim and returns the claimant's
// notification.
func (c *CompanyClaim) Resolve(decision ClaimStatus, adminID string, at time.Time) ([]events.Notification, error) {
	if c.Status != ClaimStatusPending {
		return nil, apperr.NewConflict("Claim has already been resolved")
	}
	if decision != ClaimStatusApproved && decision != ClaimStatusCancelled {
		return nil, apperr.NewBadRequest("Invalid claim status")
	}
	c.Status = decision
	c.ResolvedBy = &adminID
	c.ResolvedAt = &at
	return []events.Notification{c.StatusNotification()}, nil
}

// StatusNotification describes the claim's current status to its claimant.
func (c *CompanyClaim) StatusNotification() events.Notification {
	return events.Notification{
		UserID: c.UserID,
		Event:  events.CompanyClaimStatusChanged,
		Payload: map[string]interface{}{
			"id":     c.ID,
			"status": c.Status,
		},
	}
}
