package identity

import "marketplace/internal/models"

// CanMutate reports whether ac may change company: its current owner, its
// creator, or an administrator.
func CanMutate(ac *AccessContext, company *models.Company) bool {
	if ac == nil || company == nil {
		return false
	}
	if ac.IsAdmin() {
		return true
	}
	return ac.UserID != "" && (ac.UserID == company.UserID || ac.UserID == company.CreatedBy)
}
