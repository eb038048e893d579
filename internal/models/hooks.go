package models

import "gorm.io/gorm"

// AfterCreate runs inside the creating transaction, so it only logs. The
// users.created event is emitted by the caller once the row is committed.
func (u *User) AfterCreate(tx *gorm.DB) error {
	log.Debug("User row inserted %s", u.Email)
	return nil
}
