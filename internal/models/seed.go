package models

import (
	"fmt"
	"strings"
	"time"

	"marketplace/internal/config"

	"golang.org/x/crypto/bcrypt"

	console "marketplace/internal/utils/logger"

	"gorm.io/gorm"
)

var log = console.New("SEEDER")

// DefaultPermissions are the permission names every installation carries.
var DefaultPermissions = []string{
	PermAccessDashboard,
	PermAccessManagementView,
	PermAccessManagementEdit,
	PermUserManagement,
	PermBusinessManagerView,
	PermBusinessManagerEdit,
	PermCompanyView,
	PermCompanyEdit,
	PermBlogView,
	PermBlogEdit,
	PermPricingView,
	PermPricingEdit,
	PermMoreView,
	PermMoreEdit,
}

// Role-based permission mappings. "*" grants every permission.
var rolePermissions = map[string][]string{
	RoleAdministrator: {"*"},
	RoleUser:          {},
	RoleBuyer:         {},
	RoleSeller:        {},
	RoleTalent:        {},
}

// SeedPermissions creates the default permissions and roles. It is idempotent.
func SeedPermissions(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		all := make([]Permission, 0, len(DefaultPermissions))
		for _, name := range DefaultPermissions {
			perm := Permission{}
			if err := tx.Where(Permission{Name: name}).Attrs(Permission{GuardName: "api"}).FirstOrCreate(&perm).Error; err != nil {
				return fmt.Errorf("failed to create permission %s: %w", name, err)
			}
			all = append(all, perm)
		}

		for roleName, scopes := range rolePermissions {
			log.Info("Creating permissions for role: %s", roleName)

			role := Role{}
			if err := tx.Where(Role{Name: roleName}).Attrs(Role{GuardName: "api"}).FirstOrCreate(&role).Error; err != nil {
				return fmt.Errorf("failed to create role %s: %w", roleName, err)
			}

			granted := make([]Permission, 0)
			for _, scope := range scopes {
				if scope == "*" {
					granted = all
					break
				}
				for _, p := range all {
					if p.Name == scope {
						granted = append(granted, p)
					}
				}
			}
			if len(granted) == 0 {
				continue
			}
			if err := tx.Model(&role).Association("Permissions").Append(granted); err != nil {
				return fmt.Errorf("failed to grant permissions to %s: %w", roleName, err)
			}
		}
		return nil
	})
}

// CreateAdminFromConfig creates the first administrator when none exists.
func CreateAdminFromConfig(db *gorm.DB, cfg config.AdminConfig) error {
	var count int64
	if err := db.Model(&User{}).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name = ?", RoleAdministrator).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count administrators: %w", err)
	}
	log.Info("Administrator count: %d", count)
	if count > 0 {
		return nil
	}

	if cfg.Email == "" {
		return fmt.Errorf("ADMIN_EMAIL not set")
	}
	if len(cfg.Password) < 8 {
		return fmt.Errorf("ADMIN_PASSWORD must be at least 8 characters")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	roles, err := GetRolesByName(db, RoleAdministrator)
	if err != nil || len(roles) == 0 {
		return fmt.Errorf("administrator role missing, run the permission seed first")
	}

	first, last, _ := strings.Cut(strings.TrimSpace(cfg.Name), " ")
	now := time.Now()
	user := User{
		FirstName:       first,
		LastName:        last,
		Email:           strings.ToLower(cfg.Email),
		Password:        string(hashedPassword),
		Status:          UserStatusApproved,
		EmailVerifiedAt: &now,
		Roles:           roles,
	}

	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("failed to create administrator: %w", err)
	}

	return nil
}
