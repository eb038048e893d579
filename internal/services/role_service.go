package services

import (
	"context"
	"strings"

	"marketplace/internal/apperr"
	"marketplace/internal/models"

	"gorm.io/gorm"
)

type RoleInput struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,uuid"`
}

type UpdateRoleInput struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,uuid"`
}

type RoleService struct {
	db *gorm.DB
}

func NewRoleService(db *gorm.DB) *RoleService {
	return &RoleService{db: db}
}

func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	roles := []models.Role{}
	err := s.db.WithContext(ctx).Preload("Permissions").Order("name ASC").Find(&roles).Error
	return roles, err
}

func (s *RoleService) role(tx *gorm.DB, id string) (*models.Role, error) {
	var r models.Role
	if err := tx.Preload("Permissions").Where("id = ?", id).First(&r).Error; err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.NewNotFound("Role not found")
		}
		return nil, err
	}
	return &r, nil
}

func (s *RoleService) Show(ctx context.Context, id string) (*models.Role, error) {
	return s.role(s.db.WithContext(ctx), id)
}

// Create adds a role granting the given permission ids.
func (s *RoleService) Create(ctx context.Context, in RoleInput) (*models.Role, error) {
	r := &models.Role{Name: strings.TrimSpace(in.Name), GuardName: "api"}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		perms, err := lookup[models.Permission](tx, "permissions", in.Permissions)
		if err != nil {
			return err
		}
		if err := tx.Omit("Permissions").Create(r).Error; err != nil {
			return err
		}
		if len(perms) == 0 {
			return nil
		}
		r.Permissions = perms
		return tx.Model(r).Association("Permissions").Replace(perms)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Update renames a role and resyncs its permissions when they are sent. The
// administrator role keeps its name.
func (s *RoleService) Update(ctx context.Context, id string, in UpdateRoleInput) (*models.Role, error) {
	var r *models.Role
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if r, err = s.role(tx, id); err != nil {
			return err
		}
		if in.Name != nil && strings.TrimSpace(*in.Name) != r.Name {
			if r.Name == models.RoleAdministrator {
				return apperr.NewForbidden("The administrator role cannot be renamed")
			}
			if err := tx.Model(r).Update("name", strings.TrimSpace(*in.Name)).Error; err != nil {
				return err
			}
		}
		if in.Permissions != nil {
			perms, err := lookup[models.Permission](tx, "permissions", in.Permissions)
			if err != nil {
				return err
			}
			if err := tx.Model(r).Association("Permissions").Replace(perms); err != nil {
				return err
			}
			r.Permissions = perms
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes a role and its grants. The administrator role is protected.
func (s *RoleService) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.role(tx, id)
		if err != nil {
			return err
		}
		if r.Name == models.RoleAdministrator {
			return apperr.NewForbidden("The administrator role cannot be deleted")
		}
		if err := tx.Model(r).Association("Permissions").Clear(); err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM user_roles WHERE role_id = ?", r.ID).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(r).Error
	})
}

func (s *RoleService) Permissions(ctx context.Context) ([]models.Permission, error) {
	perms := []models.Permission{}
	err := s.db.WithContext(ctx).Order("name ASC").Find(&perms).Error
	return perms, err
}
