package services

import (
	"context"
	"strings"
	"time"

	"marketplace/internal/apperr"
	"marketplace/internal/models"
	"marketplace/internal/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type CreateAdminInput struct {
	FirstName string  `json:"first_name" validate:"required,max=255"`
	LastName  string  `json:"last_name" validate:"omitempty,max=255"`
	Email     string  `json:"email" validate:"required,email,max=255"`
	Password  string  `json:"password" validate:"required,min=8"`
	Phone     *string `json:"phone" validate:"omitempty,max=50"`
}

type UpdateAdminInput struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=255"`
	LastName  *string `json:"last_name" validate:"omitempty,max=255"`
	Email     *string `json:"email" validate:"omitempty,email,max=255"`
	Phone     *string `json:"phone" validate:"omitempty,max=50"`
	Password  *string `json:"password" validate:"omitempty,min=8"`
}

type SetPasswordInput struct {
	Password string `json:"password" validate:"required,min=8"`
}

// UserService backs the admin and user management screens.
type UserService struct {
	db    *gorm.DB
	media *MediaService
	now   func() time.Time
}

func NewUserService(db *gorm.DB, media *MediaService) *UserService {
	return &UserService{db: db, media: media, now: time.Now}
}

func (s *UserService) page(ctx context.Context, q *gorm.DB, p utils.Page) ([]models.User, utils.Meta, error) {
	var items []models.User
	meta, err := utils.Paginate(q.Preload("Roles").Order("users.created_at DESC"), p, &items)
	if err != nil {
		return nil, utils.Meta{}, err
	}

	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	pictures, err := s.media.ByOwner(ctx, s.db, models.OwnerUser, ids, models.CollectionProfilePicture)
	if err != nil {
		return nil, utils.Meta{}, err
	}
	for i := range items {
		if pic := pictures[items[i].ID]; len(pic) > 0 {
			items[i].ProfilePicture = &pic[len(pic)-1]
		}
	}
	return items, meta, nil
}

func (s *UserService) admins(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("users.id IN (?)", s.db.Table("user_roles").
			Select("user_roles.user_id").
			Joins("JOIN roles ON roles.id = user_roles.role_id").
			Where("roles.name = ?", models.RoleAdministrator))
}

// ListAdmins returns users holding the administrator role.
func (s *UserService) ListAdmins(ctx context.Context, p utils.Page) ([]models.User, utils.Meta, error) {
	return s.page(ctx, s.admins(ctx), p)
}

// CreateAdmin creates an approved user with the administrator role.
func (s *UserService) CreateAdmin(ctx context.Context, in CreateAdminInput) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to hash password")
	}
	now := s.now().UTC()
	u := &models.User{
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		Email:           normalizeEmail(in.Email),
		Password:        string(hash),
		Phone:           in.Phone,
		Status:          models.UserStatusApproved,
		EmailVerifiedAt: &now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := emailTaken(tx, u.Email, ""); err != nil {
			return err
		}
		roles, err := models.GetRolesByName(tx, models.RoleAdministrator)
		if err != nil {
			return err
		}
		u.Roles = roles
		return tx.Create(u).Error
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) admin(tx *gorm.DB, id string) (*models.User, error) {
	var u models.User
	if err := tx.Where("id = ?", id).
		Where("id IN (?)", tx.Session(&gorm.Session{NewDB: true}).Table("user_roles").
			Select("user_roles.user_id").
			Joins("JOIN roles ON roles.id = user_roles.role_id").
			Where("roles.name = ?", models.RoleAdministrator)).
		First(&u).Error; err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.NewNotFound("Admin not found")
		}
		return nil, err
	}
	return &u, nil
}

// UpdateAdmin changes the sent fields of an administrator.
func (s *UserService) UpdateAdmin(ctx context.Context, id string, in UpdateAdminInput) (*models.User, error) {
	var u *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if u, err = s.admin(tx, id); err != nil {
			return err
		}

		changes := map[string]interface{}{}
		if in.FirstName != nil {
			changes["first_name"] = strings.TrimSpace(*in.FirstName)
		}
		if in.LastName != nil {
			changes["last_name"] = strings.TrimSpace(*in.LastName)
		}
		if in.Phone != nil {
			changes["phone"] = *in.Phone
		}
		if in.Email != nil {
			email := normalizeEmail(*in.Email)
			if err := emailTaken(tx, email, u.ID); err != nil {
				return err
			}
			changes["email"] = email
		}
		if in.Password != nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
			if err != nil {
				return apperr.Wrap(err, "Failed to hash password")
			}
			changes["password"] = string(hash)
		}
		if len(changes) == 0 {
			return nil
		}
		return tx.Model(u).Updates(changes).Error
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteAdmin soft deletes an administrator other than actorID.
func (s *UserService) DeleteAdmin(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return apperr.NewBadRequest("You cannot delete your own account")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.admin(tx, id)
		if err != nil {
			return err
		}
		return tx.Delete(u).Error
	})
}

// ListUsers returns users, newest first, optionally matching search on name
// or email.
func (s *UserService) ListUsers(ctx context.Context, search string, p utils.Page) ([]models.User, utils.Meta, error) {
	q := s.db.WithContext(ctx).Model(&models.User{})
	if search = strings.TrimSpace(search); search != "" {
		like := contains(search)
		q = q.Where("LOWER(users.first_name) LIKE ? OR LOWER(users.last_name) LIKE ? OR LOWER(users.email) LIKE ?", like, like, like)
	}
	return s.page(ctx, q, p)
}

func (s *UserService) user(tx *gorm.DB, id string) (*models.User, error) {
	var u models.User
	if err := tx.Where("id = ?", id).First(&u).Error; err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.NewNotFound("User not found")
		}
		return nil, err
	}
	return &u, nil
}

// DeleteUser soft deletes a user other than actorID.
func (s *UserService) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return apperr.NewBadRequest("You cannot delete your own account")
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFound("User not found")
	}
	return nil
}

// SetPassword replaces a user's password.
func (s *UserService) SetPassword(ctx context.Context, id string, in SetPasswordInput) error {
	if len(in.Password) < 8 {
		return apperr.NewValidation("Password must be at least 8 characters", map[string]string{
			"password": "Password must be at least 8 characters",
		})
	}
	u, err := s.user(s.db.WithContext(ctx), id)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(err, "Failed to hash password")
	}
	return s.db.WithContext(ctx).Model(u).Update("password", string(hash)).Error
}

// ToggleBan flips the ban flag of a user other than actorID and returns the
// new value.
func (s *UserService) ToggleBan(ctx context.Context, actorID, id string) (bool, error) {
	if actorID == id {
		return false, apperr.NewBadRequest("You cannot ban your own account")
	}
	banned := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.user(tx, id)
		if err != nil {
			return err
		}
		banned = !u.IsBanned
		return tx.Model(u).Update("is_banned", banned).Error
	})
	return banned, err
}
