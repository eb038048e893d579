package services

import (
	"context"
	"strings"
	"time"

	"marketplace/internal/apperr"
	"marketplace/internal/events"
	"marketplace/internal/models"
	"marketplace/internal/utils"
	console "marketplace/internal/utils/logger"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var authLog = console.New("AUTH")

const (
	otpDigits   = 6
	otpLifetime = 10 * time.Minute
)

// MailQueue hands emails to the background workers.
type MailQueue interface {
	EnqueuePasswordOTP(ctx context.Context, email, name, code string) error
	EnqueueWelcome(ctx context.Context, email, name string) error
}

// GoogleVerifier resolves a Google access token to its profile.
type GoogleVerifier func(ctx context.Context, token string) (*utils.GoogleUser, []byte, error)

// AvatarFetcher downloads a remote profile picture.
type AvatarFetcher interface {
	DownloadFile(ctx context.Context, url string) ([]byte, string, error)
}

type RegisterInput struct {
	FirstName            string `json:"first_name" validate:"required,max=255"`
	LastName             string `json:"last_name" validate:"omitempty,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"omitempty,eqfield=Password"`
	UserType             string `json:"user_type" validate:"omitempty,oneof=buyer seller talent"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type GoogleLoginInput struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}

type UpdateProfileInput struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=255"`
	LastName  *string `json:"last_name" validate:"omitempty,max=255"`
	Email     *string `json:"email" validate:"omitempty,email,max=255"`
	Phone     *string `json:"phone" validate:"omitempty,max=50"`
}

type ChangePasswordInput struct {
	CurrentPassword      string `json:"current_password" validate:"required"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"omitempty,eqfield=Password"`
}

type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordInput struct {
	Email                string `json:"email" validate:"required,email"`
	OTP                  string `json:"otp" validate:"required,len=6,numeric"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"omitempty,eqfield=Password"`
}

// AuthResult is returned by every flow that issues a token.
type AuthResult struct {
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	ProfilePicture *string  `json:"profile_picture"`
	TokenType      string   `json:"token_type"`
	AccessToken    string   `json:"access_token"`
	Roles          []string `json:"roles,omitempty"`
}

// Profile is the authenticated user with flattened permissions.
type Profile struct {
	*models.User
	RoleNames   []string `json:"role_names"`
	Permissions []string `json:"permissions"`
}

type AuthService struct {
	db        *gorm.DB
	media     *MediaService
	mail      MailQueue
	google    GoogleVerifier
	avatars   AvatarFetcher
	jwtSecret string
	jwtTTL    time.Duration
	now       func() time.Time
}

func NewAuthService(db *gorm.DB, media *MediaService, mail MailQueue, google GoogleVerifier, jwtSecret string, jwtTTL time.Duration) *AuthService {
	return &AuthService{
		db:        db,
		media:     media,
		mail:      mail,
		google:    google,
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
		now:       time.Now,
	}
}

// WithAvatars makes Google sign up import the account picture.
func (s *AuthService) WithAvatars(f AvatarFetcher) *AuthService {
	s.avatars = f
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) issue(ctx context.Context, u *models.User, withRoles bool) (*AuthResult, error) {
	token, err := utils.GenerateJWT(u.ID, u.Email, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to issue token")
	}
	res := &AuthResult{
		Name:        u.FullName(),
		Email:       u.Email,
		TokenType:   "Bearer",
		AccessToken: token,
	}
	if pic, err := s.media.First(ctx, s.db, u, models.CollectionProfilePicture); err == nil && pic != nil {
		res.ProfilePicture = &pic.URL
	}
	if withRoles {
		res.Roles = u.RoleNames()
	}
	return res, nil
}

// emailTaken counts soft-deleted users too, since the unique index does.
func emailTaken(tx *gorm.DB, email, exceptID string) error {
	q := tx.Unscoped().Model(&models.User{}).Where("LOWER(email) = ?", email)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.NewValidation("Email already exists", map[string]string{"email": "Email already exists"})
	}
	return nil
}

// Register creates a pending user with the user role, plus user_type when given.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to hash password")
	}

	u := &models.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     normalizeEmail(in.Email),
		Password:  string(hash),
		Status:    models.UserStatusPending,
		Provider:  "local",
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := emailTaken(tx, u.Email, ""); err != nil {
			return err
		}
		names := []string{models.RoleUser}
		if in.UserType != "" {
			names = append(names, in.UserType)
		}
		roles, err := models.GetRolesByName(tx, names...)
		if err != nil {
			return err
		}
		u.Roles = roles
		return tx.Create(u).Error
	})
	if apperr.IsDuplicateKey(err) {
		return nil, apperr.NewValidation("Email already exists", map[string]string{"email": "Email already exists"})
	}
	if err != nil {
		return nil, err
	}
	announce(u)
	return s.issue(ctx, u, false)
}

// announce publishes UserCreated for a committed account.
func announce(u *models.User) {
	authLog.Info("User created %s", u.Email)
	events.Emit(events.UserCreated, events.NewUser{ID: u.ID, Email: u.Email, Name: u.FullName()})
}

// Login checks credentials. Unknown emails and wrong passwords share one error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	u, err := models.GetUserByEmail(in.Email, s.db.WithContext(ctx))
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.NewUnauthenticated("Invalid login credentials")
		}
		return nil, err
	}
	if u.IsBanned {
		return nil, apperr.NewForbidden("Your account has been banned")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.Password)) != nil {
		return nil, apperr.NewUnauthenticated("Invalid login credentials")
	}
	return s.issue(ctx, u, true)
}

// GoogleLogin verifies the token with Google and signs the user in, creating
// an approved account on first use.
func (s *AuthService) GoogleLogin(ctx context.Context, in GoogleLoginInput) (*AuthResult, error) {
	if s.google == nil {
		return nil, apperr.NewBadRequest("Google login is not configured")
	}
	profile, raw, err := s.google(ctx, in.Token)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.Unauthenticated, Message: "Invalid Google token", Err: err}
	}
	email := normalizeEmail(in.Email)
	if normalizeEmail(profile.Email) != email {
		return nil, apperr.NewUnauthenticated("Invalid Google token")
	}

	u, err := models.GetUserByEmail(email, s.db.WithContext(ctx))
	switch {
	case err == nil:
		if u.IsBanned {
			return nil, apperr.NewForbidden("Your account has been banned")
		}
		if u.ProviderID == "" {
			if err := s.db.WithContext(ctx).Model(u).Updates(map[string]interface{}{
				"provider_id":   profile.Sub,
				"provider_data": raw,
			}).Error; err != nil {
				authLog.Warn("Failed to link Google account of %s: %v", u.Email, err)
			}
		}
		return s.issue(ctx, u, true)
	case !apperr.Is(err, apperr.NotFound):
		return nil, err
	}

	password, err := utils.GenerateRandomString(32)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to generate password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to hash password")
	}

	now := s.now().UTC()
	u = &models.User{
		FirstName:       profile.GivenName,
		LastName:        profile.FamilyName,
		Email:           email,
		Password:        string(hash),
		Status:          models.UserStatusApproved,
		EmailVerifiedAt: &now,
		Provider:        "google",
		ProviderID:      profile.Sub,
		ProviderData:    raw,
	}
	if u.FirstName == "" {
		u.FirstName = strings.SplitN(email, "@", 2)[0]
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roles, err := models.GetRolesByName(tx, models.RoleUser)
		if err != nil {
			return err
		}
		u.Roles = roles
		return tx.Create(u).Error
	})
	if err != nil {
		return nil, err
	}
	announce(u)
	s.importAvatar(ctx, u, profile.Picture)
	return s.issue(ctx, u, true)
}

// importAvatar stores the Google picture as the profile picture. Failures
// only cost the picture.
func (s *AuthService) importAvatar(ctx context.Context, u *models.User, url string) {
	if s.avatars == nil || url == "" {
		return
	}
	data, contentType, err := s.avatars.DownloadFile(ctx, url)
	if err != nil {
		authLog.Warn("Failed to download Google picture of %s: %v", u.Email, err)
		return
	}
	if !strings.HasPrefix(contentType, "image/") {
		return
	}
	up := Upload{FileName: "google" + imageExt(contentType), ContentType: contentType, Data: data}
	var staged []string
	if _, err := s.media.Attach(ctx, s.db.WithContext(ctx), u, models.CollectionProfilePicture, up, &staged); err != nil {
		s.media.Purge(ctx, staged)
		authLog.Warn("Failed to store Google picture of %s: %v", u.Email, err)
	}
}

func imageExt(contentType string) string {
	switch strings.SplitN(contentType, ";", 2)[0] {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func (s *AuthService) user(ctx context.Context, db *gorm.DB, id string) (*models.User, error) {
	var u models.User
	if err := db.WithContext(ctx).Preload("Roles.Permissions").Where("id = ?", id).First(&u).Error; err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.NewNotFound("User not found")
		}
		return nil, err
	}
	return &u, nil
}

// Profile returns the user with roles, permissions and profile picture.
func (s *AuthService) Profile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.user(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if u.ProfilePicture, err = s.media.First(ctx, s.db, u, models.CollectionProfilePicture); err != nil {
		return nil, err
	}
	return &Profile{User: u, RoleNames: u.RoleNames(), Permissions: u.PermissionNames()}, nil
}

// UpdateProfile changes the sent fields and replaces the profile picture when
// one is uploaded.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput, picture *Upload) (*Profile, error) {
	var staged, removed []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.user(ctx, tx, userID)
		if err != nil {
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
			changes["phone"] = strings.TrimSpace(*in.Phone)
		}
		if in.Email != nil {
			email := normalizeEmail(*in.Email)
			if email != u.Email {
				if err := emailTaken(tx, email, u.ID); err != nil {
					return err
				}
				changes["email"] = email
			}
		}
		if len(changes) > 0 {
			if err := tx.Model(u).Updates(changes).Error; err != nil {
				return err
			}
		}

		if picture != nil {
			if _, removed, err = s.media.Replace(ctx, tx, u, models.CollectionProfilePicture, *picture, &staged); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.media.Purge(ctx, staged)
		return nil, err
	}
	s.media.Purge(ctx, removed)
	return s.Profile(ctx, userID)
}

// ChangePassword replaces the password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	u, err := s.user(ctx, s.db, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.CurrentPassword)) != nil {
		return apperr.NewValidation("Current password is incorrect", map[string]string{
			"current_password": "Current password is incorrect",
		})
	}
	return s.setPassword(ctx, s.db, u.ID, in.Password)
}

func (s *AuthService) setPassword(ctx context.Context, db *gorm.DB, userID, plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(err, "Failed to hash password")
	}
	return db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("password", string(hash)).Error
}

// ForgotPassword emails a one-time code to a known address. Unknown addresses
// get the same answer and no email.
func (s *AuthService) ForgotPassword(ctx context.Context, in ForgotPasswordInput) error {
	u, err := models.GetUserByEmail(in.Email, s.db.WithContext(ctx))
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			authLog.Debug("Password reset requested for unknown email")
			return nil
		}
		return err
	}

	code, err := utils.GenerateOTP(otpDigits)
	if err != nil {
		return apperr.Wrap(err, "Failed to generate code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(err, "Failed to hash code")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PasswordReset{}).
			Where("user_id = ? AND used = ?", u.ID, false).
			Update("used", true).Error; err != nil {
			return err
		}
		return tx.Create(&models.PasswordReset{
			UserID:    u.ID,
			Code:      string(hash),
			ExpiresAt: s.now().UTC().Add(otpLifetime),
		}).Error
	})
	if err != nil {
		return err
	}

	if s.mail != nil {
		if err := s.mail.EnqueuePasswordOTP(ctx, u.Email, u.FullName(), code); err != nil {
			_ = authLog.Error("Failed to enqueue password OTP for %s", err, u.Email)
		}
	}
	return nil
}

func invalidOTP(message string) error {
	return apperr.NewValidation(message, map[string]string{"otp": message})
}

// ResetPassword redeems the newest unused code and sets the new password.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	u, err := models.GetUserByEmail(in.Email, s.db.WithContext(ctx))
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return invalidOTP("Invalid OTP")
		}
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var resets []models.PasswordReset
		if err := tx.Where("user_id = ? AND used = ?", u.ID, false).
			Order("created_at DESC").
			Limit(1).
			Find(&resets).Error; err != nil {
			return err
		}
		if len(resets) == 0 || bcrypt.CompareHashAndPassword([]byte(resets[0].Code), []byte(in.OTP)) != nil {
			return invalidOTP("Invalid OTP")
		}
		reset := resets[0]
		if !reset.Usable(s.now().UTC()) {
			return invalidOTP("OTP has expired")
		}

		res := tx.Model(&models.PasswordReset{}).Where("id = ? AND used = ?", reset.ID, false).Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return invalidOTP("Invalid OTP")
		}
		return s.setPassword(ctx, tx, u.ID, in.Password)
	})
}

// HandleUserCreated queues the welcome email of a newly created user.
func (s *AuthService) HandleUserCreated(data interface{}) {
	u, ok := data.(events.NewUser)
	if !ok || s.mail == nil {
		return
	}
	if err := s.mail.EnqueueWelcome(context.Background(), u.Email, u.Name); err != nil {
		_ = authLog.Error("Failed to enqueue welcome email for %s", err, u.Email)
	}
}
