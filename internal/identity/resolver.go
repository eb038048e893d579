package identity

import (
	"context"
	"errors"
	"strings"

	"marketplace/internal/apperr"
	"marketplace/internal/models"
	"marketplace/internal/utils"

	"gorm.io/gorm"
)

const bearerPrefix = "Bearer "

// Resolver turns an Authorization header into an AccessContext. It never
// writes to the database.
type Resolver struct {
	db     *gorm.DB
	secret string
}

func NewResolver(db *gorm.DB, secret string) *Resolver {
	return &Resolver{db: db, secret: secret}
}

// Resolve authenticates header. Missing, malformed or expired credentials and
// unknown users are Unauthenticated; banned users are Forbidden.
func (r *Resolver) Resolve(ctx context.Context, header string) (*AccessContext, error) {
	if header == "" {
		return nil, apperr.NewUnauthenticated("Authentication required")
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, apperr.NewUnauthenticated("Invalid authorization header")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return nil, apperr.NewUnauthenticated("Invalid authorization header")
	}

	claims, err := utils.ParseJWT(token, r.secret)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.Unauthenticated, Message: "Invalid or expired token", Err: err}
	}

	ac, err := r.Load(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if ac.IsBanned {
		return nil, apperr.NewForbidden("Account is banned")
	}
	return ac, nil
}

// Load builds the AccessContext of a user id without checking the ban flag.
func (r *Resolver) Load(ctx context.Context, userID string) (*AccessContext, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Roles.Permissions").
		Where("id = ?", userID).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NewUnauthenticated("User not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to load user")
	}
	return NewAccessContext(&user), nil
}
