package services

import (
	"context"
	"fmt"
	"reflect"

	"marketplace/internal/apperr"
	"marketplace/internal/events"
	"marketplace/internal/models"

	"gorm.io/gorm"
)

// CompanyScoped constrains PT to a pointer to a model that lives under a company.
type CompanyScoped[T any] interface {
	*T
	models.CompanyOwned
}

// BaseService defines the CRUD operations of rows owned by a company. Every
// call is scoped by company id, so ids from another company are NotFound.
type BaseService[T any] interface {
	List(ctx context.Context, companyID string) ([]T, error)
	Get(ctx context.Context, companyID, id string) (*T, error)
	Create(ctx context.Context, companyID string, entity *T) error
	Update(ctx context.Context, companyID, id string, entity *T) (*T, error)
	Delete(ctx context.Context, companyID, id string) error
}

// BaseServiceImpl implements BaseService
type BaseServiceImpl[T any, PT CompanyScoped[T]] struct {
	db       *gorm.DB
	table    string
	notFound string
}

func GormTableName(db *gorm.DB, v any) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(v); err == nil && stmt.Schema != nil {
		return stmt.Schema.Table
	}
	return db.NamingStrategy.TableName(reflect.TypeOf(v).Elem().Name())
}

// NewBaseService creates a new base service. notFound is the message used
// when a row is missing from the company.
func NewBaseService[T any, PT CompanyScoped[T]](db *gorm.DB, notFound string) BaseService[T] {
	var zero T
	return &BaseServiceImpl[T, PT]{
		db:       db,
		table:    GormTableName(db, &zero),
		notFound: notFound,
	}
}

func (s *BaseServiceImpl[T, PT]) scoped(ctx context.Context, companyID string) *gorm.DB {
	var zero T
	return s.db.WithContext(ctx).Model(&zero).Where("company_id = ?", companyID)
}

func (s *BaseServiceImpl[T, PT]) List(ctx context.Context, companyID string) ([]T, error) {
	entities := []T{}
	if err := s.scoped(ctx, companyID).Order("created_at DESC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

func (s *BaseServiceImpl[T, PT]) Get(ctx context.Context, companyID, id string) (*T, error) {
	var entity T
	if err := s.scoped(ctx, companyID).Where("id = ?", id).First(&entity).Error; err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.NewNotFound(s.notFound)
		}
		return nil, err
	}
	return &entity, nil
}

func (s *BaseServiceImpl[T, PT]) Create(ctx context.Context, companyID string, entity *T) error {
	PT(entity).ResetID()
	PT(entity).SetCompanyID(companyID)
	if err := s.db.WithContext(ctx).Create(entity).Error; err != nil {
		return err
	}

	events.Emit(fmt.Sprintf("%s.created", s.table), entity)

	return nil
}

// Update applies the non-zero fields of entity to the row and returns it reloaded.
func (s *BaseServiceImpl[T, PT]) Update(ctx context.Context, companyID, id string, entity *T) (*T, error) {
	if _, err := s.Get(ctx, companyID, id); err != nil {
		return nil, err
	}

	PT(entity).SetCompanyID(companyID)
	if err := s.scoped(ctx, companyID).
		Where("id = ?", id).
		Omit("id", "company_id", "created_at").
		Updates(entity).Error; err != nil {
		return nil, err
	}

	updated, err := s.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	events.Emit(fmt.Sprintf("%s.updated", s.table), updated)

	return updated, nil
}

func (s *BaseServiceImpl[T, PT]) Delete(ctx context.Context, companyID, id string) error {
	var zero T
	res := s.db.WithContext(ctx).Where("company_id = ? AND id = ?", companyID, id).Delete(&zero)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFound(s.notFound)
	}

	events.Emit(fmt.Sprintf("%s.deleted", s.table), id)

	return nil
}
