package controllers

import (
	"context"
	"net/http"

	"marketplace/internal/handlers"
	"marketplace/internal/identity"
	"marketplace/internal/models"
	"marketplace/internal/services"

	"github.com/labstack/echo/v4"
)

// CompanyResolver finds a company the principal may change.
type CompanyResolver interface {
	MutableCompany(ctx context.Context, ac *identity.AccessContext, slug string) (*models.Company, error)
}

// BaseController provides CRUD endpoints for rows owned by a company. The
// company comes from the :slug path parameter and must be mutable by the
// caller.
type BaseController[T any] struct {
	companies CompanyResolver
	service   services.BaseService[T]
	singular  string
	plural    string
}

// NewBaseController creates a new base controller. singular and plural name
// the resource in response messages.
func NewBaseController[T any](companies CompanyResolver, service services.BaseService[T], singular, plural string) *BaseController[T] {
	return &BaseController[T]{
		companies: companies,
		service:   service,
		singular:  singular,
		plural:    plural,
	}
}

func (c *BaseController[T]) company(ctx echo.Context) (*models.Company, error) {
	ac := identity.FromContext(ctx.Request().Context())
	return c.companies.MutableCompany(ctx.Request().Context(), ac, ctx.Param("slug"))
}

// List handles retrieval of every row of the company
func (c *BaseController[T]) List(ctx echo.Context) error {
	company, err := c.company(ctx)
	if err != nil {
		return err
	}
	entities, err := c.service.List(ctx.Request().Context(), company.ID)
	if err != nil {
		return err
	}
	return handlers.Respond(ctx, http.StatusOK, c.plural+" fetched", entities)
}

// Get handles retrieval of a single entity
func (c *BaseController[T]) Get(ctx echo.Context) error {
	company, err := c.company(ctx)
	if err != nil {
		return err
	}
	entity, err := c.service.Get(ctx.Request().Context(), company.ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return handlers.Respond(ctx, http.StatusOK, c.singular+" fetched", entity)
}

// Create handles creation of new entities
func (c *BaseController[T]) Create(ctx echo.Context) error {
	company, err := c.company(ctx)
	if err != nil {
		return err
	}
	var entity T
	if err := handlers.Bind(ctx, &entity); err != nil {
		return err
	}
	if err := c.service.Create(ctx.Request().Context(), company.ID, &entity); err != nil {
		return err
	}
	return handlers.Respond(ctx, http.StatusCreated, c.singular+" created successfully", entity)
}

// Update handles updating an existing entity
func (c *BaseController[T]) Update(ctx echo.Context) error {
	company, err := c.company(ctx)
	if err != nil {
		return err
	}
	var entity T
	if err := handlers.Bind(ctx, &entity); err != nil {
		return err
	}
	updated, err := c.service.Update(ctx.Request().Context(), company.ID, ctx.Param("id"), &entity)
	if err != nil {
		return err
	}
	return handlers.Respond(ctx, http.StatusOK, c.singular+" updated successfully", updated)
}

// Delete handles deletion of an entity
func (c *BaseController[T]) Delete(ctx echo.Context) error {
	company, err := c.company(ctx)
	if err != nil {
		return err
	}
	if err := c.service.Delete(ctx.Request().Context(), company.ID, ctx.Param("id")); err != nil {
		return err
	}
	return handlers.Respond(ctx, http.StatusOK, c.singular+" deleted successfully", nil)
}

// RegisterRoutes registers the routes for the controller under path. Writes
// use the store, update and delete sub paths of the web clients.
func (c *BaseController[T]) RegisterRoutes(g *echo.Group, path string, methods ...string) {
	if len(methods) == 0 {
		methods = []string{"POST", "GET", "PUT", "DELETE"}
	}

	for _, method := range methods {
		switch method {
		case "POST":
			g.POST(path+"/store", c.Create)
		case "GET":
			g.GET(path, c.List)
			g.GET(path+"/:id", c.Get)
		case "PUT":
			g.POST(path+"/:id/update", c.Update)
			g.PUT(path+"/:id", c.Update)
		case "DELETE":
			g.GET(path+"/:id/delete", c.Delete)
			g.DELETE(path+"/:id", c.Delete)
		}
	}
}
