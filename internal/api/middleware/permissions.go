package middleware

import (
	"strings"

	"marketplace/internal/apperr"
	"marketplace/internal/models"

	"github.com/labstack/echo/v4"
)

// RequireAdmin lets only administrators through. It must run after the auth
// middleware.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac := Principal(c)
			if ac == nil {
				return apperr.NewForbidden("Access denied")
			}
			if !ac.IsAdmin() {
				return apperr.NewForbidden("Admin access required")
			}
			return next(c)
		}
	}
}

// RequirePermissions middleware checks that the principal holds at least one
// of the required permissions
func RequirePermissions(requiredPermissions ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac := Principal(c)
			if ac == nil {
				return apperr.NewForbidden("Access denied")
			}
			if !ac.HasAny(requiredPermissions...) {
				return apperr.NewForbidden("Insufficient permissions")
			}
			return next(c)
		}
	}
}

// IDParams answers NotFound for any id path parameter (id, fooId, foo_id)
// that is not a uuid, before it reaches a query.
func IDParams() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for i, name := range c.ParamNames() {
				if !isIDParam(name) {
					continue
				}
				if !models.ValidID(c.ParamValues()[i]) {
					return apperr.NewNotFound("Record not found")
				}
			}
			return next(c)
		}
	}
}

func isIDParam(name string) bool {
	return name == "id" || strings.HasSuffix(name, "Id") || strings.HasSuffix(name, "_id")
}
