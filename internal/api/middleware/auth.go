package middleware

import (
	"context"

	"marketplace/internal/identity"
	"marketplace/internal/utils/logger"

	"github.com/labstack/echo/v4"
)

var log = logger.New("auth_middleware")

// principalKey is where the AccessContext is kept on the echo context.
const principalKey = "principal"

// TokenResolver turns an Authorization header into a principal.
type TokenResolver interface {
	Resolve(ctx context.Context, header string) (*identity.AccessContext, error)
}

type AuthMiddleware struct {
	resolver TokenResolver
}

func NewAuthMiddleware(resolver TokenResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

func attach(c echo.Context, ac *identity.AccessContext) {
	c.Set(principalKey, ac)
	req := c.Request()
	c.SetRequest(req.WithContext(identity.WithContext(req.Context(), ac)))
}

// Middleware rejects requests without a valid bearer token. Banned accounts
// are refused here, before any permission check runs.
func (m *AuthMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac, err := m.resolver.Resolve(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}
			attach(c, ac)
			return next(c)
		}
	}
}

// Optional attaches the principal when a valid token is sent and lets every
// other request through anonymously.
func (m *AuthMiddleware) Optional() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}
			ac, err := m.resolver.Resolve(c.Request().Context(), header)
			if err != nil {
				log.Debug("Ignoring credentials on %s: %v", c.Path(), err)
				return next(c)
			}
			attach(c, ac)
			return next(c)
		}
	}
}

// Principal returns the authenticated user of the request, nil when anonymous.
func Principal(c echo.Context) *identity.AccessContext {
	if ac, ok := c.Get(principalKey).(*identity.AccessContext); ok {
		return ac
	}
	return identity.FromContext(c.Request().Context())
}
