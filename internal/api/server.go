package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-advanced-admin/admin"
	admingorm "github.com/go-advanced-admin/orm-gorm"
	adminecho "github.com/go-advanced-admin/web-echo"

	"marketplace/internal/api/middleware"
	"marketplace/internal/api/validator"
	"marketplace/internal/apperr"
	"marketplace/internal/config"
	"marketplace/internal/events"
	"marketplace/internal/handlers"
	"marketplace/internal/identity"
	"marketplace/internal/models"
	"marketplace/internal/services"
	"marketplace/internal/tasks/rate"

	console "marketplace/internal/utils/logger"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// streamPath is exempt from the request timeout and compression.
const streamPath = "/api/v1/notifications/stream"

// Deps are the collaborators built by the caller.
type Deps struct {
	DB         *gorm.DB
	Media      *services.MediaService
	Dispatcher *events.Dispatcher
	Auth       *services.AuthService
	Subscriber handlers.Subscriber
	// Redis backs the windowed rate limiters. Without it only the burst
	// limiter runs.
	Redis redis.Cmdable
	// LocalMedia is served under /media when objects are kept in process.
	LocalMedia *services.MemoryStorage
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	deps   Deps
}

var log = console.New("API-Server")

// NewServer @title Marketplace API
// @version 1.0
// @description B2B marketplace: companies, sourcing proposals, claims and notifications.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	e := echo.New()
	e.HideBanner = true

	// Create custom validator
	e.Validator = validator.NewValidator()

	// Custom error handler
	e.HTTPErrorHandler = envelopeErrorHandler

	// Configure middleware
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentLength},
	}))
	e.Use(echomw.RequestID())
	e.Use(echomw.Secure())
	e.Use(echomw.TimeoutWithConfig(echomw.TimeoutConfig{
		Skipper:      isStream,
		Timeout:      cfg.Server.RequestTimeout,
		ErrorMessage: "Request timed out",
	}))
	e.Use(echomw.GzipWithConfig(echomw.GzipConfig{
		Skipper: isStream,
		Level:   5,
	}))
	// Room for a full set of proposal images plus form fields
	e.Use(echomw.BodyLimit("60M"))

	s := &Server{
		echo:   e,
		config: cfg,
		deps:   deps,
	}

	if err := s.mountAdminPanel(); err != nil {
		log.Warn("Admin panel disabled: %v", err)
	}

	// Register routes
	s.registerRoutes()
	return s, nil
}

func isStream(c echo.Context) bool {
	return c.Request().URL.Path == streamPath
}

// Echo exposes the router, mostly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Start() error {
	log.Success("API server listening on %s", s.config.Server.Addr())
	err := s.echo.Start(s.config.Server.Addr())
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// limiters builds the api and auth window limiters, nil without redis.
func (s *Server) limiters() (api, auth echo.MiddlewareFunc) {
	if s.deps.Redis == nil {
		return nil, nil
	}
	rl := s.config.RateLimit
	api = middleware.RateLimit(
		rate.NewWindowLimiter(s.deps.Redis, rate.Config{Name: "api", RateLimit: rate.RateLimit{Window: rl.Window, Max: rl.APIMax}}),
		middleware.MsgTooManyRequests,
	)
	auth = middleware.RateLimit(
		rate.NewWindowLimiter(s.deps.Redis, rate.Config{Name: "auth", RateLimit: rate.RateLimit{Window: rl.Window, Max: rl.AuthMax}}),
		middleware.MsgTooManyAuthAttempts,
	)
	return api, auth
}

// mountAdminPanel serves the model browser under /admin-panel for
// administrators holding the dashboard permission.
func (s *Server) mountAdminPanel() error {
	resolver := identity.NewResolver(s.deps.DB, s.config.JWT.Secret)
	group := s.echo.Group("/admin-panel", middleware.NewAuthMiddleware(resolver).Optional())

	// Create a new GORM integrator
	gormIntegrator := admingorm.NewIntegrator(s.deps.DB)
	// Create a new Echo integrator
	echoIntegrator := adminecho.NewIntegrator(group)

	permissionChecker := func(request admin.PermissionRequest, ctx interface{}) (bool, error) {
		ac := panelPrincipal(ctx)
		return ac.IsAdmin() && ac.HasAny(models.PermAccessDashboard), nil
	}

	panel, err := admin.NewPanel(gormIntegrator, echoIntegrator, permissionChecker, nil)
	if err != nil {
		return log.Error("Failed to create admin panel", err)
	}

	app, err := panel.RegisterApp("Marketplace", "Marketplace Admin Panel", nil)
	if err != nil {
		return log.Error("Failed to register admin app", err)
	}
	for _, m := range []interface{}{
		&models.Company{},
		&models.SourcingProposal{},
		&models.CompanyClaim{},
		&models.User{},
	} {
		if _, err := app.RegisterModel(m, nil); err != nil {
			log.Warn("Admin panel skips %T: %v", m, err)
		}
	}
	return nil
}

func panelPrincipal(ctx interface{}) *identity.AccessContext {
	switch v := ctx.(type) {
	case echo.Context:
		return middleware.Principal(v)
	case context.Context:
		return identity.FromContext(v)
	}
	return nil
}

// Health check endpoint
func (s *Server) healthCheck(c echo.Context) error {
	status := "healthy"
	code := http.StatusOK
	if sqlDB, err := s.deps.DB.DB(); err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	return handlers.Respond(c, code, status, map[string]interface{}{
		"status":  status,
		"version": "1.0.0",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// renderError maps any handler error to the envelope code, message and data.
func renderError(err error) (int, string, interface{}) {
	var (
		appErr  *apperr.Error
		valErrs validator.ValidationErrors
		httpErr *echo.HTTPError
	)

	switch {
	case errors.As(err, &appErr):
	case errors.As(err, &valErrs):
		return http.StatusUnprocessableEntity, "Validation failed", valErrs.Fields()
	case errors.As(err, &httpErr):
		switch httpErr.Code {
		case http.StatusNotFound:
			return httpErr.Code, "Route not found", nil
		case http.StatusMethodNotAllowed:
			return httpErr.Code, "Method not allowed", nil
		}
		msg, ok := httpErr.Message.(string)
		if !ok || msg == "" {
			msg = http.StatusText(httpErr.Code)
		}
		if httpErr.Code >= http.StatusInternalServerError {
			log.Error("Request failed", err)
		}
		return httpErr.Code, msg, nil
	default:
		appErr = apperr.From(err)
	}

	if appErr.Kind == apperr.Internal {
		log.Error("Internal error", err)
	}
	var data interface{}
	if len(appErr.Fields) > 0 {
		data = appErr.Fields
	}
	return appErr.Kind.Status(), appErr.Message, data
}

func envelopeErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, message, data := renderError(err)
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = handlers.Fail(c, code, message, data)
	}
	if err != nil && !strings.Contains(err.Error(), "broken pipe") {
		log.Warn("Failed to write error response: %v", err)
	}
}
