package api

import (
	"net/http"

	"marketplace/internal/api/middleware"
	"marketplace/internal/handlers"
	"marketplace/internal/identity"
	"marketplace/internal/routes"
	"marketplace/internal/services"

	_ "marketplace/docs/swagger"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func (s *Server) registerRoutes() {
	s.echo.GET("/", func(c echo.Context) error {
		return handlers.Respond(c, http.StatusOK, "Marketplace API", nil)
	})
	// Health check
	// @Summary Health check
	// @Description Check if the server and its database are reachable
	// @Produce json
	// @Success 200 {object} handlers.Response
	// @Failure 503 {object} handlers.Response
	// @Router /health [get]
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	if s.deps.LocalMedia != nil {
		routes.SetupMediaRoutes(s.echo, s.deps.LocalMedia)
	}

	apiLimit, authLimit := s.limiters()
	burst := middleware.BurstLimit(s.config.RateLimit.BurstRate, s.config.RateLimit.Burst)

	// API v1 group
	api := s.echo.Group("/api/v1", burst, middleware.IDParams())
	if apiLimit != nil {
		api.Use(apiLimit)
	}

	auth := middleware.NewAuthMiddleware(identity.NewResolver(s.deps.DB, s.config.JWT.Secret))
	guards := routes.Guards{
		Authenticate: auth.Middleware(),
		Optional:     auth.Optional(),
		AuthLimit:    authLimit,
	}

	db := s.deps.DB
	proposalService := services.NewProposalService(db, s.deps.Media, s.deps.Dispatcher)
	claimService := services.NewClaimService(db, s.deps.Dispatcher)
	companyService := services.NewCompanyService(db, s.deps.Media)

	routes.SetupAuthRoutes(api, handlers.NewAuthHandler(s.deps.Auth), guards)
	routes.SetupProposalRoutes(api,
		handlers.NewProposalHandler(proposalService),
		handlers.NewCommentHandler(services.NewCommentService(db, s.deps.Dispatcher)),
		guards,
	)
	routes.SetupCompanyRoutes(api, db, companyService, handlers.NewCompanyHandler(companyService), guards)
	routes.SetupFavoriteRoutes(api, handlers.NewFavoriteHandler(services.NewFavoriteService(db, s.deps.Media)), guards)
	routes.SetupClaimRoutes(api, handlers.NewClaimHandler(claimService), guards)
	if s.deps.Subscriber != nil {
		routes.SetupNotificationRoutes(api, handlers.NewNotificationHandler(s.deps.Subscriber), guards)
	}
	routes.SetupAdminRoutes(api, handlers.NewAdminHandler(
		services.NewUserService(db, s.deps.Media),
		services.NewRoleService(db),
		proposalService,
		claimService,
	), guards)
}
