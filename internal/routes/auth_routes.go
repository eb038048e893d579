package routes

import (
	"marketplace/internal/handlers"

	"github.com/labstack/echo/v4"
)

func SetupAuthRoutes(api *echo.Group, authHandler *handlers.AuthHandler, g Guards) {
	auth := api.Group("/auth")

	// Public routes, throttled per client
	limited := chain(g.AuthLimit)
	auth.POST("/register", authHandler.Register, limited...)
	auth.POST("/login", authHandler.Login, limited...)
	auth.POST("/google-login", authHandler.GoogleLogin, limited...)
	auth.POST("/forgot-password", authHandler.ForgotPassword, limited...)
	auth.POST("/reset-password", authHandler.ResetPassword, limited...)

	// Protected auth routes (require authentication)
	protected := chain(g.Authenticate)
	auth.GET("/user", authHandler.User, protected...)
	auth.POST("/user", authHandler.UpdateUser, protected...)
	auth.POST("/change-password", authHandler.ChangePassword, protected...)
	auth.GET("/logout", authHandler.Logout, protected...)
}
