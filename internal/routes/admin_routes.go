package routes

import (
	"marketplace/internal/api/middleware"
	"marketplace/internal/handlers"
	"marketplace/internal/models"

	"github.com/labstack/echo/v4"
)

// SetupAdminRoutes mounts the back office. Every route authenticates, then
// requires the administrator role, then the area permission.
func SetupAdminRoutes(api *echo.Group, h *handlers.AdminHandler, g Guards) {
	admin := api.Group("/admin", chain(g.Authenticate, middleware.RequireAdmin())...)

	dashboard := middleware.RequirePermissions(models.PermAccessDashboard)
	accessView := middleware.RequirePermissions(models.PermAccessManagementView)
	accessEdit := middleware.RequirePermissions(models.PermAccessManagementEdit)
	users := middleware.RequirePermissions(models.PermUserManagement)
	moreView := middleware.RequirePermissions(models.PermMoreView)
	moreEdit := middleware.RequirePermissions(models.PermMoreEdit)

	admin.GET("/dashboard", h.Dashboard, dashboard)

	// Roles
	admin.GET("/role-management", h.ListRoles, accessView)
	admin.GET("/role-management/permissions", h.Permissions, accessView)
	admin.GET("/role-management/:id", h.ShowRole, accessView)
	admin.POST("/role-management", h.CreateRole, accessEdit)
	admin.PUT("/role-management/:id", h.UpdateRole, accessEdit)
	admin.DELETE("/role-management/:id", h.DeleteRole, accessEdit)

	// Administrators
	admin.GET("/admin-management", h.ListAdmins, accessView)
	admin.POST("/admin-management", h.CreateAdmin, accessEdit)
	admin.PUT("/admin-management/:id", h.UpdateAdmin, accessEdit)
	admin.DELETE("/admin-management/:id", h.DeleteAdmin, accessEdit)

	// Users
	admin.GET("/user-management", h.ListUsers, users)
	admin.DELETE("/user-management/:id", h.DeleteUser, users)
	admin.PUT("/user-management/:id/password", h.SetPassword, users)
	admin.POST("/user-management/:id/toggle-ban", h.ToggleBan, users)

	// Company claims
	admin.GET("/company-claims", h.ListClaims, moreView)
	admin.POST("/company-claims/:id/status", h.ClaimStatus, moreEdit)

	// Sourcing proposals
	admin.GET("/sourcing-proposals", h.ListProposals, moreView)
	admin.POST("/sourcing-proposals/:id/approve", h.ApproveProposal, moreEdit)
	admin.POST("/sourcing-proposals/:id/reject", h.RejectProposal, moreEdit)
	admin.DELETE("/sourcing-proposals/:id", h.DeleteProposal, moreEdit)
}
