package routes

import (
	"marketplace/internal/api/registry"
	"marketplace/internal/handlers"
	"marketplace/internal/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

func SetupProposalRoutes(api *echo.Group, proposals *handlers.ProposalHandler, comments *handlers.CommentHandler, g Guards) {
	optional := chain(g.Optional)
	protected := chain(g.Authenticate)

	// Public endpoints
	api.GET("/filter-options/sourcing-proposals", proposals.FilterOptions)
	api.GET("/sourcing-proposals/list", proposals.PublicList, optional...)
	api.GET("/sourcing-proposals/:id", proposals.Show, optional...)

	// Owner endpoints
	api.GET("/my/sourcing-proposals", proposals.Mine, protected...)
	api.POST("/my/sourcing-proposals/store", proposals.Store, protected...)
	api.POST("/my/sourcing-proposals/:id/update", proposals.Update, protected...)
	api.DELETE("/my/sourcing-proposals/:id", proposals.Destroy, protected...)
	api.DELETE("/my/sourcing-proposals/:proposalId/images/:mediaId", proposals.DeleteImage, protected...)

	// Comments and replies
	api.POST("/sourcing-proposals/:proposalId/comments", comments.AddComment, protected...)
	api.POST("/sourcing-proposals/comments/:commentId/replies", comments.AddReply, protected...)
	api.DELETE("/sourcing-proposals/comments/:commentId", comments.DeleteComment, protected...)
	api.DELETE("/sourcing-proposals/replies/:replyId", comments.DeleteReply, protected...)
}

func SetupCompanyRoutes(api *echo.Group, db *gorm.DB, companyService *services.CompanyService, companies *handlers.CompanyHandler, g Guards) {
	// Public directory
	api.POST("/company/list", companies.Directory, chain(g.Optional)...)
	api.GET("/company/filter-options", companies.FilterOptions)
	api.GET("/company/:slug", companies.Profile, chain(g.Optional)...)

	my := api.Group("/my/company", chain(g.Authenticate)...)

	my.GET("/list", companies.List)
	my.POST("/store", companies.Store)
	my.GET("/edit/:slug", companies.Edit)
	my.POST("/update/:slug", companies.Update)
	my.POST("/certificates/:slug", companies.Certificates)

	owned := my.Group("/:slug")
	owned.GET("/overview", companies.Overview)
	owned.POST("/overview/store-or-update", companies.SaveOverview)
	owned.GET("/contact", companies.Contact)
	owned.POST("/contact/store-or-update", companies.SaveContact)

	owned.GET("/product", companies.Products)
	owned.POST("/product/store", companies.StoreProduct)
	owned.POST("/product/:product_id/update", companies.UpdateProduct)
	owned.GET("/product/:product_id/delete", companies.DeleteProduct)
	owned.DELETE("/product/:product_id", companies.DeleteProduct)

	owned.GET("/client", companies.Clients)
	owned.POST("/client/store", companies.StoreClient)
	owned.POST("/client/:client_id/update", companies.UpdateClient)
	owned.GET("/client/:client_id/delete", companies.DeleteClient)
	owned.DELETE("/client/:client_id", companies.DeleteClient)

	// FAQs and decision makers
	registry.RegisterCompanyCRUDRoutes(owned, db, companyService)
}

func SetupFavoriteRoutes(api *echo.Group, favorites *handlers.FavoriteHandler, g Guards) {
	protected := chain(g.Authenticate)

	api.GET("/my/favorite", favorites.Companies, protected...)
	api.GET("/my/favorite/:slug", favorites.ToggleCompany, protected...)

	fav := api.Group("/favorites/sourcing-proposals", protected...)
	fav.GET("", favorites.Proposals)
	fav.POST("/:id/add", favorites.Add)
	fav.DELETE("/:id/remove", favorites.Remove)
	fav.POST("/:id/toggle", favorites.Toggle)
}

func SetupClaimRoutes(api *echo.Group, claims *handlers.ClaimHandler, g Guards) {
	api.POST("/company-claim/submit", claims.Submit, chain(g.Authenticate)...)
}

func SetupNotificationRoutes(api *echo.Group, notifications *handlers.NotificationHandler, g Guards) {
	api.GET("/notifications/stream", notifications.Stream, chain(g.Authenticate)...)
}
