package registry

import (
	"github.com/labstack/echo/v4"

	"marketplace/internal/api/controllers"
	"marketplace/internal/models"
	"marketplace/internal/services"

	"gorm.io/gorm"
)

// RegisterCompanyCRUDRoutes registers the generic CRUD routes of rows owned by
// a company. g must already be authenticated and carry the :slug parameter.
func RegisterCompanyCRUDRoutes(g *echo.Group, db *gorm.DB, companies controllers.CompanyResolver) {
	// FAQs
	faqService := services.NewBaseService[models.CompanyFAQ](db, "FAQ not found")
	faqController := controllers.NewBaseController(companies, faqService, "FAQ", "FAQs")

	// @Summary Company FAQs
	// @Description List, create, update and delete the FAQs of an owned company
	// @Tags companies
	// @Accept json
	// @Produce json
	// @Security BearerAuth
	// @Param slug path string true "Company slug"
	// @Success 200 {object} handlers.Response{data=[]models.CompanyFAQ}
	// @Failure 404 {object} handlers.Response "Company not found"
	// @Router /my/company/{slug}/faq [get]
	faqController.RegisterRoutes(g, "/faq")

	// Decision makers
	dmService := services.NewBaseService[models.DecisionMaker](db, "Decision maker not found")
	dmController := controllers.NewBaseController(companies, dmService, "Decision maker", "Decision makers")

	// @Summary Company decision makers
	// @Description List, create, update and delete the decision makers of an owned company
	// @Tags companies
	// @Accept json
	// @Produce json
	// @Security BearerAuth
	// @Param slug path string true "Company slug"
	// @Success 200 {object} handlers.Response{data=[]models.DecisionMaker}
	// @Router /my/company/{slug}/decision-maker [get]
	dmController.RegisterRoutes(g, "/decision-maker")
}
