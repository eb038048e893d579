package handlers

import (
	"strconv"

	"marketplace/internal/services"
	"marketplace/internal/utils"

	"github.com/labstack/echo/v4"
)

// CompanyHandler serves the "my company" screens. Every slug route resolves
// the company through CompanyService.MutableCompany, so foreign companies
// answer 404.
type CompanyHandler struct {
	companies *services.CompanyService
}

func NewCompanyHandler(companies *services.CompanyService) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

// Directory lists active companies matching the JSON search body.
// @Summary Search companies
// @Tags companies
// @Accept json
// @Produce json
// @Param request body services.CompanySearch false "Search"
// @Success 200 {object} Response{data=PageData}
// @Router /company/list [post]
func (h *CompanyHandler) Directory(c echo.Context) error {
	var req services.CompanySearch
	if err := Bind(c, &req); err != nil {
		return err
	}
	p := utils.ParsePage(func(key string) string {
		switch key {
		case "page":
			if req.Page > 0 {
				return strconv.Itoa(req.Page)
			}
		case "per_page":
			if req.PerPage != 0 {
				return strconv.Itoa(req.PerPage)
			}
		}
		return c.QueryParam(key)
	})
	items, meta, err := h.companies.PublicList(c.Request().Context(), userID(c), req, p)
	if err != nil {
		return err
	}
	return paginated(c, "Companies fetched successfully", items, meta)
}

// @Summary Company filter options
// @Tags companies
// @Produce json
// @Success 200 {object} Response{data=services.CompanyFilterOptions}
// @Router /company/filter-options [get]
func (h *CompanyHandler) FilterOptions(c echo.Context) error {
	opts, err := h.companies.FilterOptions(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, "Filter options fetched successfully", opts)
}

// Profile returns the public profile of an active company and counts the visit.
// @Summary Company profile
// @Tags companies
// @Produce json
// @Param slug path string true "Company slug"
// @Success 200 {object} Response{data=services.PublicCompany}
// @Failure 404 {object} Response "Company not found"
// @Router /company/{slug} [get]
func (h *CompanyHandler) Profile(c echo.Context) error {
	profile, err := h.companies.Show(c.Request().Context(), userID(c), c.Param("slug"))
	if err != nil {
		return err
	}
	return ok(c, "Company details fetched successfully", profile)
}

type certificatesRequest struct {
	Certificates []string `json:"certificates" validate:"omitempty,dive,uuid"`
}

// @Summary My companies
// @Tags companies
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.Company}
// @Router /my/company/list [get]
func (h *CompanyHandler) List(c echo.Context) error {
	items, err := h.companies.MyList(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return ok(c, "Companies fetched successfully", items)
}

// Store creates a company with its pivots and optional logo.
// @Summary Create a company
// @Tags companies
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param image formData file false "Logo"
// @Success 201 {object} Response{data=models.Company}
// @Router /my/company/store [post]
func (h *CompanyHandler) Store(c echo.Context) error {
	var req services.CreateCompanyInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	logo, err := formImage(c, "image")
	if err != nil {
		return err
	}
	company, err := h.companies.Store(c.Request().Context(), principal(c), req, logo)
	if err != nil {
		return err
	}
	return created(c, "Company created successfully", map[string]string{"id": company.ID, "slug": company.Slug})
}

func (h *CompanyHandler) Edit(c echo.Context) error {
	detail, err := h.companies.Edit(c.Request().Context(), principal(c), c.Param("slug"))
	if err != nil {
		return err
	}
	return ok(c, "Company data fetched successfully", detail)
}

// Update edits the company and returns the possibly regenerated slug.
// @Summary Update a company
// @Tags companies
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Company slug"
// @Param image formData file false "Logo"
// @Success 200 {object} Response{data=map[string]string}
// @Router /my/company/update/{slug} [post]
func (h *CompanyHandler) Update(c echo.Context) error {
	var req services.UpdateCompanyInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	logo, err := formImage(c, "image")
	if err != nil {
		return err
	}
	company, err := h.companies.Update(c.Request().Context(), principal(c), c.Param("slug"), req, logo)
	if err != nil {
		return err
	}
	return ok(c, "Company updated successfully", map[string]string{"slug": company.Slug})
}

func (h *CompanyHandler) Certificates(c echo.Context) error {
	var req certificatesRequest
	if err := Bind(c, &req); err != nil {
		return err
	}
	if err := h.companies.UpdateCertificates(c.Request().Context(), principal(c), c.Param("slug"), req.Certificates); err != nil {
		return err
	}
	return ok(c, "Certificates updated successfully", nil)
}

func (h *CompanyHandler) Overview(c echo.Context) error {
	ov, err := h.companies.Overview(c.Request().Context(), principal(c), c.Param("slug"))
	if err != nil {
		return err
	}
	if ov == nil {
		return ok(c, "No overview found", nil)
	}
	return ok(c, "Overview fetched successfully", ov)
}

func (h *CompanyHandler) SaveOverview(c echo.Context) error {
	var req services.OverviewInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	ov, err := h.companies.SaveOverview(c.Request().Context(), principal(c), c.Param("slug"), req)
	if err != nil {
		return err
	}
	return ok(c, "Overview saved successfully", ov)
}

func (h *CompanyHandler) Contact(c echo.Context) error {
	contact, err := h.companies.Contact(c.Request().Context(), principal(c), c.Param("slug"))
	if err != nil {
		return err
	}
	if contact == nil {
		return ok(c, "No contact found", nil)
	}
	return ok(c, "Contact fetched successfully", contact)
}

func (h *CompanyHandler) SaveContact(c echo.Context) error {
	var req services.ContactInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	contact, err := h.companies.SaveContact(c.Request().Context(), principal(c), c.Param("slug"), req)
	if err != nil {
		return err
	}
	return ok(c, "Contact saved successfully", contact)
}

func (h *CompanyHandler) Products(c echo.Context) error {
	items, err := h.companies.Products(c.Request().Context(), principal(c), c.Param("slug"))
	if err != nil {
		return err
	}
	return ok(c, "Products fetched successfully", items)
}

func (h *CompanyHandler) StoreProduct(c echo.Context) error {
	var req services.ProductInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	image, err := formImage(c, "image")
	if err != nil {
		return err
	}
	p, err := h.companies.StoreProduct(c.Request().Context(), principal(c), c.Param("slug"), req, image)
	if err != nil {
		return err
	}
	return created(c, "Product created successfully", p)
}

func (h *CompanyHandler) UpdateProduct(c echo.Context) error {
	var req services.ProductInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	image, err := formImage(c, "image")
	if err != nil {
		return err
	}
	p, err := h.companies.UpdateProduct(c.Request().Context(), principal(c), c.Param("slug"), c.Param("product_id"), req, image)
	if err != nil {
		return err
	}
	return ok(c, "Product updated successfully", p)
}

func (h *CompanyHandler) DeleteProduct(c echo.Context) error {
	if err := h.companies.DeleteProduct(c.Request().Context(), principal(c), c.Param("slug"), c.Param("product_id")); err != nil {
		return err
	}
	return ok(c, "Product deleted successfully", nil)
}

func (h *CompanyHandler) Clients(c echo.Context) error {
	items, err := h.companies.Clients(c.Request().Context(), principal(c), c.Param("slug"))
	if err != nil {
		return err
	}
	return ok(c, "Clients fetched", items)
}

func (h *CompanyHandler) StoreClient(c echo.Context) error {
	var req services.ClientInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	image, err := formImage(c, "image")
	if err != nil {
		return err
	}
	cl, err := h.companies.StoreClient(c.Request().Context(), principal(c), c.Param("slug"), req, image)
	if err != nil {
		return err
	}
	return created(c, "Client created successfully", cl)
}

func (h *CompanyHandler) UpdateClient(c echo.Context) error {
	var req services.ClientInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	image, err := formImage(c, "image")
	if err != nil {
		return err
	}
	cl, err := h.companies.UpdateClient(c.Request().Context(), principal(c), c.Param("slug"), c.Param("client_id"), req, image)
	if err != nil {
		return err
	}
	return ok(c, "Client updated successfully", cl)
}

func (h *CompanyHandler) DeleteClient(c echo.Context) error {
	if err := h.companies.DeleteClient(c.Request().Context(), principal(c), c.Param("slug"), c.Param("client_id")); err != nil {
		return err
	}
	return ok(c, "Client deleted successfully", nil)
}
