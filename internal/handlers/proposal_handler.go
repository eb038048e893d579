package handlers

import (
	"marketplace/internal/services"

	"github.com/labstack/echo/v4"
)

type ProposalHandler struct {
	proposals *services.ProposalService
}

func NewProposalHandler(proposals *services.ProposalService) *ProposalHandler {
	return &ProposalHandler{proposals: proposals}
}

// FilterOptions lists vocabularies for the proposal filters and forms.
// @Summary Proposal filter options
// @Tags proposals
// @Produce json
// @Success 200 {object} Response{data=services.FilterOptions}
// @Router /filter-options/sourcing-proposals [get]
func (h *ProposalHandler) FilterOptions(c echo.Context) error {
	opts, err := h.proposals.FilterOptions(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, "Filter options fetched successfully", opts)
}

// PublicList returns approved proposals matching the query filters.
// @Summary List approved proposals
// @Tags proposals
// @Produce json
// @Param title query string false "Title contains"
// @Param company_name query string false "Company name contains"
// @Param location_id query string false "Location id"
// @Param currency query string false "Currency code"
// @Param product_category_id query []string false "Product category ids"
// @Param min_price query number false "Minimum price"
// @Param max_price query number false "Maximum price"
// @Param price_range query string false "Price range key, overrides min and max"
// @Param page query int false "Page"
// @Param per_page query int false "Items per page"
// @Success 200 {object} Response{data=PageData}
// @Router /sourcing-proposals/list [get]
func (h *ProposalHandler) PublicList(c echo.Context) error {
	q := c.QueryParams()
	filter := services.ParseProposalFilter(q.Get, func(key string) []string { return q[key] })
	items, meta, err := h.proposals.PublicList(c.Request().Context(), userID(c), filter, page(c))
	if err != nil {
		return err
	}
	return paginated(c, "Proposals fetched successfully", items, meta)
}

// Show returns one proposal with comments and replies. Pending and rejected
// proposals are only visible to their author and administrators.
// @Summary Proposal detail
// @Tags proposals
// @Produce json
// @Param id path string true "Proposal id"
// @Success 200 {object} Response{data=models.SourcingProposal}
// @Failure 404 {object} Response "Proposal not found"
// @Router /sourcing-proposals/{id} [get]
func (h *ProposalHandler) Show(c echo.Context) error {
	p, err := h.proposals.Show(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, "Proposal details fetched successfully", p)
}

// @Summary My proposals
// @Tags proposals
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=PageData}
// @Router /my/sourcing-proposals [get]
func (h *ProposalHandler) Mine(c echo.Context) error {
	items, meta, err := h.proposals.Mine(c.Request().Context(), userID(c), page(c))
	if err != nil {
		return err
	}
	return paginated(c, "My proposals fetched", items, meta)
}

// Store creates a pending proposal with up to ten images.
// @Summary Create a proposal
// @Tags proposals
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param images formData file false "Up to 10 images"
// @Success 201 {object} Response{data=models.SourcingProposal}
// @Failure 422 {object} Response "Validation error"
// @Router /my/sourcing-proposals/store [post]
func (h *ProposalHandler) Store(c echo.Context) error {
	var req services.CreateProposalInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	images, err := formImages(c, "images", MaxProposalImages)
	if err != nil {
		return err
	}
	p, err := h.proposals.Create(c.Request().Context(), userID(c), req, images)
	if err != nil {
		return err
	}
	return created(c, "Proposal created successfully", p)
}

// Update edits an own proposal and sends it back to review.
// @Summary Update a proposal
// @Tags proposals
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Proposal id"
// @Param images formData file false "Images appended to the proposal"
// @Success 200 {object} Response{data=models.SourcingProposal}
// @Router /my/sourcing-proposals/{id}/update [post]
func (h *ProposalHandler) Update(c echo.Context) error {
	var req services.UpdateProposalInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	images, err := formImages(c, "images", MaxProposalImages)
	if err != nil {
		return err
	}
	p, err := h.proposals.Update(c.Request().Context(), userID(c), c.Param("id"), req, images)
	if err != nil {
		return err
	}
	return ok(c, "Proposal updated successfully", p)
}

func (h *ProposalHandler) Destroy(c echo.Context) error {
	if err := h.proposals.Destroy(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return err
	}
	return ok(c, "Proposal deleted successfully", nil)
}

func (h *ProposalHandler) DeleteImage(c echo.Context) error {
	if err := h.proposals.DeleteImage(c.Request().Context(), userID(c), c.Param("proposalId"), c.Param("mediaId")); err != nil {
		return err
	}
	return ok(c, "Image deleted successfully", nil)
}
