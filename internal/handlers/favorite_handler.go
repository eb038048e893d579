package handlers

import (
	"marketplace/internal/services"

	"github.com/labstack/echo/v4"
)

type FavoriteHandler struct {
	favorites *services.FavoriteService
}

func NewFavoriteHandler(favorites *services.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites}
}

// @Summary Favorite proposals
// @Tags favorites
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=PageData}
// @Router /favorites/sourcing-proposals [get]
func (h *FavoriteHandler) Proposals(c echo.Context) error {
	items, meta, err := h.favorites.List(c.Request().Context(), userID(c), page(c))
	if err != nil {
		return err
	}
	return paginated(c, "Favorite proposals fetched", items, meta)
}

func (h *FavoriteHandler) Add(c echo.Context) error {
	if err := h.favorites.Add(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return err
	}
	return ok(c, "Added to favorites", nil)
}

func (h *FavoriteHandler) Remove(c echo.Context) error {
	if err := h.favorites.Remove(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return err
	}
	return ok(c, "Removed from favorites", nil)
}

// Toggle flips the favorite flag of a proposal and reports the new state.
// @Summary Toggle a favorite proposal
// @Tags favorites
// @Produce json
// @Security BearerAuth
// @Param id path string true "Proposal id"
// @Success 200 {object} Response{data=map[string]bool}
// @Router /favorites/sourcing-proposals/{id}/toggle [post]
func (h *FavoriteHandler) Toggle(c echo.Context) error {
	on, err := h.favorites.Toggle(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return err
	}
	msg := "Removed from favorites"
	if on {
		msg = "Added to favorites"
	}
	return ok(c, msg, map[string]bool{"is_favorited": on})
}

// Companies lists the caller's favorite companies.
func (h *FavoriteHandler) Companies(c echo.Context) error {
	items, meta, err := h.favorites.ListCompanies(c.Request().Context(), userID(c), page(c))
	if err != nil {
		return err
	}
	return paginated(c, "Favorites fetched successfully", items, meta)
}

func (h *FavoriteHandler) ToggleCompany(c echo.Context) error {
	on, err := h.favorites.ToggleCompany(c.Request().Context(), userID(c), c.Param("slug"))
	if err != nil {
		return err
	}
	msg := "Removed from favorites"
	if on {
		msg = "Added to favorites"
	}
	return ok(c, msg, map[string]bool{"is_favorite": on})
}
