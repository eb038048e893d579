package handlers

import (
	"marketplace/internal/services"

	"github.com/labstack/echo/v4"
)

type ClaimHandler struct {
	claims *services.ClaimService
}

func NewClaimHandler(claims *services.ClaimService) *ClaimHandler {
	return &ClaimHandler{claims: claims}
}

// Submit files a pending ownership claim on an administrator-created company.
// @Summary Claim a company
// @Tags claims
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.SubmitClaimInput true "Company and message"
// @Success 201 {object} Response{data=models.CompanyClaim}
// @Failure 409 {object} Response "Already claimed or pending"
// @Router /company-claim/submit [post]
func (h *ClaimHandler) Submit(c echo.Context) error {
	var req services.SubmitClaimInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	claim, err := h.claims.Submit(c.Request().Context(), userID(c), req)
	if err != nil {
		return err
	}
	return created(c, "Claim submitted successfully", claim)
}
