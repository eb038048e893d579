package handlers

import (
	"marketplace/internal/services"
	"marketplace/internal/utils/logger"

	"github.com/labstack/echo/v4"
)

// AdminHandler serves /admin. Routes are mounted behind authentication, the
// administrator role and a permission gate.
type AdminHandler struct {
	users     *services.UserService
	roles     *services.RoleService
	proposals *services.ProposalService
	claims    *services.ClaimService
	log       *logger.Logger
}

func NewAdminHandler(users *services.UserService, roles *services.RoleService, proposals *services.ProposalService, claims *services.ClaimService) *AdminHandler {
	return &AdminHandler{
		users:     users,
		roles:     roles,
		proposals: proposals,
		claims:    claims,
		log:       logger.New("AdminHandler"),
	}
}

type reviewRequest struct {
	AdminNotes *string `json:"admin_notes" validate:"omitempty,max=2000"`
}

type claimStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Dashboard returns the back office counters and the newest rows.
// @Summary Admin dashboard
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=services.Dashboard}
// @Router /admin/dashboard [get]
func (h *AdminHandler) Dashboard(c echo.Context) error {
	d, err := h.users.Dashboard(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, "Dashboard data fetched", d)
}

// Roles

func (h *AdminHandler) ListRoles(c echo.Context) error {
	roles, err := h.roles.List(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, "Roles fetched successfully", roles)
}

func (h *AdminHandler) Permissions(c echo.Context) error {
	perms, err := h.roles.Permissions(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, "Permissions fetched successfully", perms)
}

func (h *AdminHandler) ShowRole(c echo.Context) error {
	role, err := h.roles.Show(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, "Role fetched successfully", role)
}

// CreateRole creates a role with the given permission ids.
// @Summary Create a role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.RoleInput true "Role"
// @Success 201 {object} Response{data=models.Role}
// @Router /admin/role-management [post]
func (h *AdminHandler) CreateRole(c echo.Context) error {
	var req services.RoleInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	role, err := h.roles.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return created(c, "Created successfully", role)
}

func (h *AdminHandler) UpdateRole(c echo.Context) error {
	var req services.UpdateRoleInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	role, err := h.roles.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return ok(c, "Updated successfully", role)
}

func (h *AdminHandler) DeleteRole(c echo.Context) error {
	if err := h.roles.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return ok(c, "Deleted successfully", nil)
}

// Admins

func (h *AdminHandler) ListAdmins(c echo.Context) error {
	items, meta, err := h.users.ListAdmins(c.Request().Context(), page(c))
	if err != nil {
		return err
	}
	return paginated(c, "Admins fetched successfully", items, meta)
}

func (h *AdminHandler) CreateAdmin(c echo.Context) error {
	var req services.CreateAdminInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	u, err := h.users.CreateAdmin(c.Request().Context(), req)
	if err != nil {
		return err
	}
	h.log.Info("Admin %s created by %s", u.Email, userID(c))
	return created(c, "Created successfully", u)
}

func (h *AdminHandler) UpdateAdmin(c echo.Context) error {
	var req services.UpdateAdminInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	u, err := h.users.UpdateAdmin(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return ok(c, "Updated successfully", u)
}

func (h *AdminHandler) DeleteAdmin(c echo.Context) error {
	if err := h.users.DeleteAdmin(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return err
	}
	return ok(c, "Deleted successfully", nil)
}

// Users

// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name or email contains"
// @Success 200 {object} Response{data=PageData}
// @Router /admin/user-management [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	items, meta, err := h.users.ListUsers(c.Request().Context(), c.QueryParam("search"), page(c))
	if err != nil {
		return err
	}
	return paginated(c, "Users fetched successfully", items, meta)
}

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	if err := h.users.DeleteUser(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return err
	}
	return ok(c, "Deleted successfully", nil)
}

func (h *AdminHandler) SetPassword(c echo.Context) error {
	var req services.SetPasswordInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	if err := h.users.SetPassword(c.Request().Context(), c.Param("id"), req); err != nil {
		return err
	}
	return ok(c, "Password updated successfully", nil)
}

func (h *AdminHandler) ToggleBan(c echo.Context) error {
	banned, err := h.users.ToggleBan(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return err
	}
	msg := "User unbanned successfully"
	if banned {
		msg = "User banned successfully"
	}
	return ok(c, msg, map[string]bool{"is_banned": banned})
}

// Proposals

func (h *AdminHandler) ListProposals(c echo.Context) error {
	items, meta, err := h.proposals.AdminList(c.Request().Context(), c.QueryParam("status"), page(c))
	if err != nil {
		return err
	}
	return paginated(c, "Proposals fetched successfully", items, meta)
}

// ApproveProposal publishes a pending proposal and notifies its author.
// @Summary Approve a proposal
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Proposal id"
// @Param request body reviewRequest false "Review notes"
// @Success 200 {object} Response{data=models.SourcingProposal}
// @Failure 409 {object} Response "Proposal already reviewed"
// @Router /admin/sourcing-proposals/{id}/approve [post]
func (h *AdminHandler) ApproveProposal(c echo.Context) error {
	var req reviewRequest
	if err := Bind(c, &req); err != nil {
		return err
	}
	p, err := h.proposals.Approve(c.Request().Context(), userID(c), c.Param("id"), req.AdminNotes)
	if err != nil {
		return err
	}
	return ok(c, "Proposal approved successfully", p)
}

func (h *AdminHandler) RejectProposal(c echo.Context) error {
	var req reviewRequest
	if err := Bind(c, &req); err != nil {
		return err
	}
	p, err := h.proposals.Reject(c.Request().Context(), c.Param("id"), req.AdminNotes)
	if err != nil {
		return err
	}
	return ok(c, "Proposal rejected successfully", p)
}

func (h *AdminHandler) DeleteProposal(c echo.Context) error {
	if err := h.proposals.AdminDelete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return ok(c, "Proposal deleted successfully", nil)
}

// Claims

func (h *AdminHandler) ListClaims(c echo.Context) error {
	items, meta, err := h.claims.List(c.Request().Context(), c.QueryParam("status"), page(c))
	if err != nil {
		return err
	}
	return paginated(c, "Claims fetched successfully", items, meta)
}

// ClaimStatus adjudicates a pending claim. Approval transfers the company.
// @Summary Adjudicate a company claim
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Claim id"
// @Param request body claimStatusRequest true "approved, rejected or cancelled"
// @Success 200 {object} Response{data=models.CompanyClaim}
// @Failure 409 {object} Response "Claim already resolved"
// @Router /admin/company-claims/{id}/status [post]
func (h *AdminHandler) ClaimStatus(c echo.Context) error {
	var req claimStatusRequest
	if err := Bind(c, &req); err != nil {
		return err
	}
	claim, err := h.claims.Adjudicate(c.Request().Context(), userID(c), c.Param("id"), req.Status)
	if err != nil {
		return err
	}
	return ok(c, "Claim status updated successfully", claim)
}
