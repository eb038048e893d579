package handlers

import (
	"marketplace/internal/services"
	"marketplace/internal/utils/logger"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	auth *services.AuthService
	log  *logger.Logger
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth, log: logger.New("AuthHandler")}
}

// Register creates a pending account and returns an access token.
// @Summary Register a new user
// @Description Register with name, email, password and an optional user_type (buyer, seller, talent)
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.RegisterInput true "Registration details"
// @Success 200 {object} Response{data=services.AuthResult}
// @Failure 422 {object} Response "Validation error or email exists"
// @Failure 429 {object} Response "Too many attempts"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req services.RegisterInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	h.log.Info("Registered %s", res.Email)
	return ok(c, "Registration successful!", res)
}

// Login validates credentials and returns an access token with the roles.
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.LoginInput true "Credentials"
// @Success 200 {object} Response{data=services.AuthResult}
// @Failure 401 {object} Response "Invalid login credentials"
// @Failure 403 {object} Response "Banned account"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req services.LoginInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return ok(c, "Logged in successfully!", res)
}

// GoogleLogin exchanges a Google access token for an API token.
// @Summary Log in with Google
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.GoogleLoginInput true "Google email and access token"
// @Success 200 {object} Response{data=services.AuthResult}
// @Failure 401 {object} Response "Invalid Google token"
// @Router /auth/google-login [post]
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	var req services.GoogleLoginInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	res, err := h.auth.GoogleLogin(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return ok(c, "Logged in successfully!", res)
}

// User returns the profile of the caller.
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=services.Profile}
// @Router /auth/user [get]
func (h *AuthHandler) User(c echo.Context) error {
	p, err := h.auth.Profile(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return ok(c, "User data fetched successfully", p)
}

// UpdateUser changes profile fields and the optional image.
// @Summary Update profile
// @Tags auth
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param image formData file false "Profile picture"
// @Success 200 {object} Response{data=services.Profile}
// @Router /auth/user [post]
func (h *AuthHandler) UpdateUser(c echo.Context) error {
	var req services.UpdateProfileInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	picture, err := formImage(c, "image")
	if err != nil {
		return err
	}
	p, err := h.auth.UpdateProfile(c.Request().Context(), userID(c), req, picture)
	if err != nil {
		return err
	}
	return ok(c, "Profile updated successfully", p)
}

// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.ChangePasswordInput true "Current and new password"
// @Success 200 {object} Response
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req services.ChangePasswordInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.Request().Context(), userID(c), req); err != nil {
		return err
	}
	return ok(c, "Password changed successfully", nil)
}

// ForgotPassword always answers success so emails cannot be probed.
// @Summary Request a password reset code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.ForgotPasswordInput true "Account email"
// @Success 200 {object} Response
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req services.ForgotPasswordInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.ForgotPassword(c.Request().Context(), req); err != nil {
		return err
	}
	return ok(c, "OTP sent to your email", nil)
}

// @Summary Reset password with a code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.ResetPasswordInput true "Email, code and new password"
// @Success 200 {object} Response
// @Failure 422 {object} Response "Invalid or expired code"
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req services.ResetPasswordInput
	if err := Bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.ResetPassword(c.Request().Context(), req); err != nil {
		return err
	}
	return ok(c, "Password reset successfully", nil)
}

// Logout is stateless; clients drop the token.
func (h *AuthHandler) Logout(c echo.Context) error {
	return ok(c, "Logged out successfully", nil)
}
