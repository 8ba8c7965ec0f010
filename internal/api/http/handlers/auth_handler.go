package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/storyswap/storyswap-api/internal/api/dto"
	"github.com/storyswap/storyswap-api/internal/auth"
	"github.com/storyswap/storyswap-api/internal/domain"
	"github.com/storyswap/storyswap-api/internal/service"
	"github.com/storyswap/storyswap-api/internal/tokens"
)

// AuthHandler exposes registration, login and token lifecycle endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username, email, password required")
	}

	user, pair, err := h.auth.Register(c.UserContext(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrUsernameTaken):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return err
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.AuthResponse{User: userResponse(user), Auth: pair},
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	user, pair, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, service.ErrAccountSuspended):
			return fiber.NewError(http.StatusForbidden, "account suspended")
		default:
			return err
		}
	}

	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{User: userResponse(user), Auth: pair},
	})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.RefreshToken == "" {
		return fiber.NewError(http.StatusBadRequest, "refresh_token required")
	}

	pair, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, tokens.ErrRefreshTokenExpired):
			return fiber.NewError(http.StatusUnauthorized, "refresh token expired")
		case errors.Is(err, tokens.ErrInvalidRefreshToken),
			errors.Is(err, tokens.ErrInvalidTokenClass),
			errors.Is(err, service.ErrInvalidCredentials):
			return fiber.NewError(http.StatusUnauthorized, "invalid refresh token")
		case errors.Is(err, service.ErrAccountSuspended):
			return fiber.NewError(http.StatusForbidden, "account suspended")
		default:
			return err
		}
	}

	return c.JSON(fiber.Map{"data": fiber.Map{"auth": pair}})
}

// Logout handles POST /auth/logout. Stateless tokens make this advisory.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext(), ""); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// VerifyEmail handles POST /auth/email/verify.
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req dto.VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Token == "" {
		return fiber.NewError(http.StatusBadRequest, "token required")
	}

	if err := h.auth.ConfirmEmailVerification(c.UserContext(), req.Token); err != nil {
		if errors.Is(err, tokens.ErrInvalidVerificationToken) {
			return fiber.NewError(http.StatusBadRequest, "invalid or expired verification token")
		}
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"verified": true}})
}

// ResendVerification handles POST /auth/email/resend (authenticated).
func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	if err := h.auth.ResendVerification(c.UserContext(), principal.User.ID); err != nil {
		if errors.Is(err, service.ErrAlreadyVerified) {
			return fiber.NewError(http.StatusConflict, "email already verified")
		}
		return err
	}
	return c.SendStatus(http.StatusAccepted)
}

// ForgotPassword handles POST /auth/password/forgot. Always answers 202 so
// the endpoint cannot confirm whether an address exists.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "email required")
	}

	if err := h.auth.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.SendStatus(http.StatusAccepted)
}

// ResetPassword handles POST /auth/password/reset.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Token == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "token and new_password required")
	}

	if err := h.auth.ConfirmPasswordReset(c.UserContext(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, tokens.ErrInvalidResetToken) {
			return fiber.NewError(http.StatusBadRequest, "invalid or expired reset token")
		}
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ChangePassword handles POST /auth/password/change (authenticated).
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "current_password and new_password required")
	}

	if err := h.auth.ChangePassword(c.UserContext(), principal.User.ID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
		}
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Me handles GET /me (authenticated).
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user": userResponse(principal.User)}})
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		Role:          string(user.Role),
		EmailVerified: user.EmailVerified,
	}
}
