package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/portfolio-contact/internal/api/dto"
	apperrors "github.com/spec-kit/portfolio-contact/pkg/util/errorutil"
)

// Authenticator issues admin access tokens.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, time.Time, error)
}

// AuthHandler exposes the admin login.
type AuthHandler struct {
	service Authenticator
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService Authenticator) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Login POST /api/v1/admin/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	token, exp, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{Token: token, ExpiresAt: exp}})
}
