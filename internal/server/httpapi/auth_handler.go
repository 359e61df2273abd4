// Package httpapi is the HTTP presentation boundary: it turns requests
// into engine calls and maps results or typed failures back to
// responses. No lifecycle decisions are made here.
package httpapi

import (
	"context"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

// AuthEngine is the slice of the session lifecycle engine consumed by
// the auth endpoints.
type AuthEngine interface {
	Register(ctx context.Context, input services.RegisterInput) (string, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.AuthResult, error)
	Logout(ctx context.Context, userID, jti string) error
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
}

type AuthHandler struct {
	auth   AuthEngine
	logger logging.Logger
}

func NewAuthHandler(auth AuthEngine, logger logging.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger.With("component", "httpapi.auth")}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid input")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}

	id, err := h.auth.Register(c.Context(), services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.logger.Warn(c.Context(), "registration failed", "email", req.Email, "err", err.Error())
		return writeError(c, err)
	}

	h.logger.Info(c.Context(), "user registered", "user_id", id)
	return c.Status(fiber.StatusCreated).JSON(registerResponse{ID: id})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid input")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}

	result, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(authResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresIn:    result.ExpiresIn,
	})
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid input")
	}
	if req.RefreshToken == "" {
		return badRequest(c, "refreshToken is required")
	}

	result, err := h.auth.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(authResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresIn:    result.ExpiresIn,
	})
}

// Logout revokes one session of the caller when a jti is supplied, or
// all of them otherwise. Both variants are idempotent.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req logoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid input")
		}
	}

	userID := currentUserID(c)
	if err := h.auth.Logout(c.Context(), userID, req.JTI); err != nil {
		h.logger.Error(c.Context(), "logout failed", "user_id", userID, "err", err.Error())
		return writeError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.auth.CurrentUser(c.Context(), currentUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(toUserResponse(user))
}
