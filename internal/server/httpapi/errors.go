package httpapi

import (
	"errors"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/gofiber/fiber/v2"
)

// writeError maps an engine failure to a transport status. The engine's
// failure values carry no transport semantics; this is the only place
// that translation happens.
func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidRefreshTokenFormat),
		errors.Is(err, common.ErrInvalidRefreshToken),
		errors.Is(err, common.ErrorUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	case errors.Is(err, common.ErrEmailAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, common.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
