package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AccessTokenVerifier checks a bearer token and returns its subject
// user id.
type AccessTokenVerifier interface {
	VerifyAccessToken(token string) (string, error)
}

const userIDKey = "userID"

// RequireAuth extracts and verifies the Authorization bearer token and
// stores the subject user id in the request locals. Access tokens are
// stateless: a token stays verifiable until its expiry, even if the
// user's sessions were revoked meanwhile.
func RequireAuth(verifier AccessTokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing token"})
		}

		userID, err := verifier.VerifyAccessToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}

		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// currentUserID returns the user id stored by RequireAuth.
func currentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}
