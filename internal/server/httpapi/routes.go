package httpapi

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the public auth endpoints and the
// token-protected session and user-management endpoints.
func RegisterRoutes(app *fiber.App, ah *AuthHandler, uh *UserHandler, verifier AccessTokenVerifier) {
	api := app.Group("/api/v1")

	api.Post("/auth/register", ah.Register)
	api.Post("/auth/login", ah.Login)
	api.Post("/auth/refresh", ah.Refresh)

	protected := api.Group("", RequireAuth(verifier))
	protected.Post("/auth/logout", ah.Logout)
	protected.Get("/auth/me", ah.Me)

	protected.Post("/users", uh.Create)
	protected.Get("/users", uh.List)
	protected.Get("/users/:id", uh.Get)
	protected.Patch("/users/:id", uh.Update)
	protected.Delete("/users/:id", uh.Delete)
}
