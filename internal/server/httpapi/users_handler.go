package httpapi

import (
	"context"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

// UserManager is the slice of the user service consumed by the user
// administration endpoints.
type UserManager interface {
	Create(ctx context.Context, input services.RegisterInput) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, id string, input services.UpdateUserInput) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

type UserHandler struct {
	users  UserManager
	logger logging.Logger
}

func NewUserHandler(users UserManager, logger logging.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger.With("component", "httpapi.users")}
}

func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid input")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}

	user, err := h.users.Create(c.Context(), services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return writeError(c, err)
	}

	h.logger.Info(c.Context(), "user created", "user_id", user.ID)
	return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.Get(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(toUserResponse(user))
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	users, err := h.users.List(c.Context())
	if err != nil {
		return writeError(c, err)
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid input")
	}

	user, err := h.users.Update(c.Context(), c.Params("id"), services.UpdateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(toUserResponse(user))
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.users.Delete(c.Context(), id); err != nil {
		return writeError(c, err)
	}

	h.logger.Info(c.Context(), "user deleted", "user_id", id)
	return c.SendStatus(fiber.StatusNoContent)
}
