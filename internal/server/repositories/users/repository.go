// Package users declares the server-side repository contract for user
// identity records.
package users

import (
	"context"

	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
)

// Repository defines persistence operations for users. Email uniqueness
// is enforced by the store, not recomputed by callers.
type Repository interface {
	// Create persists a new user and returns it with the store-assigned id.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// FindByEmail looks a user up by exact email match.
	// Returns common.ErrorNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByID looks a user up by id. Returns common.ErrorNotFound when absent.
	FindByID(ctx context.Context, id string) (*models.User, error)

	// Update overwrites the stored record with the given user.
	Update(ctx context.Context, user *models.User) (*models.User, error)

	// Delete removes a user by id. Returns common.ErrorNotFound when absent.
	Delete(ctx context.Context, id string) error

	// List returns all users ordered by creation time.
	List(ctx context.Context) ([]*models.User, error)
}
