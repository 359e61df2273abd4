package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/password"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/repomanager"
)

// UpdateUserInput describes a partial update: nil fields are left
// unchanged. A supplied password is re-hashed before persisting.
type UpdateUserInput struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
}

// UserService provides CRUD over user records for the administrative
// surface. Session-affecting operations live in AuthService.
type UserService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	hasher password.Hasher
}

func NewUserService(db *sql.DB, repos repomanager.RepositoryManager, hasher password.Hasher) *UserService {
	return &UserService{db: db, repos: repos, hasher: hasher}
}

// Create persists a new user. A duplicate email yields
// common.ErrEmailAlreadyExists.
func (s *UserService) Create(ctx context.Context, input RegisterInput) (*models.User, error) {
	repo := s.repos.Users(s.db)

	_, err := repo.FindByEmail(ctx, input.Email)
	if err == nil {
		return nil, common.ErrEmailAlreadyExists
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := repo.Create(ctx, &models.User{
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, nil
}

// Get returns a user by id or common.ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repos.Users(s.db).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}
	return user, nil
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.repos.Users(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return users, nil
}

// Update applies the supplied fields to an existing user. Omitted
// fields keep their stored values. Changing the email to one already in
// use yields common.ErrEmailAlreadyExists.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	repo := s.repos.Users(s.db)

	user, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	if input.Email != nil && *input.Email != user.Email {
		if _, err := repo.FindByEmail(ctx, *input.Email); err == nil {
			return nil, common.ErrEmailAlreadyExists
		} else if !errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("error looking up user: %w", err)
		}
		user.Email = *input.Email
	}
	if input.Password != nil {
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
		user.PasswordHash = hash
	}
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}

	updated, err := repo.Update(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	return updated, nil
}

// Delete removes a user by id or yields common.ErrUserNotFound.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repos.Users(s.db).Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return fmt.Errorf("error deleting user: %w", err)
	}
	return nil
}
