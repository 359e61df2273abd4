// Package services contains server-side business logic. This file
// implements AuthService, the session lifecycle engine: registration,
// login, refresh-token rotation, logout, and reclamation of dead
// refresh-token records.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/dbx"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/password"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sessionkeeper/internal/timex"
	"github.com/google/uuid"
)

// TokenSigner is the cryptographic collaborator of the engine. Access
// tokens are stateless; refresh tokens carry the jti of a persisted
// session record.
type TokenSigner interface {
	SignAccessToken(userID string) (string, error)
	SignRefreshToken(userID, jti string) (string, error)
	VerifyRefreshToken(token string) (userID, jti string, err error)
	AccessTokenTTL() time.Duration
}

// AuthResult bundles the credentials returned by a successful login or
// refresh. ExpiresIn is the access-token lifetime in seconds.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthService orchestrates the session token lifecycle. It owns the
// decision of when refresh-token records are created and revoked; all
// durable state lives behind the repositories, and the revoke+insert
// pairs of login and refresh run inside dbx.WithTx.
type AuthService struct {
	db          *sql.DB
	repos       repomanager.RepositoryManager
	signer      TokenSigner
	hasher      password.Hasher
	clock       timex.Clock
	refreshDays int
}

// NewAuthService constructs the engine. refreshDays is the validity
// window of newly issued refresh tokens in days.
func NewAuthService(db *sql.DB, repos repomanager.RepositoryManager, signer TokenSigner,
	hasher password.Hasher, clock timex.Clock, refreshDays int) *AuthService {
	return &AuthService{
		db:          db,
		repos:       repos,
		signer:      signer,
		hasher:      hasher,
		clock:       clock,
		refreshDays: refreshDays,
	}
}

// Register creates a new user and returns its store-assigned id.
// A duplicate email yields common.ErrEmailAlreadyExists.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (string, error) {
	repo := s.repos.Users(s.db)

	_, err := repo.FindByEmail(ctx, input.Email)
	if err == nil {
		return "", common.ErrEmailAlreadyExists
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return "", fmt.Errorf("error looking up user: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}

	user, err := repo.Create(ctx, &models.User{
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
	})
	if err != nil {
		return "", fmt.Errorf("error creating user: %w", err)
	}
	return user.ID, nil
}

// Login verifies the credentials and issues a fresh token pair. An
// unknown email and a wrong password both yield
// common.ErrInvalidCredentials so responses do not reveal which it was.
//
// Revoking the user's prior sessions and inserting the new record run
// as one atomic unit: a partial failure leaves no trace of either.
func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*AuthResult, error) {
	user, err := s.repos.Users(s.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}
	if !s.hasher.Verify(plainPassword, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	jti, err := s.rotateTx(ctx, user.ID, "")
	if err != nil {
		return nil, err
	}
	return s.issuePair(user.ID, jti)
}

// Refresh exchanges a valid refresh token for a new pair, revoking the
// presented one in the same atomic unit that persists its replacement.
// A token that is unknown, revoked, or expired yields
// common.ErrInvalidRefreshToken; a replay of an already-rotated token
// therefore always fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	_, jti, err := s.signer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, common.ErrInvalidRefreshTokenFormat
	}
	if jti == "" {
		return nil, common.ErrInvalidRefreshTokenFormat
	}

	record, err := s.repos.RefreshTokens(s.db).FindByJTI(ctx, jti)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("error looking up refresh token: %w", err)
	}
	if !record.IsValid(s.clock.Now()) {
		return nil, common.ErrInvalidRefreshToken
	}

	newJTI, err := s.rotateTx(ctx, record.UserID, jti)
	if err != nil {
		return nil, err
	}
	return s.issuePair(record.UserID, newJTI)
}

// Logout revokes the session identified by jti, or every session of the
// user when jti is empty. Revocation is idempotent: revoking a missing
// or already-revoked token is not an error.
func (s *AuthService) Logout(ctx context.Context, userID, jti string) error {
	repo := s.repos.RefreshTokens(s.db)
	if jti != "" {
		if err := repo.Revoke(ctx, jti); err != nil {
			return fmt.Errorf("error revoking refresh token: %w", err)
		}
		return nil
	}
	if err := repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("error revoking refresh tokens: %w", err)
	}
	return nil
}

// CurrentUser returns the user record for a verified access-token
// subject. The user may have been deleted after the token was issued;
// that case yields common.ErrUserNotFound.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repos.Users(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}
	return user, nil
}

// SweepRefreshTokens deletes every record that is expired or revoked
// and returns the number reclaimed. Validity decisions are made against
// live records, so reclaiming dead ones never affects an in-flight
// refresh.
func (s *AuthService) SweepRefreshTokens(ctx context.Context) (int64, error) {
	n, err := s.repos.RefreshTokens(s.db).DeleteExpiredOrRevoked(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("error sweeping refresh tokens: %w", err)
	}
	return n, nil
}

// rotateTx retires prior session state and persists a new refresh-token
// record for userID inside one transaction, returning the new jti.
//
// When oldJTI is empty (login) every existing session of the user is
// revoked. Otherwise (refresh) only oldJTI is consumed, via a
// compare-and-revoke update: if another request already spent it, the
// transaction aborts with common.ErrInvalidRefreshToken and the insert
// rolls back with it.
func (s *AuthService) rotateTx(ctx context.Context, userID, oldJTI string) (string, error) {
	newJTI := uuid.NewString()
	now := s.clock.Now()
	expiresAt := s.clock.AddDays(now, s.refreshDays)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.RefreshTokens(tx)

		if oldJTI == "" {
			if err := repo.RevokeAllForUser(ctx, userID); err != nil {
				return fmt.Errorf("error revoking prior sessions: %w", err)
			}
		} else {
			ok, err := repo.RevokeIfActive(ctx, oldJTI, now)
			if err != nil {
				return fmt.Errorf("error consuming refresh token: %w", err)
			}
			if !ok {
				return common.ErrInvalidRefreshToken
			}
		}

		if _, err := repo.Create(ctx, models.NewRefreshToken(newJTI, userID, expiresAt, now)); err != nil {
			return fmt.Errorf("error storing refresh token: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return newJTI, nil
}

func (s *AuthService) issuePair(userID, jti string) (*AuthResult, error) {
	access, err := s.signer.SignAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("error signing access token: %w", err)
	}
	refresh, err := s.signer.SignRefreshToken(userID, jti)
	if err != nil {
		return nil, fmt.Errorf("error signing refresh token: %w", err)
	}
	return &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.signer.AccessTokenTTL().Seconds()),
	}, nil
}
