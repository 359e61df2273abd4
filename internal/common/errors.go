// Package common defines shared sentinel errors used across the server
// and client layers of SessionKeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Credential errors. Unknown email and wrong password are deliberately
	// conflated so that a login response does not reveal whether an
	// account exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrUserNotFound       = errors.New("user not found")

	// Refresh token lifecycle errors.
	ErrInvalidRefreshTokenFormat = errors.New("invalid refresh token format")
	ErrInvalidRefreshToken       = errors.New("invalid refresh token")

	// Access token errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
