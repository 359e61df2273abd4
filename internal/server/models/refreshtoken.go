package models

import "time"

// RefreshToken is a persisted session record. ID is the token's jti
// (a random UUID minted by the engine) and acts as the primary key.
//
// Revoked is monotonic: once true it never returns to false. A token
// may be revoked individually (logout, rotation) or in bulk (login
// revokes every prior session of the user).
type RefreshToken struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// NewRefreshToken constructs a fresh, unrevoked record.
func NewRefreshToken(jti, userID string, expiresAt, createdAt time.Time) *RefreshToken {
	return &RefreshToken{
		ID:        jti,
		UserID:    userID,
		ExpiresAt: expiresAt,
		Revoked:   false,
		CreatedAt: createdAt,
	}
}

// IsValid reports whether the token may still be exchanged at the given
// instant: it must not be revoked and its expiry must lie in the future.
func (t *RefreshToken) IsValid(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}
