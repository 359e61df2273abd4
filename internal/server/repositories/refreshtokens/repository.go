// Package refreshtokens declares the server-side repository contract
// for refresh-token session records, keyed by jti.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
)

// Repository defines operations for issuing, retrieving, revoking, and
// reclaiming refresh tokens. Revocation is monotonic: no operation ever
// clears the revoked flag.
type Repository interface {
	// Create stores a new refresh-token record. The record's ID (jti)
	// must be globally unique; the store enforces it.
	Create(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error)

	// FindByJTI looks a record up by its jti.
	// Returns common.ErrorNotFound when absent.
	FindByJTI(ctx context.Context, jti string) (*models.RefreshToken, error)

	// Revoke marks the record with the given jti as revoked. Revoking a
	// missing or already-revoked record is a no-op, not an error.
	Revoke(ctx context.Context, jti string) error

	// RevokeIfActive atomically revokes the record only if it is still
	// valid at the given instant (not revoked, not expired). It reports
	// whether this call performed the revocation. Among concurrent
	// callers presenting the same jti, exactly one observes true.
	RevokeIfActive(ctx context.Context, jti string, now time.Time) (bool, error)

	// RevokeAllForUser revokes every record belonging to the user.
	RevokeAllForUser(ctx context.Context, userID string) error

	// DeleteExpiredOrRevoked permanently removes records that are
	// expired at the given instant or already revoked, and returns the
	// number of rows reclaimed.
	DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int64, error)
}
