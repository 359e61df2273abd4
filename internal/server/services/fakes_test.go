package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/dbx"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
	refreshtokensrepo "github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/users"
)

// fixedClock pins the engine's notion of time.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }
func (c *fixedClock) AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

// memUsersRepo is an in-memory users.Repository.
type memUsersRepo struct {
	mu        sync.Mutex
	seq       int
	byID      map[string]*models.User
	now       time.Time
	createErr error
}

func newMemUsersRepo(now time.Time) *memUsersRepo {
	return &memUsersRepo{byID: map[string]*models.User{}, now: now}
}

func (r *memUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.seq++
	u := *user
	u.ID = fmt.Sprintf("u%d", r.seq)
	u.CreatedAt = r.now
	r.byID[u.ID] = &u
	return &u, nil
}

func (r *memUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsersRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, common.ErrorNotFound
}

func (r *memUsersRepo) Update(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[user.ID]; !ok {
		return nil, common.ErrorNotFound
	}
	copied := *user
	r.byID[user.ID] = &copied
	out := copied
	return &out, nil
}

func (r *memUsersRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memUsersRepo) List(ctx context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.User, 0, len(r.byID))
	for _, u := range r.byID {
		copied := *u
		out = append(out, &copied)
	}
	return out, nil
}

// memRefreshRepo is an in-memory refreshtokens.Repository. The mutex
// makes RevokeIfActive a true compare-and-revoke, so concurrent
// rotations of one jti admit exactly one winner.
type memRefreshRepo struct {
	mu        sync.Mutex
	byJTI     map[string]*models.RefreshToken
	createErr error
}

func newMemRefreshRepo() *memRefreshRepo {
	return &memRefreshRepo{byJTI: map[string]*models.RefreshToken{}}
}

func (r *memRefreshRepo) Create(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	copied := *token
	r.byJTI[token.ID] = &copied
	return token, nil
}

func (r *memRefreshRepo) FindByJTI(ctx context.Context, jti string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byJTI[jti]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, common.ErrorNotFound
}

func (r *memRefreshRepo) Revoke(ctx context.Context, jti string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byJTI[jti]; ok {
		t.Revoked = true
	}
	return nil
}

func (r *memRefreshRepo) RevokeIfActive(ctx context.Context, jti string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byJTI[jti]
	if !ok || !t.IsValid(now) {
		return false, nil
	}
	t.Revoked = true
	return true, nil
}

func (r *memRefreshRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byJTI {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (r *memRefreshRepo) DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for jti, t := range r.byJTI {
		if t.Revoked || !t.ExpiresAt.After(now) {
			delete(r.byJTI, jti)
			n++
		}
	}
	return n, nil
}

// get returns the live record without copying; test-only helper.
func (r *memRefreshRepo) get(jti string) *models.RefreshToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byJTI[jti]
}

func (r *memRefreshRepo) all() []*models.RefreshToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.RefreshToken, 0, len(r.byJTI))
	for _, t := range r.byJTI {
		out = append(out, t)
	}
	return out
}

// fakeRM hands the same in-memory repositories to every caller,
// whatever DBTX it is given.
type fakeRM struct {
	users   *memUsersRepo
	refresh *memRefreshRepo
}

func (m *fakeRM) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

func (m *fakeRM) Users(db dbx.DBTX) usersrepo.Repository { return m.users }

func (m *fakeRM) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.refresh }
