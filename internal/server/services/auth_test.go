package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/auth"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/password"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const refreshDays = 14

type engineFixture struct {
	svc     *AuthService
	users   *memUsersRepo
	refresh *memRefreshRepo
	signer  *auth.TokenService
	clock   *fixedClock
	mock    sqlmock.Sqlmock
	db      *sql.DB
}

func newEngine(t *testing.T) *engineFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	users := newMemUsersRepo(clock.now)
	refresh := newMemRefreshRepo()
	signer := auth.NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 14*24*time.Hour)
	hasher := password.NewBcryptHasher(bcrypt.MinCost)

	svc := NewAuthService(db, &fakeRM{users: users, refresh: refresh}, signer, hasher, clock, refreshDays)
	return &engineFixture{svc: svc, users: users, refresh: refresh, signer: signer, clock: clock, mock: mock, db: db}
}

func (f *engineFixture) register(t *testing.T, email, pw string) string {
	t.Helper()
	id, err := f.svc.Register(context.Background(), RegisterInput{
		Email: email, Password: pw, FirstName: "Alice", LastName: "Liddell",
	})
	require.NoError(t, err)
	return id
}

// expectTx queues expectations for one committed atomic unit.
func (f *engineFixture) expectTx() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

// expectFailedTx queues expectations for one rolled-back atomic unit.
func (f *engineFixture) expectFailedTx() {
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
}

func TestRegister_Success(t *testing.T) {
	f := newEngine(t)

	id := f.register(t, "alice@example.com", "Secret123!")
	assert.NotEmpty(t, id)

	stored, err := f.users.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123!", stored.PasswordHash, "password must be stored hashed")
	assert.Equal(t, "Alice", stored.FirstName)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newEngine(t)
	f.register(t, "alice@example.com", "Secret123!")

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email: "alice@example.com", Password: "other",
	})
	assert.ErrorIs(t, err, common.ErrEmailAlreadyExists)
}

func TestLogin_InvalidCredentialsAreIndistinguishable(t *testing.T) {
	f := newEngine(t)
	f.register(t, "alice@example.com", "Secret123!")

	_, errUnknown := f.svc.Login(context.Background(), "nobody@example.com", "Secret123!")
	_, errWrongPw := f.svc.Login(context.Background(), "alice@example.com", "wrong")

	assert.ErrorIs(t, errUnknown, common.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPw, common.ErrInvalidCredentials)
	assert.Equal(t, errUnknown, errWrongPw, "failure must not reveal which check failed")
}

func TestLogin_IssuesTokenPair(t *testing.T) {
	f := newEngine(t)
	userID := f.register(t, "alice@example.com", "Secret123!")
	f.expectTx()

	result, err := f.svc.Login(context.Background(), "alice@example.com", "Secret123!")
	require.NoError(t, err)

	assert.Equal(t, int64(900), result.ExpiresIn, "access token lifetime is 15 minutes")

	gotUser, err := f.signer.VerifyAccessToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, gotUser)

	gotUser, jti, err := f.signer.VerifyRefreshToken(result.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, userID, gotUser)

	record := f.refresh.get(jti)
	require.NotNil(t, record, "refresh token must be backed by a persisted record")
	assert.Equal(t, userID, record.UserID)
	assert.False(t, record.Revoked)
	assert.Equal(t, f.clock.now.AddDate(0, 0, refreshDays), record.ExpiresAt)

	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestLogin_RevokesPriorSessions(t *testing.T) {
	f := newEngine(t)
	f.register(t, "alice@example.com", "Secret123!")
	f.expectTx()
	f.expectTx()

	first, err := f.svc.Login(context.Background(), "alice@example.com", "Secret123!")
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), "alice@example.com", "Secret123!")
	require.NoError(t, err)

	// Single active session: the first login's refresh token is dead.
	_, err = f.svc.Refresh(context.Background(), first.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidRefreshToken)
}

func TestRefresh_RotatesAndInvalidatesOld(t *testing.T) {
	f := newEngine(t)
	f.register(t, "alice@example.com", "Secret123!")
	f.expectTx()

	login, err := f.svc.Login(context.Background(), "alice@example.com", "Secret123!")
	require.NoError(t, err)

	f.expectTx()
	rotated, err := f.svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken, "rotation must issue a different token")
	assert.Equal(t, int64(900), rotated.ExpiresIn)

	// Replaying the consumed token fails: its record is now revoked.
	_, err = f.svc.Refresh(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidRefreshToken)

	// The replacement still works.
	f.expectTx()
	_, err = f.svc.Refresh(context.Background(), rotated.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_SingleUseUnderConcurrency(t *testing.T) {
	const n = 8

	f := newEngine(t)
	f.register(t, "alice@example.com", "Secret123!")
	f.expectTx()

	login, err := f.svc.Login(context.Background(), "alice@example.com", "Secret123!")
	require.NoError(t, err)

	// Every contender opens a transaction; exactly one commits.
	f.mock.MatchExpectationsInOrder(false)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	for i := 0; i < n-1; i++ {
		f.mock.ExpectBegin()
		f.mock.ExpectRollback()
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Refresh(context.Background(), login.RefreshToken)
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		require.ErrorIs(t, err, common.ErrInvalidRefreshToken)
		losses++
	}
	assert.Equal(t, 1, wins, "exactly one concurrent refresh may succeed")
	assert.Equal(t, n-1, losses)
}

func TestRefresh_ExpiredRecord(t *testing.T) {
	f := newEngine(t)
	userID := f.register(t, "alice@example.com", "Secret123!")

	// Record constructed directly with an expiry in the past.
	jti := "expired-jti"
	expired := models.NewRefreshToken(jti, userID, f.clock.now.Add(-time.Hour), f.clock.now.AddDate(0, 0, -15))
	_, err := f.refresh.Create(context.Background(), expired)
	require.NoError(t, err)
	assert.False(t, expired.IsValid(f.clock.now))

	token, err := f.signer.SignRefreshToken(userID, jti)
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrInvalidRefreshToken)
}

func TestRefresh_UnknownJTI(t *testing.T) {
	f := newEngine(t)
	userID := f.register(t, "alice@example.com", "Secret123!")

	token, err := f.signer.SignRefreshToken(userID, "never-stored")
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrInvalidRefreshToken)
}

func TestRefresh_MalformedToken(t *testing.T) {
	f := newEngine(t)

	_, err := f.svc.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, common.ErrInvalidRefreshTokenFormat)
}

func TestRefresh_MissingJTI(t *testing.T) {
	f := newEngine(t)
	userID := f.register(t, "alice@example.com", "Secret123!")

	// Structurally valid token whose jti claim is empty.
	token, err := f.signer.SignRefreshToken(userID, "")
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrInvalidRefreshTokenFormat)
}

func TestLogout_SingleSessionIsIdempotent(t *testing.T) {
	f := newEngine(t)
	userID := f.register(t, "alice@example.com", "Secret123!")
	f.expectTx()

	login, err := f.svc.Login(context.Background(), "alice@example.com", "Secret123!")
	require.NoError(t, err)
	_, jti, err := f.signer.VerifyRefreshToken(login.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), userID, jti))
	assert.True(t, f.refresh.get(jti).Revoked)

	// Second logout with the same jti is a no-op, not an error.
	require.NoError(t, f.svc.Logout(context.Background(), userID, jti))
	assert.True(t, f.refresh.get(jti).Revoked, "revocation is monotonic")

	// Logging out an unknown jti is equally harmless.
	require.NoError(t, f.svc.Logout(context.Background(), userID, "unknown-jti"))
}

func TestLogout_AllSessions(t *testing.T) {
	f := newEngine(t)
	userID := f.register(t, "alice@example.com", "Secret123!")
	f.expectTx()

	_, err := f.svc.Login(context.Background(), "alice@example.com", "Secret123!")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), userID, ""))

	for _, rec := range f.refresh.all() {
		assert.True(t, rec.Revoked)
	}
}

func TestCurrentUser(t *testing.T) {
	f := newEngine(t)
	userID := f.register(t, "alice@example.com", "Secret123!")

	user, err := f.svc.CurrentUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	_, err = f.svc.CurrentUser(context.Background(), "deleted-user")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestSweepRefreshTokens(t *testing.T) {
	f := newEngine(t)
	now := f.clock.now

	seed := []*models.RefreshToken{
		models.NewRefreshToken("live", "u1", now.Add(time.Hour), now),
		models.NewRefreshToken("expired", "u1", now.Add(-time.Hour), now),
		{ID: "revoked", UserID: "u1", ExpiresAt: now.Add(time.Hour), Revoked: true, CreatedAt: now},
	}
	for _, rec := range seed {
		_, err := f.refresh.Create(context.Background(), rec)
		require.NoError(t, err)
	}

	n, err := f.svc.SweepRefreshTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.NotNil(t, f.refresh.get("live"), "valid records survive the sweep")
	assert.Nil(t, f.refresh.get("expired"))
	assert.Nil(t, f.refresh.get("revoked"))
}

// TestRefresh_RollsBackWhenInsertFails drives the engine through real
// PostgreSQL repositories against sqlmock: the revoke succeeds, the
// insert fails, and the transaction must roll back so the consumed
// token's revocation is never committed.
func TestRefresh_RollsBackWhenInsertFails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	clock := &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	signer := auth.NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 14*24*time.Hour)
	rm := &repomanager.PostgresRepositoryManager{}
	svc := NewAuthService(db, rm, signer, password.NewBcryptHasher(bcrypt.MinCost), clock, refreshDays)

	const jti = "11111111-1111-1111-1111-111111111111"
	token, err := signer.SignRefreshToken("u1", jti)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT\s+id,\s*user_id,\s*expires_at,\s*revoked,\s*created_at\s+FROM\s+refresh_tokens`).
		WithArgs(jti).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "expires_at", "revoked", "created_at"}).
			AddRow(jti, "u1", clock.now.Add(time.Hour), false, clock.now))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE\s+refresh_tokens\s+SET\s+revoked\s*=\s*TRUE\s+WHERE\s+id\s*=\s*\$1\s+AND\s+revoked\s*=\s*FALSE`).
		WithArgs(jti, clock.now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+refresh_tokens`).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err = svc.Refresh(context.Background(), token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrInvalidRefreshToken,
		"a storage failure must propagate unchanged, not masquerade as token rejection")

	require.NoError(t, mock.ExpectationsWereMet(), "revoke must never commit without its paired insert")
}
