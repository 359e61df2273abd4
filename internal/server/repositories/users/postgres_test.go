package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "email", "password_hash", "first_name", "last_name", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestCreate_ReturnsAssignedID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT\s+INTO\s+users\b.*RETURNING\s+id,\s*created_at`).
		WithArgs("alice@example.com", "hash", "Alice", "Liddell").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("u1", now))

	user, err := repo.Create(context.Background(), &models.User{
		Email:        "alice@example.com",
		PasswordHash: "hash",
		FirstName:    "Alice",
		LastName:     "Liddell",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, now, user.CreatedAt)
}

func TestFindByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT\s+.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1`).
			WithArgs("alice@example.com").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow("u1", "alice@example.com", "hash", "Alice", "Liddell", time.Now()))

		user, err := repo.FindByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
	})

	t.Run("absent", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(`FROM\s+users\s+WHERE\s+email`).
			WithArgs("nobody@example.com").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdate(t *testing.T) {
	user := &models.User{
		ID: "u1", Email: "alice@example.com", PasswordHash: "hash",
		FirstName: "Alice", LastName: "Liddell",
	}

	t.Run("success", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE\s+users\s+SET\s+email`).
			WithArgs("u1", "alice@example.com", "hash", "Alice", "Liddell").
			WillReturnResult(sqlmock.NewResult(0, 1))

		got, err := repo.Update(context.Background(), user)
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("missing row", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE\s+users\s+SET\s+email`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := repo.Update(context.Background(), user)
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestDelete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(`DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
			WithArgs("u1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Delete(context.Background(), "u1"))
	})

	t.Run("missing row", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(`DELETE\s+FROM\s+users`).
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), "missing")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT\s+.*FROM\s+users\s+ORDER\s+BY\s+created_at`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u1", "a@example.com", "h1", "A", "One", now).
			AddRow("u2", "b@example.com", "h2", "B", "Two", now))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "u1", got[0].ID)
	assert.Equal(t, "u2", got[1].ID)
}

func TestList_RowError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(userColumns).
		AddRow("u1", "a@example.com", "h1", "A", "One", time.Now()).
		RowError(0, errors.New("read failed"))

	mock.ExpectQuery(`FROM\s+users`).WillReturnRows(rows)

	_, err := repo.List(context.Background())
	assert.Error(t, err)
}
