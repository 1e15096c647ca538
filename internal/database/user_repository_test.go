package database

import (
	"database/sql"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewUserRepository(&DB{mockDB}, logger), mock
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "full_name", "email", "role_id", "password_algo", "password_iterations",
		"password_hash", "password_salt", "created_at", "updated_at", "last_login",
	})
}

func TestUserRepositoryCreate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("Maria Silva", "maria@empresa.com", int64(models.RoleAnalyst),
			"pbkdf2_sha256", 600000, "hash", "salt", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	user, err := repo.Create(&models.User{
		FullName:           "Maria Silva",
		Email:              "maria@empresa.com",
		RoleID:             models.RoleAnalyst,
		PasswordAlgo:       "pbkdf2_sha256",
		PasswordIterations: 600000,
		PasswordHash:       "hash",
		PasswordSalt:       "salt",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1 AND is_deleted = false")).
		WithArgs(int64(7)).
		WillReturnRows(userRows().AddRow(
			int64(7), "Maria Silva", "maria@empresa.com", int64(models.RoleAnalyst),
			"pbkdf2_sha256", 600000, "hash", "salt", now, nil, nil,
		))

	user, err := repo.GetByID(7)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "maria@empresa.com", user.Email)
	assert.Equal(t, models.RoleAnalyst, user.RoleID)
	assert.Nil(t, user.LastLogin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnRows(userRows())

	user, err := repo.GetByID(99)
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryGetByEmailIsCaseInsensitive(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE lower(email) = lower($1)")).
		WithArgs("MARIA@empresa.com").
		WillReturnRows(userRows().AddRow(
			int64(7), "Maria Silva", "maria@empresa.com", int64(models.RoleAnalyst),
			"pbkdf2_sha256", 600000, "hash", "salt", now, nil, nil,
		))

	user, err := repo.GetByEmail("MARIA@empresa.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateMissingUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(&models.User{ID: 99, FullName: "Ninguém", Email: "x@x.com"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositorySoftDelete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_deleted = true")).
		WithArgs(sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SoftDelete(7))
	assert.NoError(t, mock.ExpectationsWereMet())
}
