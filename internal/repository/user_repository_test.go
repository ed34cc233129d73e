package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vandreio/tourbook/internal/database"
	"github.com/vandreio/tourbook/internal/models"
	"github.com/vandreio/tourbook/internal/utils"
)

func setupUserRepo(t *testing.T) (*PostgresUserRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewUserRepository(database.NewPool(db)), mock
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "email", "photo", "role", "password_hash", "salt",
		"password_changed_at", "password_reset_token", "password_reset_expires",
		"active", "created_at", "updated_at",
	})
}

func TestUserCreate(t *testing.T) {
	repo, mock := setupUserRepo(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("Leo", "leo@example.com", "", "user", "hash", "salt", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(1), now, now))

	user := &models.User{
		Name:         "Leo",
		Email:        "leo@example.com",
		Role:         "user",
		PasswordHash: "hash",
		Salt:         "salt",
	}
	require.NoError(t, repo.Create(context.Background(), user))

	assert.Equal(t, int64(1), user.ID)
	assert.True(t, user.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	repo, mock := setupUserRepo(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(pqError("23505", "users_email_key"))

	err := repo.Create(context.Background(), &models.User{Email: "dup@example.com"})
	require.Error(t, err)
	assert.True(t, utils.IsDuplicateError(err))
}

func TestUserGetByID(t *testing.T) {
	repo, mock := setupUserRepo(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1 AND active = TRUE`).
		WithArgs(int64(1)).
		WillReturnRows(userRows().AddRow(
			int64(1), "Leo", "leo@example.com", "", "user", "hash", "salt",
			nil, nil, nil, true, now, now,
		))

	user, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "leo@example.com", user.Email)
	assert.True(t, user.Active)
}

func TestUserGetByID_NotFound(t *testing.T) {
	repo, mock := setupUserRepo(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1 AND active = TRUE`).
		WithArgs(int64(99)).
		WillReturnRows(userRows())

	_, err := repo.GetByID(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, utils.IsNotFoundError(err))
}

func TestUserGetByIDAny_IncludesDeactivated(t *testing.T) {
	repo, mock := setupUserRepo(t)
	now := time.Now()

	// No active filter on the admin read path
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1$`).
		WithArgs(int64(1)).
		WillReturnRows(userRows().AddRow(
			int64(1), "Leo", "leo@example.com", "", "user", "hash", "salt",
			nil, nil, nil, false, now, now,
		))

	user, err := repo.GetByIDAny(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, user.Active)
}

func TestUserGetByResetToken_Expired(t *testing.T) {
	repo, mock := setupUserRepo(t)

	// The query itself filters on expiry, so an expired token scans no rows
	mock.ExpectQuery(`password_reset_token = \$1 AND password_reset_expires > NOW\(\)`).
		WithArgs("digest").
		WillReturnRows(userRows())

	_, err := repo.GetByResetToken(context.Background(), "digest")
	require.Error(t, err)
	assert.Equal(t, 400, utils.StatusCode(err))
}

func TestUserUpdateProfile_TouchesOnlyProfileColumns(t *testing.T) {
	repo, mock := setupUserRepo(t)
	now := time.Now()

	name := "New Name"
	email := "new@example.com"

	// The generated statement sets exactly name, email and updated_at;
	// password and role columns never appear.
	mock.ExpectQuery(`UPDATE users SET name = \$1, email = \$2, updated_at = NOW\(\) WHERE id = \$3`).
		WithArgs(name, email, int64(1)).
		WillReturnRows(userRows().AddRow(
			int64(1), name, email, "", "user", "hash", "salt",
			nil, nil, nil, true, now, now,
		))

	user, err := repo.UpdateProfile(context.Background(), 1, &models.UpdateMeRequest{
		Name:  &name,
		Email: &email,
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", user.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdate_NormalizesEmail(t *testing.T) {
	repo, mock := setupUserRepo(t)
	now := time.Now()

	email := "Leo.G@Example.COM"

	mock.ExpectQuery(`UPDATE users SET email = \$1, updated_at = NOW\(\) WHERE id = \$2`).
		WithArgs("leo.g@example.com", int64(1)).
		WillReturnRows(userRows().AddRow(
			int64(1), "Leo", "leo.g@example.com", "", "user", "hash", "salt",
			nil, nil, nil, true, now, now,
		))

	user, err := repo.Update(context.Background(), 1, &models.UpdateUserRequest{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "leo.g@example.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdate_NoFields(t *testing.T) {
	repo, _ := setupUserRepo(t)

	_, err := repo.Update(context.Background(), 1, &models.UpdateUserRequest{})
	require.Error(t, err)
	assert.Equal(t, 400, utils.StatusCode(err))
}

func TestUserUpdatePassword_StampsChangeTime(t *testing.T) {
	repo, mock := setupUserRepo(t)

	mock.ExpectExec(`SET password_hash = \$1, salt = \$2, password_changed_at = NOW\(\)`).
		WithArgs("newhash", "newsalt", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePassword(context.Background(), 1, "newhash", "newsalt"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDeactivate(t *testing.T) {
	repo, mock := setupUserRepo(t)

	mock.ExpectExec(`UPDATE users SET active = FALSE`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), 1))
}

func TestUserDeactivate_AlreadyGone(t *testing.T) {
	repo, mock := setupUserRepo(t)

	mock.ExpectExec(`UPDATE users SET active = FALSE`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Deactivate(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, utils.IsNotFoundError(err))
}

func TestClearExpiredResetTokens(t *testing.T) {
	repo, mock := setupUserRepo(t)

	mock.ExpectExec(`SET password_reset_token = NULL`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	cleared, err := repo.ClearExpiredResetTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), cleared)
}
