package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vandreio/tourbook/internal/auth"
	"github.com/vandreio/tourbook/internal/config"
	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/database"
	"github.com/vandreio/tourbook/internal/models"
	"github.com/vandreio/tourbook/internal/utils"
)

// stubUserRepo serves a fixed set of users for middleware tests.
type stubUserRepo struct {
	users map[int64]*models.User
}

func (s *stubUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, utils.NewNotFoundError("user", id)
}

func (s *stubUserRepo) GetByIDAny(ctx context.Context, id int64) (*models.User, error) {
	return s.GetByID(ctx, id)
}

func (s *stubUserRepo) Create(context.Context, *models.User) error { return nil }
func (s *stubUserRepo) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, utils.ErrNotFound
}
func (s *stubUserRepo) GetByResetToken(context.Context, string) (*models.User, error) {
	return nil, utils.ErrNotFound
}
func (s *stubUserRepo) List(context.Context, *database.ListQuery) ([]*models.User, error) {
	return nil, nil
}
func (s *stubUserRepo) Update(context.Context, int64, *models.UpdateUserRequest) (*models.User, error) {
	return nil, nil
}
func (s *stubUserRepo) UpdateProfile(context.Context, int64, *models.UpdateMeRequest) (*models.User, error) {
	return nil, nil
}
func (s *stubUserRepo) UpdatePassword(context.Context, int64, string, string) error { return nil }
func (s *stubUserRepo) SetResetToken(context.Context, int64, string, time.Time) error {
	return nil
}
func (s *stubUserRepo) ClearResetToken(context.Context, int64) error          { return nil }
func (s *stubUserRepo) Deactivate(context.Context, int64) error               { return nil }
func (s *stubUserRepo) Delete(context.Context, int64) error                   { return nil }
func (s *stubUserRepo) ClearExpiredResetTokens(context.Context) (int64, error) { return 0, nil }

func testSetup() (*auth.JWTService, *stubUserRepo) {
	svc := auth.NewJWTService(&config.JWTSettings{
		Secret: "test-secret",
		Expiry: time.Hour,
		Issuer: "tourbook-test",
	})
	repo := &stubUserRepo{users: map[int64]*models.User{
		1: {ID: 1, Email: "leo@example.com", Role: constants.RoleUser, Active: true},
		2: {ID: 2, Email: "ada@example.com", Role: constants.RoleAdmin, Active: true},
	}}
	return svc, repo
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestProtect_ValidToken(t *testing.T) {
	svc, repo := testSetup()

	var seenUser *models.User
	handler := Protect(svc, repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser, _ = auth.UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	token, err := svc.GenerateToken(1, "leo@example.com", constants.RoleUser)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	r.Header.Set(constants.HeaderAuthorization, constants.BearerTokenPrefix+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seenUser)
	assert.Equal(t, int64(1), seenUser.ID)
}

func TestProtect_NoToken(t *testing.T) {
	svc, repo := testSetup()
	handler := Protect(svc, repo)(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"fail"`)
}

func TestProtect_UserNoLongerExists(t *testing.T) {
	svc, repo := testSetup()
	handler := Protect(svc, repo)(okHandler())

	token, err := svc.GenerateToken(99, "ghost@example.com", constants.RoleUser)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	r.Header.Set(constants.HeaderAuthorization, constants.BearerTokenPrefix+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtect_StaleTokenAfterPasswordChange(t *testing.T) {
	svc, repo := testSetup()
	handler := Protect(svc, repo)(okHandler())

	token, err := svc.GenerateToken(1, "leo@example.com", constants.RoleUser)
	require.NoError(t, err)

	// Password changed after the token was issued
	changed := time.Now().Add(time.Minute)
	repo.users[1].PasswordChangedAt = &changed

	r := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	r.Header.Set(constants.HeaderAuthorization, constants.BearerTokenPrefix+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtect_TokenFromCookie(t *testing.T) {
	svc, repo := testSetup()
	handler := Protect(svc, repo)(okHandler())

	token, err := svc.GenerateToken(1, "leo@example.com", constants.RoleUser)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	r.AddCookie(&http.Cookie{Name: constants.AuthTokenCookie, Value: token})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRestrictTo(t *testing.T) {
	svc, repo := testSetup()

	chain := func(roles ...string) http.Handler {
		return Protect(svc, repo)(RestrictTo(roles...)(okHandler()))
	}

	t.Run("allowed role", func(t *testing.T) {
		token, err := svc.GenerateToken(2, "ada@example.com", constants.RoleAdmin)
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodDelete, "/api/v1/tours/1", nil)
		r.Header.Set(constants.HeaderAuthorization, constants.BearerTokenPrefix+token)
		w := httptest.NewRecorder()
		chain(constants.RoleAdmin, constants.RoleLeadGuide).ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("denied role", func(t *testing.T) {
		token, err := svc.GenerateToken(1, "leo@example.com", constants.RoleUser)
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodDelete, "/api/v1/tours/1", nil)
		r.Header.Set(constants.HeaderAuthorization, constants.BearerTokenPrefix+token)
		w := httptest.NewRecorder()
		chain(constants.RoleAdmin, constants.RoleLeadGuide).ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("without protect first", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodDelete, "/api/v1/tours/1", nil)
		w := httptest.NewRecorder()
		RestrictTo(constants.RoleAdmin)(okHandler()).ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestOptionalAuth(t *testing.T) {
	svc, repo := testSetup()

	var seenUser *models.User
	handler := OptionalAuth(svc, repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser, _ = auth.UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("anonymous passes through", func(t *testing.T) {
		seenUser = nil
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, seenUser)
	})

	t.Run("bad token passes through anonymously", func(t *testing.T) {
		seenUser = nil
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: constants.AuthTokenCookie, Value: "garbage"})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, seenUser)
	})

	t.Run("valid token loads user", func(t *testing.T) {
		seenUser = nil
		token, err := svc.GenerateToken(1, "leo@example.com", constants.RoleUser)
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: constants.AuthTokenCookie, Value: token})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		require.NotNil(t, seenUser)
		assert.Equal(t, int64(1), seenUser.ID)
	})
}
