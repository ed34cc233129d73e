package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vandreio/tourbook/internal/auth"
	"github.com/vandreio/tourbook/internal/config"
	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/models"
	"github.com/vandreio/tourbook/internal/service"
)

type noopEmail struct{}

func (noopEmail) SendWelcome(*models.User) error               { return nil }
func (noopEmail) SendPasswordReset(*models.User, string) error { return nil }

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		App: config.AppSettings{Environment: constants.EnvTesting, PublicURL: "http://localhost:8080"},
		JWT: config.JWTSettings{
			Secret:       "handler-test-secret",
			Expiry:       constants.DefaultJWTExpiry,
			CookieExpiry: constants.DefaultJWTCookieExpiry,
			Issuer:       "tourbook-test",
		},
	}
}

func newAuthHandler(repo *stubUserRepo) *AuthHandler {
	cfg := testConfig()
	jwtService := auth.NewJWTService(&cfg.JWT)
	authService := service.NewAuthService(
		repo, jwtService, auth.DefaultPasswordConfig(), noopEmail{}, cfg.App.PublicURL)
	return NewAuthHandler(authService, cfg)
}

func authRouter(h *AuthHandler) chi.Router {
	r := chi.NewRouter()
	r.Post("/users/signup", h.Register)
	r.Post("/users/login", h.Login)
	r.Get("/users/logout", h.Logout)
	r.Post("/users/forgotPassword", h.ForgotPassword)
	r.Patch("/users/resetPassword/{token}", h.ResetPassword)
	return r
}

func jwtCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == constants.AuthTokenCookie {
			return c
		}
	}
	return nil
}

func TestRegister(t *testing.T) {
	repo := newStubUserRepo()
	h := newAuthHandler(repo)

	body := `{
		"name": "Ada Lovelace",
		"email": "ada@example.com",
		"password": "password123",
		"passwordConfirm": "password123"
	}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users/signup", strings.NewReader(body))
	authRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeBody(t, rec)
	assert.Equal(t, "success", resp["status"])
	authData := resp["data"].(map[string]interface{})["auth"].(map[string]interface{})
	assert.NotEmpty(t, authData["token"])

	user := authData["user"].(map[string]interface{})
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, constants.RoleUser, user["role"])
	assert.NotContains(t, user, "password")

	cookie := jwtCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, authData["token"], cookie.Value)
}

func TestRegister_PasswordMismatch(t *testing.T) {
	h := newAuthHandler(newStubUserRepo())

	body := `{
		"name": "Ada Lovelace",
		"email": "ada@example.com",
		"password": "password123",
		"passwordConfirm": "different123"
	}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users/signup", strings.NewReader(body))
	authRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "fail", decodeBody(t, rec)["status"])
}

func TestRegister_IgnoresRequestedRole(t *testing.T) {
	h := newAuthHandler(newStubUserRepo())

	// role is not part of the signup payload, so it is an unknown field
	body := `{
		"name": "Mallory",
		"email": "mallory@example.com",
		"password": "password123",
		"passwordConfirm": "password123",
		"role": "admin"
	}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users/signup", strings.NewReader(body))
	authRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func registerUser(t *testing.T, h *AuthHandler, email, password string) {
	t.Helper()
	body := `{
		"name": "Test User",
		"email": "` + email + `",
		"password": "` + password + `",
		"passwordConfirm": "` + password + `"
	}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users/signup", strings.NewReader(body))
	authRouter(h).ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestLogin(t *testing.T) {
	repo := newStubUserRepo()
	h := newAuthHandler(repo)
	registerUser(t, h, "ada@example.com", "password123")

	body := `{"email": "ada@example.com", "password": "password123"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(body))
	authRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, jwtCookie(rec))
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := newStubUserRepo()
	h := newAuthHandler(repo)
	registerUser(t, h, "ada@example.com", "password123")

	body := `{"email": "ada@example.com", "password": "wrongpass1"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(body))
	authRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, constants.MsgInvalidCredentials, decodeBody(t, rec)["message"])
}

func TestLogin_UnknownEmailSameError(t *testing.T) {
	h := newAuthHandler(newStubUserRepo())

	body := `{"email": "nobody@example.com", "password": "password123"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(body))
	authRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, constants.MsgInvalidCredentials, decodeBody(t, rec)["message"])
}

func TestLogout_OverwritesCookie(t *testing.T) {
	h := newAuthHandler(newStubUserRepo())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/logout", nil)
	authRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	cookie := jwtCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, constants.LoggedOutCookieValue, cookie.Value)
}

func TestForgotPassword_SilentForUnknownEmail(t *testing.T) {
	h := newAuthHandler(newStubUserRepo())

	body := `{"email": "nobody@example.com"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users/forgotPassword", strings.NewReader(body))
	authRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Token sent to email", decodeBody(t, rec)["message"])
}

func TestResetPassword_BadToken(t *testing.T) {
	h := newAuthHandler(newStubUserRepo())

	body := `{"password": "newpassword1", "passwordConfirm": "newpassword1"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/users/resetPassword/deadbeef", strings.NewReader(body))
	authRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
