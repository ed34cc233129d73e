package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vandreio/tourbook/internal/config"
	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/database"
)

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.AppConfig{
		App: config.AppSettings{
			Environment: constants.EnvTesting,
			Name:        "tourbook",
			Version:     "test",
			PublicURL:   "http://localhost:8080",
		},
		JWT: config.JWTSettings{
			Secret:       "route-test-secret",
			Expiry:       constants.DefaultJWTExpiry,
			CookieExpiry: constants.DefaultJWTCookieExpiry,
			Issuer:       "tourbook-test",
		},
	}

	s := &Server{Config: cfg, Db: database.NewPool(db)}
	s.setupAuthProviders()
	s.setupRepositories()
	s.setupServices()
	require.NoError(t, s.setupHandlers())
	s.SetupRoutes()

	return s, mock
}

func TestHealthRoute(t *testing.T) {
	s, mock := newTestServer(t)

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "test", data["version"])
}

func TestVersionRoute(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data := body["data"].(map[string]interface{})
	assert.Equal(t, constants.EnvTesting, data["environment"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s, _ := newTestServer(t)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodPatch, "/api/v1/users/updateMe"},
		{http.MethodDelete, "/api/v1/users/deleteMe"},
		{http.MethodPatch, "/api/v1/users/updateMyPassword"},
		{http.MethodPost, "/api/v1/tours"},
		{http.MethodPatch, "/api/v1/tours/1"},
		{http.MethodDelete, "/api/v1/tours/1"},
		{http.MethodGet, "/api/v1/tours/monthly-plan/2026"},
		{http.MethodPost, "/api/v1/reviews"},
		{http.MethodGet, "/api/v1/users"},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}"))
		s.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get(constants.HeaderXRequestID))
}

func TestUnknownRoute(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
