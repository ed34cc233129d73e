package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vandreio/tourbook/internal/auth"
	"github.com/vandreio/tourbook/internal/config"
	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/models"
	"github.com/vandreio/tourbook/internal/service"
	"github.com/vandreio/tourbook/internal/utils"
)

// AuthHandler serves signup, login and the password lifecycle endpoints.
type AuthHandler struct {
	authService *service.AuthService
	cfg         *config.AppConfig
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService *service.AuthService, cfg *config.AppConfig) *AuthHandler {
	return &AuthHandler{authService: authService, cfg: cfg}
}

// sendTokenCookie sets the jwt session cookie alongside the JSON token.
func (h *AuthHandler) sendTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.AuthTokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.cfg.JWT.CookieExpiry),
		HttpOnly: true,
		Secure:   h.cfg.App.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register handles POST /api/v1/users/signup
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	user, token, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}

	h.sendTokenCookie(w, token)
	utils.JSON(w, http.StatusCreated, "auth", &authResponse{Token: token, User: user.Sanitize()})
}

// Login handles POST /api/v1/users/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	user, token, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}

	h.sendTokenCookie(w, token)
	utils.JSON(w, http.StatusOK, "auth", &authResponse{Token: token, User: user.Sanitize()})
}

// Logout handles GET /api/v1/users/logout. The cookie is overwritten with
// a harmless value instead of deleted so logout works without js access
// to the original cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.AuthTokenCookie,
		Value:    constants.LoggedOutCookieValue,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
	})
	utils.Message(w, http.StatusOK, "Logged out")
}

// ForgotPassword handles POST /api/v1/users/forgotPassword. The response
// is the same whether or not the email belongs to an account.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		utils.Error(w, err)
		return
	}
	utils.Message(w, http.StatusOK, "Token sent to email")
}

// ResetPassword handles PATCH /api/v1/users/resetPassword/{token}
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	plainToken := chi.URLParam(r, constants.ParamToken)
	if plainToken == "" {
		utils.Error(w, utils.NewBadRequestError(constants.MsgResetTokenInvalid))
		return
	}

	var req models.ResetPasswordRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	user, token, err := h.authService.ResetPassword(r.Context(), plainToken, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}

	h.sendTokenCookie(w, token)
	utils.JSON(w, http.StatusOK, "auth", &authResponse{Token: token, User: user.Sanitize()})
}

// UpdateMyPassword handles PATCH /api/v1/users/updateMyPassword
func (h *AuthHandler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		utils.Error(w, utils.NewUnauthorizedError(constants.MsgAuthRequired))
		return
	}

	var req models.UpdatePasswordRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	token, err := h.authService.UpdatePassword(r.Context(), user, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}

	h.sendTokenCookie(w, token)
	utils.JSON(w, http.StatusOK, "auth", &authResponse{Token: token, User: user.Sanitize()})
}
