package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vandreio/tourbook/internal/auth"
	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/models"
	"github.com/vandreio/tourbook/internal/repository"
	"github.com/vandreio/tourbook/internal/utils"
)

// AuthService implements registration, login and the password lifecycle.
type AuthService struct {
	users       repository.UserRepository
	jwtService  *auth.JWTService
	passwordCfg *auth.PasswordConfig
	emails      EmailSender
	publicURL   string
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	jwtService *auth.JWTService,
	passwordCfg *auth.PasswordConfig,
	emails EmailSender,
	publicURL string,
) *AuthService {
	return &AuthService{
		users:       users,
		jwtService:  jwtService,
		passwordCfg: passwordCfg,
		emails:      emails,
		publicURL:   publicURL,
	}
}

// Register creates a new account and returns it with a session token. New
// accounts always get the regular user role, whatever the request claimed.
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, string, error) {
	hash, salt, err := auth.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, "", utils.NewInternalServerError(err)
	}

	user := &models.User{
		Name:         req.Name,
		Email:        models.NormalizeEmail(req.Email),
		Role:         constants.RoleUser,
		PasswordHash: hash,
		Salt:         salt,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	if err := s.emails.SendWelcome(user); err != nil {
		// A failed welcome mail should not fail the signup
		log.Warn().Err(err).Int64("user_id", user.ID).Msg("Welcome email failed")
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", utils.NewInternalServerError(err)
	}

	utils.LogAuth("register", user.ID, user.Email, true, "")
	return user, token, nil
}

// Login verifies credentials and returns the user with a session token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, string, error) {
	email := models.NormalizeEmail(req.Email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if utils.IsNotFoundError(err) {
			utils.LogAuth("login", 0, email, false, "unknown email")
			return nil, "", utils.NewInvalidCredentialsError()
		}
		return nil, "", err
	}

	match, err := auth.VerifyPassword(req.Password, user.PasswordHash, user.Salt, s.passwordCfg)
	if err != nil {
		return nil, "", utils.NewInternalServerError(err)
	}
	if !match {
		utils.LogAuth("login", user.ID, user.Email, false, "wrong password")
		return nil, "", utils.NewInvalidCredentialsError()
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", utils.NewInternalServerError(err)
	}

	utils.LogAuth("login", user.ID, user.Email, true, "")
	return user, token, nil
}

// ForgotPassword issues a reset token and mails it. For unknown addresses
// it reports success without doing anything, so the endpoint cannot be used
// to probe which emails exist. If the email cannot be delivered the stored
// token is cleared again.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = models.NormalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if utils.IsNotFoundError(err) {
			log.Info().Str("email", email).Msg("Password reset requested for unknown email")
			return nil
		}
		return err
	}

	plain, err := user.GeneratePasswordResetToken()
	if err != nil {
		return utils.NewInternalServerError(err)
	}
	if err := s.users.SetResetToken(ctx, user.ID, *user.PasswordResetToken, *user.PasswordResetExpires); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/api/v1/users/resetPassword/%s", s.publicURL, plain)
	if err := s.emails.SendPasswordReset(user, resetURL); err != nil {
		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			log.Error().Err(clearErr).Int64("user_id", user.ID).Msg("Failed to clear reset token after email failure")
		}
		return err
	}

	utils.LogAuth("forgot_password", user.ID, user.Email, true, "")
	return nil
}

// ResetPassword redeems a reset token for a new password and returns a
// fresh session token. The credential update clears the reset token and
// stamps the change time, so old sessions and the token itself die here.
func (s *AuthService) ResetPassword(ctx context.Context, plainToken string, req *models.ResetPasswordRequest) (*models.User, string, error) {
	user, err := s.users.GetByResetToken(ctx, models.HashResetToken(plainToken))
	if err != nil {
		return nil, "", err
	}

	hash, salt, err := auth.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, "", utils.NewInternalServerError(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, salt); err != nil {
		return nil, "", err
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", utils.NewInternalServerError(err)
	}

	utils.LogAuth("reset_password", user.ID, user.Email, true, "")
	return user, token, nil
}

// UpdatePassword changes the password of a logged-in user after verifying
// the current one, and returns a fresh session token.
func (s *AuthService) UpdatePassword(ctx context.Context, user *models.User, req *models.UpdatePasswordRequest) (string, error) {
	match, err := auth.VerifyPassword(req.PasswordCurrent, user.PasswordHash, user.Salt, s.passwordCfg)
	if err != nil {
		return "", utils.NewInternalServerError(err)
	}
	if !match {
		utils.LogAuth("update_password", user.ID, user.Email, false, "wrong current password")
		return "", utils.NewUnauthorizedError("Your current password is wrong")
	}

	hash, salt, err := auth.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return "", utils.NewInternalServerError(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, salt); err != nil {
		return "", err
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return "", utils.NewInternalServerError(err)
	}

	utils.LogAuth("update_password", user.ID, user.Email, true, "")
	return token, nil
}
