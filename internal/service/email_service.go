package service

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/vandreio/tourbook/internal/config"
	"github.com/vandreio/tourbook/internal/models"
	"github.com/vandreio/tourbook/internal/utils"
)

// EmailSender delivers transactional mail.
type EmailSender interface {
	SendWelcome(user *models.User) error
	SendPasswordReset(user *models.User, resetURL string) error
}

// SendGridEmailService sends mail through SendGrid. When disabled (the
// default outside production) messages are logged instead of sent, which
// keeps local development and tests offline.
type SendGridEmailService struct {
	cfg *config.EmailSettings
}

// NewEmailService creates a new email service.
func NewEmailService(cfg *config.EmailSettings) *SendGridEmailService {
	return &SendGridEmailService{cfg: cfg}
}

// SendWelcome greets a freshly registered user.
func (s *SendGridEmailService) SendWelcome(user *models.User) error {
	subject := "Welcome to the Tourbook family!"
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to Tourbook, we're glad to have you!\n\n- The Tourbook Team",
		user.Name,
	)
	return s.send(user, subject, body)
}

// SendPasswordReset delivers a reset link valid for ten minutes.
func (s *SendGridEmailService) SendPasswordReset(user *models.User, resetURL string) error {
	subject := "Your password reset token (valid for 10 minutes)"
	body := fmt.Sprintf(
		"Forgot your password? Submit a PATCH request with your new password to:\n\n%s\n\n"+
			"If you didn't forget your password, please ignore this email.",
		resetURL,
	)
	return s.send(user, subject, body)
}

func (s *SendGridEmailService) send(user *models.User, subject, body string) error {
	if !s.cfg.Enabled {
		log.Info().
			Str("to", user.Email).
			Str("subject", subject).
			Msg("Email sending disabled, message logged only")
		log.Debug().Str("body", body).Msg("Email body")
		return nil
	}

	from := mail.NewEmail(s.cfg.FromName, s.cfg.FromAddress)
	to := mail.NewEmail(user.Name, user.Email)
	message := mail.NewSingleEmail(from, subject, to, body, "")

	client := sendgrid.NewSendClient(s.cfg.SendGridAPIKey)
	response, err := client.Send(message)
	if err != nil {
		log.Error().Err(err).Str("to", user.Email).Msg("Failed to send email")
		return utils.NewUpstreamError("email", err)
	}
	if response.StatusCode >= 400 {
		log.Error().
			Int("status", response.StatusCode).
			Str("to", user.Email).
			Msg("Email provider rejected message")
		return utils.NewUpstreamError("email", fmt.Errorf("provider returned status %d", response.StatusCode))
	}

	log.Info().Str("to", user.Email).Str("subject", subject).Msg("Email sent")
	return nil
}
