package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/vandreio/tourbook/internal/constants"
)

// NormalizeEmail lower-cases and trims an address so lookups and the
// unique email index are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User represents an account. Credential material and account bookkeeping
// are never serialized to JSON.
type User struct {
	ID                   int64      `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	Photo                string     `json:"photo,omitempty"`
	Role                 string     `json:"role"`
	PasswordHash         string     `json:"-"`
	Salt                 string     `json:"-"`
	PasswordChangedAt    *time.Time `json:"-"`
	PasswordResetToken   *string    `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	Active               bool       `json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// Sanitize returns a copy safe to embed in responses. The json tags already
// hide credentials; this additionally guards against accidental logging.
func (u *User) Sanitize() *User {
	clone := *u
	clone.PasswordHash = ""
	clone.Salt = ""
	clone.PasswordResetToken = nil
	clone.PasswordResetExpires = nil
	return &clone
}

// ChangedPasswordAfter reports whether the password was changed after the
// given moment. Tokens issued before a password change are stale.
func (u *User) ChangedPasswordAfter(t time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.After(t)
}

// IsAdmin checks whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == constants.RoleAdmin
}

// GeneratePasswordResetToken creates a single-use reset token. The plain
// token is returned for delivery by email; only its SHA-256 digest is kept
// on the user together with the expiry.
func (u *User) GeneratePasswordResetToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	plain := hex.EncodeToString(raw)
	hashed := HashResetToken(plain)
	expires := time.Now().Add(constants.PasswordResetTokenTTL)

	u.PasswordResetToken = &hashed
	u.PasswordResetExpires = &expires

	return plain, nil
}

// HashResetToken digests a plain reset token the way it is stored.
func HashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// ResetTokenValid reports whether the stored reset token matches the plain
// token and has not expired.
func (u *User) ResetTokenValid(plain string) bool {
	if u.PasswordResetToken == nil || u.PasswordResetExpires == nil {
		return false
	}
	if time.Now().After(*u.PasswordResetExpires) {
		return false
	}
	return *u.PasswordResetToken == HashResetToken(plain)
}

// RegisterRequest is the payload for account creation. Role is never
// client-assignable; new accounts always start as regular users.
type RegisterRequest struct {
	Name            string `json:"name" validate:"required,min=2,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,password"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// LoginRequest is the payload for credential login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateMeRequest is the self-service profile update payload. Password and
// role changes intentionally have no field here.
type UpdateMeRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Photo *string `json:"photo,omitempty"`
}

// UpdateUserRequest is the admin-facing user update payload.
type UpdateUserRequest struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Email  *string `json:"email,omitempty" validate:"omitempty,email"`
	Photo  *string `json:"photo,omitempty"`
	Role   *string `json:"role,omitempty" validate:"omitempty,role"`
	Active *bool   `json:"active,omitempty"`
}

// UpdatePasswordRequest is the payload for a logged-in password change.
type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent" validate:"required"`
	Password        string `json:"password" validate:"required,password"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// ForgotPasswordRequest asks for a reset token by email.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest redeems a reset token for a new password.
type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,password"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}
