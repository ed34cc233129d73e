// Package middleware provides HTTP middleware components.
package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/vandreio/tourbook/internal/auth"
	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/repository"
	"github.com/vandreio/tourbook/internal/utils"
)

// Protect gates a route behind authentication. The token is verified, the
// account must still exist and be active, and tokens issued before the last
// password change are rejected as stale. The loaded user is stored on the
// request context for downstream handlers.
func Protect(jwtService *auth.JWTService, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ExtractToken(r)
			if token == "" {
				utils.Error(w, utils.NewUnauthorizedError(constants.MsgAuthRequired))
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				utils.Error(w, err)
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if utils.IsNotFoundError(err) {
					utils.Error(w, utils.NewUnauthorizedError(constants.MsgUserGone))
					return
				}
				utils.Error(w, err)
				return
			}

			if claims.IssuedAt != nil && user.ChangedPasswordAfter(claims.IssuedAt.Time) {
				utils.Error(w, utils.NewUnauthorizedError(constants.MsgStaleToken))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

// RestrictTo allows only the listed roles through. Must run after Protect.
func RestrictTo(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok {
				utils.Error(w, utils.NewUnauthorizedError(constants.MsgAuthRequired))
				return
			}

			if !allowed[user.Role] {
				log.Warn().
					Int64("user_id", user.ID).
					Str("role", user.Role).
					Str("path", r.URL.Path).
					Msg("Role denied access")
				utils.Error(w, utils.NewForbiddenError(constants.MsgAccessDenied))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// OptionalAuth loads the current user onto the context when a valid token
// is present but never rejects the request. Used by the rendered pages to
// vary navigation for logged-in visitors.
func OptionalAuth(jwtService *auth.JWTService, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ExtractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if claims.IssuedAt != nil && user.ChangedPasswordAfter(claims.IssuedAt.Time) {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}
