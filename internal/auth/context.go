package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/models"
)

// contextKey is an unexported type so context values set here cannot
// collide with keys from other packages.
type contextKey string

const userKey contextKey = constants.UserContextKey

// WithUser stores the authenticated user on the request context.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}

// ExtractToken pulls a session token from the Authorization header or,
// failing that, the jwt cookie used by browser clients.
func ExtractToken(r *http.Request) string {
	header := r.Header.Get(constants.HeaderAuthorization)
	if strings.HasPrefix(header, constants.BearerTokenPrefix) {
		token := strings.TrimPrefix(header, constants.BearerTokenPrefix)
		if token != "" {
			return token
		}
	}

	cookie, err := r.Cookie(constants.AuthTokenCookie)
	if err != nil || cookie.Value == constants.LoggedOutCookieValue {
		return ""
	}
	return cookie.Value
}
