// Package constants provides shared constant values used throughout the application.
//
// The general_const.go file defines headers, cookie names, context keys and
// URL parameter names so that routing and middleware stay consistent.
package constants

// HTTP Headers used by the API.
const (
	HeaderAuthorization       = "Authorization"
	HeaderContentType         = "Content-Type"
	HeaderXRequestID          = "X-Request-ID"
	HeaderXContentTypeOptions = "X-Content-Type-Options"
	HeaderXFrameOptions       = "X-Frame-Options"
	HeaderXXSSProtection      = "X-XSS-Protection"
	HeaderReferrerPolicy      = "Referrer-Policy"
)

// Header values for security middleware.
const (
	ContentTypeJSON            = "application/json"
	ContentTypeOptionsNoSniff  = "nosniff"
	FrameOptionsDeny           = "DENY"
	XSSProtectionModeBlock     = "1; mode=block"
	ReferrerPolicyStrictOrigin = "strict-origin-when-cross-origin"
)

// Authentication transport.
const (
	// BearerTokenPrefix prefixes tokens in the Authorization header.
	BearerTokenPrefix = "Bearer "

	// AuthTokenCookie is the cookie carrying the JWT for browser clients.
	AuthTokenCookie = "jwt"

	// LoggedOutCookieValue replaces the JWT cookie on logout.
	LoggedOutCookieValue = "loggedout"
)

// Context keys for request-scoped values. Stored under a typed key in the
// auth package; these are the underlying names used in logs.
const (
	UserContextKey      = "current_user"
	RequestIDContextKey = "request_id"
)

// URL parameter names used in route definitions.
const (
	ParamID     = "id"
	ParamTourID = "tourID"
	ParamToken  = "token"
	ParamYear   = "year"
	ParamSlug   = "slug"

	ParamDistance = "distance"
	ParamLatLng   = "latlng"
	ParamUnit     = "unit"
)

// APIBasePath is the root path prefix for all versioned API endpoints.
const APIBasePath = "/api/v1"

// HealthPath is the liveness endpoint, excluded from request logging noise.
const HealthPath = "/health"

// VersionPath reports the running build's version information.
const VersionPath = "/version"
