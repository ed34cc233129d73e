// Package constants provides shared constant values used throughout the application.
//
// The defaults.go file defines default values and limits used throughout the
// application. These constants provide sensible defaults for configuration
// settings and establish boundaries for resource usage.
package constants

import "time"

// Default Pagination Values define the parameters used for paginated listings.
const (
	// DefaultPage is the default page number for listings when not specified.
	DefaultPage = 1

	// DefaultPageLimit is the default number of items per page when not specified.
	DefaultPageLimit = 100

	// MaxPageLimit is the maximum allowable page size to prevent excessive resource usage.
	MaxPageLimit = 500
)

// Default Configuration Values define fallback settings when not specified in configuration.
const (
	// DefaultServerPort is the default HTTP server port.
	DefaultServerPort = 8080

	// DefaultDBMaxConnections is the default maximum number of database connections.
	DefaultDBMaxConnections = 20

	// DefaultDBMinConnections is the default minimum number of database connections.
	DefaultDBMinConnections = 5

	// DefaultLogLevel is the default logging verbosity level.
	DefaultLogLevel = "info"

	// DefaultLogFormat is the default logging output format.
	DefaultLogFormat = "json"
)

// Environment Types define the recognized application running environments.
const (
	// EnvDevelopment identifies a development environment with verbose errors enabled.
	EnvDevelopment = "development"

	// EnvTesting identifies a testing environment for automated tests.
	EnvTesting = "testing"

	// EnvProduction identifies a production environment with sanitized errors.
	EnvProduction = "production"
)

// Request and Upload Limits help prevent resource exhaustion from oversized input.
const (
	// MaxRequestBodySize is the maximum size in bytes for JSON request bodies (1 MB).
	MaxRequestBodySize = 1 << 20

	// MaxUploadSize is the maximum size in bytes for multipart image uploads (10 MB).
	MaxUploadSize = 10 << 20
)

// Timeouts define default durations for server and maintenance operations.
const (
	// DefaultReadTimeout is the default HTTP read timeout.
	DefaultReadTimeout = 10 * time.Second

	// DefaultWriteTimeout is the default HTTP write timeout.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultIdleTimeout is the default HTTP keep-alive idle timeout.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultShutdownTimeout is the default graceful shutdown window.
	DefaultShutdownTimeout = 15 * time.Second

	// MaintenanceInterval is how often background cleanup tasks run.
	MaintenanceInterval = 1 * time.Hour
)

// JWT Defaults define fallback token settings.
const (
	// DefaultJWTExpiry is the default lifetime of an issued token.
	DefaultJWTExpiry = 24 * time.Hour

	// DefaultJWTCookieExpiry is the default lifetime of the jwt cookie.
	DefaultJWTCookieExpiry = 24 * time.Hour

	// DefaultJWTIssuer is the default issuer claim for tokens.
	DefaultJWTIssuer = "tourbook-api"
)

// Password Hashing Defaults define argon2id parameters.
// Development values are deliberately cheaper than production values.
const (
	DefaultPasswordHashMemory      = 64 * 1024
	DefaultPasswordHashIterations  = 3
	DefaultPasswordHashParallelism = 2
	DefaultPasswordHashSaltLength  = 16
	DefaultPasswordHashKeyLength   = 32

	DevPasswordHashMemory     = 16 * 1024
	DevPasswordHashIterations = 1
)

// LogRedactedValue replaces sensitive values in configuration logs.
const LogRedactedValue = "[REDACTED]"
