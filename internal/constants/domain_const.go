// Package constants provides shared constant values used throughout the application.
//
// The domain_const.go file defines domain vocabulary for tours, users and
// reviews: role and difficulty enumerations, rating bounds and the reserved
// listing parameters understood by the query builder.
package constants

import "time"

// User roles. Role checks compare against these values.
const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

// Tour difficulties.
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// Rating bounds and defaults for tours and reviews.
const (
	// MinRating is the lowest accepted review rating.
	MinRating = 1.0

	// MaxRating is the highest accepted review rating.
	MaxRating = 5.0

	// DefaultRatingsAverage is a tour's rating before any review exists,
	// and the value it reverts to when the last review is removed.
	DefaultRatingsAverage = 4.5
)

// Reserved Listing Parameters are query parameters consumed by the listing
// pipeline itself and therefore never treated as filter fields.
const (
	QueryParamPage   = "page"
	QueryParamSort   = "sort"
	QueryParamLimit  = "limit"
	QueryParamFields = "fields"
)

// PasswordResetTokenTTL is how long a password reset token stays redeemable.
const PasswordResetTokenTTL = 10 * time.Minute

// Geographic constants for radius queries.
const (
	// EarthRadiusKm is the mean Earth radius in kilometres.
	EarthRadiusKm = 6371.0

	// EarthRadiusMi is the mean Earth radius in miles.
	EarthRadiusMi = 3959.0
)

// Distance units accepted by the tours-within endpoint.
const (
	UnitKilometres = "km"
	UnitMiles      = "mi"
)
