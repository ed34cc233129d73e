// Package constants provides shared constant values used throughout the application.
//
// The httpcodes.go file defines the response envelope statuses and common
// client-facing messages. The envelope follows the convention that 4xx
// responses report "fail" and 5xx responses report "error".
package constants

// Envelope statuses in API responses.
const (
	// StatusSuccess marks a 2xx response.
	StatusSuccess = "success"

	// StatusFail marks a 4xx response (a client problem).
	StatusFail = "fail"

	// StatusError marks a 5xx response (a server problem).
	StatusError = "error"
)

// Common client-facing messages.
const (
	MsgAuthRequired        = "You are not logged in. Please log in to get access"
	MsgStaleToken          = "User recently changed password. Please log in again"
	MsgUserGone            = "The user belonging to this token no longer exists"
	MsgAccessDenied        = "You do not have permission to perform this action"
	MsgResourceNotFound    = "The requested resource could not be found"
	MsgInternalServerError = "Something went very wrong"
	MsgInvalidCredentials  = "Incorrect email or password"
	MsgTokenExpired        = "Your token has expired. Please log in again"
	MsgInvalidToken        = "Invalid token. Please log in again"
	MsgEmptyRequestBody    = "Request body must not be empty"
	MsgMalformedJSON       = "Request body contains malformed JSON"
	MsgRequestBodyTooLarge = "Request body must not exceed 1MB"
	MsgPageOutOfRange      = "This page does not exist"
	MsgResetTokenInvalid   = "Token is invalid or has expired"
)
