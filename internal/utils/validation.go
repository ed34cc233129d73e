package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/vandreio/tourbook/internal/constants"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator instance. Field names in
// validation errors use the struct's JSON tag so clients see the same
// names they sent.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = validate.RegisterValidation("difficulty", validateDifficulty)
		_ = validate.RegisterValidation("role", validateRole)
		_ = validate.RegisterValidation("password", validatePasswordStrength)
	})
	return validate
}

func validateDifficulty(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case constants.DifficultyEasy, constants.DifficultyMedium, constants.DifficultyDifficult:
		return true
	}
	return false
}

func validateRole(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case constants.RoleUser, constants.RoleGuide, constants.RoleLeadGuide, constants.RoleAdmin:
		return true
	}
	return false
}

// validatePasswordStrength requires at least 8 characters with a letter
// and a digit.
func validatePasswordStrength(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 8 {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// DecodeJSON decodes a request body into dst, enforcing a size cap and
// rejecting unknown fields and trailing garbage.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return NewBadRequestError(fmt.Sprintf("Request body contains malformed JSON (at position %d)", syntaxError.Offset))
		case errors.Is(err, io.ErrUnexpectedEOF):
			return NewBadRequestError("Request body contains malformed JSON")
		case errors.As(err, &unmarshalTypeError):
			return NewValidationError(unmarshalTypeError.Field,
				fmt.Sprintf("Invalid value for the %s field", unmarshalTypeError.Field))
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return NewBadRequestError(fmt.Sprintf("Request body contains unknown field %s", field))
		case errors.Is(err, io.EOF):
			return NewBadRequestError(constants.MsgEmptyRequestBody)
		case errors.As(err, &maxBytesError):
			return NewBadRequestError(constants.MsgRequestBodyTooLarge)
		default:
			return NewBadRequestError("Unable to parse request body")
		}
	}

	if dec.More() {
		return NewBadRequestError("Request body must contain a single JSON object")
	}

	return nil
}

// DecodeAndValidate decodes the request body into dst and runs struct
// validation, returning an AppError on either failure.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := DecodeJSON(w, r, dst); err != nil {
		return err
	}
	return ValidateStruct(dst)
}

// ValidateStruct validates a struct and converts validator failures into
// a single AppError carrying per-field messages.
func ValidateStruct(dst interface{}) error {
	if err := Validator().Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return NewInternalServerError(err)
		}

		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fe.Field()] = validationMessage(fe)
			}
			return NewValidationErrorWithDetails("Invalid input data", details)
		}
		return NewInternalServerError(err)
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required", fe.Field())
	case "email":
		return "Please provide a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must be at least %s characters long", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s", fe.Field(), fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must be at most %s characters long", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("The %s field must be at most %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("The %s field must be %s or more", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("The %s field must be %s or less", fe.Field(), fe.Param())
	case "eqfield":
		return fmt.Sprintf("The %s field must match %s", fe.Field(), fe.Param())
	case "difficulty":
		return "Difficulty must be either easy, medium or difficult"
	case "role":
		return "Role must be one of user, guide, lead-guide or admin"
	case "password":
		return "Password must be at least 8 characters and contain a letter and a digit"
	case "oneof":
		return fmt.Sprintf("The %s field must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid", fe.Field())
	}
}
