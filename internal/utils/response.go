package utils

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/vandreio/tourbook/internal/constants"
)

// verboseErrors controls whether error responses carry the underlying
// error string. It stays off until development mode is configured.
var verboseErrors bool

// SetErrorVerbosity switches error responses between sanitized and
// verbose bodies. Only development should turn this on.
func SetErrorVerbosity(verbose bool) {
	verboseErrors = verbose
}

// Envelope is the uniform JSON body the API returns. Status is "success"
// for 2xx, "fail" for 4xx and "error" for 5xx. Results carries the element
// count on list responses.
type Envelope struct {
	Status  string      `json:"status"`
	Results *int        `json:"results,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Stack   string      `json:"stack,omitempty"`
}

func statusWord(code int) string {
	switch {
	case code < 400:
		return constants.StatusSuccess
	case code < 500:
		return constants.StatusFail
	default:
		return constants.StatusError
	}
}

// SendJSON writes a JSON response with the given status code
func SendJSON(w http.ResponseWriter, statusCode int, body Envelope) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// JSON sends a success response wrapping data under the given key,
// for example {"status":"success","data":{"tour":{...}}}.
func JSON(w http.ResponseWriter, statusCode int, key string, data interface{}) {
	body := Envelope{Status: statusWord(statusCode)}
	if data != nil {
		if key != "" {
			body.Data = map[string]interface{}{key: data}
		} else {
			body.Data = data
		}
	}
	SendJSON(w, statusCode, body)
}

// JSONList sends a success response for a collection, including the
// results count alongside the data.
func JSONList(w http.ResponseWriter, statusCode int, key string, count int, data interface{}) {
	body := Envelope{
		Status:  statusWord(statusCode),
		Results: &count,
	}
	if key != "" {
		body.Data = map[string]interface{}{key: data}
	} else {
		body.Data = data
	}
	SendJSON(w, statusCode, body)
}

// Message sends a success response carrying only a top-level message,
// for example {"status":"success","message":"Token sent to email"}.
func Message(w http.ResponseWriter, statusCode int, message string) {
	SendJSON(w, statusCode, Envelope{
		Status:  statusWord(statusCode),
		Message: message,
	})
}

// NoContent sends a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error normalizes err through ParseError and writes the matching
// fail/error envelope. In development the response additionally carries
// the raw error string to speed up debugging.
func Error(w http.ResponseWriter, err error) {
	appErr := ParseError(err)

	body := Envelope{
		Status:  statusWord(appErr.StatusCode),
		Message: appErr.Message,
	}

	if verboseErrors {
		if appErr.DevInfo != "" {
			body.Error = appErr.DevInfo
		} else if appErr.Err != nil {
			body.Error = appErr.Err.Error()
		}
	}

	if appErr.StatusCode >= 500 {
		log.Error().
			Err(appErr.Err).
			Str("dev_info", appErr.DevInfo).
			Int("status_code", appErr.StatusCode).
			Msg("Internal error")
	}

	SendJSON(w, appErr.StatusCode, body)
}

// ValidationError writes a 400 response detailing which fields failed
func ValidationError(w http.ResponseWriter, message string, details map[string]string) {
	appErr := NewValidationErrorWithDetails(message, details)
	body := Envelope{
		Status:  constants.StatusFail,
		Message: appErr.Message,
	}
	if len(details) > 0 {
		body.Data = map[string]interface{}{"errors": details}
	}
	SendJSON(w, appErr.StatusCode, body)
}
