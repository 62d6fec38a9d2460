package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/usermgmt/pkg/httpx"
)

// APIError is a failed envelope. It is used both by the server (to write the
// response) and by the SDK client (to represent the failure).
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Message is the envelope message
	Message string `json:"message"`

	// Fields carries field-level validation messages, if any
	Fields map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%d %s: %s %v", e.StatusCode, http.StatusText(e.StatusCode), e.Message, e.Fields)
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// Is matches another *APIError with the same status code, so callers can
// write errors.Is(err, authsdk.ErrNotFound).
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.StatusCode == e.StatusCode
}

// WriteError writes this error as a failed envelope.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, httpx.Envelope{
		Success: false,
		Message: e.Message,
		Errors:  e.Fields,
	})
}

// ============================================================================
// Predefined Errors
// ============================================================================

var (
	ErrBadRequest = &APIError{
		StatusCode: http.StatusBadRequest,
		Message:    "bad request",
	}

	// ErrUnauthorized is returned for missing or invalid session tokens and
	// for wrong login credentials.
	ErrUnauthorized = &APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "unauthorized",
	}

	// ErrForbidden is returned when the caller lacks the role or permission,
	// and when logging in before verifying the email.
	ErrForbidden = &APIError{
		StatusCode: http.StatusForbidden,
		Message:    "forbidden",
	}

	ErrNotFound = &APIError{
		StatusCode: http.StatusNotFound,
		Message:    "not found",
	}

	// ErrConflict is returned for duplicate emails and already verified accounts.
	ErrConflict = &APIError{
		StatusCode: http.StatusConflict,
		Message:    "conflict",
	}

	ErrTooManyRequests = &APIError{
		StatusCode: http.StatusTooManyRequests,
		Message:    "too many requests",
	}

	// ErrUnavailable is returned by the readiness probe when a dependency
	// check fails.
	ErrUnavailable = &APIError{
		StatusCode: http.StatusServiceUnavailable,
		Message:    "service unavailable",
	}

	ErrServerError = &APIError{
		StatusCode: http.StatusInternalServerError,
		Message:    "internal server error",
	}
)

// NewAPIError creates an APIError with the given status and message.
func NewAPIError(statusCode int, message string) *APIError {
	return &APIError{StatusCode: statusCode, Message: message}
}

// NewValidationError creates a 400 APIError carrying field messages.
func NewValidationError(message string, fields map[string]string) *APIError {
	return &APIError{StatusCode: http.StatusBadRequest, Message: message, Fields: fields}
}

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse turns a non-2xx response into an *APIError. Bodies that
// are not envelopes fall back to the status text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var env Envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    env.Message,
			Fields:     env.Errors,
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}
}
