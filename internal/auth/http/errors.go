package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/usermgmt/internal/auth/service"
	"github.com/aussiebroadwan/usermgmt/pkg/authsdk"
	"github.com/aussiebroadwan/usermgmt/pkg/httpx"
	"github.com/aussiebroadwan/usermgmt/pkg/slogx"
)

const (
	msgDuplicateEmail     = "Email already registered."
	msgInvalidRole        = "Invalid role. Choose either Admin, Manager, or User."
	msgInvalidCredentials = "Invalid email or password."
	msgNotVerified        = "Please verify your email before logging in."
	msgUserNotFound       = "User not found."
	msgAlreadyVerified    = "Email already verified."
	msgInvalidToken       = "Invalid or expired token."
	msgUnknownRole        = "Role not found."
	msgUnknownModule      = "Module not found."
	msgBadJSON            = "Request body must be a single JSON object."
	msgValidation         = "Validation failed."
)

// writeServiceError maps a service error onto the response envelope.
// Unexpected errors are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteValidationError(w, msgValidation, verr.Fields)
	case errors.Is(err, service.ErrInvalidRole):
		httpx.WriteValidationError(w, msgInvalidRole, map[string]string{"role": "must be Admin, Manager or User"})
	case errors.Is(err, service.ErrInvalidOrExpiredToken):
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidToken)
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, service.ErrEmailNotVerified):
		httpx.WriteError(w, http.StatusForbidden, msgNotVerified)
	case errors.Is(err, service.ErrAccountNotFound):
		httpx.WriteError(w, http.StatusNotFound, msgUserNotFound)
	case errors.Is(err, service.ErrUnknownRole):
		httpx.WriteError(w, http.StatusNotFound, msgUnknownRole)
	case errors.Is(err, service.ErrUnknownModule):
		httpx.WriteError(w, http.StatusNotFound, msgUnknownModule)
	case errors.Is(err, service.ErrDuplicateEmail):
		httpx.WriteError(w, http.StatusConflict, msgDuplicateEmail)
	case errors.Is(err, service.ErrAlreadyVerified):
		httpx.WriteError(w, http.StatusConflict, msgAlreadyVerified)
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

// decodeBody reads a JSON request body, answering 400 itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		slogx.FromContext(r.Context()).Debug("bad request body", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, msgBadJSON)
		return false
	}
	return true
}

// validateBody answers 400 with field errors when fields is non-empty.
func validateBody(w http.ResponseWriter, fields map[string]string) bool {
	if len(fields) == 0 {
		return true
	}
	httpx.WriteValidationError(w, msgValidation, fields)
	return false
}
