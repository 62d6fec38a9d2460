package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrInvalidRole           = errors.New("invalid role")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrAccountNotFound       = errors.New("account not found")
	ErrAlreadyVerified       = errors.New("email already verified")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrUnknownRole           = errors.New("unknown role")
	ErrUnknownModule         = errors.New("unknown module")
)

// ValidationError reports malformed input field by field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
