package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

// Envelope is the body of every API response.
type Envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// This is commonly required for sensitive responses like tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// WriteSuccess writes a successful envelope.
func WriteSuccess(w http.ResponseWriter, code int, message string, data any) {
	WriteJSON(w, code, Envelope{Success: true, Message: message, Data: data})
}

// WriteError writes a failed envelope with no data.
func WriteError(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, Envelope{Success: false, Message: message})
}

// WriteValidationError writes a 400 envelope carrying field-level messages.
func WriteValidationError(w http.ResponseWriter, message string, fields map[string]string) {
	WriteJSON(w, http.StatusBadRequest, Envelope{Success: false, Message: message, Errors: fields})
}

// ErrBadJSON is returned by DecodeJSON for unreadable request bodies.
var ErrBadJSON = errors.New("httpx: malformed JSON body")

// DecodeJSON decodes a single JSON object from the request body into dst,
// rejecting unknown fields and trailing data.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", ErrBadJSON)
	}
	return nil
}
