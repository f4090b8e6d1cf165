// Package shared holds the response helpers used by every feature handler, so
// error bodies and JSON envelopes stay uniform across the API surface.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "scholar/pkg/domain-errors"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to its HTTP status and writes the uniform
// error body. Internal errors are masked with a generic message.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, dErrors.ToHTTPStatus(dErrors.CodeOf(err)), ErrorResponse{
		Error:   string(dErrors.CodeOf(err)),
		Message: dErrors.MessageOf(err),
		Details: dErrors.DetailsOf(err),
	})
}
