package common

import (
	"encoding/json"
	"net/http"
)

// Envelope is the response shape shared by every /api endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK renders a successful envelope around data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// JSONError renders a failed envelope.
func JSONError(w http.ResponseWriter, status int, message string, details any) {
	JSON(w, status, Envelope{Success: false, Error: message, Details: details})
}

// WriteError maps err onto an envelope. AppErrors keep their status, message
// and details; anything else becomes a 500 carrying fallback as the message.
func WriteError(w http.ResponseWriter, err error, fallback string) {
	if appErr, ok := AsAppError(err); ok {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		message := appErr.Message
		if message == "" {
			message = fallback
		}
		JSONError(w, status, message, appErr.Details)
		return
	}
	JSONError(w, http.StatusInternalServerError, fallback, nil)
}
