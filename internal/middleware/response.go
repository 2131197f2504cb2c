package middleware

import (
	"encoding/json"
	"net/http"
)

// Messages shared with the handler layer.
const (
	MsgInvalidAPIKey = "Invalid API key"
	MsgForbidden     = "Forbidden"
	MsgTooMany       = "Too many requests"
	MsgTooLarge      = "Request body too large"
	MsgInternal      = "Internal server error"
)

type errorEnvelope struct {
	WasSuccessful bool   `json:"wasSuccessful"`
	Error         string `json:"error"`
}

// writeError writes a failure envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: message})
}
