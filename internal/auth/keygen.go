// Package auth handles the shared API key carried by gateway requests.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// HeaderAPIKey carries the caller's API key. Lookup is case-insensitive.
const HeaderAPIKey = "X-Api-Key"

// KeyBytes is the entropy of generated keys; the text form is hex.
const KeyBytes = 20

// GenerateAPIKey returns a new random key for provisioning.
func GenerateAPIKey() (string, error) {
	b := make([]byte, KeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// KeyFromRequest returns the trimmed API key header, or "" when absent.
func KeyFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderAPIKey))
}
