// Package model defines domain entities for the application.
package model

import "time"

// KeyStatus is the outcome of checking or consuming an API key's quota.
// Callers must not collapse KeyUnavailable into KeyUnknown: the first is a
// datastore failure, the second a definite answer.
type KeyStatus int

const (
	// KeyUnavailable means the quota store could not be consulted.
	KeyUnavailable KeyStatus = iota
	// KeyValid means the key exists and has uses left.
	KeyValid
	// KeyUnknown means no account carries the key.
	KeyUnknown
	// KeyExhausted means the account exists but has no uses left.
	KeyExhausted
)

// String returns the log label for the status.
func (s KeyStatus) String() string {
	switch s {
	case KeyValid:
		return "valid"
	case KeyUnknown:
		return "unknown"
	case KeyExhausted:
		return "exhausted"
	default:
		return "store_unavailable"
	}
}

// OK reports whether the status permits the gated operation.
func (s KeyStatus) OK() bool {
	return s == KeyValid
}

// Account is a metered API consumer.
type Account struct {
	APIKey    string    `json:"-"`
	UsesLeft  int       `json:"uses_left"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile returns the fields exposed by the /user endpoint, in wire order.
func (a *Account) Profile() []string {
	return []string{a.FirstName, a.LastName, a.Email}
}

// KeyHint returns a log-safe prefix of an API key.
func KeyHint(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
