package models

import "strings"

// You is the sentinel participant id for the local user.
const You = "you"

// Friend represents a counterparty the user splits expenses with.
type Friend struct {
	// ID is the unique identifier for the friend (UUID format).
	ID string `json:"id"`

	// Name is the display name, trimmed, never blank after sanitization.
	Name string `json:"name"`

	// Email is optional. Uniqueness is enforced on the normalized form.
	Email string `json:"email,omitempty"`

	// Tag is an optional free-form label (e.g., "roommate", "work").
	Tag string `json:"tag,omitempty"`

	// Active marks whether the friend shows up in pickers. Inactive
	// friends keep their history.
	Active bool `json:"active"`

	// CreatedAt is the Unix millisecond timestamp when the friend was added.
	CreatedAt int64 `json:"createdAt,omitempty"`
}

// NormalizeEmail lower-cases and trims an email for identity comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
