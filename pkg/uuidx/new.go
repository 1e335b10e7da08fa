// Package uuidx generates the time-ordered identifiers used for locally
// originated calls and tickets.
package uuidx

import "github.com/google/uuid"

// New returns a fresh UUIDv7. It panics if generation fails, which only
// happens when the system entropy source is broken.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString returns a fresh UUIDv7 rendered as a string.
func NewString() string {
	return New().String()
}
