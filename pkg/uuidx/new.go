package uuidx

import "github.com/google/uuid"

// New generates a new UUID using the version 7 format and returns it.
// It panics if the UUID generation fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString generates a new version 7 UUID and returns it as a string.
func NewString() string {
	return New().String()
}

// Prefixed returns a fresh version 7 UUID string joined to prefix with a '#',
// the shape used for agent instance ids.
func Prefixed(prefix string) string {
	return prefix + "#" + NewString()
}
