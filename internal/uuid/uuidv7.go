package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New generates a new UUIDv7 based on the current timestamp.
//
// Within a single process the generated values are strictly increasing, so
// ordering rows by id reproduces insertion order. Queries rely on that to
// break ties between transactions that share a date.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// Entropy failure: fall back to a random UUIDv4 rather than fail the insert.
		return googleuuid.NewString()
	}
	return id.String()
}

// Parse validates and normalises a UUID string.
func Parse(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// IsValid checks if a string is a valid UUID
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
