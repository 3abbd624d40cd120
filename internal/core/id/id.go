// Package id provides UUIDv7 identifiers for all club entities.
//
// UUIDv7 carries a Unix timestamp in its high bits, so ids sort in
// creation order. The tariff resolver relies on this: rate windows
// tie-break on "id ascending", which under v7 means oldest first.
package id

import (
	"github.com/google/uuid"
)

// ID is an alias so entities can say id.ID without re-exporting uuid.
type ID = uuid.UUID

// New generates a time-ordered UUIDv7.
func New() ID {
	v7, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does; fall back to v4
		// rather than propagating an error nobody can handle.
		return uuid.New()
	}
	return v7
}

// Parse converts a string to an ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse is for constants and tests only.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil returns the zero UUID.
func Nil() ID {
	return uuid.Nil
}

// IsNil reports whether the id is the zero UUID.
func IsNil(id ID) bool {
	return id == uuid.Nil
}
