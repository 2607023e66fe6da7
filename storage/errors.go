package storage

import "errors"

// Storage error constants
var (
	// ErrMissingURI is returned by Connect when no connection string is configured
	ErrMissingURI = errors.New("connection string is invalid")

	// ErrNotReady is returned while the database connection has not been verified
	ErrNotReady = errors.New("database not ready")

	// ErrNotFound is a generic "not found" error
	ErrNotFound = errors.New("not found")

	// ErrPaletteNotFound is returned when a palette is not found
	ErrPaletteNotFound = errors.New("palette not found")
)

// IsNotFound reports whether err means a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrPaletteNotFound)
}
