package store

import "errors"

var (
	// ErrClosed is returned by operations on a closed index.
	ErrClosed = errors.New("index is closed")

	// ErrCorrupt is returned when existing index data cannot be read. The data
	// is left in place; Reset removes it.
	ErrCorrupt = errors.New("index data is corrupt")
)
