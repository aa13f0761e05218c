package artifact

import "errors"

var (
	// ErrNotFound is returned when no artifact exists under the given key.
	ErrNotFound = errors.New("artifact not found")

	// ErrInvalidKey is returned for empty keys or keys escaping the store root.
	ErrInvalidKey = errors.New("invalid artifact key")
)
