package storage

import "errors"

var (
	// ErrNotFound is returned by Retrieve for a key with no blob.
	ErrNotFound = errors.New("storage: blob not found")

	// ErrPermissionDenied means the process cannot read or write the blob path.
	ErrPermissionDenied = errors.New("storage: permission denied")

	// ErrInvalidKey rejects empty keys and keys that resolve outside the base path.
	ErrInvalidKey = errors.New("storage: invalid key")
)
