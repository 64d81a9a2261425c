// Package storage provides blob storage for uploaded document bytes.
// Keys are slash-separated relative paths such as documents/<id>/<filename>.
package storage

import (
	"context"

	"github.com/JaimeStill/rag-lab/pkg/lifecycle"
)

// System defines blob storage operations.
type System interface {
	// Store writes data at key, replacing existing content.
	Store(ctx context.Context, key string, data []byte) error

	// Retrieve returns the data at key or ErrNotFound.
	Retrieve(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	Start(lc *lifecycle.Coordinator) error
}
