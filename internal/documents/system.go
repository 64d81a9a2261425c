package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/rag-lab/internal/identity"
)

// System manages document blobs and records.
type System interface {
	// Store extracts text from data, writes the blob and then the record.
	// It returns the new document and its extracted text.
	Store(ctx context.Context, data []byte, filename string, uploader identity.Identity) (*Document, string, error)

	// ListForUser returns the active documents of uploader, oldest first.
	ListForUser(ctx context.Context, uploader string) ([]Document, error)

	// Find returns an active document visible to requester.
	Find(ctx context.Context, id uuid.UUID, requester identity.Identity) (*Document, error)

	// Retrieve reads the stored bytes of doc.
	Retrieve(ctx context.Context, doc *Document) ([]byte, error)

	// Delete marks a document visible to requester as deleted. The blob is
	// retained or purged according to the configured storage.BlobPolicy.
	Delete(ctx context.Context, id uuid.UUID, requester identity.Identity) (*Document, error)
}
