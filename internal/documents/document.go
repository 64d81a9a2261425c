// Package documents persists uploaded files and their metadata records.
// The blob is always written before the record, so a record never points at
// a missing blob.
package documents

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/rag-lab/internal/extract"
)

// Status is the lifecycle state of a document.
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// Document is the metadata record of an uploaded file. Its ID doubles as
// the vector namespace holding the document's chunks.
type Document struct {
	ID         uuid.UUID    `json:"id"`
	Filename   string       `json:"filename"`
	Uploader   string       `json:"uploader"`
	Kind       extract.Kind `json:"file_type"`
	SizeBytes  int64        `json:"size_bytes"`
	PageCount  *int         `json:"page_count"`
	Status     Status       `json:"status"`
	StorageKey string       `json:"-"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Namespace returns the vector namespace of the document.
func (d *Document) Namespace() string {
	return d.ID.String()
}
