package documents

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/rag-lab/internal/extract"
	"github.com/JaimeStill/rag-lab/internal/identity"
	"github.com/JaimeStill/rag-lab/pkg/repository"
	"github.com/JaimeStill/rag-lab/pkg/storage"
)

type repo struct {
	db      *sql.DB
	storage storage.System
	blobs   storage.BlobPolicy
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a document repository backed by db for records and store for
// blobs. blobs decides whether Delete keeps the bytes of deleted documents.
func New(db *sql.DB, store storage.System, blobs storage.BlobPolicy, logger *slog.Logger) System {
	return &repo{
		db:      db,
		storage: store,
		blobs:   blobs,
		logger:  logger.With("system", "documents"),
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (r *repo) Store(ctx context.Context, data []byte, filename string, uploader identity.Identity) (*Document, string, error) {
	kind, res, err := extract.DetectAndExtract(data, filename)
	if err != nil {
		return nil, "", err
	}

	id := uuid.New()
	storageKey := buildStorageKey(id, filename)

	if err := r.storage.Store(ctx, storageKey, data); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	now := r.now()
	doc := Document{
		ID:         id,
		Filename:   filepath.Base(filename),
		Uploader:   uploader.User,
		Kind:       kind,
		SizeBytes:  int64(len(data)),
		PageCount:  res.PageCount,
		Status:     StatusActive,
		StorageKey: storageKey,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	q := `INSERT INTO documents (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		_, err := tx.ExecContext(ctx, q,
			doc.ID, doc.Filename, doc.Uploader, doc.Kind, doc.SizeBytes, doc.PageCount,
			doc.Status, doc.StorageKey, doc.CreatedAt, doc.UpdatedAt,
		)
		return struct{}{}, err
	})

	if err != nil {
		if delErr := r.storage.Delete(ctx, storageKey); delErr != nil {
			r.logger.Error("cleanup failed after db error", "storage_key", storageKey, "error", delErr)
		}
		if mapped := repository.MapError(err, ErrNotFound, ErrDuplicate); mapped != err {
			return nil, "", mapped
		}
		return nil, "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	r.logger.Info("document stored",
		"id", doc.ID, "filename", doc.Filename, "kind", doc.Kind,
		"size_bytes", doc.SizeBytes, "uploader", doc.Uploader,
	)
	return &doc, res.Text, nil
}

func (r *repo) ListForUser(ctx context.Context, uploader string) ([]Document, error) {
	q := `SELECT ` + columns + ` FROM documents
		WHERE uploader = $1 AND status = $2
		ORDER BY created_at ASC, id ASC`

	docs, err := repository.QueryMany(ctx, r.db, q, []any{uploader, StatusActive}, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	return docs, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID, requester identity.Identity) (*Document, error) {
	q := `SELECT ` + columns + ` FROM documents WHERE id = $1 AND status = $2`

	doc, err := repository.QueryOne(ctx, r.db, q, []any{id, StatusActive}, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	if !requester.CanAccess(doc.Uploader) {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (r *repo) Retrieve(ctx context.Context, doc *Document) ([]byte, error) {
	data, err := r.storage.Retrieve(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return data, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID, requester identity.Identity) (*Document, error) {
	doc, err := r.Find(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	now := r.now()
	q := `UPDATE documents SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, q, StatusDeleted, now, id, StatusActive)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	doc.Status = StatusDeleted
	doc.UpdatedAt = now

	// The record is already deleted; a blob that survives a failed purge is
	// unreachable and only logged.
	if r.blobs == storage.BlobsPurge {
		if err := r.storage.Delete(ctx, doc.StorageKey); err != nil {
			r.logger.Error("blob purge failed", "id", id, "storage_key", doc.StorageKey, "error", err)
		}
	}

	r.logger.Info("document deleted",
		"id", id, "by", requester.User, "storage_key", doc.StorageKey, "blobs", r.blobs,
	)
	return doc, nil
}

func buildStorageKey(id uuid.UUID, filename string) string {
	return fmt.Sprintf("documents/%s/%s", id.String(), sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == ".." || name == "/" || name == "" {
		name = "upload"
	}
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
