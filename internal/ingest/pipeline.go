// Package ingest turns uploaded files into searchable vector namespaces.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/rag-lab/internal/chunker"
	"github.com/JaimeStill/rag-lab/internal/config"
	"github.com/JaimeStill/rag-lab/internal/documents"
	"github.com/JaimeStill/rag-lab/internal/extract"
	"github.com/JaimeStill/rag-lab/internal/identity"
	"github.com/JaimeStill/rag-lab/internal/providers"
	"github.com/JaimeStill/rag-lab/internal/vectors"
)

// Providers yields the provider snapshot used for one call.
type Providers interface {
	Active() *providers.Provider
}

// Result is an indexed document and the number of chunks written for it.
type Result struct {
	Document *documents.Document `json:"document"`
	Chunks   int                 `json:"chunks"`
	Provider providers.Name      `json:"provider"`
}

type Pipeline struct {
	docs      documents.System
	index     vectors.Index
	providers Providers
	size      int
	overlap   int
	logger    *slog.Logger
}

func New(docs documents.System, index vectors.Index, gw Providers, cfg *config.RAGConfig, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		docs:      docs,
		index:     index,
		providers: gw,
		size:      cfg.ChunkSize,
		overlap:   cfg.ChunkOverlap,
		logger:    logger.With("system", "ingest"),
	}
}

// Ingest stores data as a new document and indexes its text under the
// document's namespace. If indexing fails the document is soft-deleted and
// its namespace purged, so a failed upload never leaves a visible document.
func (p *Pipeline) Ingest(ctx context.Context, data []byte, filename string, uploader identity.Identity) (*Result, error) {
	provider := p.providers.Active()
	if err := provider.CheckDimensions(p.index.Dimensions()); err != nil {
		documentsTotal.WithLabelValues("ingest", "rejected").Inc()
		return nil, err
	}

	doc, text, err := p.docs.Store(ctx, data, filename, uploader)
	if err != nil {
		documentsTotal.WithLabelValues("ingest", "rejected").Inc()
		return nil, err
	}

	records, err := p.embedChunks(ctx, provider, doc, text)
	if err == nil {
		err = p.write(ctx, doc, records)
	}
	if err != nil {
		p.rollback(doc, uploader)
		documentsTotal.WithLabelValues("ingest", "failed").Inc()
		return nil, err
	}

	n := len(records)
	documentsTotal.WithLabelValues("ingest", "indexed").Inc()
	p.logger.Info("document indexed",
		"id", doc.ID, "chunks", n, "provider", provider.Name(), "uploader", uploader.User,
	)
	return &Result{Document: doc, Chunks: n, Provider: provider.Name()}, nil
}

// Reindex re-extracts the stored blob and replaces the namespace contents
// with embeddings from the current provider. Every chunk is embedded before
// the namespace is touched, so a provider failure leaves the old vectors.
func (p *Pipeline) Reindex(ctx context.Context, id uuid.UUID, requester identity.Identity) (*Result, error) {
	provider := p.providers.Active()
	if err := provider.CheckDimensions(p.index.Dimensions()); err != nil {
		return nil, err
	}

	doc, err := p.docs.Find(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	data, err := p.docs.Retrieve(ctx, doc)
	if err != nil {
		return nil, err
	}

	res, err := extract.Extract(data, doc.Kind)
	if err != nil {
		return nil, err
	}

	records, err := p.embedChunks(ctx, provider, doc, res.Text)
	if err != nil {
		documentsTotal.WithLabelValues("reindex", "failed").Inc()
		return nil, err
	}

	if err := p.index.Purge(ctx, doc.Namespace()); err != nil {
		documentsTotal.WithLabelValues("reindex", "failed").Inc()
		return nil, fmt.Errorf("%w: purge: %w", ErrIndexing, err)
	}
	if err := p.write(ctx, doc, records); err != nil {
		documentsTotal.WithLabelValues("reindex", "failed").Inc()
		return nil, err
	}

	n := len(records)
	documentsTotal.WithLabelValues("reindex", "indexed").Inc()
	p.logger.Info("document reindexed", "id", doc.ID, "chunks", n, "provider", provider.Name())
	return &Result{Document: doc, Chunks: n, Provider: provider.Name()}, nil
}

// Delete soft-deletes the document and purges its namespace. Whether the
// blob survives is decided by the document store's blob policy.
func (p *Pipeline) Delete(ctx context.Context, id uuid.UUID, requester identity.Identity) (*documents.Document, error) {
	doc, err := p.docs.Delete(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	if err := p.index.Purge(ctx, doc.Namespace()); err != nil {
		p.logger.Error("namespace purge failed", "id", doc.ID, "error", err)
		return doc, fmt.Errorf("%w: purge: %w", ErrIndexing, err)
	}

	documentsTotal.WithLabelValues("delete", "deleted").Inc()
	return doc, nil
}

// embedChunks embeds every chunk of text without writing anything.
func (p *Pipeline) embedChunks(ctx context.Context, provider *providers.Provider, doc *documents.Document, text string) ([]vectors.Record, error) {
	chunks, err := chunker.Split(text, p.size, p.overlap)
	if err != nil {
		return nil, err
	}

	ns := doc.Namespace()
	var records []vectors.Record
	for c := range chunks {
		vec, err := provider.Embed(ctx, c.Text)
		if err != nil {
			return nil, fmt.Errorf("%w: embed chunk %d: %w", ErrIndexing, c.Index, err)
		}
		records = append(records, vectors.Record{
			ID:     fmt.Sprintf("%s:%d", ns, c.Index),
			Text:   c.Text,
			Vector: vec,
			Metadata: map[string]any{
				"document_id": ns,
				"chunk_index": c.Index,
				"start":       c.Start,
			},
		})
	}

	return records, nil
}

func (p *Pipeline) write(ctx context.Context, doc *documents.Document, records []vectors.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := p.index.Upsert(ctx, doc.Namespace(), records); err != nil {
		return fmt.Errorf("%w: upsert: %w", ErrIndexing, err)
	}
	chunksTotal.Add(float64(len(records)))
	return nil
}

// rollback uses a fresh context so a cancelled request still cleans up.
func (p *Pipeline) rollback(doc *documents.Document, uploader identity.Identity) {
	ctx := context.Background()

	if err := p.index.Purge(ctx, doc.Namespace()); err != nil {
		p.logger.Error("rollback purge failed", "id", doc.ID, "error", err)
	}
	if _, err := p.docs.Delete(ctx, doc.ID, uploader); err != nil && !errors.Is(err, documents.ErrNotFound) {
		p.logger.Error("rollback delete failed", "id", doc.ID, "error", err)
	}
}
