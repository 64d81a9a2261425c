package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/rag-lab/internal/config"
	"github.com/JaimeStill/rag-lab/internal/documents"
	"github.com/JaimeStill/rag-lab/internal/documents/documentstest"
	"github.com/JaimeStill/rag-lab/internal/identity"
	"github.com/JaimeStill/rag-lab/internal/ingest"
	"github.com/JaimeStill/rag-lab/internal/providers"
	"github.com/JaimeStill/rag-lab/internal/providers/providerstest"
	"github.com/JaimeStill/rag-lab/internal/vectors"
	"github.com/JaimeStill/rag-lab/internal/vectors/memory"
	"github.com/JaimeStill/rag-lab/pkg/routes"
)

const dims = 64

var (
	alice = identity.Identity{User: "alice@example.com", Role: identity.RoleUser}
	bob   = identity.Identity{User: "bob@example.com", Role: identity.RoleUser}
	admin = identity.Identity{User: "admin@example.com", Role: identity.RoleAdmin}
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type env struct {
	docs     *documentstest.Env
	index    vectors.Index
	backend  *providerstest.Backend
	gw       *providers.Gateway
	pipeline *ingest.Pipeline
}

func newEnv(t *testing.T, index vectors.Index) *env {
	t.Helper()
	if index == nil {
		index = memory.New(dims, discard())
	}

	docs := documentstest.New(t)
	backend := providerstest.New(t, providers.Mistral, dims)
	gw := providerstest.Gateway(t, backend, providerstest.New(t, providers.Cohere, dims*2))

	cfg := &config.RAGConfig{ChunkSize: 40, ChunkOverlap: 10, TopK: 4}
	return &env{
		docs:     docs,
		index:    index,
		backend:  backend,
		gw:       gw,
		pipeline: ingest.New(docs.System, index, gw, cfg, discard()),
	}
}

func TestIngest(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	text := "The sky is blue. Grass is green. Snow is white and the sun is yellow. Night is dark."

	res, err := e.pipeline.Ingest(ctx, []byte(text), "colors.txt", alice)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if res.Chunks != 3 {
		t.Errorf("Chunks = %d, want 3", res.Chunks)
	}
	if res.Provider != providers.Mistral {
		t.Errorf("Provider = %s, want mistral", res.Provider)
	}

	q, _ := e.backend.Embedder.Embed(ctx, "sky blue")
	matches, err := e.index.Query(ctx, res.Document.Namespace(), q, 10)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("matches = %d, want 3", len(matches))
	}
	if !strings.Contains(matches[0].Text, "sky is blue") {
		t.Errorf("top match = %q, want the sky chunk", matches[0].Text)
	}
	if matches[0].Metadata["document_id"] != res.Document.Namespace() {
		t.Errorf("metadata = %v", matches[0].Metadata)
	}
}

func TestIngest_NamespaceIsolation(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	a, _ := e.pipeline.Ingest(ctx, []byte("The sky is blue."), "a.txt", alice)
	b, _ := e.pipeline.Ingest(ctx, []byte("Grass is green."), "b.txt", alice)

	q, _ := e.backend.Embedder.Embed(ctx, "grass green")
	matches, _ := e.index.Query(ctx, a.Document.Namespace(), q, 10)
	for _, m := range matches {
		if strings.Contains(m.Text, "Grass") {
			t.Errorf("namespace %s returned chunk from %s", a.Document.ID, b.Document.ID)
		}
	}
}

func TestIngest_DimensionMismatch(t *testing.T) {
	e := newEnv(t, nil)
	if _, err := e.gw.Switch(providers.Cohere); err != nil {
		t.Fatalf("Switch() error = %v", err)
	}

	_, err := e.pipeline.Ingest(context.Background(), []byte("The sky is blue."), "a.txt", alice)
	if !errors.Is(err, providers.ErrProviderMismatch) {
		t.Fatalf("Ingest() error = %v, want ErrProviderMismatch", err)
	}

	docs, _ := e.docs.System.ListForUser(context.Background(), alice.User)
	if len(docs) != 0 {
		t.Errorf("documents after rejected ingest = %d, want 0", len(docs))
	}
}

func TestIngest_EmptyText(t *testing.T) {
	e := newEnv(t, nil)

	res, err := e.pipeline.Ingest(context.Background(), []byte(""), "empty.txt", alice)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if res.Chunks != 0 {
		t.Errorf("Chunks = %d, want 0", res.Chunks)
	}
}

type failingIndex struct {
	vectors.Index
	purged []string
}

func (f *failingIndex) Upsert(context.Context, string, []vectors.Record) error {
	return vectors.ErrUnavailable
}

func (f *failingIndex) Purge(ctx context.Context, ns string) error {
	f.purged = append(f.purged, ns)
	return f.Index.Purge(ctx, ns)
}

func TestIngest_RollbackOnIndexFailure(t *testing.T) {
	idx := &failingIndex{Index: memory.New(dims, discard())}
	e := newEnv(t, idx)
	ctx := context.Background()

	_, err := e.pipeline.Ingest(ctx, []byte("The sky is blue."), "a.txt", alice)
	if !errors.Is(err, ingest.ErrIndexing) || !errors.Is(err, vectors.ErrUnavailable) {
		t.Fatalf("Ingest() error = %v, want ErrIndexing wrapping ErrUnavailable", err)
	}

	docs, _ := e.docs.System.ListForUser(ctx, alice.User)
	if len(docs) != 0 {
		t.Errorf("visible documents after failed ingest = %d, want 0", len(docs))
	}
	if len(idx.purged) != 1 {
		t.Errorf("purges = %d, want 1", len(idx.purged))
	}
}

func TestIngest_RollbackOnEmbedFailure(t *testing.T) {
	e := newEnv(t, nil)
	e.backend.Embedder.Err = providers.ErrProviderUnavailable

	_, err := e.pipeline.Ingest(context.Background(), []byte("The sky is blue."), "a.txt", alice)
	if !errors.Is(err, providers.ErrProviderUnavailable) {
		t.Fatalf("Ingest() error = %v, want ErrProviderUnavailable", err)
	}

	docs, _ := e.docs.System.ListForUser(context.Background(), alice.User)
	if len(docs) != 0 {
		t.Errorf("visible documents after failed ingest = %d, want 0", len(docs))
	}
}

func TestReindex_ReplacesVectors(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	res, _ := e.pipeline.Ingest(ctx, []byte("The sky is blue. Grass is green."), "a.txt", alice)

	again, err := e.pipeline.Reindex(ctx, res.Document.ID, admin)
	if err != nil {
		t.Fatalf("Reindex() error = %v", err)
	}
	if again.Chunks != res.Chunks {
		t.Errorf("Chunks = %d, want %d", again.Chunks, res.Chunks)
	}

	q, _ := e.backend.Embedder.Embed(ctx, "sky")
	matches, _ := e.index.Query(ctx, res.Document.Namespace(), q, 100)
	if len(matches) != res.Chunks {
		t.Errorf("vectors after reindex = %d, want %d", len(matches), res.Chunks)
	}

	if _, err := e.pipeline.Reindex(ctx, res.Document.ID, bob); !errors.Is(err, documents.ErrNotFound) {
		t.Errorf("Reindex() by non-owner error = %v, want ErrNotFound", err)
	}
}

func TestReindex_EmbedFailureKeepsVectors(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	res, err := e.pipeline.Ingest(ctx, []byte("The sky is blue. Grass is green. Snow is white."), "a.txt", alice)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if res.Chunks < 2 {
		t.Fatalf("Chunks = %d, want at least 2", res.Chunks)
	}

	q, _ := e.backend.Embedder.Embed(ctx, "sky")
	e.backend.Embedder.Err = providers.ErrProviderUnavailable

	if _, err := e.pipeline.Reindex(ctx, res.Document.ID, admin); !errors.Is(err, providers.ErrProviderUnavailable) {
		t.Fatalf("Reindex() error = %v, want ErrProviderUnavailable", err)
	}

	matches, err := e.index.Query(ctx, res.Document.Namespace(), q, 100)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(matches) != res.Chunks {
		t.Errorf("vectors after failed reindex = %d, want %d", len(matches), res.Chunks)
	}
}

func TestDelete_PurgesNamespace(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	res, _ := e.pipeline.Ingest(ctx, []byte("The sky is blue."), "a.txt", alice)

	if _, err := e.pipeline.Delete(ctx, res.Document.ID, bob); !errors.Is(err, documents.ErrNotFound) {
		t.Errorf("Delete() by non-owner error = %v, want ErrNotFound", err)
	}

	doc, err := e.pipeline.Delete(ctx, res.Document.ID, alice)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if doc.Status != documents.StatusDeleted {
		t.Errorf("Status = %s, want deleted", doc.Status)
	}

	q, _ := e.backend.Embedder.Embed(ctx, "sky")
	if matches, _ := e.index.Query(ctx, res.Document.Namespace(), q, 10); len(matches) != 0 {
		t.Errorf("matches after delete = %d, want 0", len(matches))
	}
}

func withCaller(id identity.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}

func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, _ := identity.FromContext(r.Context()); !id.IsAdmin() {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func upload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return &body, mw.FormDataContentType()
}

func TestHandler(t *testing.T) {
	e := newEnv(t, nil)
	h := ingest.NewHandler(e.pipeline, 1024, adminOnly, discard())

	serve := func(caller identity.Identity, req *http.Request) *httptest.ResponseRecorder {
		mux := http.NewServeMux()
		g := h.Routes()
		g.Middleware = append([]func(http.Handler) http.Handler{withCaller(caller)}, g.Middleware...)
		routes.Register(mux, "", g)

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		return w
	}

	body, ct := upload(t, "facts.txt", "The sky is blue. Grass is green.")
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", ct)
	if w := serve(alice, req); w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, want 201 (%s)", w.Code, w.Body.String())
	}

	docs, _ := e.docs.System.ListForUser(context.Background(), alice.User)
	if len(docs) != 1 {
		t.Fatalf("documents = %d, want 1", len(docs))
	}
	id := docs[0].ID.String()

	tooBig, ct := upload(t, "big.txt", strings.Repeat("a", 4096))
	req = httptest.NewRequest(http.MethodPost, "/documents", tooBig)
	req.Header.Set("Content-Type", ct)
	if w := serve(alice, req); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized upload status = %d, want 413", w.Code)
	}

	binary, ct := upload(t, "image.png", "\x89PNG\r\n\x1a\n\x00\x00")
	req = httptest.NewRequest(http.MethodPost, "/documents", binary)
	req.Header.Set("Content-Type", ct)
	if w := serve(alice, req); w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("binary upload status = %d, want 415", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader("nope"))
	if w := serve(alice, req); w.Code != http.StatusBadRequest {
		t.Errorf("non-multipart upload status = %d, want 400", w.Code)
	}

	tests := []struct {
		name       string
		caller     identity.Identity
		method     string
		path       string
		wantStatus int
	}{
		{"reindex as owner", alice, http.MethodPost, "/documents/" + id + "/reindex", http.StatusForbidden},
		{"reindex as admin", admin, http.MethodPost, "/documents/" + id + "/reindex", http.StatusOK},
		{"delete as stranger", bob, http.MethodDelete, "/documents/" + id, http.StatusNotFound},
		{"delete bad id", alice, http.MethodDelete, "/documents/nope", http.StatusBadRequest},
		{"delete as owner", alice, http.MethodDelete, "/documents/" + id, http.StatusNoContent},
		{"delete twice", alice, http.MethodDelete, "/documents/" + id, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(tt.caller, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}
