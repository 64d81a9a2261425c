// Package documentstest builds document systems on a migrated SQLite
// database in a temporary directory.
package documentstest

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/rag-lab/internal/documents"
	"github.com/JaimeStill/rag-lab/internal/migrations"
	"github.com/JaimeStill/rag-lab/pkg/database"
	"github.com/JaimeStill/rag-lab/pkg/storage"
)

// Env is a document system and the stores beneath it.
type Env struct {
	System  documents.System
	Storage storage.System
}

// Options adjusts the system built by NewWith.
type Options struct {
	// Storage replaces the filesystem blob store when set.
	Storage storage.System

	// Blobs defaults to storage.BlobsRetain.
	Blobs storage.BlobPolicy
}

// New returns a document system whose database and blobs live under t.TempDir().
func New(t testing.TB) *Env {
	t.Helper()
	return NewWith(t, Options{})
}

// NewWithStorage is New with a caller-supplied blob store.
func NewWithStorage(t testing.TB, store storage.System) *Env {
	t.Helper()
	return NewWith(t, Options{Storage: store})
}

// NewWith builds a document system from opts.
func NewWith(t testing.TB, opts Options) *Env {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dbCfg := &database.Config{Driver: database.DriverSQLite, Path: filepath.Join(dir, "rag.db")}
	if err := dbCfg.Finalize(nil); err != nil {
		t.Fatalf("database config: %v", err)
	}
	db, err := database.Open(dbCfg)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Up(db, database.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := opts.Storage
	if store == nil {
		storeCfg := &storage.Config{BasePath: filepath.Join(dir, "blobs")}
		if err := storeCfg.Finalize(nil); err != nil {
			t.Fatalf("storage config: %v", err)
		}
		store, err = storage.New(storeCfg, logger)
		if err != nil {
			t.Fatalf("storage: %v", err)
		}
	}

	blobs := opts.Blobs
	if blobs == "" {
		blobs = storage.BlobsRetain
	}

	return &Env{
		System:  documents.New(db, store, blobs, logger),
		Storage: store,
	}
}
