package storage_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/rag-lab/pkg/lifecycle"
	"github.com/JaimeStill/rag-lab/pkg/storage"
)

func newStorage(t *testing.T) (storage.System, string) {
	t.Helper()

	dir := t.TempDir()
	cfg := &storage.Config{BasePath: dir}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	sys, err := storage.New(cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return sys, dir
}

func TestFilesystem_StoreRetrieveDelete(t *testing.T) {
	sys, dir := newStorage(t)
	ctx := context.Background()
	key := "documents/abc/notes.txt"
	data := []byte("The sky is blue.")

	if err := sys.Store(ctx, key, data); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	got, err := sys.Retrieve(ctx, key)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Retrieve() = %q, want %q", got, data)
	}

	entries, err := os.ReadDir(filepath.Dir(filepath.Join(dir, key)))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "notes.txt" {
		t.Errorf("blob directory holds %d entries, want only notes.txt", len(entries))
	}

	exists, err := sys.Exists(ctx, key)
	if err != nil || !exists {
		t.Errorf("Exists() = %v, %v, want true, nil", exists, err)
	}

	if err := sys.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := sys.Delete(ctx, key); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}

	if _, err := sys.Retrieve(ctx, key); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Retrieve() after delete error = %v, want ErrNotFound", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "documents")); !os.IsNotExist(err) {
		t.Error("empty parent directories not cleaned up")
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("root removed: %v", err)
	}
}

func TestFilesystem_DeleteKeepsSiblings(t *testing.T) {
	sys, dir := newStorage(t)
	ctx := context.Background()

	for _, key := range []string{"documents/a/one.txt", "documents/b/two.txt"} {
		if err := sys.Store(ctx, key, []byte(key)); err != nil {
			t.Fatalf("Store(%q) error = %v", key, err)
		}
	}

	if err := sys.Delete(ctx, "documents/a/one.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "documents", "a")); !os.IsNotExist(err) {
		t.Error("documents/a should be removed")
	}
	if ok, err := sys.Exists(ctx, "documents/b/two.txt"); err != nil || !ok {
		t.Errorf("sibling Exists() = %v, %v, want true, nil", ok, err)
	}
}

func TestFilesystem_CanceledContext(t *testing.T) {
	sys, _ := newStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sys.Store(ctx, "a.txt", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Store() error = %v, want context.Canceled", err)
	}
}

func TestFilesystem_StartCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "blobs")
	cfg := &storage.Config{BasePath: root}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	sys, err := storage.New(cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	lc := lifecycle.New()
	if err := sys.Start(lc); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	lc.WaitForStartup()

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("root holds %d entries after startup, want 0", len(entries))
	}
}

func TestFilesystem_InvalidKeys(t *testing.T) {
	sys, _ := newStorage(t)
	ctx := context.Background()

	keys := []string{"", ".", "../escape.txt", "/etc/passwd", "a/../../b", "a/./b", "dir/"}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			if err := sys.Store(ctx, key, []byte("x")); !errors.Is(err, storage.ErrInvalidKey) {
				t.Errorf("Store(%q) error = %v, want ErrInvalidKey", key, err)
			}
		})
	}
}

func TestConfig_Finalize(t *testing.T) {
	cfg := &storage.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.BasePath != ".data/documents" {
		t.Errorf("BasePath = %q, want .data/documents", cfg.BasePath)
	}
	if cfg.DeletedBlobs != storage.BlobsRetain {
		t.Errorf("DeletedBlobs = %q, want %q", cfg.DeletedBlobs, storage.BlobsRetain)
	}
	if cfg.MaxUploadSizeBytes() != 25_000_000 {
		t.Errorf("MaxUploadSizeBytes() = %d, want 25000000", cfg.MaxUploadSizeBytes())
	}
}

func TestConfig_FinalizeEnv(t *testing.T) {
	t.Setenv("TEST_STORAGE_DELETED_BLOBS", "purge")
	t.Setenv("TEST_STORAGE_MAX_UPLOAD_SIZE", "2MB")

	cfg := &storage.Config{}
	env := &storage.Env{MaxUploadSize: "TEST_STORAGE_MAX_UPLOAD_SIZE", DeletedBlobs: "TEST_STORAGE_DELETED_BLOBS"}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.DeletedBlobs != storage.BlobsPurge {
		t.Errorf("DeletedBlobs = %q, want %q", cfg.DeletedBlobs, storage.BlobsPurge)
	}
	if cfg.MaxUploadSizeBytes() != 2_000_000 {
		t.Errorf("MaxUploadSizeBytes() = %d, want 2000000", cfg.MaxUploadSizeBytes())
	}
}

func TestConfig_FinalizeInvalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  storage.Config
	}{
		{"size", storage.Config{MaxUploadSize: "lots"}},
		{"policy", storage.Config{DeletedBlobs: "archive"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Finalize(nil); err == nil {
				t.Error("Finalize() should fail")
			}
		})
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := &storage.Config{BasePath: "base", MaxUploadSize: "10MB"}
	cfg.Merge(&storage.Config{MaxUploadSize: "50MB", DeletedBlobs: storage.BlobsPurge})

	if cfg.BasePath != "base" || cfg.MaxUploadSize != "50MB" || cfg.DeletedBlobs != storage.BlobsPurge {
		t.Errorf("Merge() = %+v", cfg)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state", "sessions.json")

	for _, content := range []string{`{"v":1}`, `{"v":2}`} {
		if err := storage.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Errorf("content = %s, want the last write", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("mode = %v, want 0600", perm)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the target file", len(entries))
	}
}
