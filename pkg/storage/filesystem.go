package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/JaimeStill/rag-lab/pkg/lifecycle"
)

// filesystem keeps one file per key below root. Keys are validated with
// fs.ValidPath, so a key can never name anything outside root.
type filesystem struct {
	root   string
	logger *slog.Logger
}

// New prepares filesystem storage at cfg.BasePath. Nothing touches the disk
// until the startup hook registered by Start runs.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("base_path required")
	}

	root, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base_path: %w", err)
	}

	return &filesystem{
		root:   root,
		logger: logger.With("system", "storage"),
	}, nil
}

func (f *filesystem) Start(lc *lifecycle.Coordinator) error {
	f.logger.Info("starting storage system", "root", f.root)

	lc.OnStartup(func() {
		if err := f.checkWritable(); err != nil {
			f.logger.Error("storage not writable", "root", f.root, "error", err)
			return
		}
		f.logger.Info("storage ready")
	})

	return nil
}

// checkWritable creates root and proves a file can be written and removed there.
func (f *filesystem) checkWritable() error {
	if err := os.MkdirAll(f.root, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.root, ".writable-*")
	if err != nil {
		return err
	}
	tmp.Close()
	return os.Remove(tmp.Name())
}

func (f *filesystem) Store(ctx context.Context, key string, data []byte) error {
	target, err := f.resolve(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// The blob must be on disk before the caller commits a record naming it.
	if err := WriteFile(target, data, 0644); err != nil {
		return mapFSError(err, "write blob")
	}

	f.logger.Debug("blob stored", "key", key, "bytes", len(data))
	return nil
}

func (f *filesystem) Retrieve(ctx context.Context, key string) ([]byte, error) {
	target, err := f.resolve(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return nil, mapFSError(err, "read blob")
	}
	return data, nil
}

// Delete removes key and then any parent directories it leaves empty, up
// to but not including root.
func (f *filesystem) Delete(ctx context.Context, key string) error {
	target, err := f.resolve(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return mapFSError(err, "remove blob")
	}

	for dir := path.Dir(key); dir != "."; dir = path.Dir(dir) {
		// Remove fails on a non-empty directory, which ends the walk.
		if err := os.Remove(filepath.Join(f.root, filepath.FromSlash(dir))); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				break
			}
		}
	}

	f.logger.Debug("blob deleted", "key", key)
	return nil
}

func (f *filesystem) Exists(ctx context.Context, key string) (bool, error) {
	target, err := f.resolve(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(target)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, mapFSError(err, "stat blob")
	default:
		return info.Mode().IsRegular(), nil
	}
}

func (f *filesystem) resolve(key string) (string, error) {
	if !fs.ValidPath(key) || key == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(f.root, filepath.FromSlash(key)), nil
}

func mapFSError(err error, op string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, op)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
