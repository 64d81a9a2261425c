package storage

import (
	"fmt"
	"os"

	"github.com/docker/go-units"
)

// BlobPolicy decides what happens to a blob once its document is deleted.
type BlobPolicy string

const (
	// BlobsRetain keeps the bytes of deleted documents on disk.
	BlobsRetain BlobPolicy = "retain"

	// BlobsPurge removes the bytes once the record is marked deleted.
	BlobsPurge BlobPolicy = "purge"
)

func (p BlobPolicy) validate() error {
	switch p {
	case BlobsRetain, BlobsPurge:
		return nil
	default:
		return fmt.Errorf("invalid deleted_blobs %q (must be retain or purge)", p)
	}
}

// Config holds document blob storage settings.
//
//	[storage]
//	base_path = ".data/documents"
//	max_upload_size = "25MB"
//	deleted_blobs = "retain"
type Config struct {
	BasePath      string     `toml:"base_path"`
	MaxUploadSize string     `toml:"max_upload_size"`
	DeletedBlobs  BlobPolicy `toml:"deleted_blobs"`

	maxUploadBytes int64
}

// Env names the environment variables that override Config.
type Env struct {
	BasePath      string
	MaxUploadSize string
	DeletedBlobs  string
}

// MaxUploadSizeBytes is MaxUploadSize in bytes. It is zero until Finalize succeeds.
func (c *Config) MaxUploadSizeBytes() int64 {
	return c.maxUploadBytes
}

// Finalize fills defaults, applies env overrides and parses the upload limit.
func (c *Config) Finalize(env *Env) error {
	if c.BasePath == "" {
		c.BasePath = ".data/documents"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "25MB"
	}
	if c.DeletedBlobs == "" {
		c.DeletedBlobs = BlobsRetain
	}

	if env != nil {
		override(&c.BasePath, env.BasePath)
		override(&c.MaxUploadSize, env.MaxUploadSize)

		policy := string(c.DeletedBlobs)
		override(&policy, env.DeletedBlobs)
		c.DeletedBlobs = BlobPolicy(policy)
	}

	size, err := units.FromHumanSize(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_upload_size must be positive, got %s", c.MaxUploadSize)
	}
	c.maxUploadBytes = size

	return c.DeletedBlobs.validate()
}

// Merge copies the non-empty fields of overlay onto c.
func (c *Config) Merge(overlay *Config) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
	if overlay.DeletedBlobs != "" {
		c.DeletedBlobs = overlay.DeletedBlobs
	}
}

func override(dst *string, name string) {
	if name == "" {
		return
	}
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}
