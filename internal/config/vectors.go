package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvVectorsBackend          = "VECTORS_BACKEND"
	EnvVectorsDimensions       = "VECTORS_DIMENSIONS"
	EnvVectorsQdrantURL        = "VECTORS_QDRANT_URL"
	EnvVectorsQdrantCollection = "VECTORS_QDRANT_COLLECTION"
	EnvVectorsQdrantAPIKey     = "VECTORS_QDRANT_API_KEY"
)

// VectorBackend selects the vector index implementation.
type VectorBackend string

const (
	VectorBackendMemory VectorBackend = "memory"
	VectorBackendQdrant VectorBackend = "qdrant"
)

// VectorsConfig contains vector index configuration. Dimensions must match
// the embedding size of every provider that writes to the index.
type VectorsConfig struct {
	Backend    VectorBackend `toml:"backend"`
	Dimensions int           `toml:"dimensions"`
	Qdrant     QdrantConfig  `toml:"qdrant"`
}

// QdrantConfig addresses a Qdrant collection over its REST API.
type QdrantConfig struct {
	URL        string `toml:"url"`
	Collection string `toml:"collection"`
	APIKey     string `toml:"api_key"`
	Timeout    string `toml:"timeout"`
}

func (c *QdrantConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, loads environment overrides, and validates the vectors configuration.
func (c *VectorsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *VectorsConfig) Merge(overlay *VectorsConfig) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.Dimensions != 0 {
		c.Dimensions = overlay.Dimensions
	}
	if overlay.Qdrant.URL != "" {
		c.Qdrant.URL = overlay.Qdrant.URL
	}
	if overlay.Qdrant.Collection != "" {
		c.Qdrant.Collection = overlay.Qdrant.Collection
	}
	if overlay.Qdrant.APIKey != "" {
		c.Qdrant.APIKey = overlay.Qdrant.APIKey
	}
	if overlay.Qdrant.Timeout != "" {
		c.Qdrant.Timeout = overlay.Qdrant.Timeout
	}
}

func (c *VectorsConfig) loadDefaults() {
	if c.Backend == "" {
		c.Backend = VectorBackendMemory
	}
	if c.Dimensions == 0 {
		c.Dimensions = 768
	}
	if c.Qdrant.URL == "" {
		c.Qdrant.URL = "http://localhost:6333"
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = "documents"
	}
	if c.Qdrant.Timeout == "" {
		c.Qdrant.Timeout = "10s"
	}
}

func (c *VectorsConfig) loadEnv() {
	if v := os.Getenv(EnvVectorsBackend); v != "" {
		c.Backend = VectorBackend(v)
	}
	if v := os.Getenv(EnvVectorsDimensions); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Dimensions = n
		}
	}
	if v := os.Getenv(EnvVectorsQdrantURL); v != "" {
		c.Qdrant.URL = v
	}
	if v := os.Getenv(EnvVectorsQdrantCollection); v != "" {
		c.Qdrant.Collection = v
	}
	if v := os.Getenv(EnvVectorsQdrantAPIKey); v != "" {
		c.Qdrant.APIKey = v
	}
}

func (c *VectorsConfig) validate() error {
	switch c.Backend {
	case VectorBackendMemory, VectorBackendQdrant:
	default:
		return fmt.Errorf("invalid backend: %s (must be memory or qdrant)", c.Backend)
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive")
	}
	if _, err := time.ParseDuration(c.Qdrant.Timeout); err != nil {
		return fmt.Errorf("invalid qdrant.timeout: %w", err)
	}
	return nil
}
