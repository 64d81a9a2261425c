package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvRAGChunkSize    = "RAG_CHUNK_SIZE"
	EnvRAGChunkOverlap = "RAG_CHUNK_OVERLAP"
	EnvRAGTopK         = "RAG_TOP_K"
)

// RAGConfig contains chunking and retrieval parameters.
type RAGConfig struct {
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
	TopK         int `toml:"top_k"`
}

// Finalize applies defaults, loads environment overrides, and validates the RAG configuration.
func (c *RAGConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *RAGConfig) Merge(overlay *RAGConfig) {
	if overlay.ChunkSize != 0 {
		c.ChunkSize = overlay.ChunkSize
	}
	if overlay.ChunkOverlap != 0 {
		c.ChunkOverlap = overlay.ChunkOverlap
	}
	if overlay.TopK != 0 {
		c.TopK = overlay.TopK
	}
}

func (c *RAGConfig) loadDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 200
	}
	if c.TopK == 0 {
		c.TopK = 4
	}
}

func (c *RAGConfig) loadEnv() {
	if v := os.Getenv(EnvRAGChunkSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ChunkSize = n
		}
	}
	if v := os.Getenv(EnvRAGChunkOverlap); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ChunkOverlap = n
		}
	}
	if v := os.Getenv(EnvRAGTopK); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TopK = n
		}
	}
}

func (c *RAGConfig) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size)")
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive")
	}
	return nil
}
