// Package vectors defines the namespaced vector index used for retrieval.
// Every operation is scoped to a namespace; a query never returns records
// written under a different namespace.
package vectors

import (
	"context"
	"errors"
	"fmt"

	"github.com/JaimeStill/rag-lab/pkg/lifecycle"
)

var (
	// ErrDimensionMismatch indicates a vector whose length differs from the index.
	ErrDimensionMismatch = errors.New("vector dimensions do not match index")

	// ErrUnavailable indicates the index backend could not be reached.
	ErrUnavailable = errors.New("vector index unavailable")
)

// Record is one chunk embedding to store. An empty ID is assigned by the index.
type Record struct {
	ID       string
	Text     string
	Vector   []float64
	Metadata map[string]any
}

// Match is a retrieved chunk and its similarity to the query.
type Match struct {
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Index stores and searches chunk embeddings by namespace.
type Index interface {
	// Dimensions is the vector length every record and query must have.
	Dimensions() int

	// Upsert writes records under namespace. Records sharing an ID with an
	// existing record in the namespace replace it; all others are added.
	Upsert(ctx context.Context, namespace string, records []Record) error

	// Query returns at most k matches from namespace in descending score
	// order. An unknown namespace yields no matches.
	Query(ctx context.Context, namespace string, vector []float64, k int) ([]Match, error)

	// Purge removes every record in namespace.
	Purge(ctx context.Context, namespace string) error

	Start(lc *lifecycle.Coordinator) error
}

// CheckRecords validates every record against dims before anything is written.
func CheckRecords(dims int, records []Record) error {
	for i, r := range records {
		if len(r.Vector) != dims {
			return fmt.Errorf("%w: record %d has %d dimensions, index expects %d",
				ErrDimensionMismatch, i, len(r.Vector), dims)
		}
	}
	return nil
}

// CheckQuery validates a query vector against dims.
func CheckQuery(dims int, vector []float64) error {
	if len(vector) != dims {
		return fmt.Errorf("%w: query has %d dimensions, index expects %d",
			ErrDimensionMismatch, len(vector), dims)
	}
	return nil
}
