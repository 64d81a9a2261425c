// Package memory implements an in-process vector index ranked by cosine similarity.
package memory

import (
	"context"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/rag-lab/internal/vectors"
	"github.com/JaimeStill/rag-lab/pkg/lifecycle"
)

type entry struct {
	record vectors.Record
	norm   float64
}

type index struct {
	dims       int
	mu         sync.RWMutex
	namespaces map[string][]entry
	logger     *slog.Logger
}

// New creates an empty index for vectors of length dims.
func New(dims int, logger *slog.Logger) vectors.Index {
	return &index{
		dims:       dims,
		namespaces: make(map[string][]entry),
		logger:     logger.With("system", "vectors", "backend", "memory"),
	}
}

func (x *index) Dimensions() int {
	return x.dims
}

func (x *index) Start(lc *lifecycle.Coordinator) error {
	x.logger.Info("starting vector index", "dimensions", x.dims)
	return nil
}

func (x *index) Upsert(ctx context.Context, namespace string, records []vectors.Record) error {
	if err := vectors.CheckRecords(x.dims, records); err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	entries := x.namespaces[namespace]
	for _, r := range records {
		r.Vector = slices.Clone(r.Vector)
		r.Metadata = maps.Clone(r.Metadata)
		if r.ID == "" {
			r.ID = uuid.NewString()
		}

		e := entry{record: r, norm: norm(r.Vector)}
		if i := slices.IndexFunc(entries, func(e entry) bool { return e.record.ID == r.ID }); i >= 0 {
			entries[i] = e
			continue
		}
		entries = append(entries, e)
	}
	x.namespaces[namespace] = entries

	return nil
}

func (x *index) Query(ctx context.Context, namespace string, vector []float64, k int) ([]vectors.Match, error) {
	if err := vectors.CheckQuery(x.dims, vector); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []vectors.Match{}, nil
	}

	x.mu.RLock()
	entries := x.namespaces[namespace]
	matches := make([]vectors.Match, len(entries))
	qnorm := norm(vector)
	for i, e := range entries {
		matches[i] = vectors.Match{
			Text:     e.record.Text,
			Score:    cosine(vector, qnorm, e.record.Vector, e.norm),
			Metadata: maps.Clone(e.record.Metadata),
		}
	}
	x.mu.RUnlock()

	slices.SortStableFunc(matches, func(a, b vectors.Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (x *index) Purge(ctx context.Context, namespace string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if n := len(x.namespaces[namespace]); n > 0 {
		x.logger.Info("namespace purged", "namespace", namespace, "records", n)
	}
	delete(x.namespaces, namespace)
	return nil
}

func norm(v []float64) float64 {
	var sum float64
	for _, f := range v {
		sum += f * f
	}
	return math.Sqrt(sum)
}

// cosine is zero when either vector has no magnitude.
func cosine(a []float64, anorm float64, b []float64, bnorm float64) float64 {
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (anorm * bnorm)
}
