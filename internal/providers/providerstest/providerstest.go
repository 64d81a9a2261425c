// Package providerstest supplies deterministic in-process backends for
// tests that need a provider gateway without network access.
package providerstest

import (
	"context"
	"hash/fnv"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"unicode"

	"github.com/JaimeStill/rag-lab/internal/providers"
)

// BagOfWords hashes lower-cased words into a fixed number of buckets and
// normalizes the result. Texts sharing words have positive cosine similarity.
type BagOfWords struct {
	Dims  int
	Calls atomic.Int64
	Err   error
}

func (b *BagOfWords) Embed(ctx context.Context, text string) ([]float64, error) {
	b.Calls.Add(1)
	if b.Err != nil {
		return nil, b.Err
	}

	v := make([]float64, b.Dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[int(h.Sum32())%b.Dims]++
	}

	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range v {
			v[i] /= norm
		}
	}
	return v, nil
}

// Echo answers with a fixed prefix followed by the prompt it received.
type Echo struct {
	Prefix string
	Err    error

	last atomic.Pointer[string]
}

func (e *Echo) Complete(ctx context.Context, prompt string) (string, error) {
	e.last.Store(&prompt)
	if e.Err != nil {
		return "", e.Err
	}
	return e.Prefix + prompt, nil
}

// LastPrompt returns the most recent prompt, or "" before the first call.
func (e *Echo) LastPrompt() string {
	if p := e.last.Load(); p != nil {
		return *p
	}
	return ""
}

// Backend is a provider built from test doubles.
type Backend struct {
	Provider *providers.Provider
	Embedder *BagOfWords
	Echo     *Echo
}

// New builds a provider named name whose embeddings have dims components.
func New(t testing.TB, name providers.Name, dims int) *Backend {
	t.Helper()

	emb := &BagOfWords{Dims: dims}
	echo := &Echo{Prefix: string(name) + ": "}

	p, err := providers.NewProvider(providers.Spec{
		Name:            name,
		CompletionModel: "echo",
		EmbeddingModel:  "bag-of-words",
		Dimensions:      dims,
		Embedder:        emb,
		Completer:       echo,
	})
	if err != nil {
		t.Fatalf("NewProvider(%s) error = %v", name, err)
	}
	return &Backend{Provider: p, Embedder: emb, Echo: echo}
}

// Gateway builds a gateway over backends with the first one active.
func Gateway(t testing.TB, backends ...*Backend) *providers.Gateway {
	t.Helper()

	ps := make([]*providers.Provider, len(backends))
	for i, b := range backends {
		ps[i] = b.Provider
	}

	gw, err := providers.NewGateway(ps[0].Name(), slog.New(slog.NewTextHandler(io.Discard, nil)), ps...)
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}
	return gw
}
