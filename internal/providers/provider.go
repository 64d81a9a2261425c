// Package providers exposes interchangeable embedding and completion backends
// behind a single gateway whose active provider can be switched at runtime.
package providers

import (
	"context"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Name identifies a provider.
type Name string

// Supported providers.
const (
	Mistral  Name = "mistral"
	DeepSeek Name = "deepseek"
	Groq     Name = "groq"
	Cohere   Name = "cohere"
	Ollama   Name = "ollama"
)

// Names lists every supported provider.
var Names = []Name{Mistral, DeepSeek, Groq, Cohere, Ollama}

// ParseName validates s against the supported providers.
func ParseName(s string) (Name, error) {
	n := Name(s)
	if slices.Contains(Names, n) {
		return n, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Completer answers a single-turn prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Info describes a provider for listings.
type Info struct {
	Name            Name   `json:"name"`
	CompletionModel string `json:"completion_model"`
	EmbeddingModel  string `json:"embedding_model"`
	Dimensions      int    `json:"dimensions"`
	Active          bool   `json:"active"`
}

// Provider is an immutable pairing of an embedding backend and a completion
// backend. Values returned by Gateway.Active stay valid after a switch.
type Provider struct {
	info      Info
	embedder  Embedder
	completer Completer
	cache     *lru.Cache[string, []float64]
}

// Spec describes a provider assembled from arbitrary backends.
type Spec struct {
	Name            Name
	CompletionModel string
	EmbeddingModel  string
	Dimensions      int
	Embedder        Embedder
	Completer       Completer
	CacheSize       int
}

// NewProvider builds a provider from its backends. A CacheSize of zero
// disables embedding caching.
func NewProvider(spec Spec) (*Provider, error) {
	if spec.Embedder == nil || spec.Completer == nil {
		return nil, fmt.Errorf("provider %s: embedder and completer required", spec.Name)
	}
	if spec.Dimensions <= 0 {
		return nil, fmt.Errorf("provider %s: dimensions must be positive", spec.Name)
	}

	p := &Provider{
		info: Info{
			Name:            spec.Name,
			CompletionModel: spec.CompletionModel,
			EmbeddingModel:  spec.EmbeddingModel,
			Dimensions:      spec.Dimensions,
		},
		embedder:  spec.Embedder,
		completer: spec.Completer,
	}

	if spec.CacheSize > 0 {
		cache, err := lru.New[string, []float64](spec.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", spec.Name, err)
		}
		p.cache = cache
	}
	return p, nil
}

func (p *Provider) Name() Name      { return p.info.Name }
func (p *Provider) Dimensions() int { return p.info.Dimensions }
func (p *Provider) Info() Info      { return p.info }

// CheckDimensions fails with ErrProviderMismatch unless the provider's
// embeddings have exactly n components.
func (p *Provider) CheckDimensions(n int) error {
	if p.info.Dimensions != n {
		return fmt.Errorf("%w: %s embeds %d dimensions, index expects %d",
			ErrProviderMismatch, p.info.Name, p.info.Dimensions, n)
	}
	return nil
}

// Embed returns the embedding of text. Results are cached per provider, model
// and input; a backend answer of the wrong length fails with ErrProviderMismatch.
func (p *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	key := string(p.info.Name) + "\x00" + p.info.EmbeddingModel + "\x00" + text

	if p.cache != nil {
		if v, ok := p.cache.Get(key); ok {
			embeddingCache.WithLabelValues("hit").Inc()
			return slices.Clone(v), nil
		}
		embeddingCache.WithLabelValues("miss").Inc()
	}

	v, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(v) != p.info.Dimensions {
		return nil, fmt.Errorf("%w: %s returned %d dimensions, configured %d",
			ErrProviderMismatch, p.info.Name, len(v), p.info.Dimensions)
	}

	if p.cache != nil {
		p.cache.Add(key, slices.Clone(v))
	}
	return v, nil
}

// Complete runs a single-turn completion. No conversation state is kept.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	return p.completer.Complete(ctx, prompt)
}
