package providers

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/JaimeStill/rag-lab/internal/config"
)

// Gateway holds the configured providers and the currently active one.
// Callers take a snapshot with Active once per operation so that a switch
// in the middle of a request does not change the backend it talks to.
type Gateway struct {
	providers map[Name]*Provider
	active    atomic.Pointer[Provider]
	mu        sync.Mutex
	logger    *slog.Logger
}

// New builds every configured provider. A provider that cannot be built is
// skipped with a warning unless it is the active one.
func New(cfg *config.ProvidersConfig, logger *slog.Logger) (*Gateway, error) {
	logger = logger.With("system", "providers")

	active, err := ParseName(cfg.Active)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(cfg.Backends))
	for name := range cfg.Backends {
		names = append(names, name)
	}
	slices.Sort(names)

	var built []*Provider
	for _, raw := range names {
		name, err := ParseName(raw)
		if err != nil {
			return nil, err
		}

		backend := cfg.Backends[raw]
		p, err := build(name, &backend, cfg)
		if err != nil {
			if name == active {
				return nil, fmt.Errorf("active provider %s: %w", name, err)
			}
			logger.Warn("provider disabled", "provider", name, "error", err)
			continue
		}
		built = append(built, p)
	}

	return NewGateway(active, logger, built...)
}

// NewGateway assembles a gateway from already built providers.
func NewGateway(active Name, logger *slog.Logger, providers ...*Provider) (*Gateway, error) {
	g := &Gateway{
		providers: make(map[Name]*Provider, len(providers)),
		logger:    logger,
	}
	for _, p := range providers {
		g.providers[p.Name()] = p
	}

	p, ok := g.providers[active]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, active)
	}
	g.active.Store(p)
	return g, nil
}

// Active returns the provider used for new operations.
func (g *Gateway) Active() *Provider {
	return g.active.Load()
}

// Switch makes name the active provider. Vectors already written under the
// previous provider are left untouched.
func (g *Gateway) Switch(name Name) (*Provider, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	prev := g.active.Swap(p)
	if prev != p {
		g.logger.Info("active provider switched", "from", prev.Name(), "to", p.Name())
	}
	return p, nil
}

// List describes every available provider, sorted by name.
func (g *Gateway) List() []Info {
	active := g.Active()

	infos := make([]Info, 0, len(g.providers))
	for _, p := range g.providers {
		info := p.Info()
		info.Active = p == active
		infos = append(infos, info)
	}
	slices.SortFunc(infos, func(a, b Info) int {
		return strings.Compare(string(a.Name), string(b.Name))
	})
	return infos
}

func build(name Name, backend *config.BackendConfig, cfg *config.ProvidersConfig) (*Provider, error) {
	client := &http.Client{}

	completer, err := completerFor(&backend.Completion, client)
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}
	embedder, err := embedderFor(&backend.Embedding, client)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}

	g := &guarded{
		name: name,
		policy: Policy{
			Timeout:    backend.TimeoutDuration(),
			MaxRetries: cfg.Retries(),
			BaseDelay:  cfg.RetryBaseDelayDuration(),
			Limiter:    NewLimiter(backend.RequestsPerSecond, backend.Burst),
		},
		embedder:  embedder,
		completer: completer,
	}

	return NewProvider(Spec{
		Name:            name,
		CompletionModel: modelName(&backend.Completion),
		EmbeddingModel:  modelName(&backend.Embedding),
		Dimensions:      backend.Embedding.Dimensions,
		Embedder:        g,
		Completer:       g,
		CacheSize:       cfg.CacheSize,
	})
}

func rest(ep *config.EndpointConfig, client *http.Client) *restClient {
	return &restClient{
		http:    client,
		baseURL: strings.TrimSuffix(ep.BaseURL, "/"),
		apiKey:  ep.APIKey(),
	}
}

func completerFor(ep *config.EndpointConfig, client *http.Client) (Completer, error) {
	switch ep.Kind {
	case config.EndpointOpenAI:
		return &openAI{client: rest(ep, client), model: ep.Model}, nil
	case config.EndpointCohere:
		return &cohere{client: rest(ep, client), model: ep.Model}, nil
	case config.EndpointAgent:
		return newAgentBackend(ep.Agent)
	case config.EndpointHuggingFace:
		return nil, fmt.Errorf("%s endpoints cannot complete", ep.Kind)
	default:
		return nil, fmt.Errorf("unsupported endpoint kind %q", ep.Kind)
	}
}

func embedderFor(ep *config.EndpointConfig, client *http.Client) (Embedder, error) {
	switch ep.Kind {
	case config.EndpointOpenAI:
		return &openAI{client: rest(ep, client), model: ep.Model}, nil
	case config.EndpointCohere:
		return &cohere{client: rest(ep, client), model: ep.Model}, nil
	case config.EndpointHuggingFace:
		return &huggingFace{client: rest(ep, client), model: ep.Model}, nil
	case config.EndpointAgent:
		return newAgentBackend(ep.Agent)
	default:
		return nil, fmt.Errorf("unsupported endpoint kind %q", ep.Kind)
	}
}

func modelName(ep *config.EndpointConfig) string {
	if ep.Model != "" {
		return ep.Model
	}
	if m, ok := ep.Agent["model"].(map[string]any); ok {
		if name, ok := m["name"].(string); ok {
			return name
		}
	}
	return string(ep.Kind)
}
