package config

import (
	"fmt"
	"os"
	"time"
)

const EnvProvidersActive = "PROVIDERS_ACTIVE"

// EndpointKind selects the wire protocol used to reach a backend.
type EndpointKind string

const (
	// EndpointOpenAI speaks the OpenAI-compatible chat/completions and embeddings API.
	EndpointOpenAI EndpointKind = "openai"
	// EndpointCohere speaks the Cohere v2 chat and embed API.
	EndpointCohere EndpointKind = "cohere"
	// EndpointHuggingFace calls the Hugging Face feature-extraction pipeline (embeddings only).
	EndpointHuggingFace EndpointKind = "huggingface"
	// EndpointAgent delegates to a go-agents agent (for example a local Ollama model).
	EndpointAgent EndpointKind = "agent"
)

// EndpointConfig configures one capability of a provider.
type EndpointConfig struct {
	Kind       EndpointKind   `toml:"kind"`
	BaseURL    string         `toml:"base_url"`
	Model      string         `toml:"model"`
	APIKeyEnv  string         `toml:"api_key_env"`
	Dimensions int            `toml:"dimensions"`
	Agent      map[string]any `toml:"agent"`
}

// APIKey resolves the key from the configured environment variable.
func (c *EndpointConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

func (c *EndpointConfig) merge(overlay *EndpointConfig) {
	if overlay.Kind != "" {
		c.Kind = overlay.Kind
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.APIKeyEnv != "" {
		c.APIKeyEnv = overlay.APIKeyEnv
	}
	if overlay.Dimensions != 0 {
		c.Dimensions = overlay.Dimensions
	}
	if overlay.Agent != nil {
		c.Agent = overlay.Agent
	}
}

func (c *EndpointConfig) validate(embedding bool) error {
	switch c.Kind {
	case EndpointOpenAI, EndpointCohere:
		if c.BaseURL == "" || c.Model == "" {
			return fmt.Errorf("%s endpoint requires base_url and model", c.Kind)
		}
	case EndpointHuggingFace:
		if !embedding {
			return fmt.Errorf("huggingface endpoints support embeddings only")
		}
		if c.BaseURL == "" || c.Model == "" {
			return fmt.Errorf("%s endpoint requires base_url and model", c.Kind)
		}
	case EndpointAgent:
		if len(c.Agent) == 0 {
			return fmt.Errorf("agent endpoint requires an agent table")
		}
	default:
		return fmt.Errorf("invalid kind: %q", c.Kind)
	}
	if embedding && c.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive")
	}
	return nil
}

// BackendConfig pairs the completion and embedding endpoints of one provider
// with its call policy.
type BackendConfig struct {
	Completion        EndpointConfig `toml:"completion"`
	Embedding         EndpointConfig `toml:"embedding"`
	Timeout           string         `toml:"timeout"`
	RequestsPerSecond float64        `toml:"requests_per_second"`
	Burst             int            `toml:"burst"`
}

func (c *BackendConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

func (c *BackendConfig) merge(overlay *BackendConfig) {
	c.Completion.merge(&overlay.Completion)
	c.Embedding.merge(&overlay.Embedding)
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.RequestsPerSecond != 0 {
		c.RequestsPerSecond = overlay.RequestsPerSecond
	}
	if overlay.Burst != 0 {
		c.Burst = overlay.Burst
	}
}

// ProvidersConfig configures the provider gateway.
type ProvidersConfig struct {
	Active         string                   `toml:"active"`
	CacheSize      int                      `toml:"cache_size"`
	MaxRetries     *int                     `toml:"max_retries"`
	RetryBaseDelay string                   `toml:"retry_base_delay"`
	Backends       map[string]BackendConfig `toml:"backends"`
}

func (c *ProvidersConfig) RetryBaseDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryBaseDelay)
	return d
}

// Retries returns the configured retry bound for transient failures.
func (c *ProvidersConfig) Retries() int {
	if c.MaxRetries == nil {
		return 2
	}
	return *c.MaxRetries
}

const (
	huggingFaceBaseURL = "https://router.huggingface.co/hf-inference"
	mpnetModel         = "sentence-transformers/all-mpnet-base-v2"
	mpnetDimensions    = 768
)

func hfEmbedding() EndpointConfig {
	return EndpointConfig{
		Kind:       EndpointHuggingFace,
		BaseURL:    huggingFaceBaseURL,
		Model:      mpnetModel,
		APIKeyEnv:  "HUGGINGFACEHUB_API_TOKEN",
		Dimensions: mpnetDimensions,
	}
}

// DefaultBackends returns the built-in provider definitions.
func DefaultBackends() map[string]BackendConfig {
	return map[string]BackendConfig{
		"mistral": {
			Completion: EndpointConfig{Kind: EndpointOpenAI, BaseURL: "https://api.mistral.ai/v1", Model: "mistral-small-latest", APIKeyEnv: "MISTRAL_API_KEY"},
			Embedding:  hfEmbedding(),
		},
		"deepseek": {
			Completion: EndpointConfig{Kind: EndpointOpenAI, BaseURL: "https://api.deepseek.com/v1", Model: "deepseek-chat", APIKeyEnv: "DEEPSEEK_API_KEY"},
			Embedding:  hfEmbedding(),
		},
		"groq": {
			Completion: EndpointConfig{Kind: EndpointOpenAI, BaseURL: "https://api.groq.com/openai/v1", Model: "llama-3.1-8b-instant", APIKeyEnv: "GROQ_API_KEY"},
			Embedding:  hfEmbedding(),
		},
		"cohere": {
			Completion: EndpointConfig{Kind: EndpointCohere, BaseURL: "https://api.cohere.com", Model: "command-r", APIKeyEnv: "COHERE_API_KEY"},
			Embedding:  EndpointConfig{Kind: EndpointCohere, BaseURL: "https://api.cohere.com", Model: "embed-english-v3.0", APIKeyEnv: "COHERE_API_KEY", Dimensions: 1024},
		},
		"ollama": {
			Completion: EndpointConfig{Kind: EndpointAgent, Agent: ollamaAgent("llama3.2")},
			Embedding:  EndpointConfig{Kind: EndpointAgent, Agent: ollamaAgent("nomic-embed-text"), Dimensions: 768},
		},
	}
}

func ollamaAgent(model string) map[string]any {
	return map[string]any{
		"name": "ollama-" + model,
		"provider": map[string]any{
			"name":     "ollama",
			"base_url": "http://localhost:11434",
		},
		"model": map[string]any{
			"name": model,
		},
	}
}

// Finalize applies defaults, loads environment overrides, and validates the providers configuration.
func (c *ProvidersConfig) Finalize() error {
	c.loadDefaults()
	if v := os.Getenv(EnvProvidersActive); v != "" {
		c.Active = v
	}
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *ProvidersConfig) Merge(overlay *ProvidersConfig) {
	if overlay.Active != "" {
		c.Active = overlay.Active
	}
	if overlay.CacheSize != 0 {
		c.CacheSize = overlay.CacheSize
	}
	if overlay.MaxRetries != nil {
		c.MaxRetries = overlay.MaxRetries
	}
	if overlay.RetryBaseDelay != "" {
		c.RetryBaseDelay = overlay.RetryBaseDelay
	}
	for name, b := range overlay.Backends {
		if c.Backends == nil {
			c.Backends = make(map[string]BackendConfig)
		}
		base := c.Backends[name]
		base.merge(&b)
		c.Backends[name] = base
	}
}

func (c *ProvidersConfig) loadDefaults() {
	if c.Active == "" {
		c.Active = "mistral"
	}
	if c.CacheSize == 0 {
		c.CacheSize = 4096
	}
	if c.RetryBaseDelay == "" {
		c.RetryBaseDelay = "250ms"
	}

	defaults := DefaultBackends()
	if c.Backends == nil {
		c.Backends = make(map[string]BackendConfig)
	}
	for name, def := range defaults {
		configured, ok := c.Backends[name]
		if ok {
			def.merge(&configured)
		}
		c.Backends[name] = def
	}

	for name, b := range c.Backends {
		if b.Timeout == "" {
			b.Timeout = "30s"
		}
		if b.RequestsPerSecond > 0 && b.Burst == 0 {
			b.Burst = 1
		}
		c.Backends[name] = b
	}
}

func (c *ProvidersConfig) validate() error {
	if _, ok := c.Backends[c.Active]; !ok {
		return fmt.Errorf("active provider %q is not configured", c.Active)
	}
	if c.Retries() < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if _, err := time.ParseDuration(c.RetryBaseDelay); err != nil {
		return fmt.Errorf("invalid retry_base_delay: %w", err)
	}
	for name, b := range c.Backends {
		if err := b.Completion.validate(false); err != nil {
			return fmt.Errorf("%s.completion: %w", name, err)
		}
		if err := b.Embedding.validate(true); err != nil {
			return fmt.Errorf("%s.embedding: %w", name, err)
		}
		if _, err := time.ParseDuration(b.Timeout); err != nil {
			return fmt.Errorf("%s: invalid timeout: %w", name, err)
		}
	}
	return nil
}
