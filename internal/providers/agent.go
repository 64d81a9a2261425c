package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/JaimeStill/go-agents/pkg/agent"
	"github.com/JaimeStill/go-agents/pkg/client"
	agtconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/rag-lab/pkg/decode"
)

// agentBackend delegates to a go-agents agent, typically a local Ollama model.
// The agent's own client never retries; failures are classified like the REST
// backends so the gateway Policy is the only retry loop.
type agentBackend struct {
	agent agent.Agent
}

func newAgentBackend(table map[string]any) (*agentBackend, error) {
	userCfg, err := decode.FromMap[agtconfig.AgentConfig](table)
	if err != nil {
		return nil, fmt.Errorf("decode agent config: %w", err)
	}

	cfg := agtconfig.DefaultAgentConfig()
	cfg.Merge(&userCfg)

	// Merge ignores zero values, so the retry budget is cleared afterwards.
	if cfg.Client == nil {
		cfg.Client = agtconfig.DefaultClientConfig()
	}
	cfg.Client.Retry.MaxRetries = 0

	a, err := agent.New(&cfg)
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	return &agentBackend{agent: a}, nil
}

func (a *agentBackend) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.agent.Chat(ctx, prompt)
	if err != nil {
		return "", classifyAgentError(err)
	}
	return resp.Content(), nil
}

func (a *agentBackend) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := a.agent.Embed(ctx, text)
	if err != nil {
		return nil, classifyAgentError(err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embedding data", ErrMalformedResponse)
	}
	return resp.Data[0].Embedding, nil
}

// classifyAgentError maps go-agents failures onto the gateway errors with
// the same rules classify applies to REST responses.
func classifyAgentError(err error) error {
	var status *client.HTTPStatusError
	if errors.As(err, &status) {
		switch {
		case status.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimit, err)
		case status.StatusCode >= 500, status.StatusCode == http.StatusRequestTimeout:
			return transient(fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
		default:
			return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && !errors.Is(err, context.Canceled) {
		return transient(fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
