package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// huggingFace calls the feature-extraction pipeline of the inference API.
// Sentence-transformer models return a pooled vector; token-level models
// return one vector per token, which is mean pooled here.
type huggingFace struct {
	client *restClient
	model  string
}

func (h *huggingFace) Embed(ctx context.Context, text string) ([]float64, error) {
	path := "/models/" + (&url.URL{Path: h.model}).EscapedPath() + "/pipeline/feature-extraction"

	var raw json.RawMessage
	if err := h.client.post(ctx, path, map[string]any{"inputs": text}, &raw); err != nil {
		return nil, err
	}

	var pooled []float64
	if err := json.Unmarshal(raw, &pooled); err == nil {
		return pooled, nil
	}

	var tokens [][]float64
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return meanPool(tokens)
}

func meanPool(tokens [][]float64) ([]float64, error) {
	if len(tokens) == 0 || len(tokens[0]) == 0 {
		return nil, fmt.Errorf("%w: empty feature matrix", ErrMalformedResponse)
	}

	out := make([]float64, len(tokens[0]))
	for _, t := range tokens {
		if len(t) != len(out) {
			return nil, fmt.Errorf("%w: ragged feature matrix", ErrMalformedResponse)
		}
		for i, v := range t {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= float64(len(tokens))
	}
	return out, nil
}
