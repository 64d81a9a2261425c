package providers

import (
	"context"
	"fmt"
	"strings"
)

// cohere speaks the Cohere v2 chat and embed API.
type cohere struct {
	client *restClient
	model  string
}

type cohereChatRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type cohereChatResponse struct {
	Message struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

type cohereEmbedRequest struct {
	Model          string   `json:"model"`
	Texts          []string `json:"texts"`
	InputType      string   `json:"input_type"`
	EmbeddingTypes []string `json:"embedding_types"`
}

type cohereEmbedResponse struct {
	Embeddings struct {
		Float [][]float64 `json:"float"`
	} `json:"embeddings"`
}

func (c *cohere) Complete(ctx context.Context, prompt string) (string, error) {
	req := cohereChatRequest{
		Model:    c.model,
		Messages: []openAIMessage{{Role: "user", Content: prompt}},
	}

	var resp cohereChatResponse
	if err := c.client.post(ctx, "/v2/chat", req, &resp); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, part := range resp.Message.Content {
		if part.Type == "text" {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 && len(resp.Message.Content) == 0 {
		return "", fmt.Errorf("%w: empty message", ErrMalformedResponse)
	}
	return b.String(), nil
}

// Embed uses the search_document input type for both stored chunks and
// queries so that a single Embedder serves ingestion and retrieval.
func (c *cohere) Embed(ctx context.Context, text string) ([]float64, error) {
	req := cohereEmbedRequest{
		Model:          c.model,
		Texts:          []string{text},
		InputType:      "search_document",
		EmbeddingTypes: []string{"float"},
	}

	var resp cohereEmbedResponse
	if err := c.client.post(ctx, "/v2/embed", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings.Float) == 0 {
		return nil, fmt.Errorf("%w: no embeddings", ErrMalformedResponse)
	}
	return resp.Embeddings.Float[0], nil
}
