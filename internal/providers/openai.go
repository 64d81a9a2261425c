package providers

import (
	"context"
	"fmt"
)

// openAI speaks the OpenAI-compatible API exposed by Mistral, DeepSeek and Groq.
type openAI struct {
	client *restClient
	model  string
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

type openAIEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (o *openAI) Complete(ctx context.Context, prompt string) (string, error) {
	req := openAIChatRequest{
		Model:    o.model,
		Messages: []openAIMessage{{Role: "user", Content: prompt}},
	}

	var resp openAIChatResponse
	if err := o.client.post(ctx, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *openAI) Embed(ctx context.Context, text string) ([]float64, error) {
	var resp openAIEmbedResponse
	if err := o.client.post(ctx, "/embeddings", openAIEmbedRequest{Model: o.model, Input: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embedding data", ErrMalformedResponse)
	}
	return resp.Data[0].Embedding, nil
}
