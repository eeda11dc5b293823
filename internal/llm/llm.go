package llm

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps an OpenAI-compatible API client behind the single Generate
// operation the assistant needs. It performs no JSON parsing; interpreting
// the returned text is the caller's concern.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
}

// New creates a new generation client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:         openai.NewClientWithConfig(config),
		model:       modelName,
		temperature: 0.4,
	}
}

// Generate sends the prompt to the generation service and returns its raw
// text reply.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generation API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generation service returned no choices")
	}
	raw := resp.Choices[0].Message.Content
	slog.Debug("generation response", "raw", raw)
	return raw, nil
}

// Ping verifies the endpoint is reachable and credentials are accepted.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("generation service health check: %w", err)
	}
	return nil
}
