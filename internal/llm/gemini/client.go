package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"findoc-backend/internal/llm"
)

// Client implements llm.Client using the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient constructs a Gemini client. The API key is read from the
// environment by the genai SDK when cfg is nil; passing it explicitly keeps
// configuration in one place.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Gemini")
	}
	var cfg *genai.ClientConfig
	if strings.TrimSpace(apiKey) != "" {
		cfg = &genai.ClientConfig{APIKey: apiKey}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client init: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Complete sends the prompt as a single-turn chat and returns the first text
// part of the response.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	chat, err := c.client.Chats.Create(ctx, c.model, nil, nil)
	if err != nil {
		return "", fmt.Errorf("gemini chat create: %w", err)
	}
	resp, err := chat.Send(ctx, &genai.Part{Text: prompt})
	if err != nil {
		return "", fmt.Errorf("gemini send: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response empty")
	}
	text := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", fmt.Errorf("gemini response empty content")
	}
	return text, nil
}

var _ llm.Client = (*Client)(nil)
