// Package gemini adapts the Google Gen AI SDK to llm.Completer.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"resumepilot/internal/llm"
	"resumepilot/internal/llm/transport"

	"google.golang.org/genai"
)

// Client wraps a genai client.
type Client struct {
	client *genai.Client
}

var (
	_ llm.Completer   = (*Client)(nil)
	_ llm.ModelProber = (*Client)(nil)
)

// NewClient creates a Gemini API client. The SDK does no network I/O here.
func NewClient(ctx context.Context, apiKey, baseURL string, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, transport.ErrMissingAPIKey
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client}, nil
}

// Complete sends the prompt as a single text content.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: req.MaxOutputTokens,
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	result, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return llm.Completion{}, err
	}

	text := result.Text()
	if text == "" {
		return llm.Completion{}, transport.ErrEmptyResponse
	}

	return llm.Completion{
		Text:  text,
		Model: result.ModelVersion,
		Usage: extractTokenUsage(result),
	}, nil
}

// ProbeModel fetches model metadata.
func (c *Client) ProbeModel(ctx context.Context, model string) (*llm.ModelInfo, error) {
	m, err := c.client.Models.Get(ctx, model, &genai.GetModelConfig{})
	if err != nil {
		return nil, err
	}
	return &llm.ModelInfo{Name: model, DisplayName: m.DisplayName, Available: true}, nil
}

func extractTokenUsage(result *genai.GenerateContentResponse) *llm.TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &llm.TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
