// Package anthropic is a client for the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"resumepilot/internal/llm"
	"resumepilot/internal/llm/transport"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
)

// Client calls POST {baseURL}/v1/messages.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var (
	_ llm.Completer   = (*Client)(nil)
	_ llm.ModelProber = (*Client)(nil)
)

func NewClient(apiKey, baseURL string, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, transport.ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = transport.NewHTTPClient(0)
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int32     `json:"max_tokens"`
	Temperature float32   `json:"temperature"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage *struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

func (c *Client) newRequest(ctx context.Context, method, path string) (*http.Request, error) {
	hReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	hReq.Header.Set("x-api-key", c.apiKey)
	hReq.Header.Set("anthropic-version", apiVersion)
	return hReq, nil
}

// Complete sends one message; the system prompt uses the top-level field.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	hReq, err := c.newRequest(ctx, http.MethodPost, "/v1/messages")
	if err != nil {
		return llm.Completion{}, err
	}

	var parsed messagesResponse
	err = transport.DoJSON(ctx, c.httpClient, hReq, messagesRequest{
		Model:       req.Model,
		System:      req.SystemPrompt,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.MaxOutputTokens,
		Temperature: req.Temperature,
	}, &parsed)
	if err != nil {
		return llm.Completion{}, err
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return llm.Completion{}, transport.ErrEmptyResponse
	}

	out := llm.Completion{Text: text.String(), Model: parsed.Model}
	if parsed.Usage != nil {
		out.Usage = &llm.TokenUsage{
			InputTokens:  parsed.Usage.InputTokens,
			OutputTokens: parsed.Usage.OutputTokens,
			TotalTokens:  parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		}
	}
	return out, nil
}

// ProbeModel looks the model up in the models endpoint.
func (c *Client) ProbeModel(ctx context.Context, model string) (*llm.ModelInfo, error) {
	hReq, err := c.newRequest(ctx, http.MethodGet, "/v1/models/"+url.PathEscape(model))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	}
	if err := transport.DoJSON(ctx, c.httpClient, hReq, nil, &parsed); err != nil {
		return nil, err
	}
	return &llm.ModelInfo{Name: model, DisplayName: parsed.DisplayName, Available: true}, nil
}
