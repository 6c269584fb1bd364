// Package openai is a client for OpenAI-compatible Chat Completions APIs. It
// serves both OpenAI and Groq, which differ only in base URL and models.
package openai

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
	DefaultBaseURL = "https://api.openai.com/v1"
	GroqBaseURL    = "https://api.groq.com/openai/v1"
)

// Client calls POST {baseURL}/chat/completions.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var (
	_ llm.Completer   = (*Client)(nil)
	_ llm.ModelProber = (*Client)(nil)
)

// NewClient creates a client. An empty baseURL selects the OpenAI endpoint.
func NewClient(apiKey, baseURL string, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, transport.ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
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

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int32         `json:"max_tokens"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends one chat completion with the prompt as the user message.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	hReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", nil)
	if err != nil {
		return llm.Completion{}, fmt.Errorf("build request: %w", err)
	}
	hReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	var parsed chatResponse
	err = transport.DoJSON(ctx, c.httpClient, hReq, chatRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxOutputTokens,
	}, &parsed)
	if err != nil {
		return llm.Completion{}, err
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return llm.Completion{}, transport.ErrEmptyResponse
	}

	out := llm.Completion{
		Text:  parsed.Choices[0].Message.Content,
		Model: parsed.Model,
	}
	if parsed.Usage != nil {
		out.Usage = &llm.TokenUsage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
			TotalTokens:  parsed.Usage.TotalTokens,
		}
	}
	return out, nil
}

// ProbeModel checks that the model is listed for this key.
func (c *Client) ProbeModel(ctx context.Context, model string) (*llm.ModelInfo, error) {
	hReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models/"+url.PathEscape(model), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	hReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	var parsed struct {
		ID      string `json:"id"`
		OwnedBy string `json:"owned_by"`
	}
	if err := transport.DoJSON(ctx, c.httpClient, hReq, nil, &parsed); err != nil {
		return nil, err
	}
	return &llm.ModelInfo{Name: model, DisplayName: parsed.ID, Available: true}, nil
}
