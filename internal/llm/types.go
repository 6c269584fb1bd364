// Package llm is the text-generation facade: a credential-driven registry of
// providers and a generator that tries them in order until one succeeds.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Kind identifies the API family a provider speaks.
type Kind string

const (
	KindGroq      Kind = "groq"
	KindGemini    Kind = "gemini"
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
)

// DefaultOrder is the registry priority: the fast inference provider first,
// the general-purpose cloud APIs after it.
var DefaultOrder = []Kind{KindGroq, KindGemini, KindOpenAI, KindAnthropic}

const (
	DefaultTemperature     float32 = 0.7
	DefaultMaxOutputTokens int32   = 2048
)

var defaultModels = map[Kind]string{
	KindGroq:      "llama-3.3-70b-versatile",
	KindGemini:    "gemini-2.0-flash",
	KindOpenAI:    "gpt-4o-mini",
	KindAnthropic: "claude-3-5-sonnet-latest",
}

// DefaultModel returns the model requested when none is configured.
func DefaultModel(kind Kind) string {
	return defaultModels[kind]
}

// ParseKind validates a provider kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := defaultModels[k]; !ok {
		return "", fmt.Errorf("unknown provider kind %q", s)
	}
	return k, nil
}

// Request is a single-turn generation request. Values are passed through to
// providers as given.
type Request struct {
	Prompt            string
	SystemPrompt      string
	Temperature       float32
	MaxOutputTokens   int32
	PreferredProvider string
}

// RequestOption adjusts a Request built by NewRequest.
type RequestOption func(*Request)

func WithTemperature(t float32) RequestOption {
	return func(r *Request) { r.Temperature = t }
}

func WithMaxOutputTokens(n int32) RequestOption {
	return func(r *Request) { r.MaxOutputTokens = n }
}

func WithPreferredProvider(name string) RequestOption {
	return func(r *Request) { r.PreferredProvider = name }
}

func WithSystemPrompt(s string) RequestOption {
	return func(r *Request) { r.SystemPrompt = s }
}

// NewRequest returns a request with the default temperature and token budget.
func NewRequest(prompt string, opts ...RequestOption) Request {
	req := Request{
		Prompt:          prompt,
		Temperature:     DefaultTemperature,
		MaxOutputTokens: DefaultMaxOutputTokens,
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// CompletionRequest is what a Completer receives: the generation request
// resolved against one provider's model.
type CompletionRequest struct {
	Model           string
	Prompt          string
	SystemPrompt    string
	Temperature     float32
	MaxOutputTokens int32
}

// TokenUsage represents token consumption reported by a provider
type TokenUsage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
	TotalTokens  int64 `json:"totalTokens"`
}

// Completion is one provider's answer.
type Completion struct {
	Text  string
	Model string
	Usage *TokenUsage
}

// Completer performs one completion against one provider. Implementations
// must not retry.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (Completion, error)

func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	return f(ctx, req)
}

// ModelInfo represents information about a provider's configured model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// ModelProber is implemented by clients that can check model availability.
// Probes are only run on demand, never while building a registry.
type ModelProber interface {
	ProbeModel(ctx context.Context, model string) (*ModelInfo, error)
}

// Provider describes one usable provider.
type Provider struct {
	Name   string
	Kind   Kind
	Model  string
	client Completer
}

// Client returns the provider's completion client.
func (p Provider) Client() Completer {
	return p.client
}

// Probe reports model availability if the client supports it.
func (p Provider) Probe(ctx context.Context) *ModelInfo {
	prober, ok := unwrapClient(p.client).(ModelProber)
	if !ok {
		return &ModelInfo{Name: p.Model, Available: true}
	}
	info, err := prober.ProbeModel(ctx, p.Model)
	if err != nil {
		return &ModelInfo{Name: p.Model, Error: err.Error()}
	}
	return info
}

// Stats returns circuit breaker statistics when the client is guarded by one.
func (p Provider) Stats() map[string]any {
	if b, ok := p.client.(*BreakerCompleter); ok {
		return b.Stats()
	}
	return map[string]any{"enabled": false}
}

// ProviderFailure records one failed attempt.
type ProviderFailure struct {
	Provider  string        `json:"provider"`
	Kind      Kind          `json:"kind"`
	Err       error         `json:"-"`
	Transient bool          `json:"transient"`
	Duration  time.Duration `json:"duration"`
}

// String renders the failure as "{name}: {message}".
func (f ProviderFailure) String() string {
	return f.Provider + ": " + f.Err.Error()
}

// Result is a successful generation.
type Result struct {
	Text      string
	Provider  string
	Kind      Kind
	Model     string
	Usage     *TokenUsage
	Failures  []ProviderFailure
	Attempts  int
	RequestID string
}

// FailureDetails returns the "{name}: {message}" strings of attempts that
// failed before the winning provider answered.
func (r *Result) FailureDetails() []string {
	return failureStrings(r.Failures)
}
