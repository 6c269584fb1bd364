package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"resumepilot/internal/config"
	"resumepilot/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{AI: config.AIConfig{
		ProviderOrder: []string{"groq", "gemini", "openai", "anthropic"},
	}}
}

func TestSpecsFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.AI.ProviderOrder = []string{"anthropic", "groq"}
	cfg.AI.Providers.Groq = config.ProviderConfig{APIKey: "g", Model: "llama-3.1-8b-instant"}
	cfg.AI.Providers.OpenAI = config.ProviderConfig{APIKey: "o"}

	specs, err := SpecsFromConfig(&cfg.AI)
	require.NoError(t, err)
	require.Len(t, specs, 2, "providers outside providerOrder are dropped")

	assert.Equal(t, llm.KindAnthropic, specs[0].Kind)
	assert.Empty(t, specs[0].APIKey)
	assert.Equal(t, llm.KindGroq, specs[1].Kind)
	assert.Equal(t, "llama-3.1-8b-instant", specs[1].Model)
}

func TestNewLazyRegistryOnlyConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Providers.Gemini.APIKey = "gemini-key"
	cfg.AI.Providers.Anthropic.APIKey = "anthropic-key"

	r := NewLazyRegistry(cfg, nil).Get()
	assert.Equal(t, []string{"gemini", "anthropic"}, r.Names())

	p, ok := r.Lookup("gemini")
	require.True(t, ok)
	assert.Equal(t, llm.DefaultModel(llm.KindGemini), p.Model)
	assert.Equal(t, "gemini (gemini-2.0-flash), anthropic (claude-3-5-sonnet-latest)", Describe(r))
}

func TestNewLazyRegistryEmpty(t *testing.T) {
	r := NewLazyRegistry(testConfig(), nil).Get()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, "no providers configured", Describe(r))
}

func TestWithBreakers(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Providers.OpenAI.APIKey = "k"

	cfg.AI.CircuitBreaker = config.CircuitBreakerConfig{Enabled: true, MaxRequests: 1, MinRequests: 1, FailureThreshold: 0.5}
	p, _ := NewLazyRegistry(cfg, nil).Get().Lookup("openai")
	_, wrapped := p.Client().(*llm.BreakerCompleter)
	assert.True(t, wrapped)
	assert.Equal(t, true, p.Stats()["enabled"])

	cfg.AI.CircuitBreaker.Enabled = false
	p, _ = NewLazyRegistry(cfg, nil).Get().Lookup("openai")
	_, wrapped = p.Client().(*llm.BreakerCompleter)
	assert.False(t, wrapped)
	assert.Equal(t, false, p.Stats()["enabled"])
}

func TestGeneratorFallsBackAcrossRealClients(t *testing.T) {
	var groqCalls, anthropicCalls atomic.Int32

	groq := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		groqCalls.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer groq.Close()

	anthropic := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		anthropicCalls.Add(1)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "anthropic-key", r.Header.Get("x-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"claude-x","content":[{"type":"text","text":"hello"}],"usage":{"input_tokens":2,"output_tokens":1}}`))
	}))
	defer anthropic.Close()

	cfg := testConfig()
	cfg.AI.Providers.Groq = config.ProviderConfig{APIKey: "groq-key", BaseURL: groq.URL}
	cfg.AI.Providers.Anthropic = config.ProviderConfig{APIKey: "anthropic-key", BaseURL: anthropic.URL}

	gen := NewGenerator(cfg, nil)
	res, err := gen.Generate(context.Background(), llm.NewRequest("hi"))
	require.NoError(t, err)

	assert.Equal(t, "hello", res.Text)
	assert.Equal(t, "anthropic", res.Provider)
	assert.Equal(t, int64(3), res.Usage.TotalTokens)
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.FailureDetails()[0], "groq: provider returned status 429")
	assert.True(t, res.Failures[0].Transient)
	assert.Equal(t, int32(1), groqCalls.Load())
	assert.Equal(t, int32(1), anthropicCalls.Load())
}

func TestGeneratorNotConfigured(t *testing.T) {
	_, err := NewGenerator(testConfig(), nil).GenerateText(context.Background(), "hi")
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}
