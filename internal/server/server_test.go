package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"resumepilot/internal/ai"
	"resumepilot/internal/config"
	"resumepilot/internal/errors"
	"resumepilot/internal/llm"
	"resumepilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider answers with text, or fails with err when set.
type stubProvider struct {
	text  string
	err   error
	calls atomic.Int32
}

func (p *stubProvider) Complete(_ context.Context, _ llm.CompletionRequest) (llm.Completion, error) {
	p.calls.Add(1)
	if p.err != nil {
		return llm.Completion{}, p.err
	}
	return llm.Completion{Text: p.text, Usage: &llm.TokenUsage{InputTokens: 3, OutputTokens: 4, TotalTokens: 7}}, nil
}

// retiredModelProvider answers completions but reports its model as gone
type retiredModelProvider struct {
	stubProvider
}

func (p *retiredModelProvider) ProbeModel(context.Context, string) (*llm.ModelInfo, error) {
	return nil, stderrors.New("model not found")
}

type providerSetup struct {
	kind     llm.Kind
	provider llm.Completer
}

func testAppConfig() *config.Config {
	return &config.Config{AI: config.AIConfig{
		Temperature:      0.7,
		MaxOutputTokens:  1024,
		UseSystemPrompts: true,
	}}
}

func newTestServer(t *testing.T, serverCfg ServerConfig, setups ...providerSetup) *Server {
	t.Helper()
	specs := make([]llm.ProviderSpec, 0, len(setups))
	ctors := llm.Constructors{}
	for _, s := range setups {
		p := s.provider
		specs = append(specs, llm.ProviderSpec{Kind: s.kind, APIKey: "key-" + string(s.kind)})
		ctors[s.kind] = func(llm.ProviderSpec) (llm.Completer, error) { return p, nil }
	}

	appCfg := testAppConfig()
	srv := NewServer(appCfg, serverCfg, nil)
	t.Cleanup(func() {
		if srv.RateLimiter != nil {
			srv.RateLimiter.Close()
		}
	})

	gen := llm.NewGenerator(llm.StaticRegistry(llm.NewRegistry(specs, ctors, nil)))
	srv.Service = ai.NewService(appCfg, gen, nil)
	return srv
}

func doRequest(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestBulletsEndpointSuccess(t *testing.T) {
	groq := &stubProvider{text: "- Cut deploy time by 40%"}
	srv := newTestServer(t, ServerConfig{}, providerSetup{llm.KindGroq, groq})

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/bullets",
		`{"bullets":"- made deploys faster","targetRole":"SRE"}`,
		map[string]string{requestIDHeader: "req-123"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))

	var out types.GenerationOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "bullets", out.Task)
	assert.Equal(t, "- Cut deploy time by 40%", out.Content)
	assert.Equal(t, "groq", out.Provider)
	assert.Equal(t, "req-123", out.RequestID)
	assert.Equal(t, int64(7), out.Usage.TotalTokens)
	assert.Equal(t, int32(1), groq.calls.Load())
}

func TestFallbackErrorsReturnedOnSuccess(t *testing.T) {
	groq := &stubProvider{err: stderrors.New("provider returned status 429")}
	gemini := &stubProvider{text: "Hello"}
	srv := newTestServer(t, ServerConfig{},
		providerSetup{llm.KindGroq, groq},
		providerSetup{llm.KindGemini, gemini})

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/generate", `{"prompt":"Say hello"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out types.GenerationOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "gemini", out.Provider)
	assert.Equal(t, []string{"groq: provider returned status 429"}, out.FallbackErrors)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestPreferredProviderInBody(t *testing.T) {
	groq := &stubProvider{text: "from groq"}
	openai := &stubProvider{text: "from openai"}
	srv := newTestServer(t, ServerConfig{},
		providerSetup{llm.KindGroq, groq},
		providerSetup{llm.KindOpenAI, openai})

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/generate", `{"prompt":"hi","provider":"openai"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "from openai")
	assert.Equal(t, int32(0), groq.calls.Load())
}

func TestTaskErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		setups     []providerSetup
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing required field",
			setups:     []providerSetup{{llm.KindGroq, &stubProvider{text: "x"}}},
			path:       "/cover-letter",
			body:       `{"resume":"my resume"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.ErrCodeInvalidInput,
		},
		{
			name:       "no provider configured",
			path:       "/bio",
			body:       `{"platform":"linkedin","resume":"my resume"}`,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   errors.ErrCodeNotConfigured,
		},
		{
			name: "every provider failed",
			setups: []providerSetup{
				{llm.KindGroq, &stubProvider{err: stderrors.New("boom")}},
				{llm.KindAnthropic, &stubProvider{err: stderrors.New("overloaded")}},
			},
			path:       "/projects",
			body:       `{"targetRole":"Data Engineer"}`,
			wantStatus: http.StatusBadGateway,
			wantCode:   errors.ErrCodeAllProvidersDown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, ServerConfig{}, tt.setups...)
			rec := doRequest(t, srv.Handler(), http.MethodPost, tt.path, tt.body, nil)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestAllFailedDetailsKeepAttemptOrder(t *testing.T) {
	srv := newTestServer(t, ServerConfig{},
		providerSetup{llm.KindGroq, &stubProvider{err: stderrors.New("boom")}},
		providerSetup{llm.KindAnthropic, &stubProvider{err: stderrors.New("overloaded")}})

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/email", `{"kind":"follow_up","companyName":"Acme"}`, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp struct {
		Details struct {
			Failures []string `json:"failures"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"groq: boom", "anthropic: overloaded"}, resp.Details.Failures)
}

func TestBadRequestBodies(t *testing.T) {
	srv := newTestServer(t, ServerConfig{MaxRequestSize: 64}, providerSetup{llm.KindGroq, &stubProvider{text: "x"}})
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodPost, "/generate", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"prompt":"hi"}`))
	req.Header.Set("Content-Type", "text/plain")
	plain := httptest.NewRecorder()
	h.ServeHTTP(plain, req)
	assert.Equal(t, http.StatusBadRequest, plain.Code)
	assert.Contains(t, decodeError(t, plain).Message, "application/json")

	big := fmt.Sprintf(`{"prompt":"%s"}`, strings.Repeat("a", 200))
	rec = doRequest(t, h, http.MethodPost, "/generate", big, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "too large")
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, ServerConfig{}, providerSetup{llm.KindGroq, &stubProvider{text: "x"}})
	rec := doRequest(t, srv.Handler(), http.MethodGet, "/bullets", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	srv := newTestServer(t, ServerConfig{APIKeys: []string{"secret-key-123"}},
		providerSetup{llm.KindGroq, &stubProvider{text: "ok"}})
	h := srv.Handler()
	body := `{"prompt":"hi"}`

	rec := doRequest(t, h, http.MethodPost, "/generate", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Missing API key", decodeError(t, rec).Error)

	rec = doRequest(t, h, http.MethodPost, "/generate", body, map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid API key", decodeError(t, rec).Error)

	rec = doRequest(t, h, http.MethodPost, "/generate", body, map[string]string{"X-API-Key": "secret-key-123"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/generate", body, map[string]string{"Authorization": "Bearer secret-key-123"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays public
	rec = doRequest(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitRejectsOverBurst(t *testing.T) {
	srv := newTestServer(t, ServerConfig{RateLimit: &config.RateLimitConfig{
		Enabled:        true,
		RequestsPerMin: 1,
		BurstCapacity:  2,
		ByIP:           true,
	}}, providerSetup{llm.KindGroq, &stubProvider{text: "ok"}})
	h := srv.Handler()

	for i := 0; i < 2; i++ {
		rec := doRequest(t, h, http.MethodPost, "/generate", `{"prompt":"hi"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(t, h, http.MethodPost, "/generate", `{"prompt":"hi"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, int64(1), srv.RateLimiter.GetStats()["rejected_total"])
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("all providers usable", func(t *testing.T) {
		srv := newTestServer(t, ServerConfig{Version: "1.0.0"},
			providerSetup{llm.KindGroq, &stubProvider{text: "x"}},
			providerSetup{llm.KindGemini, &stubProvider{text: "y"}})

		rec := doRequest(t, srv.Handler(), http.MethodGet, "/health?probe=true", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, statusHealthy, body["status"])
		assert.Equal(t, "1.0.0", body["version"])
		assert.Equal(t, []any{"groq", "gemini"}, body["order"])
	})

	t.Run("every probe fails", func(t *testing.T) {
		srv := newTestServer(t, ServerConfig{},
			providerSetup{llm.KindGroq, &retiredModelProvider{}},
			providerSetup{llm.KindOpenAI, &retiredModelProvider{}})

		rec := doRequest(t, srv.Handler(), http.MethodGet, "/health?probe=true", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, statusDegraded, body["status"])
	})

	t.Run("nothing configured", func(t *testing.T) {
		srv := newTestServer(t, ServerConfig{})
		rec := doRequest(t, srv.Handler(), http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), statusUnhealthy)
	})
}

func TestProvidersStatus(t *testing.T) {
	assert.Equal(t, statusUnhealthy, providersStatus(types.ProviderListing{}))
	assert.Equal(t, statusDegraded, providersStatus(types.ProviderListing{Providers: []types.ProviderStatus{
		{Name: "groq", Healthy: false}, {Name: "gemini", Healthy: true},
	}}))
	assert.Equal(t, statusDegraded, providersStatus(types.ProviderListing{Providers: []types.ProviderStatus{
		{Name: "groq", Healthy: false}, {Name: "gemini", Healthy: false},
	}}))
	assert.Equal(t, statusHealthy, providersStatus(types.ProviderListing{Providers: []types.ProviderStatus{
		{Name: "groq", Healthy: true},
	}}))
}

func TestProvidersAndStatsEndpoints(t *testing.T) {
	srv := newTestServer(t, ServerConfig{},
		providerSetup{llm.KindOpenAI, &stubProvider{text: "x"}},
		providerSetup{llm.KindAnthropic, &stubProvider{text: "y"}})
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodGet, "/providers", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing types.ProviderListing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, []string{"openai", "anthropic"}, listing.Order)
	require.Len(t, listing.Providers, 2)
	assert.Equal(t, llm.DefaultModel(llm.KindOpenAI), listing.Providers[0].Model)

	rec = doRequest(t, h, http.MethodGet, "/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Contains(t, stats["providers"], "openai")
	assert.Equal(t, map[string]any{"enabled": false}, stats["rate_limiting"])
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", errors.NewValidationError(errors.ErrCodeInvalidInput, "bad", nil), http.StatusBadRequest},
		{"not configured", errors.NewConfigError(errors.ErrCodeNotConfigured, "none", nil), http.StatusServiceUnavailable},
		{"all failed", errors.NewAIError(errors.ErrCodeAllProvidersDown, "down", nil), http.StatusBadGateway},
		{"timed out", errors.NewNetworkError(errors.ErrCodeAITimeout, "slow", nil), http.StatusGatewayTimeout},
		{"network", errors.NewNetworkError("CONNECTION_RESET", "reset", nil), http.StatusBadGateway},
		{"bare deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unknown", stderrors.New("what"), http.StatusInternalServerError},
		{"internal", errors.NewInternalError(errors.ErrCodeInvalidTemplate, "tmpl", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestRequestIDAssignedWhenMissingOrTooLong(t *testing.T) {
	srv := newTestServer(t, ServerConfig{}, providerSetup{llm.KindGroq, &stubProvider{text: "x"}})
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodGet, "/health", "", nil)
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)

	long := strings.Repeat("x", 200)
	rec = doRequest(t, h, http.MethodGet, "/health", "", map[string]string{requestIDHeader: long})
	assert.NotEqual(t, long, rec.Header().Get(requestIDHeader))
}
