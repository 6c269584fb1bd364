package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"resumepilot/internal/llm"
	"resumepilot/internal/llm/transport"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("unexpected api key header %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != apiVersion {
			t.Errorf("unexpected version header %q", got)
		}

		var body messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.System != "be brief" || len(body.Messages) != 1 || body.Messages[0].Content != "hello" {
			t.Errorf("unexpected request %+v", body)
		}
		if body.MaxTokens != 100 {
			t.Errorf("max_tokens = %d", body.MaxTokens)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"claude-x","content":[{"type":"text","text":"wor"},{"type":"text","text":"ld"}],"usage":{"input_tokens":2,"output_tokens":5}}`))
	}))
	defer srv.Close()

	c, err := NewClient("test-key", srv.URL, srv.Client())
	if err != nil {
		t.Fatal(err)
	}

	got, err := c.Complete(context.Background(), llm.CompletionRequest{
		Model:           "claude-x",
		Prompt:          "hello",
		SystemPrompt:    "be brief",
		MaxOutputTokens: 100,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got.Text != "world" {
		t.Errorf("Text = %q", got.Text)
	}
	if got.Usage == nil || got.Usage.InputTokens != 2 || got.Usage.OutputTokens != 5 || got.Usage.TotalTokens != 7 {
		t.Errorf("unexpected usage %+v", got.Usage)
	}
}

func TestCompleteOverloaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error"}}`))
	}))
	defer srv.Close()

	c, _ := NewClient("k", srv.URL, srv.Client())
	_, err := c.Complete(context.Background(), llm.CompletionRequest{Model: "m", Prompt: "p"})

	var statusErr *transport.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 529 {
		t.Fatalf("expected status 529, got %v", err)
	}
	if !llm.IsTransient(err) {
		t.Error("expected overload to be transient")
	}
}

func TestCompleteEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"type":"tool_use"}]}`))
	}))
	defer srv.Close()

	c, _ := NewClient("k", srv.URL, srv.Client())
	if _, err := c.Complete(context.Background(), llm.CompletionRequest{Model: "m", Prompt: "p"}); !errors.Is(err, transport.ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestProbeModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models/claude-x" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"claude-x","display_name":"Claude X"}`))
	}))
	defer srv.Close()

	c, _ := NewClient("k", srv.URL, srv.Client())
	info, err := c.ProbeModel(context.Background(), "claude-x")
	if err != nil {
		t.Fatal(err)
	}
	if !info.Available || info.DisplayName != "Claude X" {
		t.Errorf("unexpected info %+v", info)
	}
}
