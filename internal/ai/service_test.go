package ai

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"resumepilot/internal/config"
	"resumepilot/internal/errors"
	"resumepilot/internal/llm"
	"resumepilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float32Ptr(f float32) *float32 { return &f }
func int32Ptr(i int32) *int32       { return &i }
func boolPtr(b bool) *bool          { return &b }

// fakeProvider records the requests it receives.
type fakeProvider struct {
	mu       sync.Mutex
	text     string
	err      error
	requests []llm.CompletionRequest
}

func (f *fakeProvider) Complete(_ context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	return llm.Completion{Text: f.text, Usage: &llm.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}, nil
}

func (f *fakeProvider) last(t *testing.T) llm.CompletionRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests, "provider was not called")
	return f.requests[len(f.requests)-1]
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type recordedTask struct {
	task, outcome string
}

type fakeRecorder struct {
	mu    sync.Mutex
	tasks []recordedTask
}

func (r *fakeRecorder) RecordTask(_ context.Context, task, outcome string, _ *llm.TokenUsage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, recordedTask{task, outcome})
}

func testConfig() *config.Config {
	return &config.Config{AI: config.AIConfig{
		Temperature:      0.7,
		MaxOutputTokens:  2048,
		UseSystemPrompts: true,
	}}
}

// newTestService builds a service over fake providers registered in the
// order given.
func newTestService(t *testing.T, cfg *config.Config, providers map[llm.Kind]*fakeProvider, order ...llm.Kind) (*Service, *fakeRecorder) {
	t.Helper()
	specs := make([]llm.ProviderSpec, 0, len(order))
	ctors := llm.Constructors{}
	for _, kind := range order {
		p := providers[kind]
		specs = append(specs, llm.ProviderSpec{Kind: kind, APIKey: "key-" + string(kind)})
		ctors[kind] = func(llm.ProviderSpec) (llm.Completer, error) { return p, nil }
	}
	gen := llm.NewGenerator(llm.StaticRegistry(llm.NewRegistry(specs, ctors, nil)))
	rec := &fakeRecorder{}
	return NewService(cfg, gen, errors.NewNopLogger(), WithTaskRecorder(rec)), rec
}

func TestRewriteBulletsUsesTaskSettings(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Tasks.Bullets = config.TaskAIConfig{Temperature: float32Ptr(0.3), MaxOutputTokens: int32Ptr(512)}

	groq := &fakeProvider{text: "- Led migration"}
	svc, rec := newTestService(t, cfg, map[llm.Kind]*fakeProvider{llm.KindGroq: groq}, llm.KindGroq)

	out, err := svc.RewriteBullets(context.Background(), types.BulletsInput{
		Bullets:    "- did migration",
		TargetRole: "Platform Engineer",
	})
	require.NoError(t, err)

	assert.Equal(t, config.TaskBullets, out.Task)
	assert.Equal(t, "- Led migration", out.Content)
	assert.Equal(t, "groq", out.Provider)
	assert.Equal(t, llm.DefaultModel(llm.KindGroq), out.Model)
	assert.Equal(t, int64(15), out.Usage.TotalTokens)
	assert.Empty(t, out.FallbackErrors)
	assert.NotEmpty(t, out.RequestID)

	req := groq.last(t)
	assert.Contains(t, req.Prompt, "- did migration")
	assert.Contains(t, req.Prompt, "**Target role:** Platform Engineer")
	assert.NotContains(t, req.Prompt, "job description")
	assert.Equal(t, DefaultSystemPrompts[config.TaskBullets], req.SystemPrompt)
	assert.InDelta(t, 0.3, req.Temperature, 1e-6)
	assert.Equal(t, int32(512), req.MaxOutputTokens)

	assert.Equal(t, []recordedTask{{config.TaskBullets, OutcomeSuccess}}, rec.tasks)
}

func TestTaskReportsFallbackErrors(t *testing.T) {
	groq := &fakeProvider{err: stderrors.New("rate limited")}
	openai := &fakeProvider{text: "Dear hiring manager"}
	svc, _ := newTestService(t, testConfig(), map[llm.Kind]*fakeProvider{
		llm.KindGroq:   groq,
		llm.KindOpenAI: openai,
	}, llm.KindGroq, llm.KindOpenAI)

	out, err := svc.WriteCoverLetter(context.Background(), types.CoverLetterInput{
		Resume:         "Go developer",
		JobDescription: "Backend role",
		CompanyName:    "Acme",
	})
	require.NoError(t, err)
	assert.Equal(t, "openai", out.Provider)
	assert.Equal(t, []string{"groq: rate limited"}, out.FallbackErrors)
	assert.Contains(t, openai.last(t).Prompt, "for a position at Acme in a professional tone")
}

func TestTaskValidation(t *testing.T) {
	groq := &fakeProvider{text: "x"}
	svc, rec := newTestService(t, testConfig(), map[llm.Kind]*fakeProvider{llm.KindGroq: groq}, llm.KindGroq)

	tests := []struct {
		name  string
		run   func() error
		field string
	}{
		{"bullets required", func() error {
			_, err := svc.RewriteBullets(context.Background(), types.BulletsInput{})
			return err
		}, "bullets"},
		{"email kind", func() error {
			_, err := svc.DraftEmail(context.Background(), types.EmailInput{Kind: "spam"})
			return err
		}, "kind"},
		{"bio platform", func() error {
			_, err := svc.WriteSocialBio(context.Background(), types.BioInput{Platform: "myspace", Resume: "r"})
			return err
		}, "platform"},
		{"projects count", func() error {
			_, err := svc.SuggestProjects(context.Background(), types.ProjectsInput{TargetRole: "SRE", Count: 42})
			return err
		}, "count"},
		{"temperature override", func() error {
			_, err := svc.Generate(context.Background(), types.GenerateInput{
				Prompt:    "hi",
				Overrides: types.Overrides{Temperature: float32Ptr(1.5)},
			})
			return err
		}, "temperature"},
		{"unknown provider override", func() error {
			_, err := svc.Generate(context.Background(), types.GenerateInput{
				Prompt:    "hi",
				Overrides: types.Overrides{Provider: "mistral"},
			})
			return err
		}, "provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			appErr, ok := errors.AsAppError(err)
			require.True(t, ok, "expected AppError, got %v", err)
			assert.Equal(t, errors.ErrorTypeValidation, appErr.Type)
			assert.Equal(t, errors.ErrCodeInvalidInput, appErr.Code)
			assert.Contains(t, appErr.Context["fields"], tt.field)
		})
	}

	assert.Equal(t, 0, groq.calls(), "invalid input never reaches a provider")
	for _, r := range rec.tasks {
		assert.Equal(t, OutcomeInvalidInput, r.outcome)
	}
}

func TestTaskNotConfigured(t *testing.T) {
	svc, rec := newTestService(t, testConfig(), nil)

	_, err := svc.Generate(context.Background(), types.GenerateInput{Prompt: "hi"})
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeNotConfigured, appErr.Code)
	assert.Equal(t, errors.ErrorTypeConfig, appErr.Type)
	assert.True(t, llm.IsNotConfigured(err))
	assert.Equal(t, []recordedTask{{TaskGenerate, OutcomeNotConfigured}}, rec.tasks)
}

func TestTaskAllProvidersFailed(t *testing.T) {
	svc, rec := newTestService(t, testConfig(), map[llm.Kind]*fakeProvider{
		llm.KindGemini:    {err: stderrors.New("quota exceeded")},
		llm.KindAnthropic: {err: stderrors.New("overloaded")},
	}, llm.KindGemini, llm.KindAnthropic)

	_, err := svc.SuggestProjects(context.Background(), types.ProjectsInput{TargetRole: "Data Engineer"})
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeAllProvidersDown, appErr.Code)
	assert.Equal(t, []string{"gemini: quota exceeded", "anthropic: overloaded"}, appErr.Context["failures"])

	failed, ok := llm.AsAllProvidersFailed(err)
	require.True(t, ok)
	assert.Len(t, failed.Failures, 2)
	assert.Equal(t, []recordedTask{{config.TaskProjects, OutcomeAllFailed}}, rec.tasks)
}

func TestTaskTimeout(t *testing.T) {
	svc, rec := newTestService(t, testConfig(), map[llm.Kind]*fakeProvider{
		llm.KindGroq: {text: "late"},
	}, llm.KindGroq)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := svc.Generate(ctx, types.GenerateInput{Prompt: "hi"})
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeAITimeout, appErr.Code)
	assert.Equal(t, []recordedTask{{TaskGenerate, OutcomeTimeout}}, rec.tasks)
}

func TestOverridesAndPreferences(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Tasks.Email.PreferredProvider = "anthropic"

	groq := &fakeProvider{text: "from groq"}
	anthropic := &fakeProvider{text: "from anthropic"}
	providers := map[llm.Kind]*fakeProvider{llm.KindGroq: groq, llm.KindAnthropic: anthropic}
	svc, _ := newTestService(t, cfg, providers, llm.KindGroq, llm.KindAnthropic)

	out, err := svc.DraftEmail(context.Background(), types.EmailInput{Kind: types.EmailFollowUp, CompanyName: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", out.Provider, "task preference moves anthropic first")
	assert.Contains(t, anthropic.last(t).Prompt, "Draft a follow-up email at Acme.")

	out, err = svc.DraftEmail(context.Background(), types.EmailInput{
		Kind:      types.EmailThankYou,
		Overrides: types.Overrides{Provider: "groq", Temperature: float32Ptr(0.1), MaxOutputTokens: int32Ptr(300)},
	})
	require.NoError(t, err)
	assert.Equal(t, "groq", out.Provider, "call override beats task preference")
	req := groq.last(t)
	assert.InDelta(t, 0.1, req.Temperature, 1e-6)
	assert.Equal(t, int32(300), req.MaxOutputTokens)
}

func TestSystemPromptsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Tasks.Bio.UseSystemPrompts = boolPtr(false)

	groq := &fakeProvider{text: "bio"}
	svc, _ := newTestService(t, cfg, map[llm.Kind]*fakeProvider{llm.KindGroq: groq}, llm.KindGroq)

	_, err := svc.WriteSocialBio(context.Background(), types.BioInput{Platform: "github", Resume: "Go dev", MaxLength: 160})
	require.NoError(t, err)

	req := groq.last(t)
	assert.Empty(t, req.SystemPrompt)
	assert.Contains(t, req.Prompt, "Write a github bio of at most 160 characters.")
}

func TestInlinePromptTemplates(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Tasks.Projects.Prompts = config.TaskPrompts{
		System: "You mentor {{.TargetRole}} candidates.",
		User:   "Give {{or .Count 3}} ideas.",
	}

	groq := &fakeProvider{text: "ideas"}
	svc, _ := newTestService(t, cfg, map[llm.Kind]*fakeProvider{llm.KindGroq: groq}, llm.KindGroq)

	_, err := svc.SuggestProjects(context.Background(), types.ProjectsInput{TargetRole: "SRE"})
	require.NoError(t, err)
	req := groq.last(t)
	assert.Equal(t, "You mentor SRE candidates.", req.SystemPrompt)
	assert.Equal(t, "Give 3 ideas.", req.Prompt)

	cfg.AI.Tasks.Projects.Prompts.User = "Give {{.Unknown}} ideas."
	_, err = svc.SuggestProjects(context.Background(), types.ProjectsInput{TargetRole: "SRE"})
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidTemplate, appErr.Code)
}

func TestGenerateRawPrompt(t *testing.T) {
	groq := &fakeProvider{text: "42"}
	svc, _ := newTestService(t, testConfig(), map[llm.Kind]*fakeProvider{llm.KindGroq: groq}, llm.KindGroq)

	out, err := svc.Generate(context.Background(), types.GenerateInput{Prompt: "meaning of life?", SystemPrompt: "be terse"})
	require.NoError(t, err)
	assert.Equal(t, TaskGenerate, out.Task)

	req := groq.last(t)
	assert.Equal(t, "meaning of life?", req.Prompt)
	assert.Equal(t, "be terse", req.SystemPrompt)
	assert.InDelta(t, 0.7, req.Temperature, 1e-6)
	assert.Equal(t, int32(2048), req.MaxOutputTokens)
}

func TestDefaultPromptsRender(t *testing.T) {
	inputs := map[string]any{
		config.TaskBullets:     types.BulletsInput{Bullets: "b", JobDescription: "jd"},
		config.TaskCoverLetter: types.CoverLetterInput{Resume: "r", JobDescription: "jd", Tone: "formal"},
		config.TaskProjects:    types.ProjectsInput{TargetRole: "SRE", Count: 5, Skills: "Go"},
		config.TaskEmail:       types.EmailInput{Kind: types.EmailNetworking, Recipient: "Sam"},
		config.TaskBio:         types.BioInput{Platform: "linkedin", Resume: "r", Headline: "Engineer"},
	}

	for _, task := range config.TaskNames {
		t.Run(task, func(t *testing.T) {
			user, err := renderPrompt(task, DefaultUserPrompts[task], inputs[task])
			require.NoError(t, err)
			assert.NotEmpty(t, user)
			assert.False(t, strings.Contains(user, "{{"), "unrendered action in %q", user)

			_, err = renderPrompt(task, DefaultSystemPrompts[task], inputs[task])
			require.NoError(t, err)
		})
	}
}

func TestProvidersListing(t *testing.T) {
	svc, _ := newTestService(t, testConfig(), map[llm.Kind]*fakeProvider{
		llm.KindOpenAI: {text: "x"},
		llm.KindGroq:   {text: "y"},
	}, llm.KindOpenAI, llm.KindGroq)

	listing := svc.Providers(context.Background(), true)
	assert.Equal(t, []string{"openai", "groq"}, listing.Order)
	require.Len(t, listing.Providers, 2)
	for _, p := range listing.Providers {
		assert.True(t, p.Healthy)
		require.NotNil(t, p.Probe, "fake providers without a prober report available")
		assert.True(t, p.Probe.Available)
	}
}
