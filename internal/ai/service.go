package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"resumepilot/internal/common"
	"resumepilot/internal/config"
	"resumepilot/internal/errors"
	"resumepilot/internal/llm"
	"resumepilot/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TaskGenerate is the raw prompt passthrough task
const TaskGenerate = "generate"

// Task outcomes reported to the TaskRecorder
const (
	OutcomeSuccess       = "success"
	OutcomeInvalidInput  = "invalid_input"
	OutcomeNotConfigured = "not_configured"
	OutcomeAllFailed     = "all_failed"
	OutcomeTimeout       = "timeout"
)

// TextGenerator is the provider fallback facade the service runs on
type TextGenerator interface {
	Generate(ctx context.Context, req llm.Request) (*llm.Result, error)
	Registry() *llm.Registry
}

// TaskRecorder receives one call per finished task
type TaskRecorder interface {
	RecordTask(ctx context.Context, task, outcome string, usage *llm.TokenUsage)
}

type nopTaskRecorder struct{}

func (nopTaskRecorder) RecordTask(context.Context, string, string, *llm.TokenUsage) {}

// Service handles career-document generation tasks
type Service struct {
	generator TextGenerator
	config    *config.Config
	logger    *errors.Logger
	recorder  TaskRecorder
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithTaskRecorder sets where task outcomes are reported
func WithTaskRecorder(r TaskRecorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewService creates a new AI service instance
func NewService(cfg *config.Config, generator TextGenerator, logger *errors.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	s := &Service{
		generator: generator,
		config:    cfg,
		logger:    logger,
		recorder:  nopTaskRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RewriteBullets rewrites resume bullet points
func (s *Service) RewriteBullets(ctx context.Context, input types.BulletsInput) (*types.GenerationOutput, error) {
	return executeTask(s, ctx, config.TaskBullets, input, input.Overrides,
		attribute.Int("input.bullets_length", len(input.Bullets)),
		attribute.Bool("input.has_job_description", input.JobDescription != ""))
}

// WriteCoverLetter writes a cover letter for a resume and job description
func (s *Service) WriteCoverLetter(ctx context.Context, input types.CoverLetterInput) (*types.GenerationOutput, error) {
	return executeTask(s, ctx, config.TaskCoverLetter, input, input.Overrides,
		attribute.Int("input.resume_length", len(input.Resume)),
		attribute.Int("input.job_length", len(input.JobDescription)))
}

// SuggestProjects suggests portfolio projects for a target role
func (s *Service) SuggestProjects(ctx context.Context, input types.ProjectsInput) (*types.GenerationOutput, error) {
	return executeTask(s, ctx, config.TaskProjects, input, input.Overrides,
		attribute.String("input.target_role", input.TargetRole),
		attribute.Int("input.count", input.Count))
}

// DraftEmail drafts a job-search email
func (s *Service) DraftEmail(ctx context.Context, input types.EmailInput) (*types.GenerationOutput, error) {
	return executeTask(s, ctx, config.TaskEmail, input, input.Overrides,
		attribute.String("input.kind", input.Kind))
}

// WriteSocialBio writes a profile bio for a platform
func (s *Service) WriteSocialBio(ctx context.Context, input types.BioInput) (*types.GenerationOutput, error) {
	return executeTask(s, ctx, config.TaskBio, input, input.Overrides,
		attribute.String("input.platform", input.Platform))
}

// Generate sends a raw prompt through the provider fallback
func (s *Service) Generate(ctx context.Context, input types.GenerateInput) (*types.GenerationOutput, error) {
	return executeTask(s, ctx, TaskGenerate, input, input.Overrides,
		attribute.Int("input.prompt_length", len(input.Prompt)))
}

// executeTask validates input, renders the task prompts and runs the
// generation with task settings and per-call overrides applied.
func executeTask[In any](
	s *Service,
	ctx context.Context,
	task string,
	input In,
	overrides types.Overrides,
	spanAttributes ...attribute.KeyValue,
) (*types.GenerationOutput, error) {
	tracer := otel.Tracer("resumepilot.ai")
	ctx, span := tracer.Start(ctx, "ai."+task)
	defer span.End()
	span.SetAttributes(attribute.String("ai.task", task))
	span.SetAttributes(spanAttributes...)

	logger := s.logger.With("task", task)

	if err := common.ValidateInput(input); err != nil {
		span.SetStatus(codes.Error, "invalid input")
		s.recorder.RecordTask(ctx, task, OutcomeInvalidInput, nil)
		return nil, err
	}

	req, err := s.buildRequest(task, input, overrides)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "prompt rendering failed")
		logger.LogError(err, "Failed to build prompt")
		return nil, err
	}

	span.SetAttributes(
		attribute.Float64("ai.temperature", float64(req.Temperature)),
		attribute.Int("ai.max_output_tokens", int(req.MaxOutputTokens)),
		attribute.String("ai.preferred_provider", req.PreferredProvider),
	)

	start := time.Now()
	res, err := s.generator.Generate(ctx, req)
	if err != nil {
		appErr, outcome := mapGenerationError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		s.recorder.RecordTask(ctx, task, outcome, nil)
		logger.LogError(appErr, "Task failed", "duration", time.Since(start).String())
		return nil, appErr
	}

	span.SetAttributes(
		attribute.String("ai.provider", res.Provider),
		attribute.String("ai.model", res.Model),
		attribute.Int("ai.attempts", res.Attempts),
		attribute.Int("output.length", len(res.Text)),
	)
	if res.Usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", res.Usage.InputTokens),
			attribute.Int64("ai.tokens.output", res.Usage.OutputTokens),
			attribute.Int64("ai.tokens.total", res.Usage.TotalTokens),
		)
	}
	span.SetStatus(codes.Ok, "")
	s.recorder.RecordTask(ctx, task, OutcomeSuccess, res.Usage)

	logger.Info("Task completed",
		"provider", res.Provider,
		"model", res.Model,
		"attempts", res.Attempts,
		"request_id", res.RequestID,
		"duration", time.Since(start).String())

	return &types.GenerationOutput{
		Task:           task,
		Content:        res.Text,
		Provider:       res.Provider,
		Model:          res.Model,
		Usage:          res.Usage,
		FallbackErrors: res.FailureDetails(),
		RequestID:      res.RequestID,
	}, nil
}

// buildRequest resolves task settings and prompts into a generation request
func (s *Service) buildRequest(task string, input any, overrides types.Overrides) (llm.Request, error) {
	taskCfg := s.config.GetTaskConfig(task)

	var system, user string
	if raw, ok := input.(types.GenerateInput); ok {
		system, user = raw.SystemPrompt, raw.Prompt
	} else {
		var err error
		system, user, err = s.renderTaskPrompts(task, taskCfg, input)
		if err != nil {
			return llm.Request{}, err
		}
	}

	opts := []llm.RequestOption{
		llm.WithTemperature(*taskCfg.Temperature),
		llm.WithMaxOutputTokens(*taskCfg.MaxOutputTokens),
		llm.WithPreferredProvider(taskCfg.PreferredProvider),
	}
	if *taskCfg.UseSystemPrompts && system != "" {
		opts = append(opts, llm.WithSystemPrompt(system))
	}
	if overrides.Provider != "" {
		opts = append(opts, llm.WithPreferredProvider(overrides.Provider))
	}
	if overrides.Temperature != nil {
		opts = append(opts, llm.WithTemperature(*overrides.Temperature))
	}
	if overrides.MaxOutputTokens != nil {
		opts = append(opts, llm.WithMaxOutputTokens(*overrides.MaxOutputTokens))
	}

	return llm.NewRequest(user, opts...), nil
}

func (s *Service) renderTaskPrompts(task string, taskCfg config.TaskAIConfig, input any) (string, string, error) {
	store := s.config.Prompts()

	fileSystem, _ := store.Get(task, config.PromptSystem)
	fileUser, _ := store.Get(task, config.PromptUser)

	system, err := renderPrompt(task+" system",
		resolvePrompt(fileSystem, taskCfg.Prompts.System, DefaultSystemPrompts[task]), input)
	if err != nil {
		return "", "", errors.NewInternalError(errors.ErrCodeInvalidTemplate, "Invalid system prompt template for "+task, err)
	}
	user, err := renderPrompt(task+" user",
		resolvePrompt(fileUser, taskCfg.Prompts.User, DefaultUserPrompts[task]), input)
	if err != nil {
		return "", "", errors.NewInternalError(errors.ErrCodeInvalidTemplate, "Invalid user prompt template for "+task, err)
	}
	return system, user, nil
}

// mapGenerationError converts facade errors into application errors and
// the outcome label used for metrics.
func mapGenerationError(err error) (*errors.AppError, string) {
	if llm.IsNotConfigured(err) {
		return errors.NewConfigError(errors.ErrCodeNotConfigured,
			"No text-generation provider is configured; set GROQ_API_KEY, GEMINI_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY", err), OutcomeNotConfigured
	}

	if failed, ok := llm.AsAllProvidersFailed(err); ok {
		if stderrors.Is(failed.Cause, context.DeadlineExceeded) {
			return errors.NewNetworkError(errors.ErrCodeAITimeout,
				"Text generation timed out before any provider succeeded", err).
				WithContext("failures", failed.Details()), OutcomeTimeout
		}
		return errors.NewAIError(errors.ErrCodeAllProvidersDown,
			fmt.Sprintf("All %d text-generation providers failed", len(failed.Failures)), err).
			WithContext("failures", failed.Details()), OutcomeAllFailed
	}

	if appErr, ok := errors.AsAppError(err); ok {
		return appErr, OutcomeAllFailed
	}
	return errors.NewAIError(errors.ErrCodeAIServiceFailed, "Text generation failed", err), OutcomeAllFailed
}

// Providers lists usable providers in fallback order. With probe set, each
// provider's model is checked concurrently, bounded by the health check's
// model probe timeout.
func (s *Service) Providers(ctx context.Context, probe bool) types.ProviderListing {
	registry := s.generator.Registry()
	providers := registry.Providers()

	listing := types.ProviderListing{
		Providers: make([]types.ProviderStatus, len(providers)),
		Order:     registry.Names(),
	}

	for i, p := range providers {
		status := types.ProviderStatus{
			Name:    p.Name,
			Kind:    string(p.Kind),
			Model:   p.Model,
			Healthy: true,
			Stats:   p.Stats(),
		}
		if b, ok := p.Client().(*llm.BreakerCompleter); ok {
			status.Breaker = b.State()
			status.Healthy = b.IsHealthy()
		}
		listing.Providers[i] = status
	}

	if !probe || len(providers) == 0 {
		return listing
	}

	if timeout := s.config.Observability.HealthCheck.ModelProbeTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info := p.Probe(ctx)
			listing.Providers[i].Probe = info
			if !info.Available {
				listing.Providers[i].Healthy = false
			}
		}()
	}
	wg.Wait()

	return listing
}
