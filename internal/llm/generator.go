package llm

import (
	"context"
	"time"

	"resumepilot/internal/errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Generation outcomes reported to the recorder.
const (
	OutcomeSuccess       = "success"
	OutcomeNotConfigured = "not_configured"
	OutcomeAllFailed     = "all_failed"
)

// Attempt describes one provider call.
type Attempt struct {
	RequestID string
	Provider  string
	Kind      Kind
	Model     string
	Position  int
	Duration  time.Duration
	Err       error
	Transient bool
	Usage     *TokenUsage
}

// AttemptRecorder receives per-attempt and per-generation measurements.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, a Attempt)
	RecordGeneration(ctx context.Context, outcome string, attempts int)
}

type nopRecorder struct{}

func (nopRecorder) RecordAttempt(context.Context, Attempt)        {}
func (nopRecorder) RecordGeneration(context.Context, string, int) {}

// Generator tries providers in order, one attempt each, and returns the first
// success.
type Generator struct {
	registry       *LazyRegistry
	logger         *errors.Logger
	recorder       AttemptRecorder
	tracer         trace.Tracer
	attemptTimeout time.Duration
	totalTimeout   time.Duration
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

func WithLogger(logger *errors.Logger) GeneratorOption {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithRecorder(r AttemptRecorder) GeneratorOption {
	return func(g *Generator) {
		if r != nil {
			g.recorder = r
		}
	}
}

// WithAttemptTimeout bounds each provider call. Zero disables it.
func WithAttemptTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) { g.attemptTimeout = d }
}

// WithTotalTimeout bounds the whole fallback sequence. Zero disables it.
func WithTotalTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) { g.totalTimeout = d }
}

// NewGenerator creates a generator over a lazily built registry.
func NewGenerator(registry *LazyRegistry, opts ...GeneratorOption) *Generator {
	g := &Generator{
		registry: registry,
		logger:   errors.NewNopLogger(),
		recorder: nopRecorder{},
		tracer:   otel.Tracer("resumepilot.llm"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Registry returns the underlying registry, building it if needed.
func (g *Generator) Registry() *Registry {
	return g.registry.Get()
}

// GenerateText runs a generation with default parameters adjusted by opts and
// returns only the text.
func (g *Generator) GenerateText(ctx context.Context, prompt string, opts ...RequestOption) (string, error) {
	res, err := g.Generate(ctx, NewRequest(prompt, opts...))
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Generate tries each provider once in attempt order. It returns
// ErrNotConfigured when the registry is empty and *AllProvidersFailedError
// when every attempt fails or the context ends the sequence.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = WithRequestID(ctx, requestID)
	}
	logger := g.logger.With("request_id", requestID)

	ctx, span := g.tracer.Start(ctx, "llm.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.request_id", requestID),
		attribute.String("llm.preferred_provider", req.PreferredProvider),
		attribute.Float64("llm.temperature", float64(req.Temperature)),
		attribute.Int("llm.max_output_tokens", int(req.MaxOutputTokens)),
		attribute.Int("input.prompt_length", len(req.Prompt)),
	)

	registry := g.registry.Get()
	if registry.Len() == 0 {
		span.SetStatus(codes.Error, ErrNotConfigured.Error())
		g.recorder.RecordGeneration(ctx, OutcomeNotConfigured, 0)
		logger.Warn("Generation requested but no provider is configured")
		return nil, ErrNotConfigured
	}

	if g.totalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.totalTimeout)
		defer cancel()
	}

	order := registry.Ordered(req.PreferredProvider)
	if req.PreferredProvider != "" && order[0].Name != req.PreferredProvider {
		logger.Debug("Preferred provider is not registered, using default order",
			"preferred", req.PreferredProvider)
	}

	var failures []ProviderFailure
	for i, p := range order {
		if err := ctx.Err(); err != nil {
			return nil, g.fail(ctx, span, logger, failures, err)
		}

		start := time.Now()
		completion, err := g.attempt(ctx, p, req)
		elapsed := time.Since(start)

		attempt := Attempt{
			RequestID: requestID,
			Provider:  p.Name,
			Kind:      p.Kind,
			Model:     p.Model,
			Position:  i,
			Duration:  elapsed,
			Err:       err,
		}

		if err != nil {
			attempt.Transient = IsTransient(err)
			g.recorder.RecordAttempt(ctx, attempt)
			failures = append(failures, ProviderFailure{
				Provider:  p.Name,
				Kind:      p.Kind,
				Err:       err,
				Transient: attempt.Transient,
				Duration:  elapsed,
			})
			logger.Warn("Provider attempt failed",
				"provider", p.Name,
				"kind", p.Kind,
				"position", i,
				"transient", attempt.Transient,
				"duration", elapsed.String(),
				"error", err.Error())
			continue
		}

		attempt.Usage = completion.Usage
		g.recorder.RecordAttempt(ctx, attempt)
		g.recorder.RecordGeneration(ctx, OutcomeSuccess, i+1)

		model := completion.Model
		if model == "" {
			model = p.Model
		}
		span.SetAttributes(
			attribute.String("llm.provider", p.Name),
			attribute.String("llm.model", model),
			attribute.Int("llm.attempts", i+1),
			attribute.Bool("success", true),
		)
		if len(failures) > 0 {
			logger.Info("Generation succeeded after fallback",
				"provider", p.Name,
				"attempts", i+1,
				"failed", failureStrings(failures))
		} else {
			logger.Debug("Generation succeeded", "provider", p.Name, "duration", elapsed.String())
		}

		return &Result{
			Text:      completion.Text,
			Provider:  p.Name,
			Kind:      p.Kind,
			Model:     model,
			Usage:     completion.Usage,
			Failures:  failures,
			Attempts:  i + 1,
			RequestID: requestID,
		}, nil
	}

	return nil, g.fail(ctx, span, logger, failures, nil)
}

func (g *Generator) attempt(ctx context.Context, p Provider, req Request) (Completion, error) {
	ctx, span := g.tracer.Start(ctx, "llm.attempt."+p.Name)
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", p.Name),
		attribute.String("ai.kind", string(p.Kind)),
		attribute.String("ai.model", p.Model),
	)

	if g.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.attemptTimeout)
		defer cancel()
	}

	completion, err := p.client.Complete(ctx, CompletionRequest{
		Model:           p.Model,
		Prompt:          req.Prompt,
		SystemPrompt:    req.SystemPrompt,
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxOutputTokens,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Completion{}, err
	}

	if completion.Usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", completion.Usage.InputTokens),
			attribute.Int64("ai.tokens.output", completion.Usage.OutputTokens),
			attribute.Int64("ai.tokens.total", completion.Usage.TotalTokens),
		)
	}
	return completion, nil
}

func (g *Generator) fail(ctx context.Context, span trace.Span, logger *errors.Logger, failures []ProviderFailure, cause error) error {
	err := &AllProvidersFailedError{Failures: failures, Cause: cause}
	span.RecordError(err)
	span.SetStatus(codes.Error, "all providers failed")
	g.recorder.RecordGeneration(ctx, OutcomeAllFailed, len(failures))
	logger.Error("All providers failed", "attempts", len(failures), "failures", err.Details())
	return err
}
