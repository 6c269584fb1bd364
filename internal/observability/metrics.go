package observability

import (
	"context"
	"fmt"

	"resumepilot/internal/llm"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the service's custom instruments
type Metrics struct {
	// Provider attempt metrics
	LLMAttempts        metric.Int64Counter
	LLMAttemptDuration metric.Float64Histogram
	LLMFallbacks       metric.Int64Counter
	LLMTokenUsage      metric.Int64Histogram

	// Task metrics
	Generations metric.Int64Counter

	// Infrastructure metrics
	RateLimitHits metric.Int64Counter
	Reloads       metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.LLMAttempts, err = meter.Int64Counter(
		"resumepilot_llm_attempts_total",
		metric.WithDescription("Provider calls made by the fallback generator"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attempts metric: %w", err)
	}

	m.LLMAttemptDuration, err = meter.Float64Histogram(
		"resumepilot_llm_attempt_duration_seconds",
		metric.WithDescription("Duration of a single provider call"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attempt duration metric: %w", err)
	}

	m.LLMFallbacks, err = meter.Int64Counter(
		"resumepilot_llm_fallbacks_total",
		metric.WithDescription("Failed provider attempts that moved on to the next provider"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fallbacks metric: %w", err)
	}

	m.LLMTokenUsage, err = meter.Int64Histogram(
		"resumepilot_llm_token_usage",
		metric.WithDescription("Tokens reported by providers per successful call"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token usage metric: %w", err)
	}

	m.Generations, err = meter.Int64Counter(
		"resumepilot_generations_total",
		metric.WithDescription("Finished generation tasks by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generations metric: %w", err)
	}

	m.RateLimitHits, err = meter.Int64Counter(
		"resumepilot_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	m.Reloads, err = meter.Int64Counter(
		"resumepilot_reloads_total",
		metric.WithDescription("File-triggered reloads of prompts and certificates"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reloads metric: %w", err)
	}

	return m, nil
}

// GetMetrics returns the metrics instance
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om == nil || om.metrics == nil {
		return nil
	}
	return om.metrics
}

// RecordAttempt implements llm.AttemptRecorder
func (om *ObservabilityManager) RecordAttempt(ctx context.Context, a llm.Attempt) {
	m := om.GetMetrics()
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("provider", a.Provider),
		attribute.Bool("success", a.Err == nil),
	)
	m.LLMAttempts.Add(ctx, 1, attrs)
	m.LLMAttemptDuration.Record(ctx, a.Duration.Seconds(), attrs)

	if a.Usage == nil {
		return
	}
	for _, tt := range []struct {
		tokenType string
		value     int64
	}{
		{"input", a.Usage.InputTokens},
		{"output", a.Usage.OutputTokens},
		{"total", a.Usage.TotalTokens},
	} {
		m.LLMTokenUsage.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("provider", a.Provider),
			attribute.String("token_type", tt.tokenType),
		))
	}
}

// RecordGeneration implements llm.AttemptRecorder. Every attempt but the
// last one in a sequence fell through to another provider.
func (om *ObservabilityManager) RecordGeneration(ctx context.Context, outcome string, attempts int) {
	m := om.GetMetrics()
	if m == nil || attempts < 2 {
		return
	}
	m.LLMFallbacks.Add(ctx, int64(attempts-1), metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordTask implements ai.TaskRecorder
func (om *ObservabilityManager) RecordTask(ctx context.Context, task, outcome string, _ *llm.TokenUsage) {
	m := om.GetMetrics()
	if m == nil {
		return
	}
	m.Generations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("task", task),
		attribute.String("outcome", outcome),
	))
}

// RecordRateLimitHit counts a rejected request
func (om *ObservabilityManager) RecordRateLimitHit(ctx context.Context, path string) {
	m := om.GetMetrics()
	if m == nil {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}

// RecordReload counts a prompt or certificate reload
func (om *ObservabilityManager) RecordReload(ctx context.Context, kind string, success bool) {
	m := om.GetMetrics()
	if m == nil {
		return
	}
	m.Reloads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("success", success),
	))
}
