// Package providers builds the text-generation provider registry from
// application configuration.
package providers

import (
	"context"
	"fmt"
	"strings"

	"resumepilot/internal/config"
	"resumepilot/internal/errors"
	"resumepilot/internal/llm"
	"resumepilot/internal/llm/anthropic"
	"resumepilot/internal/llm/gemini"
	"resumepilot/internal/llm/openai"
	"resumepilot/internal/llm/transport"
)

// SpecsFromConfig converts provider settings into specs in providerOrder.
// Providers left out of the order are never used.
func SpecsFromConfig(cfg *config.AIConfig) ([]llm.ProviderSpec, error) {
	ordered := cfg.OrderedProviders()
	specs := make([]llm.ProviderSpec, 0, len(ordered))
	for _, np := range ordered {
		kind, err := llm.ParseKind(np.Name)
		if err != nil {
			return nil, err
		}
		specs = append(specs, llm.ProviderSpec{
			Name:    np.Name,
			Kind:    kind,
			APIKey:  np.Config.APIKey,
			Model:   np.Config.Model,
			BaseURL: np.Config.BaseURL,
			Timeout: np.Config.Timeout,
		})
	}
	return specs, nil
}

// Constructors returns the client constructor for every supported kind.
// Groq serves an OpenAI-compatible API and shares the OpenAI client.
func Constructors() llm.Constructors {
	return llm.Constructors{
		llm.KindGroq: func(spec llm.ProviderSpec) (llm.Completer, error) {
			return openai.NewClient(spec.APIKey, baseURLOr(spec.BaseURL, openai.GroqBaseURL), transport.NewHTTPClient(spec.Timeout))
		},
		llm.KindOpenAI: func(spec llm.ProviderSpec) (llm.Completer, error) {
			return openai.NewClient(spec.APIKey, baseURLOr(spec.BaseURL, openai.DefaultBaseURL), transport.NewHTTPClient(spec.Timeout))
		},
		llm.KindGemini: func(spec llm.ProviderSpec) (llm.Completer, error) {
			return gemini.NewClient(context.Background(), spec.APIKey, spec.BaseURL, transport.NewHTTPClient(spec.Timeout))
		},
		llm.KindAnthropic: func(spec llm.ProviderSpec) (llm.Completer, error) {
			return anthropic.NewClient(spec.APIKey, spec.BaseURL, transport.NewHTTPClient(spec.Timeout))
		},
	}
}

// WithBreakers wraps every constructor so each client sits behind its own
// circuit breaker. A disabled breaker config returns constructors unchanged.
func WithBreakers(constructors llm.Constructors, cb config.CircuitBreakerConfig, logger *errors.Logger) llm.Constructors {
	if !cb.Enabled {
		return constructors
	}
	settings := llm.BreakerSettings{
		MaxRequests:      cb.MaxRequests,
		Interval:         cb.Interval,
		Timeout:          cb.Timeout,
		MinRequests:      cb.MinRequests,
		FailureThreshold: cb.FailureThreshold,
	}

	wrapped := make(llm.Constructors, len(constructors))
	for kind, construct := range constructors {
		wrapped[kind] = func(spec llm.ProviderSpec) (llm.Completer, error) {
			client, err := construct(spec)
			if err != nil {
				return nil, err
			}
			return llm.NewBreakerCompleter(spec.Name, client, settings, logger), nil
		}
	}
	return wrapped
}

// NewLazyRegistry returns a registry built from cfg on first use.
func NewLazyRegistry(cfg *config.Config, logger *errors.Logger) *llm.LazyRegistry {
	return newLazyRegistry(cfg, Constructors(), logger)
}

func newLazyRegistry(cfg *config.Config, constructors llm.Constructors, logger *errors.Logger) *llm.LazyRegistry {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return llm.NewLazyRegistry(func() *llm.Registry {
		specs, err := SpecsFromConfig(&cfg.AI)
		if err != nil {
			// providerOrder is validated at load time; reaching this means
			// the config was built by hand.
			logger.LogError(err, "Invalid provider configuration")
			return nil
		}
		r := llm.NewRegistry(specs, WithBreakers(constructors, cfg.AI.CircuitBreaker, logger), logger)
		logger.Info("Provider registry ready", "providers", Describe(r))
		return r
	})
}

// NewGenerator builds the fallback generator for cfg.
func NewGenerator(cfg *config.Config, logger *errors.Logger, opts ...llm.GeneratorOption) *llm.Generator {
	base := []llm.GeneratorOption{
		llm.WithLogger(logger),
		llm.WithAttemptTimeout(cfg.AI.AttemptTimeout),
		llm.WithTotalTimeout(cfg.AI.TotalTimeout),
	}
	return llm.NewGenerator(NewLazyRegistry(cfg, logger), append(base, opts...)...)
}

func baseURLOr(url, fallback string) string {
	if url != "" {
		return url
	}
	return fallback
}

// Describe returns a one-line summary of the configured providers for logs
// and CLI output.
func Describe(r *llm.Registry) string {
	if r.Len() == 0 {
		return "no providers configured"
	}
	parts := make([]string, 0, r.Len())
	for _, p := range r.Providers() {
		parts = append(parts, fmt.Sprintf("%s (%s)", p.Name, p.Model))
	}
	return strings.Join(parts, ", ")
}
