package observability

import (
	"resumepilot/internal/config"

	"github.com/google/uuid"
)

// GetObservabilityConfig creates observability config from provided config
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	if cfg == nil {
		// Fallback to defaults if config not available
		return ObservabilityConfig{
			ServiceName:        "resumepilot",
			ServiceVersion:     version,
			ServiceInstance:    defaultInstanceID(),
			Enabled:            true,
			TracingEnabled:     true,
			MetricsEnabled:     true,
			ConsoleOutput:      true,
			PrettyPrint:        true,
			SampleRate:         1.0,
			CollectionInterval: defaultCollectionInterval,
			Prometheus:         GetPrometheusConfig(cfg),
		}
	}

	obsConfig := cfg.Observability

	// Use app version if service version not specified
	serviceVersion := obsConfig.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}

	instance := obsConfig.ServiceInstance
	if instance == "" {
		instance = defaultInstanceID()
	}

	interval := obsConfig.Metrics.CollectionInterval
	if interval <= 0 {
		interval = defaultCollectionInterval
	}

	return ObservabilityConfig{
		ServiceName:        obsConfig.ServiceName,
		ServiceVersion:     serviceVersion,
		ServiceInstance:    instance,
		Enabled:            obsConfig.Enabled,
		TracingEnabled:     obsConfig.Tracing.Enabled,
		MetricsEnabled:     obsConfig.Metrics.Enabled,
		ConsoleOutput:      obsConfig.Console.Enabled,
		PrettyPrint:        obsConfig.Console.PrettyPrint,
		SampleRate:         obsConfig.Tracing.SampleRate,
		CollectionInterval: interval,
		Prometheus:         GetPrometheusConfig(cfg),
		OTLP: OTLPConfig{
			Enabled:  obsConfig.OTLP.Enabled,
			Endpoint: obsConfig.OTLP.Endpoint,
			Insecure: obsConfig.OTLP.Insecure,
			Headers:  obsConfig.OTLP.Headers,
		},
	}
}

func defaultInstanceID() string {
	return "resumepilot-" + uuid.NewString()[:8]
}
