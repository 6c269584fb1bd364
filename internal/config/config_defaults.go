package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "RESUMEPILOT"

// providerEnv lists the conventional variables each provider's SDK reads.
var providerEnv = map[string]struct {
	apiKey []string
	model  string
}{
	"groq":      {apiKey: []string{"GROQ_API_KEY"}, model: "GROQ_MODEL"},
	"gemini":    {apiKey: []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}, model: "GEMINI_MODEL"},
	"openai":    {apiKey: []string{"OPENAI_API_KEY"}, model: "OPENAI_MODEL"},
	"anthropic": {apiKey: []string{"ANTHROPIC_API_KEY"}, model: "ANTHROPIC_MODEL"},
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration - Global defaults
	v.SetDefault("ai.providerOrder", []string{"groq", "gemini", "openai", "anthropic"})
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.maxOutputTokens", 2048)
	v.SetDefault("ai.preferredProvider", "")
	v.SetDefault("ai.useSystemPrompts", true)
	v.SetDefault("ai.attemptTimeout", time.Duration(0))
	v.SetDefault("ai.totalTimeout", time.Duration(0))

	for name := range providerEnv {
		v.SetDefault("ai.providers."+name+".apiKey", "")
		v.SetDefault("ai.providers."+name+".model", "")
		v.SetDefault("ai.providers."+name+".baseURL", "")
		v.SetDefault("ai.providers."+name+".timeout", time.Duration(0))
	}

	v.SetDefault("ai.circuitBreaker.enabled", true)
	v.SetDefault("ai.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.minRequests", 3)
	v.SetDefault("ai.circuitBreaker.failureThreshold", 0.6)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 120*time.Second) // fallback across providers can be slow
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.maxRequestSize", 1024*1024)
	v.SetDefault("server.tls.mode", "disabled") // disabled, server, mutual
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.caFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.tls.clientAuthPolicy", "require")
	v.SetDefault("server.tls.watchFiles", false)
	v.SetDefault("server.tls.debounceDelay", time.Second)
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown", "yaml"})
	v.SetDefault("app.maxFileSize", 1024*1024) // 1MB
	v.SetDefault("app.watchPrompts", true)

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.providerKeys", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", false)
	v.SetDefault("observability.serviceName", "resumepilot")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
	v.SetDefault("observability.healthCheck.modelProbeTimeout", 10*time.Second)
}

// bindProviderEnv lets the usual provider variables (GROQ_API_KEY and so on)
// populate provider settings next to the prefixed form.
func bindProviderEnv(v *viper.Viper) {
	for name, env := range providerEnv {
		keyPath := "ai.providers." + name + ".apiKey"
		modelPath := "ai.providers." + name + ".model"

		_ = v.BindEnv(append([]string{keyPath, prefixedEnv(keyPath)}, env.apiKey...)...)
		_ = v.BindEnv(modelPath, prefixedEnv(modelPath), env.model)
	}
}

func prefixedEnv(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
