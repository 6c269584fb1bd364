package config

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// Provider credential precedence:
// 1. Vault (if configured) - Highest priority
// 2. Environment variables (RESUMEPILOT_AI_PROVIDERS_<NAME>_APIKEY, then GROQ_API_KEY etc.)
// 3. Config file values
// 4. .env file (never overrides variables already set)
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`

	prompts *PromptStore
}

// AIConfig holds text-generation configuration
type AIConfig struct {
	// ProviderOrder is the fallback priority; only providers with credentials are used.
	ProviderOrder     []string             `mapstructure:"providerOrder"`
	Providers         ProvidersConfig      `mapstructure:"providers"`
	Temperature       float32              `mapstructure:"temperature"`
	MaxOutputTokens   int32                `mapstructure:"maxOutputTokens"`
	PreferredProvider string               `mapstructure:"preferredProvider"`
	UseSystemPrompts  bool                 `mapstructure:"useSystemPrompts"`
	AttemptTimeout    time.Duration        `mapstructure:"attemptTimeout"` // 0 disables
	TotalTimeout      time.Duration        `mapstructure:"totalTimeout"`   // 0 disables
	CircuitBreaker    CircuitBreakerConfig `mapstructure:"circuitBreaker"`
	Tasks             TasksConfig          `mapstructure:"tasks"`
}

// ProvidersConfig holds one entry per supported provider
type ProvidersConfig struct {
	Groq      ProviderConfig `mapstructure:"groq"`
	Gemini    ProviderConfig `mapstructure:"gemini"`
	OpenAI    ProviderConfig `mapstructure:"openai"`
	Anthropic ProviderConfig `mapstructure:"anthropic"`
}

// ProviderConfig holds credentials and endpoint settings for one provider.
// An empty APIKey means the provider is not configured.
type ProviderConfig struct {
	APIKey  string        `mapstructure:"apiKey"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"baseURL"`
	Timeout time.Duration `mapstructure:"timeout"` // HTTP client timeout, 0 means context only
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	MaxRequestSize int64         `mapstructure:"maxRequestSize"`

	TLS TLSConfig `mapstructure:"tls"`

	// Valid API keys for authentication; empty disables auth
	APIKeys []string `mapstructure:"apiKeys"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode             string `mapstructure:"mode"`     // TLS mode: "disabled", "server", "mutual"
	CertFile         string `mapstructure:"certFile"` // Server certificate file (PEM)
	KeyFile          string `mapstructure:"keyFile"`  // Server private key file (PEM)
	CAFile           string `mapstructure:"caFile"`   // CA for client cert verification (mutual mode)
	MinVersion       string `mapstructure:"minVersion"`
	ClientAuthPolicy string `mapstructure:"clientAuthPolicy"` // "require", "request", "verify"

	// Reload certificates when the files change
	WatchFiles    bool          `mapstructure:"watchFiles"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RequestsPerMin int  `mapstructure:"requestsPerMin"`
	BurstCapacity  int  `mapstructure:"burstCapacity"`
	ByIP           bool `mapstructure:"byIP"`
	ByAPIKey       bool `mapstructure:"byAPIKey"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
	WatchPrompts     bool     `mapstructure:"watchPrompts"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool              `mapstructure:"enabled"`
	ServiceName     string            `mapstructure:"serviceName"`
	ServiceVersion  string            `mapstructure:"serviceVersion"`
	ServiceInstance string            `mapstructure:"serviceInstance"`
	Tracing         TracingConfig     `mapstructure:"tracing"`
	Metrics         MetricsConfig     `mapstructure:"metrics"`
	Console         ConsoleConfig     `mapstructure:"console"`
	Prometheus      PrometheusConfig  `mapstructure:"prometheus"`
	OTLP            OTLPConfig        `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig `mapstructure:"healthCheck"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	ModelProbeTimeout time.Duration `mapstructure:"modelProbeTimeout"`
}

// LoadConfig loads configuration from .env, environment variables and a config file
func LoadConfig() (*Config, error) {
	loadDotEnv()

	v := viper.New()
	setDefaults(v)
	bindProviderEnv(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/resumepilot/")
	v.AddConfigPath("$HOME/.resumepilot")
	v.AddConfigPath(".")

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileUsed = v.ConfigFileUsed()
	}

	return decode(v, configFileUsed)
}

// LoadConfigFile loads configuration from an explicit YAML file plus environment.
func LoadConfigFile(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	setDefaults(v)
	bindProviderEnv(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return decode(v, path)
}

func decode(v *viper.Viper, configFileUsed string) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := ApplyVaultSecrets(&config, vaultLogger(config.App.LogLevel)); err != nil {
		return nil, fmt.Errorf("failed to apply vault secrets: %w", err)
	}

	if err := config.validatePromptFiles(); err != nil {
		return nil, fmt.Errorf("prompt file validation failed: %w", err)
	}

	store, err := config.loadPromptsFromFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to load custom prompts from files: %w", err)
	}
	config.prompts = store

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loaded")
	return &config, nil
}

// Validate checks if the configuration is valid. Missing provider
// credentials are not an error; generation reports them at call time.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.validateAIConfig(); err != nil {
		return err
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

func (c *Config) validateAIConfig() error {
	if c.AI.AttemptTimeout < 0 || c.AI.TotalTimeout < 0 {
		return fmt.Errorf("AI timeouts must not be negative")
	}

	seen := make(map[string]bool, len(c.AI.ProviderOrder))
	for _, name := range c.AI.ProviderOrder {
		if _, ok := c.AI.Providers.Get(name); !ok {
			return fmt.Errorf("unknown provider in providerOrder: %s", name)
		}
		if seen[name] {
			return fmt.Errorf("duplicate provider in providerOrder: %s", name)
		}
		seen[name] = true
	}

	if cb := c.AI.CircuitBreaker; cb.Enabled && (cb.FailureThreshold <= 0 || cb.FailureThreshold > 1) {
		return fmt.Errorf("circuit breaker failureThreshold must be in (0, 1]: %v", cb.FailureThreshold)
	}

	for _, task := range TaskNames {
		if tc := c.AI.Tasks.Get(task); tc.MaxOutputTokens != nil && *tc.MaxOutputTokens <= 0 {
			return fmt.Errorf("maxOutputTokens for task %s must be positive", task)
		}
	}

	return nil
}

// noPrompts backs configs that were not built by LoadConfig. It has no
// files, so nothing ever writes to it.
var noPrompts = NewPromptStore()

// Prompts returns the prompt templates loaded from files.
func (c *Config) Prompts() *PromptStore {
	if c.prompts == nil {
		return noPrompts
	}
	return c.prompts
}
