package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"resumepilot/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets are KVv2 logical paths, e.g. "secret/data/resumepilot/llm"
type VaultSecrets struct {
	// APIKeys holds a "keys" field with comma-separated server API keys
	APIKeys string `mapstructure:"apiKeys"`

	// ProviderKeys holds any of groq_api_key, gemini_api_key,
	// openai_api_key and anthropic_api_key. Present keys override local ones.
	ProviderKeys string `mapstructure:"providerKeys"`
}

// VaultSecret is the payload and version of a KVv2 secret
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// String returns the trimmed string value of key, if present
func (s *VaultSecret) String(key string) (string, bool) {
	v, ok := s.Data[key].(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// secretReader reads one KVv2 secret by logical path
type secretReader interface {
	ReadKV(path string) (*VaultSecret, error)
}

// VaultClient reads provider and server credentials from Vault
type VaultClient struct {
	client *api.Client
	logger *errors.Logger
}

// NewVaultClient connects to Vault and verifies it answers a health check
func NewVaultClient(cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, err := resolveVaultToken(cfg)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault at %s: %w", apiCfg.Address, err)
	}
	logger.Info("Connected to Vault",
		"address", apiCfg.Address,
		"namespace", cfg.Namespace,
		"version", health.Version,
		"sealed", health.Sealed)

	return &VaultClient{client: client, logger: logger}, nil
}

// resolveVaultToken prefers the inline token over the token file
func resolveVaultToken(cfg VaultConfig) (string, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" && cfg.TokenFile != "" {
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// ReadKV reads a KVv2 secret
func (vc *VaultClient) ReadKV(path string) (*VaultSecret, error) {
	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	vc.logger.Debug("Read secret from Vault", "path", path)
	return decodeKVv2(secret.Data, path)
}

// decodeKVv2 unwraps the data and metadata envelope of a KVv2 read
func decodeKVv2(raw map[string]any, path string) (*VaultSecret, error) {
	data, ok := raw["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	metadata, ok := raw["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	version, err := secretVersion(metadata["version"])
	if err != nil {
		return nil, fmt.Errorf("secret metadata at %s: %w", path, err)
	}
	return &VaultSecret{Data: data, Version: version}, nil
}

// secretVersion accepts the numeric forms the Vault client decodes into
func secretVersion(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Int64()
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case nil:
		return 0, fmt.Errorf("missing 'version' field")
	default:
		return 0, fmt.Errorf("unexpected version type %T", v)
	}
}

// ApplyVaultSecrets loads secrets from Vault into the config when enabled
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		return nil
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	return loadVaultSecrets(client, config, logger)
}

// vaultLogger builds the logger used while loading config, before the
// application logger exists
func vaultLogger(level string) *errors.Logger {
	logger, err := errors.New(level)
	if err != nil {
		return errors.NewNopLogger()
	}
	return logger
}

// loadVaultSecrets applies every configured secret path
func loadVaultSecrets(reader secretReader, config *Config, logger *errors.Logger) error {
	if path := config.Vault.Secrets.APIKeys; path != "" {
		secret, err := reader.ReadKV(path)
		if err != nil {
			return fmt.Errorf("failed to load API keys from vault: %w", err)
		}
		keys, _ := secret.String("keys")
		if apiKeys := splitAndTrim(keys); len(apiKeys) > 0 {
			config.Server.APIKeys = apiKeys
			logger.Info("API keys loaded from Vault", "count", len(apiKeys), "version", secret.Version)
		} else {
			logger.Warn("No API keys found in Vault", "path", path)
		}
	}

	if path := config.Vault.Secrets.ProviderKeys; path != "" {
		secret, err := reader.ReadKV(path)
		if err != nil {
			return fmt.Errorf("failed to load provider API keys from vault: %w", err)
		}
		if loaded := applyProviderKeys(config, secret, logger); len(loaded) > 0 {
			logger.Info("Provider API keys loaded from Vault", "providers", loaded, "version", secret.Version)
		} else {
			logger.Warn("No provider API keys found in Vault", "path", path)
		}
	}

	return nil
}

// providerKeyFields maps provider names to their field in the provider keys secret
var providerKeyFields = map[string]string{
	"groq":      "groq_api_key",
	"gemini":    "gemini_api_key",
	"openai":    "openai_api_key",
	"anthropic": "anthropic_api_key",
}

// applyProviderKeys copies non-empty provider keys into the config and
// returns the names of the providers it set.
func applyProviderKeys(config *Config, secret *VaultSecret, logger *errors.Logger) []string {
	var loaded []string
	for _, name := range []string{"groq", "gemini", "openai", "anthropic"} {
		field := providerKeyFields[name]
		if _, present := secret.Data[field]; !present {
			continue
		}
		value, ok := secret.String(field)
		if !ok {
			logger.Warn("Ignoring non-string provider key in Vault", "field", field)
			continue
		}
		if value == "" {
			continue
		}
		config.AI.Providers.setAPIKey(name, value)
		loaded = append(loaded, name)
	}
	return loaded
}
