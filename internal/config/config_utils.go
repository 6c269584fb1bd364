package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// loadDotEnv reads KEY=value pairs from .env (or RESUMEPILOT_ENV_FILE) into the
// process environment. Variables that are already set win.
func loadDotEnv() {
	path := os.Getenv(envPrefix + "_ENV_FILE")
	if path == "" {
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("[CONFIG] Failed to load env file %s: %v", path, err)
		}
		return
	}
	log.Printf("[CONFIG] Loaded environment from %s", path)
}

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyServerAPIKeyFallbacks()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
	c.trimProviderKeys()
}

// applyServerAPIKeyFallbacks accepts a comma-separated key list from the environment
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 1 && strings.Contains(c.Server.APIKeys[0], ",") {
		c.Server.APIKeys = splitAndTrim(c.Server.APIKeys[0])
	}
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv(envPrefix + "_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// trimProviderKeys treats whitespace-only credentials as absent.
func (c *Config) trimProviderKeys() {
	for _, np := range c.AI.OrderedProviders() {
		c.AI.Providers.setAPIKey(np.Name, strings.TrimSpace(np.Config.APIKey))
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults and environment)")
	}

	var set []string
	for _, env := range providerEnv {
		for _, name := range append(env.apiKey, env.model) {
			if os.Getenv(name) != "" {
				set = append(set, name+"="+maskIfSecret(name, os.Getenv(name)))
			}
		}
	}
	if len(set) > 0 {
		log.Printf("[CONFIG] Provider environment: %s", strings.Join(set, ", "))
	}

	configured := c.AI.ConfiguredProviders()
	if len(configured) == 0 {
		log.Println("[CONFIG] Text-generation providers: ***NONE CONFIGURED***")
	} else {
		log.Printf("[CONFIG] Text-generation providers: %s", strings.Join(configured, ", "))
	}
	log.Printf("[CONFIG] Server: %s:%s (TLS %s), Vault enabled: %t, Log level: %s",
		c.Server.Host, c.Server.Port, c.Server.TLS.Mode, c.Vault.Enabled, c.App.LogLevel)
}

func maskIfSecret(name, value string) string {
	if strings.Contains(strings.ToLower(name), "key") {
		return "***MASKED***"
	}
	return value
}
