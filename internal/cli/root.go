package cli

import (
	"context"

	"resumepilot/internal/ai"
	"resumepilot/internal/config"
	"resumepilot/internal/errors"
	"resumepilot/internal/llm/providers"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "resumepilot",
	Short: "Career-document writing assistant backed by several LLM providers",
	Long: `Resumepilot writes resume bullets, cover letters, project ideas, job-search
emails and profile bios using whichever text-generation providers you have
credentials for. Providers are tried in order (groq, gemini, openai, anthropic)
and the first one that answers wins.

Set at least one of GROQ_API_KEY, GEMINI_API_KEY, OPENAI_API_KEY or
ANTHROPIC_API_KEY in the environment or in a .env file.`,
	SilenceUsage: true,
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

// newService builds the task service over the credential-driven provider chain
func newService(ctx context.Context) *ai.Service {
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)
	return ai.NewService(cfg, providers.NewGenerator(cfg, logger), logger)
}

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(bulletsCmd)
	rootCmd.AddCommand(coverLetterCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(emailCmd)
	rootCmd.AddCommand(bioCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
