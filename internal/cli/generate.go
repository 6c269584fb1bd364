package cli

import (
	"fmt"

	"resumepilot/internal/common"
	"resumepilot/internal/types"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt-file]",
	Short: "Send a raw prompt through the provider chain",
	Long: `Send the contents of a prompt file to the first provider that answers.
Use "-" to read the prompt from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

var (
	generateFlags  taskFlags
	generateSystem string
)

func init() {
	addTaskFlags(generateCmd, &generateFlags)
	generateCmd.Flags().StringVar(&generateSystem, "system", "", "System prompt sent ahead of the user prompt")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())
	service := newService(cmd.Context())
	overrides := generateFlags.overrides(cmd)

	createInput := func(contents []string) (types.GenerateInput, error) {
		return types.GenerateInput{
			Prompt:       contents[0],
			SystemPrompt: generateSystem,
			Overrides:    overrides,
		}, nil
	}

	logDetails := func(input types.GenerateInput, cfg common.CommandConfig) {
		logger.Info("Starting raw generation",
			"prompt_chars", len(input.Prompt),
			"output_format", cfg.OutputFormat)
	}

	if err := common.RunTaskCommand(cmd.Context(), logger, generateFlags.CommandConfig, args,
		createInput, service.Generate, logDetails); err != nil {
		return fmt.Errorf("failed to generate text: %w", err)
	}
	return nil
}
