package common

import (
	"context"
	"fmt"

	"resumepilot/internal/errors"
	"resumepilot/internal/types"
)

// CreateInputFunc builds a task input from the contents of the files named on
// the command line, in argument order.
type CreateInputFunc[Input any] func(contents []string) (Input, error)

// LogDetailsFunc logs the start of a task.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// TaskFunc runs one generation task.
type TaskFunc[Input any] func(context.Context, Input) (*types.GenerationOutput, error)

// RunTaskCommand encapsulates the common logic for file-based CLI commands:
// read inputs, run the task, report usage and fallbacks, write the output.
func RunTaskCommand[Input any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	files []string,
	createInput CreateInputFunc[Input],
	task TaskFunc[Input],
	logDetails LogDetailsFunc[Input],
) error {
	fileProcessor := NewFileProcessor(logger).WithMaxFileSize(cmdConfig.MaxFileSize)
	outputHandler := NewOutputHandler(logger)

	if err := fileProcessor.ValidateOutputFile(cmdConfig.OutputFile); err != nil {
		return err
	}

	contents, err := fileProcessor.ValidateAndReadFiles(files...)
	if err != nil {
		return err
	}

	input, err := createInput(contents)
	if err != nil {
		return fmt.Errorf("failed to create input from file contents: %w", err)
	}

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	result, err := task(ctx, input)
	if err != nil {
		return err
	}

	if result.Usage != nil {
		logger.Info("AI token usage",
			"provider", result.Provider,
			"input_tokens", result.Usage.InputTokens,
			"output_tokens", result.Usage.OutputTokens,
			"total_tokens", result.Usage.TotalTokens)
	}
	if len(result.FallbackErrors) > 0 {
		logger.Warn("Generation used a fallback provider",
			"provider", result.Provider,
			"failed", result.FallbackErrors)
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
