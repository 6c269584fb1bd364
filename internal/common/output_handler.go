package common

import (
	"fmt"
	"io"
	"os"

	"resumepilot/internal/errors"
	"resumepilot/internal/formatters"
)

// CommandConfig holds the output settings shared by every command
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
	MaxFileSize  int64

	// Stdout receives output when OutputFile is empty; nil means os.Stdout
	Stdout io.Writer
}

// OutputHandler renders results and sends them to a file or stdout
type OutputHandler struct {
	files    *FileProcessor
	registry *formatters.FormatterRegistry
	stdout   io.Writer
	logger   *errors.Logger
}

// NewOutputHandler writes to os.Stdout using the global formatter registry
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &OutputHandler{
		files:    NewFileProcessor(logger),
		registry: formatters.GlobalRegistry,
		stdout:   os.Stdout,
		logger:   logger,
	}
}

// HandleOutput renders data in cfg.OutputFormat and writes it out
func (oh *OutputHandler) HandleOutput(data any, cfg CommandConfig) error {
	if err := oh.files.ValidateOutputFile(cfg.OutputFile); err != nil {
		return err
	}

	rendered, err := oh.registry.Format(data, cfg.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", cfg.OutputFormat), err)
	}

	if cfg.OutputFile == "" {
		w := oh.stdout
		if cfg.Stdout != nil {
			w = cfg.Stdout
		}
		if _, err := io.WriteString(w, rendered); err != nil {
			return errors.NewIOError("STDOUT_WRITE_FAILED", "Cannot write output", err)
		}
		return nil
	}

	if err := oh.files.WriteFile(cfg.OutputFile, rendered); err != nil {
		return err
	}
	oh.logger.Info("Output written", "file", cfg.OutputFile, "format", cfg.OutputFormat)
	return nil
}
