package cli

import (
	"resumepilot/internal/common"
	"resumepilot/internal/formatters"
	"resumepilot/internal/types"

	"github.com/spf13/cobra"
)

// taskFlags are the output and override flags every generation command takes
type taskFlags struct {
	common.CommandConfig
	provider    string
	temperature float32
	maxTokens   int32
}

func addTaskFlags(cmd *cobra.Command, f *taskFlags) {
	cmd.Flags().StringVarP(&f.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&f.OutputFormat, "format", "", "Output format: json, yaml, text, or markdown")
	cmd.Flags().StringVar(&f.provider, "provider", "", "Try this provider first: groq, gemini, openai, anthropic")
	cmd.Flags().Float32Var(&f.temperature, "temperature", 0, "Sampling temperature between 0 and 1 (default from config)")
	cmd.Flags().Int32Var(&f.maxTokens, "max-tokens", 0, "Maximum output tokens (default from config)")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return formatters.GlobalRegistry.GetSupportedFormats(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"groq", "gemini", "openai", "anthropic"}, cobra.ShellCompDirectiveNoFileComp
	})

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		return f.prepare(cmd)
	}
}

// prepare applies config defaults to the output settings and validates the format
func (f *taskFlags) prepare(cmd *cobra.Command) error {
	cfg := getConfigFromContext(cmd.Context())
	// Apply default format if not specified
	if f.OutputFormat == "" {
		f.OutputFormat = cfg.App.DefaultFormat
	}
	f.MaxFileSize = cfg.App.MaxFileSize
	f.Stdout = cmd.OutOrStdout()
	// Validate format against supported formats
	return common.ValidateOutputFormat(f.OutputFormat, cfg.App.SupportedFormats)
}

// overrides returns only the settings given explicitly on the command line
func (f *taskFlags) overrides(cmd *cobra.Command) types.Overrides {
	o := types.Overrides{Provider: f.provider}
	if cmd.Flags().Changed("temperature") {
		t := f.temperature
		o.Temperature = &t
	}
	if cmd.Flags().Changed("max-tokens") {
		n := f.maxTokens
		o.MaxOutputTokens = &n
	}
	return o
}

// fileArgs tracks which optional input files were given so their contents
// can be looked up by name after they are read in one pass.
type fileArgs struct {
	paths []string
	index map[string]int
}

func newFileArgs() *fileArgs {
	return &fileArgs{index: make(map[string]int)}
}

func (fa *fileArgs) add(name, path string) *fileArgs {
	if path == "" {
		return fa
	}
	fa.index[name] = len(fa.paths)
	fa.paths = append(fa.paths, path)
	return fa
}

func (fa *fileArgs) get(contents []string, name string) string {
	i, ok := fa.index[name]
	if !ok || i >= len(contents) {
		return ""
	}
	return contents[i]
}
