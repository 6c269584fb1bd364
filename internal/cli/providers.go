package cli

import (
	"resumepilot/internal/common"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured text-generation providers in fallback order",
	Long: `List the providers that have credentials, in the order they are tried.
With --probe each provider's model is checked with a live request.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return providersFlags.prepare(cmd)
	},
	RunE: runProviders,
}

var (
	providersFlags taskFlags
	providersProbe bool
)

func init() {
	providersCmd.Flags().StringVarP(&providersFlags.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	providersCmd.Flags().StringVar(&providersFlags.OutputFormat, "format", "", "Output format: json, yaml, text, or markdown")
	providersCmd.Flags().BoolVar(&providersProbe, "probe", false, "Check each provider's model")
}

func runProviders(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())
	service := newService(cmd.Context())

	listing := service.Providers(cmd.Context(), providersProbe)
	logger.Debug("Listed providers", "count", len(listing.Providers), "probe", providersProbe)

	return common.NewOutputHandler(logger).HandleOutput(listing, providersFlags.CommandConfig)
}
