package cli

import (
	"fmt"

	"resumepilot/internal/common"
	"resumepilot/internal/types"

	"github.com/spf13/cobra"
)

var bioCmd = &cobra.Command{
	Use:   "bio [resume-file]",
	Short: "Write a profile bio for a platform",
	Args:  cobra.ExactArgs(1),
	RunE:  runBio,
}

var (
	bioFlags     taskFlags
	bioPlatform  string
	bioHeadline  string
	bioMaxLength int
)

func init() {
	addTaskFlags(bioCmd, &bioFlags)
	bioCmd.Flags().StringVar(&bioPlatform, "platform", "linkedin", "Platform: linkedin, twitter, github, portfolio")
	bioCmd.Flags().StringVar(&bioHeadline, "headline", "", "Headline or tagline to build on")
	bioCmd.Flags().IntVar(&bioMaxLength, "max-length", 0, "Maximum bio length in characters (50-5000)")

	_ = bioCmd.RegisterFlagCompletionFunc("platform", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"linkedin", "twitter", "github", "portfolio"}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runBio(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())
	service := newService(cmd.Context())
	overrides := bioFlags.overrides(cmd)

	createInput := func(contents []string) (types.BioInput, error) {
		return types.BioInput{
			Platform:  bioPlatform,
			Resume:    contents[0],
			Headline:  bioHeadline,
			MaxLength: bioMaxLength,
			Overrides: overrides,
		}, nil
	}

	logDetails := func(input types.BioInput, cfg common.CommandConfig) {
		logger.Info("Starting bio",
			"platform", input.Platform,
			"resume_chars", len(input.Resume),
			"output_format", cfg.OutputFormat)
	}

	if err := common.RunTaskCommand(cmd.Context(), logger, bioFlags.CommandConfig, args,
		createInput, service.WriteSocialBio, logDetails); err != nil {
		return fmt.Errorf("failed to write bio: %w", err)
	}
	return nil
}
