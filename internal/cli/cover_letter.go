package cli

import (
	"fmt"

	"resumepilot/internal/common"
	"resumepilot/internal/types"

	"github.com/spf13/cobra"
)

var coverLetterCmd = &cobra.Command{
	Use:   "cover-letter [resume-file] [job-description-file]",
	Short: "Write a cover letter for a job description",
	Long: `Write a cover letter from your resume for a specific job description.
Both files should be in plain text format.`,
	Args: cobra.ExactArgs(2),
	RunE: runCoverLetter,
}

var (
	coverLetterFlags   taskFlags
	coverLetterCompany string
	coverLetterTone    string
)

func init() {
	addTaskFlags(coverLetterCmd, &coverLetterFlags)
	coverLetterCmd.Flags().StringVar(&coverLetterCompany, "company", "", "Company name")
	coverLetterCmd.Flags().StringVar(&coverLetterTone, "tone", "", "Tone: professional, enthusiastic, conversational, formal")

	_ = coverLetterCmd.RegisterFlagCompletionFunc("tone", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"professional", "enthusiastic", "conversational", "formal"}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runCoverLetter(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())
	service := newService(cmd.Context())
	overrides := coverLetterFlags.overrides(cmd)

	createInput := func(contents []string) (types.CoverLetterInput, error) {
		if len(contents) != 2 {
			return types.CoverLetterInput{}, fmt.Errorf("expected 2 file paths, got %d", len(contents))
		}
		return types.CoverLetterInput{
			Resume:         contents[0],
			JobDescription: contents[1],
			CompanyName:    coverLetterCompany,
			Tone:           coverLetterTone,
			Overrides:      overrides,
		}, nil
	}

	logDetails := func(input types.CoverLetterInput, cfg common.CommandConfig) {
		logger.Info("Starting cover letter",
			"resume_chars", len(input.Resume),
			"job_chars", len(input.JobDescription),
			"output_format", cfg.OutputFormat)
	}

	if err := common.RunTaskCommand(cmd.Context(), logger, coverLetterFlags.CommandConfig, args,
		createInput, service.WriteCoverLetter, logDetails); err != nil {
		return fmt.Errorf("failed to write cover letter: %w", err)
	}
	logger.Info("Cover letter completed successfully")
	return nil
}
