package cli

import (
	"fmt"

	"resumepilot/internal/common"
	"resumepilot/internal/types"

	"github.com/spf13/cobra"
)

var emailCmd = &cobra.Command{
	Use:   "email",
	Short: "Draft a job-search email",
	Long: `Draft an application, follow-up, networking or thank-you email.
Resume and job description files are optional context.`,
	Args: cobra.NoArgs,
	RunE: runEmail,
}

var (
	emailFlags      taskFlags
	emailKind       string
	emailRecipient  string
	emailCompany    string
	emailRole       string
	emailContext    string
	emailResumeFile string
	emailJobFile    string
)

func init() {
	addTaskFlags(emailCmd, &emailFlags)
	emailCmd.Flags().StringVar(&emailKind, "kind", types.EmailApplication, "Email kind: application, follow_up, networking, thank_you")
	emailCmd.Flags().StringVar(&emailRecipient, "to", "", "Recipient name")
	emailCmd.Flags().StringVar(&emailCompany, "company", "", "Company name")
	emailCmd.Flags().StringVar(&emailRole, "role", "", "Role the email is about")
	emailCmd.Flags().StringVar(&emailContext, "context", "", "Extra context, such as when you interviewed")
	emailCmd.Flags().StringVar(&emailResumeFile, "resume-file", "", "Resume file")
	emailCmd.Flags().StringVar(&emailJobFile, "job-file", "", "Job description file")

	_ = emailCmd.RegisterFlagCompletionFunc("kind", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{types.EmailApplication, types.EmailFollowUp, types.EmailNetworking, types.EmailThankYou}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runEmail(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())
	service := newService(cmd.Context())
	overrides := emailFlags.overrides(cmd)
	files := newFileArgs().add("resume", emailResumeFile).add("job", emailJobFile)

	createInput := func(contents []string) (types.EmailInput, error) {
		return types.EmailInput{
			Kind:           emailKind,
			Recipient:      emailRecipient,
			CompanyName:    emailCompany,
			Role:           emailRole,
			Context:        emailContext,
			Resume:         files.get(contents, "resume"),
			JobDescription: files.get(contents, "job"),
			Overrides:      overrides,
		}, nil
	}

	logDetails := func(input types.EmailInput, cfg common.CommandConfig) {
		logger.Info("Starting email draft",
			"kind", input.Kind,
			"output_format", cfg.OutputFormat)
	}

	if err := common.RunTaskCommand(cmd.Context(), logger, emailFlags.CommandConfig, files.paths,
		createInput, service.DraftEmail, logDetails); err != nil {
		return fmt.Errorf("failed to draft email: %w", err)
	}
	return nil
}
