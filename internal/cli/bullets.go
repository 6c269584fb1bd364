package cli

import (
	"fmt"

	"resumepilot/internal/common"
	"resumepilot/internal/types"

	"github.com/spf13/cobra"
)

var bulletsCmd = &cobra.Command{
	Use:   "bullets [bullets-file]",
	Short: "Rewrite resume bullet points",
	Long: `Rewrite resume bullet points so they start with strong verbs and show impact.
Optionally pass a target role and a job description file to steer the wording.`,
	Args: cobra.ExactArgs(1),
	RunE: runBullets,
}

var (
	bulletsFlags   taskFlags
	bulletsRole    string
	bulletsJobFile string
)

func init() {
	addTaskFlags(bulletsCmd, &bulletsFlags)
	bulletsCmd.Flags().StringVar(&bulletsRole, "role", "", "Target role")
	bulletsCmd.Flags().StringVar(&bulletsJobFile, "job-file", "", "Job description file to emphasize matching experience")
}

func runBullets(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())
	service := newService(cmd.Context())
	overrides := bulletsFlags.overrides(cmd)
	files := newFileArgs().add("bullets", args[0]).add("job", bulletsJobFile)

	createInput := func(contents []string) (types.BulletsInput, error) {
		return types.BulletsInput{
			Bullets:        files.get(contents, "bullets"),
			TargetRole:     bulletsRole,
			JobDescription: files.get(contents, "job"),
			Overrides:      overrides,
		}, nil
	}

	logDetails := func(input types.BulletsInput, cfg common.CommandConfig) {
		logger.Info("Starting bullet rewrite",
			"bullets_chars", len(input.Bullets),
			"has_job_description", input.JobDescription != "",
			"output_format", cfg.OutputFormat)
	}

	if err := common.RunTaskCommand(cmd.Context(), logger, bulletsFlags.CommandConfig, files.paths,
		createInput, service.RewriteBullets, logDetails); err != nil {
		return fmt.Errorf("failed to rewrite bullets: %w", err)
	}
	logger.Info("Bullet rewrite completed successfully")
	return nil
}
