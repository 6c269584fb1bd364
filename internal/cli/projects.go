package cli

import (
	"fmt"

	"resumepilot/internal/common"
	"resumepilot/internal/types"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Suggest portfolio projects for a target role",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

var (
	projectsFlags      taskFlags
	projectsRole       string
	projectsSkills     string
	projectsResumeFile string
	projectsCount      int
)

func init() {
	addTaskFlags(projectsCmd, &projectsFlags)
	projectsCmd.Flags().StringVar(&projectsRole, "role", "", "Target role (required)")
	projectsCmd.Flags().StringVar(&projectsSkills, "skills", "", "Comma-separated current skills")
	projectsCmd.Flags().StringVar(&projectsResumeFile, "resume-file", "", "Resume file for context")
	projectsCmd.Flags().IntVar(&projectsCount, "count", 3, "Number of projects to suggest (1-10)")
	_ = projectsCmd.MarkFlagRequired("role")
}

func runProjects(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())
	service := newService(cmd.Context())
	overrides := projectsFlags.overrides(cmd)
	files := newFileArgs().add("resume", projectsResumeFile)

	createInput := func(contents []string) (types.ProjectsInput, error) {
		return types.ProjectsInput{
			TargetRole: projectsRole,
			Skills:     projectsSkills,
			Resume:     files.get(contents, "resume"),
			Count:      projectsCount,
			Overrides:  overrides,
		}, nil
	}

	logDetails := func(input types.ProjectsInput, cfg common.CommandConfig) {
		logger.Info("Starting project suggestions",
			"target_role", input.TargetRole,
			"count", input.Count,
			"output_format", cfg.OutputFormat)
	}

	if err := common.RunTaskCommand(cmd.Context(), logger, projectsFlags.CommandConfig, files.paths,
		createInput, service.SuggestProjects, logDetails); err != nil {
		return fmt.Errorf("failed to suggest projects: %w", err)
	}
	return nil
}
