package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/workflow-pipelines/internal/models"
	"github.com/example/workflow-pipelines/internal/pipeline"
	"github.com/example/workflow-pipelines/internal/pipeline/cleaner"
)

// NewDataCleanerCmd builds the data-cleaner command. It takes one JSON object
// argument and prints the data_clean workflow result.
func NewDataCleanerCmd(streams Streams) *cobra.Command {
	var flags commonFlags
	cmd := &cobra.Command{
		Use:           "data-cleaner <json>",
		Short:         "Clean and validate the fields of a JSON object",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap("data-cleaner", flags, streams)
			if err != nil {
				return a.fail(models.WorkflowDataClean, err)
			}
			if len(args) == 0 {
				return a.fail(models.WorkflowDataClean, pipeline.ErrMissingInput)
			}

			c := cleaner.New(
				a.logger.With().Str("component", "cleaner").Logger(),
				cleaner.WithMaxDepth(a.cfg.Limits.MaxNestingDepth),
			)
			return a.run(cmd.Context(), c, []byte(args[0]), pipeline.IsInputError)
		},
	}
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.Err)
	flags.register(cmd)
	return cmd
}
