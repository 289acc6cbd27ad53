package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/workflow-pipelines/internal/models"
	"github.com/example/workflow-pipelines/internal/pipeline"
	"github.com/example/workflow-pipelines/internal/pipeline/emailparser"
)

var errInputConflict = errors.New("pass either raw email text or --file, not both")

// NewEmailParserCmd builds the email-parser command. The message comes from
// the single argument or from the file named by --file.
func NewEmailParserCmd(streams Streams) *cobra.Command {
	var (
		flags    commonFlags
		filePath string
	)
	cmd := &cobra.Command{
		Use:           "email-parser [raw-email]",
		Short:         "Extract sender, subject, body and attachments from a raw email",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap("email-parser", flags, streams)
			if err != nil {
				return a.fail(models.WorkflowEmailParse, err)
			}

			var input []byte
			switch {
			case filePath != "" && len(args) > 0:
				return a.fail(models.WorkflowEmailParse, pipeline.Wrap(pipeline.ErrInvalidInput, errInputConflict))
			case filePath != "":
				input, err = os.ReadFile(filePath)
				if err != nil {
					return a.fail(models.WorkflowEmailParse, pipeline.Wrap(pipeline.ErrReadInput, err))
				}
			case len(args) > 0:
				input = []byte(args[0])
			default:
				return a.fail(models.WorkflowEmailParse, pipeline.ErrMissingInput)
			}

			parser := emailparser.New(a.logger.With().Str("component", "email-parser").Logger(), nil)
			return a.run(cmd.Context(), parser, input, exitOnEmailFailure)
		},
	}
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.Err)
	flags.register(cmd)
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Read the raw email from this file")
	return cmd
}

func exitOnEmailFailure(err error) bool {
	return pipeline.IsInputError(err) || errors.Is(err, pipeline.ErrParse)
}
