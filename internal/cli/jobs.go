package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dbfuel/internal/jobs"
	"github.com/roach88/dbfuel/internal/modeling"
)

// Catalog lists what a pipeline file may reference.
type Catalog struct {
	JobTypes         []string `json:"job_types"`
	TransformerTypes []string `json:"transformer_types"`
}

// NewJobsCommand creates the jobs command.
func NewJobsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "jobs",
		Short:         "List job and transformer types",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			catalog := Catalog{
				JobTypes:         jobs.NewRegistry().Types(),
				TransformerTypes: modeling.TransformerTypes(),
			}

			if formatter.Format == "json" {
				return formatter.Success(catalog)
			}

			fmt.Fprintln(formatter.Writer, "Job types:")
			for _, t := range catalog.JobTypes {
				fmt.Fprintf(formatter.Writer, "  %s\n", t)
			}
			fmt.Fprintln(formatter.Writer, "Transformer types:")
			for _, t := range catalog.TransformerTypes {
				fmt.Fprintf(formatter.Writer, "  %s\n", t)
			}
			return nil
		},
	}
}
