package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buda-base/gnd-pilot/internal/ids"
)

func newDeriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "derive <work-id> [group-id]",
		Short: "Print the storage bucket and paths of a work",
		Example: `  gnd-pilot derive W22084 I0886
  # bucket: 60
  # images: Works/60/W22084/images/W22084-0886`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			work := args[0]
			if err := ids.ValidateID(work); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "bucket: %s\n", ids.Bucket(work))
			fmt.Fprintf(out, "work: %s\n", ids.WorkDir(work))
			fmt.Fprintf(out, "sources: %s\n", ids.SourcesDir(work))
			fmt.Fprintf(out, "volumes: %s\n", ids.VolumeListPath(work))
			if len(args) == 2 {
				fmt.Fprintf(out, "images: %s\n", ids.ImageGroupDir(work, args[1]))
			}
			return nil
		},
	}
}
