package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buda-base/gnd-pilot/internal/pipeline"
	"github.com/buda-base/gnd-pilot/internal/report"
)

func newGraphCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Build the catalog graph and write it as Turtle",
		Example: `  # Build GND.ttl from ./input into ./output
  gnd-pilot graph

  # Without reverse relations, stopping on the first bad row
  gnd-pilot graph --no-infer --on-error abort`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, pipeline.StageGraph)
		},
	}
}

func newImagesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "images",
		Short: "Copy source folders, store page images and write manifests",
		Example: `  # Process images with mozjpeg's jpegtran as optimizer
  gnd-pilot images --images ./scans --optimize-cmd "jpegtran -copy none"

  # See what would be done
  gnd-pilot images --dry-run --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, pipeline.StageImages)
		},
	}
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Build the graph and process images in one run with one report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, pipeline.StageAll)
		},
	}
}

func execute(cmd *cobra.Command, opts *options, stages pipeline.Stage) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	rep, runErr := p.Run(cmd.Context(), stages)
	if rep != nil {
		printSummary(cmd, rep)
	}
	return runErr
}

func printSummary(cmd *cobra.Command, rep *report.Report) {
	out := cmd.OutOrStdout()
	if len(rep.Issues) > 0 {
		fmt.Fprintln(out, rep.Table())
	}
	fmt.Fprintf(out, "\nRun %s: %d issues", rep.RunID, len(rep.Issues))
	for _, k := range []report.Kind{report.KindStructural, report.KindReferential, report.KindDerivation, report.KindFormat, report.KindCodec} {
		if n := rep.Counts[k]; n > 0 {
			fmt.Fprintf(out, ", %d %s", n, k)
		}
	}
	fmt.Fprintln(out)
	if rep.Aborted != "" {
		fmt.Fprintf(out, "Aborted: %s\n", rep.Aborted)
	}
}
