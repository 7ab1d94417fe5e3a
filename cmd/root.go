package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/buda-base/gnd-pilot/internal/config"
	"github.com/buda-base/gnd-pilot/internal/logging"
)

// options holds the persistent flags shared by all subcommands
type options struct {
	configPath  string
	inputDir    string
	outputDir   string
	imagesDir   string
	optimizeCmd string
	workers     int
	noInfer     bool
	checkRefs   bool
	onError     string
	duplicates  string
	dryRun      bool
	verbose     bool
	logFormat   string
}

func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "gnd-pilot",
		Short: "Catalog graph and image manifest pipeline for manuscript digitization",
		Long: `gnd-pilot converts the catalog spreadsheets of a manuscript digitization
project into a Turtle graph and lays out the digitized page images in the
Works/{bucket}/{WorkId}/ storage tree with their dimension manifests.

Settings are read from a YAML config file, then GND_* environment variables
(a .env file is loaded when present), then flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return logging.Setup(os.Stderr, opts.verbose, opts.logFormat)
		},
	}

	opts.bind(cmd)

	cmd.AddCommand(newGraphCmd(opts))
	cmd.AddCommand(newImagesCmd(opts))
	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newDeriveCmd())

	return cmd
}

// bind registers the shared flags as persistent flags of cmd
func (o *options) bind(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.configPath, "config", "", "Path to a YAML config file")
	f.StringVar(&o.inputDir, "input", "", "Directory holding the catalog tables (env GND_INPUT_DIR)")
	f.StringVar(&o.outputDir, "output", "", "Output root for the graph, Works/ tree and report (env GND_OUTPUT_DIR)")
	f.StringVar(&o.imagesDir, "images", "", "Root the image source paths are relative to (env GND_IMAGES_DIR)")
	f.StringVar(&o.optimizeCmd, "optimize-cmd", "", "JPEG optimizer writing to stdout, plain copy when empty (env GND_OPTIMIZE_CMD)")
	f.IntVar(&o.workers, "workers", 0, "Number of volumes processed concurrently")
	f.BoolVar(&o.noInfer, "no-infer", false, "Do not add reverse relations to the graph")
	f.BoolVar(&o.checkRefs, "check-references", false, "Report references to ids no table defines")
	f.StringVar(&o.onError, "on-error", "", "Policy for rows failing derivation: skip or abort")
	f.StringVar(&o.duplicates, "duplicate-folders", "", "Policy for works with two source folders: first-wins or error")
	f.BoolVar(&o.dryRun, "dry-run", false, "Compute everything without writing")
	f.BoolVar(&o.verbose, "verbose", false, "Verbose logging")
	f.StringVar(&o.logFormat, "log-format", "text", "Log format: text or json")
}

// loadConfig layers the config file, environment and changed flags
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}

	f := cmd.Flags()
	if f.Changed("input") {
		cfg.InputDir = opts.inputDir
	}
	if f.Changed("output") {
		cfg.OutputDir = opts.outputDir
	}
	if f.Changed("images") {
		cfg.ImagesDir = opts.imagesDir
	}
	if f.Changed("optimize-cmd") {
		cfg.OptimizeCmd = opts.optimizeCmd
	}
	if f.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if opts.noInfer {
		cfg.InferReverse = false
	}
	if opts.checkRefs {
		cfg.CheckReferences = true
	}
	if f.Changed("on-error") {
		cfg.OnError = config.ErrorPolicy(opts.onError)
	}
	if f.Changed("duplicate-folders") {
		cfg.DuplicateFolders = config.DuplicatePolicy(opts.duplicates)
	}
	if opts.dryRun {
		cfg.DryRun = true
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
