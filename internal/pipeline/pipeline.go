// Package pipeline runs the catalog and image stages over one input
// directory and writes their outputs under one output root.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/buda-base/gnd-pilot/internal/catalog"
	"github.com/buda-base/gnd-pilot/internal/config"
	"github.com/buda-base/gnd-pilot/internal/ids"
	"github.com/buda-base/gnd-pilot/internal/images"
	"github.com/buda-base/gnd-pilot/internal/report"
	"github.com/buda-base/gnd-pilot/internal/sources"
	"github.com/buda-base/gnd-pilot/internal/tabular"
	"github.com/buda-base/gnd-pilot/internal/volumes"
)

const (
	// LockName is the lock file created in the output root during a run
	LockName = ".gnd-pilot.lock"
	// ReportName is the report file written in the output root
	ReportName = "report.yaml"
)

var (
	// ErrLocked is returned when another run holds the output root
	ErrLocked = errors.New("output directory is locked by another run")
	// ErrAborted is returned when a derivation error stops the run under the abort policy
	ErrAborted = errors.New("run aborted")
)

// Stage selects the outputs of a run
type Stage int

const (
	StageGraph Stage = 1 << iota
	StageImages

	StageAll = StageGraph | StageImages
)

// Inputs holds the parsed source tables
type Inputs struct {
	Works       []tabular.WorkRow
	Instances   []tabular.InstanceRow
	ImageGroups []tabular.ImageGroupRow
	Images      []tabular.ImageRow
	Collections []tabular.CollectionRow
	Editions    []tabular.EditionRow
}

// Pipeline runs the stages of one configuration
type Pipeline struct {
	Config config.Config
	Codec  images.Codec // defaults to the configured external commands
	Issues *report.Collector
}

// New creates a pipeline for a validated configuration
func New(cfg config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &Pipeline{Config: cfg, Issues: report.NewCollector()}, nil
}

// Load reads every table. Any missing or unreadable required table fails
// the whole load with tabular.ErrStructural; the editions table is optional.
func (p *Pipeline) Load() (*Inputs, error) {
	t := p.Config.Tables
	read := func(name string, optional bool) (*tabular.Table, error) {
		path := filepath.Join(p.Config.InputDir, name)
		table, err := tabular.ReadFile(path)
		if err == nil {
			return table, nil
		}
		if optional && errors.Is(err, os.ErrNotExist) {
			slog.Debug("Optional table not found", "path", path)
			return &tabular.Table{}, nil
		}
		if errors.Is(err, tabular.ErrStructural) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", tabular.ErrStructural, err)
	}

	var errs []error
	load := func(name string, optional bool) *tabular.Table {
		table, err := read(name, optional)
		if err != nil {
			errs = append(errs, err)
			return &tabular.Table{}
		}
		return table
	}

	works := load(t.Works, false)
	instances := load(t.Instances, false)
	groups := load(t.ImageGroups, false)
	imgs := load(t.Images, false)
	collections := load(t.Collections, false)
	var editions *tabular.Table
	if t.Editions != "" {
		editions = load(t.Editions, true)
	} else {
		editions = &tabular.Table{}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	in := &Inputs{
		Works:       tabular.Works(works),
		Instances:   tabular.Instances(instances),
		ImageGroups: tabular.ImageGroups(groups),
		Images:      tabular.Images(imgs),
		Collections: tabular.Collections(collections),
		Editions:    tabular.Editions(editions),
	}
	slog.Info("Loaded tables",
		"works", len(in.Works),
		"instances", len(in.Instances),
		"imagegroups", len(in.ImageGroups),
		"images", len(in.Images),
		"collections", len(in.Collections),
		"editions", len(in.Editions))
	return in, nil
}

// Run executes the selected stages and writes the report. The report is
// returned even when the run is aborted.
func (p *Pipeline) Run(ctx context.Context, stages Stage) (*report.Report, error) {
	started := time.Now().UTC()
	cfg := p.Config

	in, err := p.Load()
	if err != nil {
		return nil, err
	}

	if !cfg.DryRun {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		lock := flock.New(filepath.Join(cfg.OutputDir, LockName))
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to lock output directory: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("%w: %s", ErrLocked, cfg.OutputDir)
		}
		defer lock.Unlock()
	}

	stats := make(map[string]int)
	cat := volumes.Aggregate(in.ImageGroups, in.Images, p.Issues)
	stats["works"] = len(cat.Works)
	stats["volumes"] = len(cat.Groups)

	var runErr error
	if n := p.Issues.Count(report.KindDerivation); n > 0 && cfg.OnError == config.OnErrorAbort {
		runErr = fmt.Errorf("%w: %d image group rows failed derivation", ErrAborted, n)
	} else {
		runErr = p.runStages(ctx, stages, in, cat, stats)
	}

	rep := p.Issues.Build(started, time.Now().UTC(), stats)
	if runErr != nil {
		rep.Aborted = runErr.Error()
	}
	if !cfg.DryRun {
		if err := rep.SaveYAML(filepath.Join(cfg.OutputDir, ReportName)); err != nil {
			return rep, errors.Join(runErr, err)
		}
	}

	slog.Info("Run finished", "run_id", rep.RunID, "issues", len(rep.Issues), "duration", rep.FinishedAt.Sub(rep.StartedAt).String())
	return rep, runErr
}

func (p *Pipeline) runStages(ctx context.Context, stages Stage, in *Inputs, cat *volumes.Catalog, stats map[string]int) error {
	if stages&StageGraph != 0 {
		g, err := p.Assemble(in, cat)
		if err != nil {
			return err
		}
		stats["statements"] = g.Len()
		if err := p.writeGraph(g); err != nil {
			return err
		}
	}

	if stages&StageImages != 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.processImages(ctx, in, cat, stats); err != nil {
			return err
		}
	}
	return nil
}

// Assemble builds the graph of all records. Rows failing derivation are
// reported; under the abort policy the first one stops assembly.
func (p *Pipeline) Assemble(in *Inputs, cat *volumes.Catalog) (*catalog.Graph, error) {
	cfg := p.Config
	a := catalog.NewAssembler(cfg.Vocabulary, catalog.Mode{InferReverse: cfg.InferReverse})

	record := func(source string, row int, id string, err error) error {
		if err == nil {
			return nil
		}
		if !errors.Is(err, ids.ErrDerivation) {
			return err
		}
		p.Issues.Addf(report.KindDerivation, source, row, id, "%v", err)
		if cfg.OnError == config.OnErrorAbort {
			return fmt.Errorf("%w: %w", ErrAborted, err)
		}
		return nil
	}

	for _, row := range in.Works {
		if err := record("works", row.Line, row.ID, a.AddWork(row)); err != nil {
			return nil, err
		}
	}
	for _, row := range in.Instances {
		if err := record("instances", row.Line, row.ID, a.AddInstance(row)); err != nil {
			return nil, err
		}
	}
	for _, row := range in.Collections {
		if err := record("collections", row.Line, row.ID, a.AddCollection(row)); err != nil {
			return nil, err
		}
	}
	for _, w := range cat.Works {
		if err := record("imagegroups", 0, w.ID, a.AddImageInstance(w)); err != nil {
			return nil, err
		}
	}
	for _, row := range in.Editions {
		if err := record("editions", row.Line, row.ID, a.AddDigitalEdition(row)); err != nil {
			return nil, err
		}
	}

	if cfg.CheckReferences {
		catalog.CheckReferences(catalog.Tables{
			Works:       in.Works,
			Instances:   in.Instances,
			Collections: in.Collections,
			Editions:    in.Editions,
		}, p.Issues)
	}

	slog.Info("Assembled graph", "statements", a.Graph().Len(), "infer_reverse", cfg.InferReverse)
	return a.Graph(), nil
}

// writeGraph writes the Turtle file through a temporary file so a failed
// run never leaves a truncated graph
func (p *Pipeline) writeGraph(g *catalog.Graph) error {
	cfg := p.Config
	if cfg.DryRun {
		slog.Info("Dry run, graph not written", "statements", g.Len())
		return nil
	}

	path := filepath.Join(cfg.OutputDir, cfg.GraphFile)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".graph-*.ttl")
	if err != nil {
		return fmt.Errorf("failed to create graph file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := catalog.WriteTurtle(tmp, g, cfg.Vocabulary); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write graph: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write graph: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move graph into place: %w", err)
	}
	slog.Info("Wrote graph", "path", path, "statements", g.Len())
	return nil
}

func (p *Pipeline) processImages(ctx context.Context, in *Inputs, cat *volumes.Catalog, stats map[string]int) error {
	cfg := p.Config

	folders, err := volumes.SourceFolders(in.Instances, cfg.DuplicateFolders, p.Issues)
	if err != nil {
		return err
	}
	copier := &sources.Copier{ImagesDir: cfg.ImagesDir, OutputDir: cfg.OutputDir, DryRun: cfg.DryRun, Issues: p.Issues}
	copied, err := copier.Copy(ctx, folders)
	if err != nil {
		return err
	}
	stats["sources_copied"] = copied.Copied
	stats["sources_unchanged"] = copied.Unchanged

	engine := images.NewEngine(cfg, p.Issues)
	if p.Codec != nil {
		engine.Codec = p.Codec
	}
	res, err := engine.Process(ctx, cat)
	if err != nil {
		return err
	}
	stats["manifests"] = len(res.Manifests)
	stats["images"] = res.Images
	stats["images_skipped"] = res.Skipped
	return nil
}
