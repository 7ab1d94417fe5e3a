package images

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/buda-base/gnd-pilot/internal/config"
	"github.com/buda-base/gnd-pilot/internal/ids"
	"github.com/buda-base/gnd-pilot/internal/report"
	"github.com/buda-base/gnd-pilot/internal/volumes"
)

// Engine stores the page images of aggregated volumes and writes their
// manifests
type Engine struct {
	ImagesDir string // root the image source paths are relative to
	OutputDir string // root of the Works/ tree
	Codec     Codec
	Policy    config.FormatPolicy
	Workers   int
	DryRun    bool // compute manifests without writing anything
	Issues    *report.Collector
}

// Manifest is the processed listing of one volume
type Manifest struct {
	WorkID  string
	GroupID string
	Dir     string // slash-separated, relative to the output root
	Entries []Entry
}

// Result summarizes a Process call
type Result struct {
	Manifests []Manifest // works in first-seen order, volumes in sequence
	Images    int
	Skipped   int
}

// NewEngine creates an engine from the run configuration
func NewEngine(cfg config.Config, issues *report.Collector) *Engine {
	return &Engine{
		ImagesDir: cfg.ImagesDir,
		OutputDir: cfg.OutputDir,
		Codec:     CommandCodec{OptimizeCmd: cfg.OptimizeCmd, ConvertCmd: cfg.ConvertCmd},
		Policy:    cfg.Formats,
		Workers:   cfg.Workers,
		DryRun:    cfg.DryRun,
		Issues:    issues,
	}
}

// Process stores every image of c and writes one dimensions manifest per
// volume and one volume list per work. Volumes are processed concurrently;
// each result is stored at the position of its volume so the output does
// not depend on scheduling. Format and codec problems are reported and
// never abort the run; only cancellation and write failures do.
func (e *Engine) Process(ctx context.Context, c *volumes.Catalog) (*Result, error) {
	var groups []*volumes.Group
	for _, w := range c.Works {
		groups = append(groups, w.Volumes...)
	}

	manifests := make([]Manifest, len(groups))
	skipped := make([]int, len(groups))

	workers := e.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, group := range groups {
		g.Go(func() error {
			m, n, err := e.processGroup(gctx, group)
			if err != nil {
				return err
			}
			manifests[i] = m
			skipped[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Manifests: manifests}
	for i, m := range manifests {
		res.Images += len(m.Entries)
		res.Skipped += skipped[i]
	}

	if !e.DryRun {
		for _, w := range c.Works {
			if err := e.writeVolumeList(w); err != nil {
				return nil, err
			}
		}
	}

	slog.Info("Processed images", "volumes", len(manifests), "images", res.Images, "skipped", res.Skipped, "dry_run", e.DryRun)
	return res, nil
}

func (e *Engine) processGroup(ctx context.Context, g *volumes.Group) (Manifest, int, error) {
	rel := ids.ImageGroupDir(g.WorkID, g.ID)
	m := Manifest{WorkID: g.WorkID, GroupID: g.ID, Dir: rel, Entries: make([]Entry, 0, len(g.Images))}
	dir := filepath.Join(e.OutputDir, filepath.FromSlash(rel))

	if !e.DryRun {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return m, 0, fmt.Errorf("failed to create volume directory %s: %w", rel, err)
		}
	}

	skipped := 0
	for _, img := range g.Images {
		if err := ctx.Err(); err != nil {
			return m, skipped, err
		}

		if err := checkPaths(img); err != nil {
			e.Issues.Add(report.Issue{
				Kind:    report.KindDerivation,
				Source:  g.ID,
				ID:      img.Filename,
				Code:    "unsafepath",
				Message: err.Error(),
			})
			skipped++
			continue
		}

		src := filepath.Join(e.ImagesDir, filepath.FromSlash(img.SourcePath))
		info, err := Inspect(src)
		if err != nil {
			e.Issues.Add(report.Issue{
				Kind:    report.KindCodec,
				Source:  g.ID,
				ID:      img.Filename,
				Code:    codeFor(err),
				Message: fmt.Sprintf("cannot read source image %s: %v", img.SourcePath, err),
			})
			skipped++
			continue
		}

		if !e.DryRun {
			if err := e.store(ctx, src, filepath.Join(dir, img.Filename)); err != nil {
				if ctx.Err() != nil {
					return m, skipped, ctx.Err()
				}
				e.Issues.Add(report.Issue{
					Kind:    report.KindCodec,
					Source:  g.ID,
					ID:      img.Filename,
					Code:    "codecfailed",
					Message: err.Error(),
				})
			}
		}

		entry := NewEntry(img.Filename, img.SourcePath, info, e.Policy)
		e.reportFormat(g.ID, img, info, entry.Errors)
		m.Entries = append(m.Entries, entry)
	}

	if !e.DryRun {
		if err := WriteGzipJSON(filepath.Join(dir, ManifestName), m.Entries); err != nil {
			return m, skipped, err
		}
	}
	slog.Debug("Processed volume", "work", g.WorkID, "group", g.ID, "images", len(m.Entries), "dir", rel)
	return m, skipped, nil
}

// checkPaths rejects image cells that would read or write outside the
// images root or the volume directory
func checkPaths(img volumes.ImageRef) error {
	if err := ids.ValidateLocalPath(img.SourcePath); err != nil {
		return fmt.Errorf("source of %s: %w", img.Filename, err)
	}
	if err := ids.ValidateLocalPath(img.Filename); err != nil || path.Base(img.Filename) != img.Filename {
		return fmt.Errorf("%w: image filename %q is not a plain file name", ids.ErrDerivation, img.Filename)
	}
	return nil
}

// store writes the JPEG of src to dst: JPEG sources are optimized, anything
// else is converted
func (e *Engine) store(ctx context.Context, src, dst string) error {
	if isJPEGName(src, e.Policy) {
		return e.Codec.Optimize(ctx, src, dst)
	}
	return e.Codec.Convert(ctx, src, dst)
}

func (e *Engine) reportFormat(groupID string, img volumes.ImageRef, info Info, codes []string) {
	for _, code := range codes {
		var msg string
		switch code {
		case CodeTooLarge:
			msg = fmt.Sprintf("%s is %s, above the %s limit", img.SourcePath, humanize.Bytes(uint64(info.Size)), humanize.Bytes(uint64(e.Policy.MaxBytes)))
		case CodeTIFFNotGroup4:
			msg = fmt.Sprintf("%s uses %s compression instead of %s", img.SourcePath, info.Compression, e.Policy.TIFFCompression)
		case CodeNonBinaryTIFF:
			msg = fmt.Sprintf("%s is not bilevel (mode %s)", img.SourcePath, info.Mode)
		case CodeExtMismatch:
			msg = fmt.Sprintf("%s has an extension that does not match its %s content", img.SourcePath, info.Format)
		default:
			msg = fmt.Sprintf("%s is neither TIFF nor JPEG", img.SourcePath)
		}
		e.Issues.Add(report.Issue{
			Kind:    report.KindFormat,
			Source:  groupID,
			ID:      img.Filename,
			Code:    code,
			Message: msg,
		})
	}
}

func (e *Engine) writeVolumeList(w *volumes.Work) error {
	list := make([]VolumeEntry, 0, len(w.Volumes))
	for _, g := range w.Volumes {
		v := VolumeEntry{
			ID:     g.ID,
			Folder: path.Base(ids.ImageGroupDir(w.ID, g.ID)),
			Images: make([]VolumeImage, 0, len(g.Images)),
		}
		for _, img := range g.Images {
			v.Images = append(v.Images, VolumeImage{Filename: img.Filename, Source: img.SourcePath})
		}
		list = append(list, v)
	}
	return WriteGzipJSON(filepath.Join(e.OutputDir, filepath.FromSlash(ids.VolumeListPath(w.ID))), list)
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "missingsource"
	case errors.Is(err, ErrCorrupt):
		return "corrupt"
	default:
		return "unreadable"
	}
}

