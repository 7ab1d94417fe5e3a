// Package sources copies the folders of original scans of each work into
// the sources/ directory of the storage tree.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/zeebo/blake3"

	"github.com/buda-base/gnd-pilot/internal/ids"
	"github.com/buda-base/gnd-pilot/internal/report"
)

// Stats counts what a copy did
type Stats struct {
	Works     int
	Copied    int
	Unchanged int
	Removed   int
}

// Copier mirrors {ImagesDir}/{folder} to Works/{bucket}/{work}/sources/{folder}
type Copier struct {
	ImagesDir string
	OutputDir string
	DryRun    bool
	Issues    *report.Collector
}

// Copy mirrors the folder of every work in folders. Files whose digest
// already matches are left untouched and destination files absent from the
// source are removed, so a second run over the same input changes nothing.
func (c *Copier) Copy(ctx context.Context, folders map[string]string) (Stats, error) {
	works := make([]string, 0, len(folders))
	for w := range folders {
		works = append(works, w)
	}
	sort.Strings(works)

	var stats Stats
	for _, w := range works {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		folder := folders[w]
		if err := ids.ValidateLocalPath(folder); err != nil {
			c.Issues.Add(report.Issue{
				Kind:    report.KindDerivation,
				Source:  "instances",
				ID:      w,
				Code:    "unsafepath",
				Message: fmt.Sprintf("source folder of %s not copied: %v", w, err),
			})
			continue
		}
		src := filepath.Join(c.ImagesDir, filepath.FromSlash(folder))
		st, err := os.Stat(src)
		if err != nil || !st.IsDir() {
			c.Issues.Add(report.Issue{
				Kind:    report.KindReferential,
				Source:  "instances",
				ID:      w,
				Code:    "missingfolder",
				Message: fmt.Sprintf("source folder %q of %s does not exist", folder, w),
			})
			continue
		}

		dst := filepath.Join(c.OutputDir, filepath.FromSlash(ids.SourcesDir(w)), filepath.FromSlash(folder))
		if err := c.mirror(ctx, src, dst, &stats); err != nil {
			return stats, fmt.Errorf("failed to copy sources of %s: %w", w, err)
		}
		stats.Works++
		slog.Debug("Copied sources", "work", w, "folder", folder, "dst", dst)
	}

	slog.Info("Copied source folders", "works", stats.Works, "copied", stats.Copied, "unchanged", stats.Unchanged, "removed", stats.Removed, "dry_run", c.DryRun)
	return stats, nil
}

func (c *Copier) mirror(ctx context.Context, src, dst string, stats *Stats) error {
	wanted := make(map[string]bool)

	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		wanted[target] = true

		if d.IsDir() {
			if c.DryRun {
				return nil
			}
			return os.MkdirAll(target, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}

		same, err := sameContent(p, target)
		if err != nil {
			return err
		}
		if same {
			stats.Unchanged++
			return nil
		}
		stats.Copied++
		if c.DryRun {
			return nil
		}
		return copyFile(p, target)
	})
	if err != nil {
		return err
	}

	return c.prune(dst, wanted, stats)
}

// prune removes destination entries that are no longer in the source
func (c *Copier) prune(dst string, wanted map[string]bool, stats *Stats) error {
	var stale []string
	err := filepath.WalkDir(dst, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !wanted[p] {
			stale = append(stale, p)
			if d.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, p := range stale {
		stats.Removed++
		if c.DryRun {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("failed to remove stale %s: %w", p, err)
		}
	}
	return nil
}

func sameContent(a, b string) (bool, error) {
	sa, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	sb, err := os.Stat(b)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if sa.Size() != sb.Size() || sb.IsDir() {
		return false, nil
	}

	da, err := Digest(a)
	if err != nil {
		return false, err
	}
	db, err := Digest(b)
	if err != nil {
		return false, err
	}
	return da == db, nil
}

// Digest returns the BLAKE3 digest of a file
func Digest(path string) ([32]byte, error) {
	var sum [32]byte
	f, err := os.Open(path)
	if err != nil {
		return sum, err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return sum, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
