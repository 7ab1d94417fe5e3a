// Package volumes joins image group definitions with image listings into
// per-work volume lists with page counts.
package volumes

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/buda-base/gnd-pilot/internal/config"
	"github.com/buda-base/gnd-pilot/internal/ids"
	"github.com/buda-base/gnd-pilot/internal/report"
	"github.com/buda-base/gnd-pilot/internal/tabular"
)

// ErrDuplicateFolder is returned when a work has two source folders under the error policy
var ErrDuplicateFolder = errors.New("duplicate source folder")

// ImageRef is one page image of a volume
type ImageRef struct {
	Filename    string
	SourcePath  string
	StdFilename string
}

// Group is one volume (image group) of a work
type Group struct {
	ID         string
	WorkID     string
	Label      string
	Sequence   int // 1-based, first-seen order within the work
	IntroPages int
	Images     []ImageRef
}

// Total returns the number of page images of the volume
func (g *Group) Total() int {
	return len(g.Images)
}

// Thumbnail identifies the image used as the preview of a work
type Thumbnail struct {
	GroupID  string
	Filename string
}

// Work is the digitized reproduction of an instance with its volumes
type Work struct {
	ID        string
	Volumes   []*Group
	Thumbnail *Thumbnail
}

// Pages returns the sum of the page counts of all volumes
func (w *Work) Pages() int {
	total := 0
	for _, g := range w.Volumes {
		total += g.Total()
	}
	return total
}

// Catalog is the result of the join
type Catalog struct {
	Works  []*Work // first-seen order
	Groups map[string]*Group

	byWork map[string]*Work
}

// Work returns the work with the given id
func (c *Catalog) Work(id string) (*Work, bool) {
	w, ok := c.byWork[id]
	return w, ok
}

// Images returns the number of images attached to a volume
func (c *Catalog) Images() int {
	total := 0
	for _, w := range c.Works {
		total += w.Pages()
	}
	return total
}

// Aggregate joins groups and images. Volume sequence numbers and page counts
// depend only on the row order of the two tables.
func Aggregate(groups []tabular.ImageGroupRow, images []tabular.ImageRow, issues *report.Collector) *Catalog {
	c := &Catalog{
		Groups: make(map[string]*Group, len(groups)),
		byWork: make(map[string]*Work),
	}

	for _, row := range groups {
		if row.ID == "" || row.InstanceID == "" {
			issues.Addf(report.KindDerivation, "imagegroups", row.Line, row.ID, "image group row is missing its id or owning instance")
			continue
		}
		if _, dup := c.Groups[row.ID]; dup {
			issues.Add(report.Issue{
				Kind:    report.KindReferential,
				Source:  "imagegroups",
				Row:     row.Line,
				ID:      row.ID,
				Code:    "duplicategroup",
				Message: fmt.Sprintf("image group %s is defined twice, keeping the first definition", row.ID),
			})
			continue
		}

		intro, err := ids.ParseCount(row.IntroPages)
		if err != nil {
			issues.Addf(report.KindDerivation, "imagegroups", row.Line, row.ID, "introductory page count defaults to 0: %v", err)
		}

		workID := ids.ReproductionID(row.InstanceID)
		w, ok := c.byWork[workID]
		if !ok {
			w = &Work{ID: workID}
			c.byWork[workID] = w
			c.Works = append(c.Works, w)
		}

		g := &Group{
			ID:         row.ID,
			WorkID:     workID,
			Label:      row.Label,
			Sequence:   len(w.Volumes) + 1,
			IntroPages: intro,
		}
		w.Volumes = append(w.Volumes, g)
		c.Groups[row.ID] = g
	}

	for _, row := range images {
		g, ok := c.Groups[row.GroupID]
		if !ok {
			issues.Add(report.Issue{
				Kind:    report.KindReferential,
				Source:  "images",
				Row:     row.Line,
				ID:      row.GroupID,
				Code:    "unknowngroup",
				Message: fmt.Sprintf("image group %s referenced in images but not in image groups", row.GroupID),
			})
			continue
		}

		g.Images = append(g.Images, ImageRef{
			Filename:    row.Filename,
			SourcePath:  row.SourcePath,
			StdFilename: row.StdFilename,
		})

		w := c.byWork[g.WorkID]
		if w.Thumbnail == nil {
			w.Thumbnail = &Thumbnail{GroupID: g.ID, Filename: row.Filename}
		}
	}

	slog.Info("Aggregated volumes", "works", len(c.Works), "groups", len(c.Groups), "images", c.Images())
	return c
}

// SourceFolders maps work ids to the folder holding their original scans.
// A second folder for the same work is reported and discarded under
// first-wins, or returned as ErrDuplicateFolder under the error policy.
func SourceFolders(instances []tabular.InstanceRow, policy config.DuplicatePolicy, issues *report.Collector) (map[string]string, error) {
	folders := make(map[string]string)
	for _, row := range instances {
		if row.SourceFolder == "" || row.ID == "" {
			continue
		}
		workID := ids.ReproductionID(row.ID)
		if existing, dup := folders[workID]; dup {
			if policy == config.DuplicateError {
				return nil, fmt.Errorf("%w: work %s has folders %q and %q (row %d)", ErrDuplicateFolder, workID, existing, row.SourceFolder, row.Line)
			}
			issues.Add(report.Issue{
				Kind:    report.KindReferential,
				Source:  "instances",
				Row:     row.Line,
				ID:      workID,
				Code:    "duplicatefolder",
				Message: fmt.Sprintf("two folders for %s, keeping %q and discarding %q", workID, existing, row.SourceFolder),
			})
			continue
		}
		folders[workID] = row.SourceFolder
	}
	return folders, nil
}
