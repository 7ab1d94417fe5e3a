package tabular

import "strings"

// WorkRow is a row of the works table
type WorkRow struct {
	Line       int
	ID         string
	ExternalID string
	Title      string
	URL        string
}

// InstanceRow is a row of the instances (physical items) table
type InstanceRow struct {
	Line         int
	ID           string
	VersionOf    string
	PartOf       string
	PartType     string
	Collection   string
	Titles       []string
	Description  string
	Script       string
	Material     string
	Binding      string
	URL          string
	SourceFolder string
	Date         string
	StartPage    string
	EndPage      string
}

// ImageGroupRow is a row of the image groups (volumes) table
type ImageGroupRow struct {
	Line       int
	ID         string
	Label      string
	InstanceID string
	IntroPages string
}

// ImageRow is a row of the images table
type ImageRow struct {
	Line        int
	Filename    string
	GroupID     string
	SourcePath  string
	StdFilename string
}

// CollectionRow is a row of the collections table
type CollectionRow struct {
	Line        int
	ID          string
	URL         string
	Label       string
	Description string
	Parent      string
}

// EditionRow is a row of the optional digital editions table
type EditionRow struct {
	Line       int
	ID         string
	InstanceID string
	URL        string
	Label      string
}

// Works maps table rows to works
func Works(t *Table) []WorkRow {
	out := make([]WorkRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, WorkRow{
			Line:       r.Line,
			ID:         r.Cell(0),
			ExternalID: r.Cell(1),
			Title:      r.Cell(2),
			URL:        r.Cell(7),
		})
	}
	return out
}

// Instances maps table rows to instances
func Instances(t *Table) []InstanceRow {
	out := make([]InstanceRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, InstanceRow{
			Line:         r.Line,
			ID:           r.Cell(0),
			VersionOf:    r.Cell(2),
			PartOf:       r.Cell(3),
			PartType:     r.Cell(4),
			Collection:   r.Cell(5),
			Titles:       splitLines(r.RawCell(6)),
			Description:  r.Cell(7),
			Script:       r.Cell(8),
			Material:     r.Cell(9),
			Binding:      r.Cell(10),
			URL:          r.Cell(11),
			SourceFolder: r.Cell(15),
			Date:         r.Cell(16),
			StartPage:    r.Cell(17),
			EndPage:      r.Cell(18),
		})
	}
	return out
}

// ImageGroups maps table rows to image groups
func ImageGroups(t *Table) []ImageGroupRow {
	out := make([]ImageGroupRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, ImageGroupRow{
			Line:       r.Line,
			ID:         r.Cell(0),
			Label:      r.Cell(1),
			InstanceID: r.Cell(2),
			IntroPages: r.Cell(3),
		})
	}
	return out
}

// Images maps table rows to images
func Images(t *Table) []ImageRow {
	out := make([]ImageRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, ImageRow{
			Line:        r.Line,
			Filename:    r.Cell(0),
			GroupID:     r.Cell(1),
			SourcePath:  r.Cell(2),
			StdFilename: r.Cell(3),
		})
	}
	return out
}

// Collections maps table rows to collections
func Collections(t *Table) []CollectionRow {
	out := make([]CollectionRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, CollectionRow{
			Line:        r.Line,
			ID:          r.Cell(0),
			URL:         r.Cell(1),
			Label:       r.Cell(2),
			Description: r.Cell(3),
			Parent:      r.Cell(4),
		})
	}
	return out
}

// Editions maps table rows to digital editions
func Editions(t *Table) []EditionRow {
	out := make([]EditionRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, EditionRow{
			Line:       r.Line,
			ID:         r.Cell(0),
			InstanceID: r.Cell(1),
			URL:        r.Cell(2),
			Label:      r.Cell(3),
		})
	}
	return out
}

// splitLines splits a multi-line cell into its non-empty trimmed lines
func splitLines(cell string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(cell, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
