// Package report aggregates the non-fatal problems found during a run so
// they can be reviewed after the batch completes.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Kind classifies an issue
type Kind string

const (
	// KindReferential is a record pointing at an id absent from its defining table
	KindReferential Kind = "referential"
	// KindFormat is an image violating the admissible format policy
	KindFormat Kind = "format"
	// KindStructural is a missing or unreadable source table
	KindStructural Kind = "structural"
	// KindDerivation is a malformed value such as a bad date or page number
	KindDerivation Kind = "derivation"
	// KindCodec is a failed copy or conversion of an image file
	KindCodec Kind = "codec"
)

var kinds = []Kind{KindStructural, KindReferential, KindDerivation, KindFormat, KindCodec}

// Issue is a single problem found in the input
type Issue struct {
	Kind    Kind   `yaml:"kind"`
	Source  string `yaml:"source,omitempty"` // table or group the issue was found in
	Row     int    `yaml:"row,omitempty"`    // 1-based data row, header excluded
	ID      string `yaml:"id,omitempty"`
	Code    string `yaml:"code,omitempty"`
	Message string `yaml:"message"`
}

// Collector accumulates issues. It is safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	issues []Issue
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// Add records an issue and logs it
func (c *Collector) Add(issue Issue) {
	slog.Warn(issue.Message, "kind", issue.Kind, "source", issue.Source, "row", issue.Row, "id", issue.ID, "code", issue.Code)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.issues = append(c.issues, issue)
}

// Addf records an issue with a formatted message
func (c *Collector) Addf(kind Kind, source string, row int, id, format string, args ...any) {
	c.Add(Issue{Kind: kind, Source: source, Row: row, ID: id, Message: fmt.Sprintf(format, args...)})
}

// Issues returns a copy of the recorded issues in insertion order
func (c *Collector) Issues() []Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Issue, len(c.issues))
	copy(out, c.issues)
	return out
}

// Count returns the number of issues of the given kind
func (c *Collector) Count(kind Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, issue := range c.issues {
		if issue.Kind == kind {
			n++
		}
	}
	return n
}

// Len returns the total number of issues
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.issues)
}

// Report is the end-of-run summary written beside the outputs
type Report struct {
	RunID      string         `yaml:"runid"`
	StartedAt  time.Time      `yaml:"startedat"`
	FinishedAt time.Time      `yaml:"finishedat"`
	Aborted    string         `yaml:"aborted,omitempty"`
	Stats      map[string]int `yaml:"stats,omitempty"`
	Counts     map[Kind]int   `yaml:"counts"`
	Issues     []Issue        `yaml:"issues"`
}

// Build snapshots the collector into a report. Issues are ordered by kind,
// source, row and id so concurrent producers do not change the output.
func (c *Collector) Build(started, finished time.Time, stats map[string]int) *Report {
	issues := c.Issues()
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Kind != b.Kind {
			return kindRank(a.Kind) < kindRank(b.Kind)
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.ID < b.ID
	})

	counts := make(map[Kind]int)
	for _, issue := range issues {
		counts[issue.Kind]++
	}

	return &Report{
		RunID:      uuid.NewString(),
		StartedAt:  started,
		FinishedAt: finished,
		Stats:      stats,
		Counts:     counts,
		Issues:     issues,
	}
}

func kindRank(k Kind) int {
	for i, known := range kinds {
		if k == known {
			return i
		}
	}
	return len(kinds)
}

// SaveYAML writes the report to path, creating parent directories
func (r *Report) SaveYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Table renders the issues as a text table for the terminal
func (r *Report) Table() string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Kind", "Source", "Row", "ID", "Code", "Message"})
	for _, issue := range r.Issues {
		row := ""
		if issue.Row > 0 {
			row = strconv.Itoa(issue.Row)
		}
		tw.AppendRow(table.Row{string(issue.Kind), issue.Source, row, issue.ID, issue.Code, issue.Message})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "Total", len(r.Issues)})
	return tw.Render()
}
