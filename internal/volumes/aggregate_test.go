package volumes

import (
	"errors"
	"testing"

	"github.com/buda-base/gnd-pilot/internal/config"
	"github.com/buda-base/gnd-pilot/internal/report"
	"github.com/buda-base/gnd-pilot/internal/tabular"
)

func images(group string, n int, start int) []tabular.ImageRow {
	out := make([]tabular.ImageRow, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, tabular.ImageRow{
			Line:     start + i,
			Filename: group + "-" + string(rune('a'+i)) + ".jpg",
			GroupID:  group,
		})
	}
	return out
}

func TestAggregateTwoVolumes(t *testing.T) {
	groups := []tabular.ImageGroupRow{
		{Line: 1, ID: "I0001", InstanceID: "MW100"},
		{Line: 2, ID: "I0002", InstanceID: "MW100", Label: "second", IntroPages: "3"},
	}
	rows := append(images("I0001", 2, 1), images("I0002", 3, 3)...)

	issues := report.NewCollector()
	c := Aggregate(groups, rows, issues)

	if issues.Len() != 0 {
		t.Fatalf("Expected no issues, got %+v", issues.Issues())
	}
	w, ok := c.Work("W100")
	if !ok {
		t.Fatal("Expected work W100")
	}
	if len(w.Volumes) != 2 {
		t.Fatalf("Expected 2 volumes, got %d", len(w.Volumes))
	}
	if w.Volumes[0].ID != "I0001" || w.Volumes[0].Sequence != 1 || w.Volumes[0].Total() != 2 {
		t.Errorf("Unexpected first volume %+v", w.Volumes[0])
	}
	if w.Volumes[1].ID != "I0002" || w.Volumes[1].Sequence != 2 || w.Volumes[1].Total() != 3 {
		t.Errorf("Unexpected second volume %+v", w.Volumes[1])
	}
	if w.Volumes[1].IntroPages != 3 || w.Volumes[0].IntroPages != 0 {
		t.Errorf("Unexpected intro pages %d/%d", w.Volumes[0].IntroPages, w.Volumes[1].IntroPages)
	}
	if w.Pages() != 5 {
		t.Errorf("Expected 5 pages, got %d", w.Pages())
	}
	if w.Thumbnail == nil || w.Thumbnail.GroupID != "I0001" || w.Thumbnail.Filename != "I0001-a.jpg" {
		t.Errorf("Unexpected thumbnail %+v", w.Thumbnail)
	}
}

func TestAggregateDanglingImage(t *testing.T) {
	groups := []tabular.ImageGroupRow{{Line: 1, ID: "I0001", InstanceID: "MW100"}}
	rows := append(images("I0001", 2, 1), tabular.ImageRow{Line: 3, Filename: "x.jpg", GroupID: "I9999"})

	issues := report.NewCollector()
	c := Aggregate(groups, rows, issues)

	if issues.Count(report.KindReferential) != 1 {
		t.Fatalf("Expected one referential error, got %+v", issues.Issues())
	}
	got := issues.Issues()[0]
	if got.ID != "I9999" || got.Row != 3 {
		t.Errorf("Unexpected issue %+v", got)
	}
	if c.Images() != 2 {
		t.Errorf("Expected dangling image excluded from page counts, got %d", c.Images())
	}
}

func TestAggregateSequencesPerWork(t *testing.T) {
	groups := []tabular.ImageGroupRow{
		{Line: 1, ID: "I0003", InstanceID: "MW200"},
		{Line: 2, ID: "I0001", InstanceID: "MW100"},
		{Line: 3, ID: "I0004", InstanceID: "MW200"},
		{Line: 4, ID: "I0001", InstanceID: "MW300"},
		{Line: 5, ID: "I0005", InstanceID: "MW200", IntroPages: "x"},
	}

	issues := report.NewCollector()
	c := Aggregate(groups, images("I0004", 1, 1), issues)

	if len(c.Works) != 2 || c.Works[0].ID != "W200" || c.Works[1].ID != "W100" {
		t.Fatalf("Expected works in first-seen order, got %v", c.Works)
	}
	for i, g := range c.Works[0].Volumes {
		if g.Sequence != i+1 {
			t.Errorf("Expected contiguous sequence %d, got %d", i+1, g.Sequence)
		}
	}
	if c.Works[0].Thumbnail == nil || c.Works[0].Thumbnail.GroupID != "I0004" {
		t.Errorf("Expected thumbnail from the first image seen, got %+v", c.Works[0].Thumbnail)
	}
	if c.Works[1].Thumbnail != nil {
		t.Errorf("Expected no thumbnail for a work without images, got %+v", c.Works[1].Thumbnail)
	}
	if issues.Count(report.KindReferential) != 1 || issues.Count(report.KindDerivation) != 1 {
		t.Errorf("Expected one duplicate group and one bad intro count, got %+v", issues.Issues())
	}
}

func TestAggregateIsDeterministic(t *testing.T) {
	groups := []tabular.ImageGroupRow{
		{Line: 1, ID: "I0001", InstanceID: "MW100"},
		{Line: 2, ID: "I0002", InstanceID: "MW100"},
	}
	rows := append(images("I0002", 2, 1), images("I0001", 1, 3)...)

	a := Aggregate(groups, rows, report.NewCollector())
	b := Aggregate(groups, rows, report.NewCollector())
	for i := range a.Works[0].Volumes {
		va, vb := a.Works[0].Volumes[i], b.Works[0].Volumes[i]
		if va.ID != vb.ID || va.Sequence != vb.Sequence || va.Total() != vb.Total() {
			t.Errorf("Expected identical volumes, got %+v and %+v", va, vb)
		}
	}
	if a.Works[0].Thumbnail.GroupID != "I0002" {
		t.Errorf("Expected thumbnail from the first listed image, got %+v", a.Works[0].Thumbnail)
	}
}

func TestSourceFolders(t *testing.T) {
	instances := []tabular.InstanceRow{
		{Line: 1, ID: "MW100", SourceFolder: "scroll1"},
		{Line: 2, ID: "MW200"},
		{Line: 3, ID: "MW100", SourceFolder: "scroll1b"},
	}

	issues := report.NewCollector()
	folders, err := SourceFolders(instances, config.DuplicateFirstWins, issues)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if folders["W100"] != "scroll1" || len(folders) != 1 {
		t.Errorf("Expected first folder to win, got %v", folders)
	}
	if issues.Count(report.KindReferential) != 1 {
		t.Errorf("Expected the duplicate to be reported, got %+v", issues.Issues())
	}

	_, err = SourceFolders(instances, config.DuplicateError, report.NewCollector())
	if !errors.Is(err, ErrDuplicateFolder) {
		t.Errorf("Expected ErrDuplicateFolder, got %v", err)
	}
}
