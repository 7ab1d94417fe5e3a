package tabular

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return path
}

func TestReadCSVSkipsHeaderAndBlankRows(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "groups.csv", "id,label,instance\nI0001,vol 1,MW100\n,,\nI0002,\"vol, 2\",MW100\n")

	table, err := ReadFile(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if table.Name != "groups" {
		t.Errorf("Expected table name groups, got %s", table.Name)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(table.Rows))
	}
	if table.Rows[1].Line != 3 {
		t.Errorf("Expected second data row on line 3, got %d", table.Rows[1].Line)
	}

	groups := ImageGroups(table)
	if groups[1].Label != "vol, 2" || groups[1].InstanceID != "MW100" {
		t.Errorf("Unexpected group row %+v", groups[1])
	}
	if groups[0].IntroPages != "" {
		t.Errorf("Expected missing trailing cell to read as empty, got %q", groups[0].IntroPages)
	}
}

func TestReadTSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "images.tsv", "file\tgroup\tsource\nI00010001.jpg\tI0001\tW100/1.tif\n")

	table, err := ReadFile(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	images := Images(table)
	if len(images) != 1 || images[0].GroupID != "I0001" || images[0].SourcePath != "W100/1.tif" {
		t.Errorf("Unexpected images %+v", images)
	}
}

func TestReadFileStructuralErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := ReadFile(filepath.Join(dir, "missing.csv")); !errors.Is(err, ErrStructural) {
		t.Errorf("Expected structural error for missing file, got %v", err)
	}
	path := writeFile(t, dir, "works.xlsx", "")
	if _, err := ReadFile(path); !errors.Is(err, ErrStructural) {
		t.Errorf("Expected structural error for unsupported format, got %v", err)
	}
}

func TestInstanceTitlesSplitOnLines(t *testing.T) {
	table := &Table{Rows: []Row{{Line: 1, Cells: []string{
		"MW1", "", "WA1", "", "", "PR1", "dharmapada\r\nThe Dhammapada@en\n\n",
	}}}}

	instances := Instances(table)
	if len(instances[0].Titles) != 2 {
		t.Fatalf("Expected 2 titles, got %v", instances[0].Titles)
	}
	if instances[0].Titles[1] != "The Dhammapada@en" {
		t.Errorf("Unexpected second title %q", instances[0].Titles[1])
	}
	if instances[0].Collection != "PR1" || instances[0].VersionOf != "WA1" {
		t.Errorf("Unexpected instance %+v", instances[0])
	}
}

type parquetGroup struct {
	AID    string `parquet:"a_id"`
	BLabel string `parquet:"b_label"`
	CInst  string `parquet:"c_instance"`
	DIntro int32  `parquet:"d_intro"`
}

func TestReadParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.parquet")
	rows := []parquetGroup{
		{AID: "I0001", BLabel: "first", CInst: "MW100", DIntro: 2},
		{AID: "I0002", BLabel: "second", CInst: "MW100"},
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		t.Fatalf("Failed to write parquet file: %v", err)
	}

	table, err := ReadFile(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	groups := ImageGroups(table)
	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(groups))
	}
	if groups[0].ID != "I0001" || groups[0].InstanceID != "MW100" || groups[0].IntroPages != "2" {
		t.Errorf("Unexpected first group %+v", groups[0])
	}
	if groups[1].Line != 2 {
		t.Errorf("Expected line 2, got %d", groups[1].Line)
	}
}
