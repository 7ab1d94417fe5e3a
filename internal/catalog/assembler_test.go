package catalog

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/buda-base/gnd-pilot/internal/config"
	"github.com/buda-base/gnd-pilot/internal/ids"
	"github.com/buda-base/gnd-pilot/internal/report"
	"github.com/buda-base/gnd-pilot/internal/tabular"
	"github.com/buda-base/gnd-pilot/internal/volumes"
)

func newAssembler(infer bool) (*Assembler, Terms) {
	vocab := config.DefaultVocabulary()
	return NewAssembler(vocab, Mode{InferReverse: infer}), NewTerms(vocab)
}

func TestAddWork(t *testing.T) {
	a, terms := newAssembler(true)
	if err := a.AddWork(tabular.WorkRow{ID: "WA100", Title: "Heart Sutra", URL: "https://example.org/texts/100"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	g := a.Graph()
	work := terms.Resource("WA100")
	if !g.has(work, terms.Type(), terms.Ontology("Work")) {
		t.Error("Expected work type")
	}
	if !g.has(work, terms.PrefLabel(), LangLiteral("Heart Sutra", "en")) {
		t.Error("Expected English label")
	}
	if !g.has(work, terms.SeeAlso(), IRI("https://example.org/texts/100")) {
		t.Error("Expected seeAlso link")
	}
	admin := terms.Admin("WA100")
	if !g.has(admin, terms.AdminProp("adminAbout"), work) {
		t.Error("Expected admin data about the work")
	}
	if g.has(admin, terms.AdminProp("access"), terms.Admin("AccessOpen")) {
		t.Error("Expected no access statement on work admin data")
	}
}

func TestAddWorkRejectsBadRows(t *testing.T) {
	tests := []struct {
		name string
		row  tabular.WorkRow
	}{
		{name: "empty id", row: tabular.WorkRow{Title: "x"}},
		{name: "id with space", row: tabular.WorkRow{ID: "WA 1"}},
		{name: "relative url", row: tabular.WorkRow{ID: "WA1", URL: "example.org/x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newAssembler(true)
			err := a.AddWork(tt.row)
			if !errors.Is(err, ids.ErrDerivation) {
				t.Errorf("Expected derivation error, got %v", err)
			}
			if a.Graph().Len() != 0 {
				t.Errorf("Expected no statements, got %d", a.Graph().Len())
			}
		})
	}
}

func TestPartOfHasPartCardinality(t *testing.T) {
	a, terms := newAssembler(true)
	rows := []tabular.InstanceRow{
		{ID: "MW100"},
		{ID: "MW100_01", PartOf: "MW100", PartType: "PartTypeText", StartPage: "1", EndPage: "12"},
		{ID: "MW100_02", PartOf: "MW100", StartPage: "13"},
	}
	for _, row := range rows {
		if err := a.AddInstance(row); err != nil {
			t.Fatalf("Unexpected error for %s: %v", row.ID, err)
		}
	}

	g := a.Graph()
	parent := terms.Resource("MW100")
	parts := g.objects(parent, terms.Ontology("hasPart"))
	if len(parts) != 2 {
		t.Fatalf("Expected 2 parts, got %d", len(parts))
	}
	for _, part := range parts {
		if !g.has(part, terms.Ontology("partOf"), parent) {
			t.Errorf("Expected %s partOf MW100", part.Value)
		}
	}
	if len(g.subjects(terms.Ontology("partOf"), parent)) != 2 {
		t.Error("Expected partOf and hasPart to have the same cardinality")
	}

	// sub-parts carry no admin data and no reproduction
	if len(g.objects(terms.Admin("MW100_01"), terms.AdminProp("adminAbout"))) != 0 {
		t.Error("Expected no admin data on a sub-part")
	}
	if !g.has(parent, terms.Ontology("instanceHasReproduction"), terms.Resource("W100")) {
		t.Error("Expected root instance to link its reproduction")
	}

	cl := terms.Resource("CLMW100_01")
	if !g.has(cl, terms.Ontology("contentLocationPage"), Integer(1)) ||
		!g.has(cl, terms.Ontology("contentLocationEndPage"), Integer(12)) ||
		!g.has(cl, terms.Ontology("contentLocationVolume"), Integer(1)) ||
		!g.has(cl, terms.Ontology("contentLocationInstance"), terms.Resource("W100")) {
		t.Error("Expected complete content location for MW100_01")
	}
	open := terms.Resource("CLMW100_02")
	if len(g.objects(open, terms.Ontology("contentLocationEndPage"))) != 0 {
		t.Error("Expected no end page when the cell is empty")
	}
}

func TestNoInferenceOmitsReverseEdges(t *testing.T) {
	a, terms := newAssembler(false)
	if err := a.AddInstance(tabular.InstanceRow{ID: "MW100_01", PartOf: "MW100", VersionOf: "WA100", Collection: "PR1"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	g := a.Graph()
	for _, p := range []string{"hasPart", "workHasInstance", "collectionMember"} {
		if len(g.subjects(terms.Ontology(p), terms.Resource("MW100_01"))) != 0 {
			t.Errorf("Expected no %s edge without inference", p)
		}
	}
	if !g.has(terms.Resource("MW100_01"), terms.Ontology("instanceOf"), terms.Resource("WA100")) {
		t.Error("Expected forward instanceOf edge")
	}
}

func TestTitles(t *testing.T) {
	a, terms := newAssembler(true)
	row := tabular.InstanceRow{
		ID:     "MW100",
		Titles: []string{"shes rab snying po", "Heart Sutra @en", "Prajnaparamita Hrdaya@en"},
	}
	if err := a.AddInstance(row); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	g := a.Graph()
	main := terms.Resource("MW100")
	labels := g.objects(main, terms.PrefLabel())
	expected := []Term{
		LangLiteral("Heart Sutra", "en"),
		LangLiteral("shes rab snying po", "sa-x-ewts"),
	}
	if len(labels) != len(expected) {
		t.Fatalf("Expected %d preferred labels, got %+v", len(expected), labels)
	}
	for _, e := range expected {
		if !g.has(main, terms.PrefLabel(), e) {
			t.Errorf("Expected preferred label %+v", e)
		}
	}

	third := terms.Resource("TTMW100_003")
	if !g.has(third, terms.Label(), LangLiteral("Prajnaparamita Hrdaya", "en")) {
		t.Error("Expected third title stripped of its marker")
	}
	if !g.has(third, terms.Type(), terms.Ontology("Title")) {
		t.Error("Expected title type")
	}
	if len(g.objects(main, terms.Ontology("hasTitle"))) != 3 {
		t.Error("Expected three titles")
	}
}

func TestSplitTitle(t *testing.T) {
	a, _ := newAssembler(true)
	tests := []struct {
		in, text, lang string
	}{
		{in: "Heart Sutra@en", text: "Heart Sutra", lang: "en"},
		{in: "Heart Sutra @en", text: "Heart Sutra", lang: "en"},
		{in: "sher phyin", text: "sher phyin", lang: "sa-x-ewts"},
		{in: "@en in the middle", text: "@en in the middle", lang: "sa-x-ewts"},
	}
	for _, tt := range tests {
		text, lang := a.SplitTitle(tt.in)
		if text != tt.text || lang != tt.lang {
			t.Errorf("Expected %q@%s for %q, got %q@%s", tt.text, tt.lang, tt.in, text, lang)
		}
	}
}

func TestInstanceRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		row  tabular.InstanceRow
	}{
		{name: "bad date", row: tabular.InstanceRow{ID: "MW1", Date: "18th century"}},
		{name: "bad start page", row: tabular.InstanceRow{ID: "MW1_01", PartOf: "MW1", StartPage: "ix"}},
		{name: "reversed pages", row: tabular.InstanceRow{ID: "MW1_01", PartOf: "MW1", StartPage: "9", EndPage: "3"}},
		{name: "bad parent id", row: tabular.InstanceRow{ID: "MW1_01", PartOf: "MW 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newAssembler(true)
			if err := a.AddInstance(tt.row); !errors.Is(err, ids.ErrDerivation) {
				t.Errorf("Expected derivation error, got %v", err)
			}
			if a.Graph().Len() != 0 {
				t.Errorf("Expected rejected row to emit nothing, got %d statements", a.Graph().Len())
			}
		})
	}
}

func TestCopyEvent(t *testing.T) {
	a, terms := newAssembler(true)
	if err := a.AddInstance(tabular.InstanceRow{ID: "MW1", Date: "185X"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	event := terms.Resource("EVMW1_CE")
	if !a.Graph().has(event, terms.Ontology("eventWhen"), TypedLiteral("185X", "http://id.loc.gov/datatypes/edtf")) {
		t.Error("Expected EDTF typed event date")
	}
	if !a.Graph().has(event, terms.Type(), terms.Ontology("CopyEvent")) {
		t.Error("Expected copy event type")
	}
}

func TestAddCollection(t *testing.T) {
	a, terms := newAssembler(true)
	if err := a.AddCollection(tabular.CollectionRow{ID: "PR1_A", Label: "Scrolls", Description: "Birchbark", Parent: "PR1"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	g := a.Graph()
	if !g.has(terms.Resource("PR1"), terms.Ontology("hasPart"), terms.Resource("PR1_A")) {
		t.Error("Expected reverse hasPart on parent collection")
	}
	if !g.has(terms.Resource("PR1_A"), terms.Comment(), LangLiteral("Birchbark", "en")) {
		t.Error("Expected description as comment")
	}

	if err := a.AddCollection(tabular.CollectionRow{ID: "PR2", Parent: "PR2"}); !errors.Is(err, ids.ErrDerivation) {
		t.Errorf("Expected derivation error for self parent, got %v", err)
	}
}

func TestImageInstanceTwoVolumes(t *testing.T) {
	groups := []tabular.ImageGroupRow{
		{Line: 1, ID: "I0001", InstanceID: "MW100"},
		{Line: 2, ID: "I0002", InstanceID: "MW100", IntroPages: "2"},
	}
	rows := []tabular.ImageRow{
		{Line: 1, Filename: "I00010001.jpg", GroupID: "I0001"},
		{Line: 2, Filename: "I00020001.jpg", GroupID: "I0002"},
		{Line: 3, Filename: "I00020002.jpg", GroupID: "I0002"},
	}
	c := volumes.Aggregate(groups, rows, report.NewCollector())
	w, _ := c.Work("W100")

	a, terms := newAssembler(true)
	if err := a.AddImageInstance(w); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	g := a.Graph()
	main := terms.Resource("W100")
	if !g.has(main, terms.Tmp("numberOfVolumes"), Integer(2)) {
		t.Error("Expected 2 volumes")
	}
	second := terms.Resource("I0002")
	if !g.has(second, terms.Ontology("volumeNumber"), Integer(2)) ||
		!g.has(second, terms.Ontology("volumePagesTotal"), Integer(2)) ||
		!g.has(second, terms.Ontology("volumePagesTbrcIntro"), Integer(2)) {
		t.Error("Expected sequence and page counts on second volume")
	}
	if !g.has(second, terms.Ontology("volumeOf"), main) {
		t.Error("Expected reverse volumeOf edge")
	}
	if !g.has(main, terms.Ontology("instanceReproductionOf"), terms.Resource("MW100")) {
		t.Error("Expected reproduction link back to the instance")
	}
	if !g.has(main, terms.Tmp("thumbnailIIIFService"), IRI("https://iiif.bdrc.io/bdr:I0001::I00010001.jpg")) {
		t.Error("Expected thumbnail from the first image")
	}
	if !g.has(terms.Admin("I0001"), terms.AdminProp("access"), terms.Admin("AccessOpen")) {
		t.Error("Expected open access on image group admin data")
	}
	if !g.has(terms.Admin("W100"), terms.AdminProp("contentLegal"), terms.Admin("LD_BDRC_PD")) {
		t.Error("Expected content license on image instance admin data")
	}
}

func TestAddDigitalEdition(t *testing.T) {
	a, terms := newAssembler(true)
	if err := a.AddDigitalEdition(tabular.EditionRow{ID: "IE100", InstanceID: "MW100", Label: "etext"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	g := a.Graph()
	if !g.has(terms.Resource("MW100"), terms.Ontology("instanceHasReproduction"), terms.Resource("IE100")) {
		t.Error("Expected reverse reproduction link")
	}
	if !g.has(terms.Resource("IE100"), terms.Type(), terms.Ontology("EtextInstance")) {
		t.Error("Expected etext type")
	}
}

func TestGraphDeduplicates(t *testing.T) {
	a, _ := newAssembler(true)
	row := tabular.WorkRow{ID: "WA1", Title: "x"}
	_ = a.AddWork(row)
	n := a.Graph().Len()
	_ = a.AddWork(row)
	if a.Graph().Len() != n {
		t.Errorf("Expected %d statements after re-adding, got %d", n, a.Graph().Len())
	}
}

func buildSample(t *testing.T) *Graph {
	t.Helper()
	a, _ := newAssembler(true)
	for _, row := range []tabular.InstanceRow{
		{ID: "MW100_02", PartOf: "MW100", StartPage: "5"},
		{ID: "MW100", VersionOf: "WA100", Titles: []string{"Heart Sutra@en"}, Date: "1850"},
	} {
		if err := a.AddInstance(row); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if err := a.AddWork(tabular.WorkRow{ID: "WA100", Title: "Heart Sutra"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return a.Graph()
}

func TestWriteTurtleIsDeterministic(t *testing.T) {
	vocab := config.DefaultVocabulary()

	var first, second bytes.Buffer
	if err := WriteTurtle(&first, buildSample(t), vocab); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := WriteTurtle(&second, buildSample(t), vocab); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if first.Len() == 0 {
		t.Fatal("Expected turtle output")
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("Expected identical output for identical graphs")
	}
	if !strings.Contains(first.String(), "Heart Sutra") {
		t.Error("Expected title literal in output")
	}
}

func TestCheckReferences(t *testing.T) {
	tables := Tables{
		Works:       []tabular.WorkRow{{ID: "WA1"}},
		Instances:   []tabular.InstanceRow{{Line: 1, ID: "MW1", VersionOf: "WA1"}, {Line: 2, ID: "MW1_01", PartOf: "MW9", VersionOf: "WA2", Collection: "PR1"}},
		Collections: []tabular.CollectionRow{{Line: 1, ID: "PR1", Parent: "PR0"}},
		Editions:    []tabular.EditionRow{{Line: 1, ID: "IE1", InstanceID: "MW1"}},
	}
	issues := report.NewCollector()

	found := CheckReferences(tables, issues)
	if found != 3 {
		t.Fatalf("Expected 3 findings, got %d: %+v", found, issues.Issues())
	}
	if issues.Count(report.KindReferential) != 3 {
		t.Errorf("Expected referential issues, got %+v", issues.Issues())
	}
}

func TestWriteTurtleLanguageLiterals(t *testing.T) {
	a, _ := newAssembler(true)
	row := tabular.InstanceRow{ID: "MW100", Titles: []string{"Some Title", `The "Heart" Sutra@en`}}
	if err := a.AddInstance(row); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteTurtle(&buf, a.Graph(), config.DefaultVocabulary()); err != nil {
		t.Fatalf("Expected default title tag to serialize, got %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"Some Title"@sa-x-ewts`, `"The \"Heart\" Sutra"@en`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %s in output, got:\n%s", want, out)
		}
	}
}

func TestWriteTurtleDeclaresPrefixesOnce(t *testing.T) {
	vocab := config.DefaultVocabulary()
	a, _ := newAssembler(true)
	if err := a.AddWork(tabular.WorkRow{ID: "W1", Title: "x", URL: "http://purl.bdrc.io/resource/a/b.c"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteTurtle(&buf, a.Graph(), vocab); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	out := buf.String()

	lines := strings.Split(out, "\n")
	for i, ns := range vocab.Namespaces {
		want := "@prefix " + ns.Prefix + ": <" + ns.IRI + "> ."
		if lines[i] != want {
			t.Errorf("Expected header line %d to be %q, got %q", i, want, lines[i])
		}
	}
	if n := strings.Count(out, "@prefix"); n != len(vocab.Namespaces) {
		t.Errorf("Expected %d prefix declarations, got %d", len(vocab.Namespaces), n)
	}
	if strings.Contains(out, "ns0:") {
		t.Error("Expected no generated prefixes")
	}
	if !strings.Contains(out, "<http://purl.bdrc.io/resource/a/b.c>") {
		t.Errorf("Expected the URL written as a full IRI, got:\n%s", out)
	}
	if !strings.Contains(out, "bdr:W1\n    a bdo:Work") {
		t.Errorf("Expected statements grouped under their subject, got:\n%s", out)
	}
}

func TestImageInstanceEscapesThumbnail(t *testing.T) {
	w := &volumes.Work{
		ID: "W100",
		Volumes: []*volumes.Group{{
			ID:       "I0001",
			WorkID:   "W100",
			Sequence: 1,
			Images:   []volumes.ImageRef{{Filename: "page 1.jpg"}},
		}},
		Thumbnail: &volumes.Thumbnail{GroupID: "I0001", Filename: "page 1.jpg"},
	}

	a, terms := newAssembler(true)
	if err := a.AddImageInstance(w); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !a.Graph().has(terms.Resource("W100"), terms.Tmp("thumbnailIIIFService"), IRI("https://iiif.bdrc.io/bdr:I0001::page%201.jpg")) {
		t.Error("Expected escaped thumbnail service IRI")
	}

	var buf bytes.Buffer
	if err := WriteTurtle(&buf, a.Graph(), config.DefaultVocabulary()); err != nil {
		t.Errorf("Expected graph with thumbnail to serialize, got %v", err)
	}
}
