package catalog

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/buda-base/gnd-pilot/internal/config"
	"github.com/buda-base/gnd-pilot/internal/ids"
	"github.com/buda-base/gnd-pilot/internal/tabular"
	"github.com/buda-base/gnd-pilot/internal/volumes"
)

// Mode holds the assembly options fixed for a run
type Mode struct {
	// InferReverse adds the inverse of every relation (hasPart for partOf,
	// workHasInstance for instanceOf, volumeOf for instanceHasVolume, ...).
	InferReverse bool
}

// Assembler adds catalog records to a graph. References to parents,
// collections and works are not checked: statements about unknown subjects
// are emitted as-is. Use CheckReferences to report them.
type Assembler struct {
	graph *Graph
	terms Terms
	vocab config.Vocabulary
	mode  Mode
}

// NewAssembler creates an assembler writing to a new graph
func NewAssembler(vocab config.Vocabulary, mode Mode) *Assembler {
	return &Assembler{
		graph: NewGraph(),
		terms: NewTerms(vocab),
		vocab: vocab,
		mode:  mode,
	}
}

// Graph returns the graph being assembled
func (a *Assembler) Graph() *Graph {
	return a.graph
}

// AddWork adds a work with its admin data, label and external reference
func (a *Assembler) AddWork(row tabular.WorkRow) error {
	if err := ids.ValidateID(row.ID); err != nil {
		return fmt.Errorf("work row %d: %w", row.Line, err)
	}
	if row.URL != "" {
		if err := ids.ValidateURL(row.URL); err != nil {
			return fmt.Errorf("work %s: %w", row.ID, err)
		}
	}

	t := a.terms
	main := t.Resource(row.ID)
	a.graph.Add(main, t.Type(), t.Ontology("Work"))
	a.addAdmin(row.ID, false)
	if row.Title != "" {
		a.graph.Add(main, t.PrefLabel(), t.English(row.Title))
	}
	if row.URL != "" {
		a.graph.Add(main, t.SeeAlso(), IRI(row.URL))
	}
	return nil
}

// AddInstance adds an instance. Root instances get admin data and a
// reproduction link; sub-parts get partOf, an optional part type and an
// optional content location in their parent.
func (a *Assembler) AddInstance(row tabular.InstanceRow) error {
	if err := a.validateInstance(row); err != nil {
		return err
	}

	t := a.terms
	main := t.Resource(row.ID)
	a.graph.Add(main, t.Type(), t.Ontology("Instance"))
	a.graph.Add(main, t.Ontology("printMethod"), t.Resource("PrintMethod_Manuscript"))

	if row.PartOf == "" {
		a.addAdmin(row.ID, false)
		a.graph.Add(main, t.Ontology("instanceHasReproduction"), t.Resource(ids.ReproductionID(row.ID)))
	} else {
		parent := t.Resource(row.PartOf)
		a.graph.Add(main, t.Ontology("partOf"), parent)
		if a.mode.InferReverse {
			a.graph.Add(parent, t.Ontology("hasPart"), main)
		}
		if row.PartType != "" {
			a.graph.Add(main, t.Ontology("partType"), t.Resource(row.PartType))
		}
		a.addContentLocation(row)
	}

	if row.VersionOf != "" {
		work := t.Resource(row.VersionOf)
		a.graph.Add(main, t.Ontology("instanceOf"), work)
		if a.mode.InferReverse {
			a.graph.Add(work, t.Ontology("workHasInstance"), main)
		}
	}

	if row.Collection != "" {
		collection := t.Resource(row.Collection)
		a.graph.Add(main, t.Ontology("inCollection"), collection)
		if a.mode.InferReverse {
			a.graph.Add(collection, t.Ontology("collectionMember"), main)
		}
	}

	labelled := make(map[string]bool)
	for i, raw := range row.Titles {
		text, lang := a.SplitTitle(raw)
		literal := LangLiteral(text, lang)
		if !labelled[lang] {
			a.graph.Add(main, t.PrefLabel(), literal)
			labelled[lang] = true
		}
		title := t.Resource(ids.TitleID(row.ID, i+1))
		a.graph.Add(main, t.Ontology("hasTitle"), title)
		a.graph.Add(title, t.Type(), t.Ontology("Title"))
		a.graph.Add(title, t.Label(), literal)
	}

	for _, code := range []struct{ prop, value string }{
		{"script", row.Script},
		{"material", row.Material},
		{"binding", row.Binding},
	} {
		if code.value != "" {
			a.graph.Add(main, t.Ontology(code.prop), t.Resource(code.value))
		}
	}

	if row.Date != "" {
		event := t.Resource(ids.EventID(row.ID))
		a.graph.Add(main, t.Ontology("instanceEvent"), event)
		a.graph.Add(event, t.Type(), t.Ontology("CopyEvent"))
		a.graph.Add(event, t.Ontology("eventWhen"), t.Date(row.Date))
	}

	return nil
}

// validateInstance checks every derived value before anything is emitted,
// so a rejected row leaves no statements behind.
func (a *Assembler) validateInstance(row tabular.InstanceRow) error {
	if err := ids.ValidateID(row.ID); err != nil {
		return fmt.Errorf("instance row %d: %w", row.Line, err)
	}
	for _, ref := range []string{row.PartOf, row.PartType, row.VersionOf, row.Collection, row.Script, row.Material, row.Binding} {
		if ref == "" {
			continue
		}
		if err := ids.ValidateID(ref); err != nil {
			return fmt.Errorf("instance %s: %w", row.ID, err)
		}
	}
	if row.Date != "" {
		if err := ids.ValidateEDTF(row.Date); err != nil {
			return fmt.Errorf("instance %s: %w", row.ID, err)
		}
	}
	if row.PartOf != "" {
		if _, _, err := pageRange(row); err != nil {
			return fmt.Errorf("instance %s: %w", row.ID, err)
		}
	}
	return nil
}

func pageRange(row tabular.InstanceRow) (start, end int, err error) {
	if row.StartPage != "" {
		if start, err = ids.ParsePageNumber(row.StartPage); err != nil {
			return 0, 0, err
		}
	}
	if row.EndPage != "" {
		if end, err = ids.ParsePageNumber(row.EndPage); err != nil {
			return 0, 0, err
		}
	}
	if start > 0 && end > 0 && end < start {
		return 0, 0, fmt.Errorf("%w: end page %d precedes start page %d", ids.ErrDerivation, end, start)
	}
	return start, end, nil
}

func (a *Assembler) addContentLocation(row tabular.InstanceRow) {
	start, end, _ := pageRange(row)
	if start == 0 && end == 0 {
		return
	}

	t := a.terms
	cl := t.Resource(ids.ContentLocationID(row.ID))
	a.graph.Add(t.Resource(row.ID), t.Ontology("contentLocation"), cl)
	a.graph.Add(cl, t.Type(), t.Ontology("ContentLocation"))
	a.graph.Add(cl, t.Ontology("contentLocationInstance"), t.Resource(ids.ReproductionID(row.PartOf)))
	a.graph.Add(cl, t.Ontology("contentLocationVolume"), Integer(1))
	if start > 0 {
		a.graph.Add(cl, t.Ontology("contentLocationPage"), Integer(start))
	}
	if end > 0 {
		a.graph.Add(cl, t.Ontology("contentLocationEndPage"), Integer(end))
	}
}

// SplitTitle returns the title text and its language tag. A title ending in
// the English marker loses the marker and is tagged English; any other title
// keeps its text and gets the default tag.
func (a *Assembler) SplitTitle(title string) (string, string) {
	if strings.HasSuffix(title, a.vocab.EnglishMarker) {
		return strings.TrimSpace(strings.TrimSuffix(title, a.vocab.EnglishMarker)), a.vocab.EnglishTag
	}
	return title, a.vocab.DefaultTitleTag
}

// AddCollection adds a collection with its admin data, label, description
// and parent collection
func (a *Assembler) AddCollection(row tabular.CollectionRow) error {
	if err := ids.ValidateID(row.ID); err != nil {
		return fmt.Errorf("collection row %d: %w", row.Line, err)
	}
	if row.Parent != "" {
		if err := ids.ValidateID(row.Parent); err != nil {
			return fmt.Errorf("collection %s: %w", row.ID, err)
		}
		if row.Parent == row.ID {
			return fmt.Errorf("collection %s: %w: collection is its own parent", row.ID, ids.ErrDerivation)
		}
	}
	if row.URL != "" {
		if err := ids.ValidateURL(row.URL); err != nil {
			return fmt.Errorf("collection %s: %w", row.ID, err)
		}
	}

	t := a.terms
	main := t.Resource(row.ID)
	a.graph.Add(main, t.Type(), t.Ontology("Collection"))
	a.addAdmin(row.ID, false)
	if row.Label != "" {
		a.graph.Add(main, t.PrefLabel(), t.English(row.Label))
	}
	if row.Description != "" {
		a.graph.Add(main, t.Comment(), t.English(row.Description))
	}
	if row.URL != "" {
		a.graph.Add(main, t.SeeAlso(), IRI(row.URL))
	}
	if row.Parent != "" {
		parent := t.Resource(row.Parent)
		a.graph.Add(main, t.Ontology("partOf"), parent)
		if a.mode.InferReverse {
			a.graph.Add(parent, t.Ontology("hasPart"), main)
		}
	}
	return nil
}

// AddImageInstance adds the reproduction of a work with one image group per
// volume, numbered in first-seen order, and the total volume count.
func (a *Assembler) AddImageInstance(w *volumes.Work) error {
	if err := ids.ValidateID(w.ID); err != nil {
		return fmt.Errorf("image instance: %w", err)
	}
	for _, g := range w.Volumes {
		if err := ids.ValidateID(g.ID); err != nil {
			return fmt.Errorf("image instance %s: %w", w.ID, err)
		}
	}

	t := a.terms
	main := t.Resource(w.ID)
	a.graph.Add(main, t.Type(), t.Ontology("ImageInstance"))
	a.addAdmin(w.ID, true)
	a.graph.Add(t.Admin(ids.AdminID(w.ID)), t.AdminProp("contentLegal"), t.Admin("LD_BDRC_PD"))
	if a.mode.InferReverse {
		a.graph.Add(main, t.Ontology("instanceReproductionOf"), t.Resource(ids.InstanceID(w.ID)))
	}
	if w.Thumbnail != nil && a.vocab.IIIFBase != "" {
		service := fmt.Sprintf("%sbdr:%s::%s", a.vocab.IIIFBase, url.PathEscape(w.Thumbnail.GroupID), url.PathEscape(w.Thumbnail.Filename))
		a.graph.Add(main, t.Tmp("thumbnailIIIFService"), IRI(service))
	}

	for _, g := range w.Volumes {
		vol := t.Resource(g.ID)
		a.graph.Add(vol, t.Type(), t.Ontology("ImageGroup"))
		a.addAdmin(g.ID, true)
		a.graph.Add(vol, t.Ontology("volumeNumber"), Integer(g.Sequence))
		a.graph.Add(vol, t.Ontology("volumePagesTbrcIntro"), Integer(g.IntroPages))
		a.graph.Add(vol, t.Ontology("volumePagesTotal"), Integer(g.Total()))
		if g.Label != "" {
			a.graph.Add(vol, t.PrefLabel(), t.English(g.Label))
		}
		a.graph.Add(main, t.Ontology("instanceHasVolume"), vol)
		if a.mode.InferReverse {
			a.graph.Add(vol, t.Ontology("volumeOf"), main)
		}
	}
	a.graph.Add(main, t.Tmp("numberOfVolumes"), Integer(len(w.Volumes)))
	return nil
}

// AddDigitalEdition adds an etext reproduction of an instance
func (a *Assembler) AddDigitalEdition(row tabular.EditionRow) error {
	if err := ids.ValidateID(row.ID); err != nil {
		return fmt.Errorf("digital edition row %d: %w", row.Line, err)
	}
	if err := ids.ValidateID(row.InstanceID); err != nil {
		return fmt.Errorf("digital edition %s: %w", row.ID, err)
	}
	if row.URL != "" {
		if err := ids.ValidateURL(row.URL); err != nil {
			return fmt.Errorf("digital edition %s: %w", row.ID, err)
		}
	}

	t := a.terms
	main := t.Resource(row.ID)
	instance := t.Resource(row.InstanceID)
	a.graph.Add(main, t.Type(), t.Ontology("EtextInstance"))
	a.addAdmin(row.ID, true)
	a.graph.Add(main, t.Ontology("instanceReproductionOf"), instance)
	if a.mode.InferReverse {
		a.graph.Add(instance, t.Ontology("instanceHasReproduction"), main)
	}
	if row.Label != "" {
		a.graph.Add(main, t.PrefLabel(), t.English(row.Label))
	}
	if row.URL != "" {
		a.graph.Add(main, t.SeeAlso(), IRI(row.URL))
	}
	return nil
}

// addAdmin adds the admin data record of a top-level resource
func (a *Assembler) addAdmin(id string, openAccess bool) {
	t := a.terms
	admin := t.Admin(ids.AdminID(id))
	a.graph.Add(admin, t.Type(), t.Admin("AdminData"))
	a.graph.Add(admin, t.AdminProp("adminAbout"), t.Resource(id))
	a.graph.Add(admin, t.AdminProp("status"), t.Admin("StatusReleased"))
	a.graph.Add(admin, t.AdminProp("metadataLegal"), t.Admin("LD_BDRC_CC0"))
	if openAccess {
		a.graph.Add(admin, t.AdminProp("access"), t.Admin("AccessOpen"))
	}
}
