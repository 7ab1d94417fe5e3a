package catalog

import (
	"fmt"

	"github.com/buda-base/gnd-pilot/internal/report"
	"github.com/buda-base/gnd-pilot/internal/tabular"
)

// Tables groups the rows that define the ids other rows may refer to
type Tables struct {
	Works       []tabular.WorkRow
	Instances   []tabular.InstanceRow
	Collections []tabular.CollectionRow
	Editions    []tabular.EditionRow
}

// CheckReferences reports references to works, instances and collections
// that no table defines. The graph is left untouched: dangling references
// are still emitted by the assembler. It returns the number of findings.
func CheckReferences(t Tables, issues *report.Collector) int {
	works := make(map[string]bool, len(t.Works))
	for _, w := range t.Works {
		works[w.ID] = true
	}
	instances := make(map[string]bool, len(t.Instances))
	for _, in := range t.Instances {
		instances[in.ID] = true
	}
	collections := make(map[string]bool, len(t.Collections))
	for _, c := range t.Collections {
		collections[c.ID] = true
	}

	found := 0
	missing := func(source string, row int, id, code, format string, args ...any) {
		issues.Add(report.Issue{
			Kind:    report.KindReferential,
			Source:  source,
			Row:     row,
			ID:      id,
			Code:    code,
			Message: fmt.Sprintf(format, args...),
		})
		found++
	}

	for _, in := range t.Instances {
		if in.PartOf != "" && !instances[in.PartOf] {
			missing("instances", in.Line, in.ID, "unknownparent", "instance %s is part of undefined instance %s", in.ID, in.PartOf)
		}
		if in.VersionOf != "" && !works[in.VersionOf] {
			missing("instances", in.Line, in.ID, "unknownwork", "instance %s is a version of undefined work %s", in.ID, in.VersionOf)
		}
		if in.Collection != "" && !collections[in.Collection] {
			missing("instances", in.Line, in.ID, "unknowncollection", "instance %s belongs to undefined collection %s", in.ID, in.Collection)
		}
	}
	for _, c := range t.Collections {
		if c.Parent != "" && !collections[c.Parent] {
			missing("collections", c.Line, c.ID, "unknownparent", "collection %s is part of undefined collection %s", c.ID, c.Parent)
		}
	}
	for _, e := range t.Editions {
		if e.InstanceID != "" && !instances[e.InstanceID] {
			missing("editions", e.Line, e.ID, "unknowninstance", "digital edition %s reproduces undefined instance %s", e.ID, e.InstanceID)
		}
	}

	return found
}
