package catalog

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/knakk/rdf"

	"github.com/buda-base/gnd-pilot/internal/config"
)

// langTag is the Turtle LANGTAG production
var langTag = regexp.MustCompile(`^[a-zA-Z]+(-[a-zA-Z0-9]+)*$`)

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// WriteTurtle serializes the sorted statements of g as Turtle. Every prefix
// of vocab is declared once at the top and no other prefix is introduced.
// Output is identical for identical graphs.
func WriteTurtle(w io.Writer, g *Graph, vocab config.Vocabulary) error {
	bw := bufio.NewWriter(w)
	for _, ns := range vocab.Namespaces {
		fmt.Fprintf(bw, "@prefix %s: <%s> .\n", ns.Prefix, ns.IRI)
	}

	tw := newTermWriter(vocab.Namespaces)
	subject := ""
	for _, s := range g.Statements() {
		subj, err := tw.iri(s.Subject.Value)
		if err != nil {
			return fmt.Errorf("invalid subject %q: %w", s.Subject.Value, err)
		}
		pred := "a"
		if s.Predicate.Value != rdfType {
			if pred, err = tw.iri(s.Predicate.Value); err != nil {
				return fmt.Errorf("invalid predicate %q: %w", s.Predicate.Value, err)
			}
		}
		obj, err := tw.object(s.Object)
		if err != nil {
			return fmt.Errorf("invalid object of %s: %w", s.Subject.Value, err)
		}

		if s.Subject.Value == subject {
			fmt.Fprintf(bw, " ;\n    %s %s", pred, obj)
			continue
		}
		if subject != "" {
			bw.WriteString(" .\n")
		}
		fmt.Fprintf(bw, "\n%s\n    %s %s", subj, pred, obj)
		subject = s.Subject.Value
	}
	if subject != "" {
		bw.WriteString(" .\n")
	}
	return bw.Flush()
}

type termWriter struct {
	namespaces []config.Namespace // longest IRI first
}

func newTermWriter(namespaces []config.Namespace) *termWriter {
	ns := append([]config.Namespace(nil), namespaces...)
	sort.SliceStable(ns, func(i, j int) bool { return len(ns[i].IRI) > len(ns[j].IRI) })
	return &termWriter{namespaces: ns}
}

// iri writes a prefixed name when a bound namespace covers value with a
// plain local name, and a full IRI otherwise
func (tw *termWriter) iri(value string) (string, error) {
	iri, err := rdf.NewIRI(value)
	if err != nil {
		return "", err
	}
	for _, ns := range tw.namespaces {
		if local, ok := strings.CutPrefix(value, ns.IRI); ok && plainLocal(local) {
			return ns.Prefix + ":" + local, nil
		}
	}
	return iri.Serialize(rdf.Turtle), nil
}

func (tw *termWriter) object(t Term) (string, error) {
	switch t.Kind {
	case KindIRI:
		return tw.iri(t.Value)
	case KindLangLiteral:
		if !langTag.MatchString(t.Lang) {
			return "", fmt.Errorf("invalid language tag %q", t.Lang)
		}
		return `"` + literalEscaper.Replace(t.Value) + `"@` + t.Lang, nil
	case KindTypedLiteral:
		dt, err := rdf.NewIRI(t.Datatype)
		if err != nil {
			return "", err
		}
		return rdf.NewTypedLiteral(t.Value, dt).Serialize(rdf.Turtle), nil
	default:
		return "", fmt.Errorf("unknown term kind %d", t.Kind)
	}
}

// plainLocal reports whether s can be written as a prefixed local name
// without escapes
func plainLocal(s string) bool {
	if s == "" || s[0] == '-' {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
