// Package catalog assembles the bibliographic graph from catalog rows and
// serializes it as Turtle.
package catalog

import (
	"sort"
	"strconv"
)

// TermKind distinguishes IRIs from literals
type TermKind int

const (
	KindIRI TermKind = iota
	KindLangLiteral
	KindTypedLiteral
)

// Term is a node or literal of the graph
type Term struct {
	Kind     TermKind
	Value    string
	Lang     string // language literals only
	Datatype string // typed literals only
}

// IRI returns an IRI term
func IRI(iri string) Term {
	return Term{Kind: KindIRI, Value: iri}
}

// LangLiteral returns a language-tagged literal
func LangLiteral(value, lang string) Term {
	return Term{Kind: KindLangLiteral, Value: value, Lang: lang}
}

// TypedLiteral returns a literal with an explicit datatype
func TypedLiteral(value, datatype string) Term {
	return Term{Kind: KindTypedLiteral, Value: value, Datatype: datatype}
}

// Integer returns an xsd:integer literal
func Integer(n int) Term {
	return TypedLiteral(strconv.Itoa(n), xsdInteger)
}

func (t Term) less(o Term) bool {
	if t.Kind != o.Kind {
		return t.Kind < o.Kind
	}
	if t.Value != o.Value {
		return t.Value < o.Value
	}
	if t.Lang != o.Lang {
		return t.Lang < o.Lang
	}
	return t.Datatype < o.Datatype
}

// Statement is one triple of the graph
type Statement struct {
	Subject   Term
	Predicate Term
	Object    Term
}

func (s Statement) less(o Statement) bool {
	if s.Subject != o.Subject {
		return s.Subject.less(o.Subject)
	}
	if s.Predicate != o.Predicate {
		return s.Predicate.less(o.Predicate)
	}
	return s.Object.less(o.Object)
}

// Graph is a set of statements. Adding a statement twice has no effect.
type Graph struct {
	statements map[Statement]struct{}
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{statements: make(map[Statement]struct{})}
}

// Add inserts a statement
func (g *Graph) Add(subject, predicate, object Term) {
	g.statements[Statement{Subject: subject, Predicate: predicate, Object: object}] = struct{}{}
}

// Len returns the number of statements
func (g *Graph) Len() int {
	return len(g.statements)
}

// Statements returns every statement sorted by subject, predicate and object
func (g *Graph) Statements() []Statement {
	out := make([]Statement, 0, len(g.statements))
	for s := range g.statements {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}
