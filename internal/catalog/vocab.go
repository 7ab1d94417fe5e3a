package catalog

import "github.com/buda-base/gnd-pilot/internal/config"

const (
	rdfType    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	xsdInteger = "http://www.w3.org/2001/XMLSchema#integer"
)

// Terms builds IRIs from the namespaces of a vocabulary
type Terms struct {
	vocab config.Vocabulary
	bdr   string
	bdo   string
	bda   string
	adm   string
	skos  string
	rdfs  string
	tmp   string
}

// NewTerms binds the namespaces of vocab
func NewTerms(vocab config.Vocabulary) Terms {
	return Terms{
		vocab: vocab,
		bdr:   vocab.IRI("bdr"),
		bdo:   vocab.IRI("bdo"),
		bda:   vocab.IRI("bda"),
		adm:   vocab.IRI("adm"),
		skos:  vocab.IRI("skos"),
		rdfs:  vocab.IRI("rdfs"),
		tmp:   vocab.IRI("tmp"),
	}
}

// Type is rdf:type
func (Terms) Type() Term { return IRI(rdfType) }

// Resource returns bdr:{id}
func (t Terms) Resource(id string) Term { return IRI(t.bdr + id) }

// Ontology returns bdo:{name}
func (t Terms) Ontology(name string) Term { return IRI(t.bdo + name) }

// Admin returns bda:{id}
func (t Terms) Admin(id string) Term { return IRI(t.bda + id) }

// AdminProp returns adm:{name}
func (t Terms) AdminProp(name string) Term { return IRI(t.adm + name) }

// Tmp returns tmp:{name}
func (t Terms) Tmp(name string) Term { return IRI(t.tmp + name) }

// PrefLabel is skos:prefLabel
func (t Terms) PrefLabel() Term { return IRI(t.skos + "prefLabel") }

// Label is rdfs:label
func (t Terms) Label() Term { return IRI(t.rdfs + "label") }

// Comment is rdfs:comment
func (t Terms) Comment() Term { return IRI(t.rdfs + "comment") }

// SeeAlso is rdfs:seeAlso
func (t Terms) SeeAlso() Term { return IRI(t.rdfs + "seeAlso") }

// English returns a literal tagged with the English tag
func (t Terms) English(s string) Term { return LangLiteral(s, t.vocab.EnglishTag) }

// Date returns an EDTF literal
func (t Terms) Date(s string) Term { return TypedLiteral(s, t.vocab.EDTFDatatype) }
