package catalog

import "sort"

// has reports whether the statement is in the graph
func (g *Graph) has(subject, predicate, object Term) bool {
	_, ok := g.statements[Statement{Subject: subject, Predicate: predicate, Object: object}]
	return ok
}

// objects returns the sorted objects of subject for predicate
func (g *Graph) objects(subject, predicate Term) []Term {
	var out []Term
	for s := range g.statements {
		if s.Subject == subject && s.Predicate == predicate {
			out = append(out, s.Object)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

// subjects returns the sorted subjects having object for predicate
func (g *Graph) subjects(predicate, object Term) []Term {
	var out []Term
	for s := range g.statements {
		if s.Predicate == predicate && s.Object == object {
			out = append(out, s.Subject)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}
