// Package ontology provides an in-memory gene-function ontology.
//
// Terms are stored in an arena and addressed by dense integer indices;
// each term keeps the indices of its direct parents. The graph must be
// acyclic, which Build verifies.
package ontology

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// TermID is a stable ontology term identifier such as "GO:0008150".
type TermID string

// Term holds the descriptive fields of an ontology term.
type Term struct {
	ID        TermID
	Name      string
	Namespace string
	AltIDs    []TermID
}

// Ontology is an immutable term DAG.
type Ontology struct {
	terms   []Term
	parents [][]int
	index   map[TermID]int
	alt     map[TermID]int
}

// ErrCycle is returned by Build when the parent relation is cyclic.
var ErrCycle = errors.New("ontology: parent relation contains a cycle")

// Builder accumulates terms and parent edges.
type Builder struct {
	terms []Term
	index map[TermID]int
	edges [][2]TermID
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{index: make(map[TermID]int)}
}

// AddTerm adds a term. Adding an ID twice replaces the earlier term.
func (b *Builder) AddTerm(t Term) {
	if i, ok := b.index[t.ID]; ok {
		b.terms[i] = t
		return
	}
	b.index[t.ID] = len(b.terms)
	b.terms = append(b.terms, t)
}

// AddParent records that parent is a direct parent of child.
func (b *Builder) AddParent(child, parent TermID) {
	b.edges = append(b.edges, [2]TermID{child, parent})
}

// Build resolves edges into the arena. Edges that name an unknown term are
// dropped and reported in the returned count.
func (b *Builder) Build() (*Ontology, int, error) {
	o := &Ontology{
		terms:   b.terms,
		parents: make([][]int, len(b.terms)),
		index:   b.index,
		alt:     make(map[TermID]int),
	}
	for i, t := range b.terms {
		for _, a := range t.AltIDs {
			if _, primary := b.index[a]; !primary {
				o.alt[a] = i
			}
		}
	}

	g := simple.NewDirectedGraph()
	for i := range b.terms {
		g.AddNode(simple.Node(i))
	}

	dropped := 0
	for _, e := range b.edges {
		child, ok := b.index[e[0]]
		if !ok {
			dropped++
			continue
		}
		parent, ok := b.index[e[1]]
		if !ok {
			dropped++
			continue
		}
		if child == parent {
			return nil, dropped, fmt.Errorf("%w: %s is its own parent", ErrCycle, e[0])
		}
		if g.HasEdgeFromTo(int64(child), int64(parent)) {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(child), simple.Node(parent)))
		o.parents[child] = append(o.parents[child], parent)
	}

	if _, err := topo.Sort(g); err != nil {
		var cycles topo.Unorderable
		if errors.As(err, &cycles) && len(cycles) > 0 && len(cycles[0]) > 0 {
			return nil, dropped, fmt.Errorf("%w: involving %s", ErrCycle, o.terms[cycles[0][0].ID()].ID)
		}
		return nil, dropped, fmt.Errorf("%w: %v", ErrCycle, err)
	}

	for _, ps := range o.parents {
		sort.Ints(ps)
	}
	return o, dropped, nil
}

// Len returns the number of terms.
func (o *Ontology) Len() int {
	return len(o.terms)
}

// AllTerms returns every term identifier in arena order.
func (o *Ontology) AllTerms() []TermID {
	ids := make([]TermID, len(o.terms))
	for i, t := range o.terms {
		ids[i] = t.ID
	}
	return ids
}

// IndexOf returns the arena index of a term. Alternative IDs resolve to
// their primary term.
func (o *Ontology) IndexOf(id TermID) (int, bool) {
	if i, ok := o.index[id]; ok {
		return i, true
	}
	i, ok := o.alt[id]
	return i, ok
}

// ID returns the identifier of the term at index i.
func (o *Ontology) ID(i int) TermID {
	return o.terms[i].ID
}

// Term returns the term with the given identifier.
func (o *Ontology) Term(id TermID) (Term, bool) {
	i, ok := o.IndexOf(id)
	if !ok {
		return Term{}, false
	}
	return o.terms[i], true
}

// Resolve maps an alternative ID to its primary ID.
func (o *Ontology) Resolve(id TermID) (TermID, bool) {
	i, ok := o.IndexOf(id)
	if !ok {
		return "", false
	}
	return o.terms[i].ID, true
}

// ParentsOf returns the direct parents of a term.
func (o *Ontology) ParentsOf(id TermID) []TermID {
	i, ok := o.IndexOf(id)
	if !ok {
		return nil
	}
	ps := make([]TermID, len(o.parents[i]))
	for j, p := range o.parents[i] {
		ps[j] = o.terms[p].ID
	}
	return ps
}

// Ancestors returns the reflexive transitive closure of the parent relation
// for the given term indices, sorted ascending.
func (o *Ontology) Ancestors(start ...int) []int {
	seen := make(map[int]struct{}, 16)
	stack := append([]int(nil), start...)
	for len(stack) > 0 {
		n := len(stack) - 1
		t := stack[n]
		stack = stack[:n]
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		stack = append(stack, o.parents[t]...)
	}

	out := make([]int, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}
