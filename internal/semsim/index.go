// Package semsim computes ontology-based semantic similarity between genes.
//
// An Index maps every annotated gene to the ancestor closure of its direct
// terms and every term to the genes whose closure contains it. Information
// content is estimated from the term-to-gene sets, and Engine scores term and
// gene pairs by the information content of their most informative common
// ancestor (Resnik similarity).
package semsim

import (
	"errors"

	"go.uber.org/zap"

	"github.com/inodb/chc2go/internal/ontology"
)

// Ontology is the view of the term DAG the index needs.
// *ontology.Ontology implements it.
type Ontology interface {
	Len() int
	IndexOf(id ontology.TermID) (int, bool)
	ID(i int) ontology.TermID
	// Ancestors returns the sorted reflexive ancestor closure of the
	// given terms. It must be safe for concurrent use.
	Ancestors(start ...int) []int
}

// Annotations provides the direct gene-to-term associations.
type Annotations interface {
	Genes() []string
	DirectTerms(gene string) []ontology.TermID
}

// ErrNoAnnotatedGenes is returned when no gene has a known direct term.
var ErrNoAnnotatedGenes = errors.New("semsim: no annotated genes")

// IndexStats summarises index construction.
type IndexStats struct {
	Genes             int // genes with at least one known direct term
	AnnotatedTerms    int // terms with a non-empty gene set
	DirectAnnotations int // resolved direct (gene, term) pairs
	UnknownTerms      int // direct annotations naming a term not in the ontology
}

// Index is the ancestor-closed gene/term annotation index. It is immutable
// after BuildIndex returns and safe for concurrent readers.
type Index struct {
	ont       Ontology
	genes     []string
	geneIndex map[string]int
	geneTerms [][]int // per gene: sorted term indices, ancestor-closed
	termGenes [][]int // per term: ascending gene indices
	stats     IndexStats
}

// BuildIndex builds the index from an annotation source. Every direct term is
// expanded to its reflexive ancestor closure once per gene, and the gene is
// registered under every term of that closure.
func BuildIndex(ont Ontology, ann Annotations, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	idx := &Index{
		ont:       ont,
		geneIndex: make(map[string]int),
		termGenes: make([][]int, ont.Len()),
	}

	var direct []int
	for _, gene := range ann.Genes() {
		if _, dup := idx.geneIndex[gene]; dup {
			continue
		}

		direct = direct[:0]
		for _, id := range ann.DirectTerms(gene) {
			t, ok := ont.IndexOf(id)
			if !ok {
				idx.stats.UnknownTerms++
				continue
			}
			direct = append(direct, t)
		}
		if len(direct) == 0 {
			continue
		}
		idx.stats.DirectAnnotations += len(direct)

		g := len(idx.genes)
		idx.genes = append(idx.genes, gene)
		idx.geneIndex[gene] = g

		closure := ont.Ancestors(direct...)
		idx.geneTerms = append(idx.geneTerms, closure)
		for _, t := range closure {
			idx.termGenes[t] = append(idx.termGenes[t], g)
		}
	}

	if len(idx.genes) == 0 {
		return nil, ErrNoAnnotatedGenes
	}

	idx.stats.Genes = len(idx.genes)
	for _, gs := range idx.termGenes {
		if len(gs) > 0 {
			idx.stats.AnnotatedTerms++
		}
	}

	logger.Info("built annotation index",
		zap.Int("genes", idx.stats.Genes),
		zap.Int("annotated_terms", idx.stats.AnnotatedTerms),
		zap.Int("direct_annotations", idx.stats.DirectAnnotations),
		zap.Int("unknown_terms", idx.stats.UnknownTerms))
	return idx, nil
}

// Stats returns construction statistics.
func (idx *Index) Stats() IndexStats {
	return idx.stats
}

// GeneCount returns the number of distinct annotated genes.
func (idx *Index) GeneCount() int {
	return len(idx.genes)
}

// Genes returns the annotated genes in index order.
func (idx *Index) Genes() []string {
	return idx.genes
}

// HasGene reports whether the gene has at least one annotation.
func (idx *Index) HasGene(gene string) bool {
	_, ok := idx.geneIndex[gene]
	return ok
}

// TermsOf returns the ancestor-closed term set of a gene.
func (idx *Index) TermsOf(gene string) []ontology.TermID {
	g, ok := idx.geneIndex[gene]
	if !ok {
		return nil
	}
	ids := make([]ontology.TermID, len(idx.geneTerms[g]))
	for i, t := range idx.geneTerms[g] {
		ids[i] = idx.ont.ID(t)
	}
	return ids
}

// GenesOf returns the genes whose closure contains the term.
func (idx *Index) GenesOf(term ontology.TermID) []string {
	t, ok := idx.ont.IndexOf(term)
	if !ok {
		return nil
	}
	genes := make([]string, len(idx.termGenes[t]))
	for i, g := range idx.termGenes[t] {
		genes[i] = idx.genes[g]
	}
	return genes
}
