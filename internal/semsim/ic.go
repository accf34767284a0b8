package semsim

import (
	"math"

	"github.com/inodb/chc2go/internal/ontology"
)

// IC holds per-term information content. Terms without annotated genes have
// no value; callers must treat a missing value as "no evidence", not zero.
type IC struct {
	ont     Ontology
	values  []float64 // NaN where undefined
	defined int
}

// EstimateIC computes -ln(|genes(t)| / N) for every term with a non-empty
// gene set, where N is the number of annotated genes in the index.
func EstimateIC(idx *Index) *IC {
	ic := &IC{
		ont:    idx.ont,
		values: make([]float64, len(idx.termGenes)),
	}
	total := float64(idx.GeneCount())
	for t, genes := range idx.termGenes {
		if len(genes) == 0 || total == 0 {
			ic.values[t] = math.NaN()
			continue
		}
		ic.values[t] = -math.Log(float64(len(genes)) / total)
		ic.defined++
	}
	return ic
}

// Get returns the information content of a term.
func (ic *IC) Get(id ontology.TermID) (float64, bool) {
	t, ok := ic.ont.IndexOf(id)
	if !ok {
		return 0, false
	}
	return ic.at(t)
}

func (ic *IC) at(t int) (float64, bool) {
	v := ic.values[t]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Len returns the number of terms with a defined value.
func (ic *IC) Len() int {
	return ic.defined
}

// Map returns the defined values keyed by term.
func (ic *IC) Map() map[ontology.TermID]float64 {
	m := make(map[ontology.TermID]float64, ic.defined)
	for t, v := range ic.values {
		if !math.IsNaN(v) {
			m[ic.ont.ID(t)] = v
		}
	}
	return m
}
