package semsim

import (
	"sync"

	"github.com/inodb/chc2go/internal/ontology"
)

// Engine computes Resnik similarity between terms and genes.
// It is safe for concurrent use.
type Engine struct {
	idx       *Index
	ic        *IC
	cache     ScoreCache
	ancestors sync.Map // int -> []int
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache replaces the default score cache.
func WithCache(c ScoreCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// NewEngine creates a similarity engine over a built index and its IC values.
func NewEngine(idx *Index, ic *IC, opts ...Option) *Engine {
	e := &Engine{idx: idx, ic: ic, cache: NewScoreCache()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TermSimilarity returns the IC of the most informative common ancestor of
// a and b, or 0 if they share no ancestor with a defined IC.
func (e *Engine) TermSimilarity(a, b ontology.TermID) float64 {
	ia, ok := e.idx.ont.IndexOf(a)
	if !ok {
		return 0
	}
	ib, ok := e.idx.ont.IndexOf(b)
	if !ok {
		return 0
	}
	return e.termSimilarity(ia, ib)
}

// MICA returns the most informative common ancestor of a and b and its IC.
// ok is false when no common ancestor has a defined IC.
func (e *Engine) MICA(a, b ontology.TermID) (term ontology.TermID, ic float64, ok bool) {
	ia, found := e.idx.ont.IndexOf(a)
	if !found {
		return "", 0, false
	}
	ib, found := e.idx.ont.IndexOf(b)
	if !found {
		return "", 0, false
	}
	t, v := e.mica(ia, ib)
	if t < 0 {
		return "", 0, false
	}
	return e.idx.ont.ID(t), v, true
}

func (e *Engine) termSimilarity(a, b int) float64 {
	if a > b {
		a, b = b, a
	}
	return e.cache.GetOrCompute(a, b, func() float64 {
		_, v := e.mica(a, b)
		return v
	})
}

// mica intersects the two sorted ancestor closures and keeps the common
// term with the highest IC. Returns -1 when none has a defined IC.
func (e *Engine) mica(a, b int) (int, float64) {
	xs, ys := e.closure(a), e.closure(b)
	best, bestIC := -1, 0.0
	for i, j := 0, 0; i < len(xs) && j < len(ys); {
		switch {
		case xs[i] < ys[j]:
			i++
		case xs[i] > ys[j]:
			j++
		default:
			if v, ok := e.ic.at(xs[i]); ok && (best < 0 || v > bestIC) {
				best, bestIC = xs[i], v
			}
			i++
			j++
		}
	}
	return best, bestIC
}

func (e *Engine) closure(t int) []int {
	if v, ok := e.ancestors.Load(t); ok {
		return v.([]int)
	}
	v, _ := e.ancestors.LoadOrStore(t, e.idx.ont.Ancestors(t))
	return v.([]int)
}

// GeneSimilarity returns the mean term similarity over the cross product of
// the two genes' ancestor-closed term sets. Unannotated genes score 0.
func (e *Engine) GeneSimilarity(a, b string) float64 {
	ga, ok := e.idx.geneIndex[a]
	if !ok {
		return 0
	}
	gb, ok := e.idx.geneIndex[b]
	if !ok {
		return 0
	}
	if ga > gb {
		ga, gb = gb, ga
	}
	ta, tb := e.idx.geneTerms[ga], e.idx.geneTerms[gb]
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var sum float64
	for _, x := range ta {
		for _, y := range tb {
			sum += e.termSimilarity(x, y)
		}
	}
	return sum / float64(len(ta)*len(tb))
}

// CacheStats returns the score cache hit and miss counts.
func (e *Engine) CacheStats() (hits, misses int64) {
	return e.cache.Stats()
}
