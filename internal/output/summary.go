package output

import (
	"fmt"
	"io"

	"github.com/inodb/chc2go/internal/chc"
	"github.com/inodb/chc2go/internal/semsim"
)

// WriteSummary writes ingestion counters: accepted lines against every
// rejection category.
func WriteSummary(w io.Writer, c chc.Counters) {
	fmt.Fprintf(w, "\nIngestion Summary:\n")
	fmt.Fprintf(w, "  Lines read:                 %d\n", c.Lines)
	fmt.Fprintf(w, "  Accepted (AA):              %d\n", c.Accepted)
	fmt.Fprintf(w, "  Malformed:                  %d\n", c.Malformed)
	fmt.Fprintf(w, "  Parse errors:               %d\n", c.ParseErrors)
	fmt.Fprintf(w, "  Other category:             %d\n", c.OtherCategory)
	fmt.Fprintf(w, "  Only one anchor has genes:  %d\n", c.OnlyOneAnchorHasGenes)
	fmt.Fprintf(w, "  No genes:                   %d\n", c.NoGenes)
	fmt.Fprintf(w, "  Enrichment AA:              %d\n", c.AA)
	fmt.Fprintf(w, "  Enrichment AI:              %d\n", c.AI)
	fmt.Fprintf(w, "  Enrichment IA:              %d\n", c.IA)
	fmt.Fprintf(w, "  Enrichment II:              %d\n", c.II)
}

// WriteIndexSummary writes annotation index statistics.
func WriteIndexSummary(w io.Writer, s semsim.IndexStats) {
	fmt.Fprintf(w, "\nAnnotation Index:\n")
	fmt.Fprintf(w, "  Annotated genes:     %d\n", s.Genes)
	fmt.Fprintf(w, "  Annotated terms:     %d\n", s.AnnotatedTerms)
	fmt.Fprintf(w, "  Direct annotations:  %d\n", s.DirectAnnotations)
	fmt.Fprintf(w, "  Unknown terms:       %d\n", s.UnknownTerms)
}

// ScoreStats summarises a scoring run.
type ScoreStats struct {
	Interactions int
	Pairs        int
	CacheHits    int64
	CacheMisses  int64
}

// WriteScoreSummary writes pair and cache statistics.
func WriteScoreSummary(w io.Writer, s ScoreStats) {
	hitRate := float64(0)
	if total := s.CacheHits + s.CacheMisses; total > 0 {
		hitRate = float64(s.CacheHits) / float64(total) * 100
	}
	fmt.Fprintf(w, "\nScoring Summary:\n")
	fmt.Fprintf(w, "  Interactions scored:  %d\n", s.Interactions)
	fmt.Fprintf(w, "  Gene pairs:           %d\n", s.Pairs)
	fmt.Fprintf(w, "  Cache hits:           %d (%.1f%%)\n", s.CacheHits, hitRate)
	fmt.Fprintf(w, "  Cache misses:         %d\n", s.CacheMisses)
}
