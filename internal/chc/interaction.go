// Package chc provides parsing of capture Hi-C interaction files.
package chc

import (
	"fmt"
	"strconv"
	"strings"
)

// Category is the directionality class of an interaction.
type Category int

// Retained interaction categories.
const (
	CategorySimple Category = iota + 1
	CategoryTwisted
	CategoryUndirectedRefActiveActive
)

// ParseCategory maps the category column to a retained Category.
// Any other value (NA, U, URII, URAI, ...) is reported as not ok.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case "S":
		return CategorySimple, true
	case "T":
		return CategoryTwisted, true
	case "URA":
		return CategoryUndirectedRefActiveActive, true
	}
	return 0, false
}

func (c Category) String() string {
	switch c {
	case CategorySimple:
		return "S"
	case CategoryTwisted:
		return "T"
	case CategoryUndirectedRefActiveActive:
		return "URA"
	}
	return "?"
}

// Enrichment says which of the two digests were target-enriched.
type Enrichment int

// Enrichment types (A = active/enriched, I = inactive).
const (
	EnrichmentAA Enrichment = iota + 1
	EnrichmentAI
	EnrichmentIA
	EnrichmentII
)

func (e Enrichment) String() string {
	switch e {
	case EnrichmentAA:
		return "AA"
	case EnrichmentAI:
		return "AI"
	case EnrichmentIA:
		return "IA"
	case EnrichmentII:
		return "II"
	}
	return "?"
}

// Locus is a digest region on a chromosome.
type Locus struct {
	Chrom string
	Start int64
	End   int64
}

// ParseLocus parses a region such as "chr1:100-200".
func ParseLocus(s string) (Locus, error) {
	colon := strings.LastIndexByte(s, ':')
	if colon <= 0 {
		return Locus{}, fmt.Errorf("invalid locus %q", s)
	}
	dash := strings.IndexByte(s[colon+1:], '-')
	if dash < 0 {
		return Locus{}, fmt.Errorf("invalid locus %q", s)
	}
	start, err := strconv.ParseInt(s[colon+1:colon+1+dash], 10, 64)
	if err != nil {
		return Locus{}, fmt.Errorf("invalid locus start %q", s)
	}
	end, err := strconv.ParseInt(s[colon+2+dash:], 10, 64)
	if err != nil {
		return Locus{}, fmt.Errorf("invalid locus end %q", s)
	}
	return Locus{Chrom: s[:colon], Start: start, End: end}, nil
}

func (l Locus) String() string {
	return l.Chrom + ":" + strconv.FormatInt(l.Start, 10) + "-" + strconv.FormatInt(l.End, 10)
}

// ReadPairRatio holds the simple and twisted read pair counts.
type ReadPairRatio struct {
	Simple  int
	Twisted int
}

// Interaction is one accepted digest pair. Only lines that pass every
// filter become an Interaction.
type Interaction struct {
	Anchors    [2]Locus      // Anchor digests
	Distance   int64         // Genomic distance between anchors
	Category   Category      // S, T or URA
	GenesA     []string      // Genes on the first anchor
	GenesB     []string      // Genes on the second anchor
	ReadPairs  ReadPairRatio // simple:twisted
	Enrichment Enrichment    // Always AA for accepted records
	LogPValue  float64       // log10 P-value as reported
	Line       int           // Source line number
}

// Key returns the interaction-identifying key "anchorA;anchorB".
func (i *Interaction) Key() string {
	return i.Anchors[0].String() + ";" + i.Anchors[1].String()
}

// PairCount returns the number of cross-anchor gene pairs.
func (i *Interaction) PairCount() int {
	return len(i.GenesA) * len(i.GenesB)
}
