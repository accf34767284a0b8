package goa

import (
	"go.uber.org/zap"

	"github.com/inodb/chc2go/internal/ontology"
)

// Associations maps gene symbols to their directly annotated terms.
type Associations struct {
	genes     []string
	terms     map[string][]ontology.TermID
	seen      map[string]map[ontology.TermID]struct{}
	objectIDs map[string]string
	count     int
}

// NewAssociations creates an empty association container.
func NewAssociations() *Associations {
	return &Associations{
		terms:     make(map[string][]ontology.TermID),
		seen:      make(map[string]map[ontology.TermID]struct{}),
		objectIDs: make(map[string]string),
	}
}

// Add records a direct annotation. Duplicate (gene, term) pairs are ignored.
func (a *Associations) Add(symbol string, term ontology.TermID) {
	s, ok := a.seen[symbol]
	if !ok {
		s = make(map[ontology.TermID]struct{})
		a.seen[symbol] = s
		a.genes = append(a.genes, symbol)
	}
	if _, dup := s[term]; dup {
		return
	}
	s[term] = struct{}{}
	a.terms[symbol] = append(a.terms[symbol], term)
	a.count++
}

// AddAnnotation records a parsed GAF line, including its object ID.
func (a *Associations) AddAnnotation(ann *Annotation) {
	a.Add(ann.Symbol, ann.TermID)
	if _, ok := a.objectIDs[ann.Symbol]; !ok && ann.ObjectID != "" {
		a.objectIDs[ann.Symbol] = ann.DB + ":" + ann.ObjectID
	}
}

// Genes returns all annotated gene symbols in first-seen order.
func (a *Associations) Genes() []string {
	return a.genes
}

// DirectTerms returns the terms directly annotated to a gene.
func (a *Associations) DirectTerms(gene string) []ontology.TermID {
	return a.terms[gene]
}

// ObjectID returns the database object ID for a symbol, e.g. "UniProtKB:Q9BV73".
func (a *Associations) ObjectID(symbol string) (string, bool) {
	id, ok := a.objectIDs[symbol]
	return id, ok
}

// GeneCount returns the number of annotated genes.
func (a *Associations) GeneCount() int {
	return len(a.genes)
}

// AnnotationCount returns the number of distinct (gene, term) pairs.
func (a *Associations) AnnotationCount() int {
	return a.count
}

// LoadGAF parses a GAF file into an Associations container.
func LoadGAF(path string, opts Options, logger *zap.Logger) (*Associations, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	p, err := NewParser(path, opts)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	assoc := NewAssociations()
	for {
		ann, err := p.Next()
		if err != nil {
			return nil, err
		}
		if ann == nil {
			break
		}
		assoc.AddAnnotation(ann)
	}

	logger.Info("parsed GO annotations",
		zap.String("path", path),
		zap.Int("genes", assoc.GeneCount()),
		zap.Int("annotations", assoc.AnnotationCount()),
		zap.Int("filtered", p.Skipped()))
	return assoc, nil
}
