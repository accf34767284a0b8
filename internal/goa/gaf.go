// Package goa provides Gene Ontology annotation (GAF) file parsing.
package goa

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inodb/chc2go/internal/ontology"
)

// GAF 2.x column indices.
const (
	colDB        = 0
	colObjectID  = 1
	colSymbol    = 2
	colQualifier = 3
	colGOID      = 4
	colEvidence  = 6
	colAspect    = 8

	minColumns = 7
)

// Annotation is one gene-to-term association line.
type Annotation struct {
	DB        string          // e.g. UniProtKB
	ObjectID  string          // e.g. Q9BV73
	Symbol    string          // e.g. KMT2B
	Qualifier string          // e.g. enables, NOT|involved_in
	TermID    ontology.TermID // e.g. GO:0042800
	Evidence  string          // e.g. IDA, IEA
	Aspect    string          // P, F or C
}

// Negated reports whether the qualifier contains NOT.
func (a *Annotation) Negated() bool {
	for _, q := range strings.Split(a.Qualifier, "|") {
		if q == "NOT" {
			return true
		}
	}
	return false
}

// Options filters annotations while parsing.
type Options struct {
	ExcludeEvidence []string // evidence codes to drop, e.g. IEA
	IncludeNegated  bool     // keep NOT annotations
}

func (o Options) keep(a *Annotation) bool {
	if a.Negated() && !o.IncludeNegated {
		return false
	}
	for _, e := range o.ExcludeEvidence {
		if strings.EqualFold(e, a.Evidence) {
			return false
		}
	}
	return true
}

// Parser reads annotations from a GAF file.
type Parser struct {
	scanner    *bufio.Scanner
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	opts       Options
	skipped    int
}

// NewParser opens a GAF file, plain or gzipped.
func NewParser(path string, opts Options) (*Parser, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ontology.MissingSourceError{Kind: "annotation", Path: path, Err: err}
		}
		return nil, fmt.Errorf("open GAF file: %w", err)
	}

	p, err := NewParserFromReader(file, opts)
	if err != nil {
		file.Close()
		return nil, err
	}
	p.file = file
	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader.
func NewParserFromReader(r io.Reader, opts Options) (*Parser, error) {
	br := bufio.NewReader(r)
	p := &Parser{opts: opts}

	var reader io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		reader = p.gzipReader
	}

	p.scanner = bufio.NewScanner(reader)
	p.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return p, nil
}

// Next returns the next annotation that passes the filters.
// Returns nil, nil at end of input.
func (p *Parser) Next() (*Annotation, error) {
	for p.scanner.Scan() {
		p.lineNumber++
		line := p.scanner.Text()
		if line == "" || line[0] == '!' {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < minColumns {
			return nil, fmt.Errorf("GAF line %d: expected at least %d columns, found %d",
				p.lineNumber, minColumns, len(fields))
		}

		a := &Annotation{
			DB:        fields[colDB],
			ObjectID:  fields[colObjectID],
			Symbol:    fields[colSymbol],
			Qualifier: fields[colQualifier],
			TermID:    ontology.TermID(fields[colGOID]),
			Evidence:  fields[colEvidence],
		}
		if len(fields) > colAspect {
			a.Aspect = fields[colAspect]
		}
		if a.Symbol == "" || a.TermID == "" || !p.opts.keep(a) {
			p.skipped++
			continue
		}
		return a, nil
	}
	if err := p.scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GAF: %w", err)
	}
	return nil, nil
}

// Skipped returns the number of annotation lines dropped by the filters.
func (p *Parser) Skipped() int {
	return p.skipped
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}
