package chc

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// numFields is the column count of a diachromatic interaction line:
//
//	anchors  distance  category  genes  simple:twisted  enrichment  logP  strands  tss
const numFields = 9

// progressEvery controls how often ingestion progress is logged.
const progressEvery = 50_000

// Counters records what happened to every line of an interaction file.
type Counters struct {
	Lines                 int // non-blank lines read
	Accepted              int // lines that became an Interaction
	Malformed             int // wrong field count
	ParseErrors           int // unparsable numeric or locus fields
	OtherCategory         int // category not S, T or URA
	OnlyOneAnchorHasGenes int
	NoGenes               int
	AA                    int
	AI                    int
	IA                    int
	II                    int
}

// Parser reads interactions from a capture Hi-C interaction file.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	counters   Counters
	logger     *zap.Logger
}

// NewParser creates a new parser for the given file.
// Supports both plain and gzipped (.tsv.gz) files; "-" reads stdin.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open interaction file: %w", err)
	}

	p, err := NewParserFromReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	p.file = file
	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader.
// Gzip input is detected from the magic bytes.
func NewParserFromReader(r io.Reader) (*Parser, error) {
	br := bufio.NewReader(r)
	p := &Parser{logger: zap.NewNop()}

	// Check for gzip magic number (0x1f, 0x8b)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = br
	}

	return p, nil
}

// SetLogger sets the logger for diagnostics and progress messages.
func (p *Parser) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Next returns the next accepted interaction.
// Filtered, malformed and unparsable lines are counted and skipped.
// Returns nil, nil when there are no more interactions.
func (p *Parser) Next() (*Interaction, error) {
	for {
		line, err := p.readLine()
		if err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read interaction line: %w", err)
		}
		if line == "" {
			continue
		}

		p.counters.Lines++
		if p.counters.Lines%progressEvery == 0 {
			p.logger.Info("processed interactions", zap.Int("lines", p.counters.Lines))
		}

		rec, err := p.parseLine(line)
		if err != nil {
			var malformed *MalformedRecordError
			var parseErr *ParseError
			switch {
			case errors.As(err, &malformed):
				p.counters.Malformed++
				p.logger.Warn("skipping malformed interaction line",
					zap.Int("line", malformed.Line),
					zap.Int("fields", malformed.Fields))
				continue
			case errors.As(err, &parseErr):
				p.counters.ParseErrors++
				p.logger.Warn("skipping unparsable interaction line",
					zap.Int("line", parseErr.Line),
					zap.String("field", parseErr.Field),
					zap.String("reason", parseErr.Message))
				continue
			}
			return nil, err
		}
		if rec == nil {
			continue
		}

		p.counters.Accepted++
		return rec, nil
	}
}

// readLine returns the next line without its terminator. A final line
// without a trailing newline is still returned.
func (p *Parser) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	p.lineNumber++
	return strings.TrimRight(line, "\r\n"), nil
}

// parseLine applies the filters to one line. It returns nil, nil for
// lines that are filtered out.
func (p *Parser) parseLine(line string) (*Interaction, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != numFields {
		return nil, &MalformedRecordError{Line: p.lineNumber, Fields: len(fields)}
	}

	anchors := strings.Split(fields[0], ";")
	if len(anchors) != 2 {
		return nil, p.errorf("anchors", "expected 2 digests, found %d", len(anchors))
	}

	distance, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, p.errorf("distance", "invalid distance: %s", fields[1])
	}
	if distance < 0 {
		return nil, p.errorf("distance", "negative distance: %d", distance)
	}

	// Structural fields are validated before any enrichment counter moves,
	// so an unparsable line is counted once, as a parse error.
	ratio, err := parseReadPairs(fields[4])
	if err != nil {
		return nil, p.errorf("read_pairs", "%v", err)
	}
	var loci [2]Locus
	for i, a := range anchors {
		loci[i], err = ParseLocus(a)
		if err != nil {
			return nil, p.errorf("anchors", "%v", err)
		}
	}
	logP, err := strconv.ParseFloat(fields[6], 64)
	if err != nil {
		return nil, p.errorf("log_p_value", "invalid p-value: %s", fields[6])
	}

	category, ok := ParseCategory(fields[2])
	if !ok {
		p.counters.OtherCategory++
		return nil, nil
	}

	anchorGenes := splitAnchorGenes(fields[3])
	if len(anchorGenes) > 2 {
		return nil, p.errorf("genes", "expected at most 2 gene lists, found %d", len(anchorGenes))
	}
	var genes [2][]string
	withGenes := 0
	for i, a := range anchorGenes {
		genes[i] = splitGenes(a)
		if len(genes[i]) > 0 {
			withGenes++
		}
	}
	if withGenes == 1 {
		p.counters.OnlyOneAnchorHasGenes++
		return nil, nil
	}

	// AA keeps interactions where both digests were enriched; for most
	// capture experiments these are promoter-promoter contacts.
	var enrichment Enrichment
	switch fields[5] {
	case "IA":
		p.counters.IA++
		return nil, nil
	case "AI":
		p.counters.AI++
		return nil, nil
	case "II":
		p.counters.II++
		return nil, nil
	case "AA":
		p.counters.AA++
		enrichment = EnrichmentAA
	default:
		return nil, &UnrecognizedEnrichmentTypeError{Line: p.lineNumber, Value: fields[5]}
	}

	if withGenes == 0 {
		p.counters.NoGenes++
		return nil, nil
	}

	return &Interaction{
		Anchors:    loci,
		Distance:   distance,
		Category:   category,
		GenesA:     genes[0],
		GenesB:     genes[1],
		ReadPairs:  ratio,
		Enrichment: enrichment,
		LogPValue:  logP,
		Line:       p.lineNumber,
	}, nil
}

func (p *Parser) errorf(field, format string, args ...any) error {
	return &ParseError{
		Line:    p.lineNumber,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// splitAnchorGenes splits the gene column into per-anchor lists. Trailing
// empty lists are dropped, so "A,B;" has one list and ";" has none.
func splitAnchorGenes(s string) []string {
	parts := strings.Split(s, ";")
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// splitGenes splits a comma-separated gene list, dropping blanks.
func splitGenes(s string) []string {
	var genes []string
	for _, g := range strings.Split(s, ",") {
		g = strings.TrimSpace(g)
		if g != "" {
			genes = append(genes, g)
		}
	}
	return genes
}

// parseReadPairs parses "simple:twisted".
func parseReadPairs(s string) (ReadPairRatio, error) {
	simple, twisted, ok := strings.Cut(s, ":")
	if !ok {
		return ReadPairRatio{}, fmt.Errorf("invalid read pair ratio %q", s)
	}
	ns, err := strconv.Atoi(simple)
	if err != nil {
		return ReadPairRatio{}, fmt.Errorf("invalid simple read pair count %q", simple)
	}
	nt, err := strconv.Atoi(twisted)
	if err != nil {
		return ReadPairRatio{}, fmt.Errorf("invalid twisted read pair count %q", twisted)
	}
	return ReadPairRatio{Simple: ns, Twisted: nt}, nil
}

// Counters returns the running line counters.
func (p *Parser) Counters() Counters {
	return p.counters
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

// ReadAll drains the parser and returns all accepted interactions with the
// final counters. Counters are returned even when ingestion aborts.
func ReadAll(p *Parser) ([]*Interaction, Counters, error) {
	return ReadAllContext(context.Background(), p)
}

// ReadAllContext is ReadAll with cancellation. It stops with ctx.Err()
// before reading the next record once ctx is done.
func ReadAllContext(ctx context.Context, p *Parser) ([]*Interaction, Counters, error) {
	var records []*Interaction
	for {
		if err := ctx.Err(); err != nil {
			return records, p.Counters(), err
		}
		rec, err := p.Next()
		if err != nil {
			return records, p.Counters(), err
		}
		if rec == nil {
			break
		}
		records = append(records, rec)
	}

	c := p.Counters()
	p.logger.Info("interaction counts",
		zap.Int("AA", c.AA), zap.Int("AI", c.AI), zap.Int("IA", c.IA), zap.Int("II", c.II))
	p.logger.Info("interactions without usable genes",
		zap.Int("no_genes", c.NoGenes),
		zap.Int("only_one_anchor_has_genes", c.OnlyOneAnchorHasGenes))
	p.logger.Info("parsed interactions", zap.Int("accepted", c.Accepted), zap.Int("lines", c.Lines))
	return records, c, nil
}

// Ingest parses the interaction file at path.
func Ingest(path string, logger *zap.Logger) ([]*Interaction, Counters, error) {
	return IngestContext(context.Background(), path, logger)
}

// IngestContext is Ingest with cancellation.
func IngestContext(ctx context.Context, path string, logger *zap.Logger) ([]*Interaction, Counters, error) {
	p, err := NewParser(path)
	if err != nil {
		return nil, Counters{}, err
	}
	defer p.Close()
	if logger != nil {
		p.SetLogger(logger)
	}
	return ReadAllContext(ctx, p)
}
