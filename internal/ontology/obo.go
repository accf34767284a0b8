package ontology

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Options controls which relations become parent edges.
type Options struct {
	// IncludePartOf adds "relationship: part_of" targets as parents in
	// addition to is_a.
	IncludePartOf bool
	Logger        *zap.Logger
}

// MissingSourceError is returned when an input file cannot be found.
type MissingSourceError struct {
	Kind string // e.g. "ontology"
	Path string
	Err  error
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("missing %s source %s: %v", e.Kind, e.Path, e.Err)
}

func (e *MissingSourceError) Unwrap() error {
	return e.Err
}

// LoadOBO loads an ontology from an OBO 1.2/1.4 file, plain or gzipped.
func LoadOBO(path string, opts Options) (*Ontology, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MissingSourceError{Kind: "ontology", Path: path, Err: err}
		}
		return nil, fmt.Errorf("open OBO file: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var reader io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return ParseOBO(reader, opts)
}

// oboStanza collects the tags of one [Term] stanza.
type oboStanza struct {
	term     Term
	parents  []TermID
	obsolete bool
}

// ParseOBO parses OBO content. Only [Term] stanzas are read; obsolete
// terms are skipped.
func ParseOBO(r io.Reader, opts Options) (*Ontology, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	b := NewBuilder()
	var cur *oboStanza
	obsolete := 0

	flush := func() {
		if cur == nil || cur.term.ID == "" {
			return
		}
		if cur.obsolete {
			obsolete++
			return
		}
		b.AddTerm(cur.term)
		for _, p := range cur.parents {
			b.AddParent(cur.term.ID, p)
		}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '!' {
			continue
		}

		if line[0] == '[' {
			flush()
			cur = nil
			if line == "[Term]" {
				cur = &oboStanza{}
			}
			continue
		}
		if cur == nil {
			continue // header or non-term stanza
		}

		tag, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = stripTrailingComment(strings.TrimSpace(value))

		switch tag {
		case "id":
			cur.term.ID = TermID(value)
		case "name":
			cur.term.Name = value
		case "namespace":
			cur.term.Namespace = value
		case "alt_id":
			cur.term.AltIDs = append(cur.term.AltIDs, TermID(value))
		case "is_a":
			cur.parents = append(cur.parents, TermID(firstWord(value)))
		case "relationship":
			rel, target, ok := strings.Cut(value, " ")
			if ok && rel == "part_of" && opts.IncludePartOf {
				cur.parents = append(cur.parents, TermID(firstWord(target)))
			}
		case "is_obsolete":
			cur.obsolete = value == "true"
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan OBO: %w", err)
	}
	flush()

	o, dropped, err := b.Build()
	if err != nil {
		return nil, err
	}

	logger.Info("parsed ontology",
		zap.Int("terms", o.Len()),
		zap.Int("obsolete_skipped", obsolete),
		zap.Int("dangling_edges", dropped))
	return o, nil
}

// stripTrailingComment removes an OBO "! comment" suffix.
func stripTrailingComment(s string) string {
	if i := strings.Index(s, " ! "); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// firstWord returns s up to the first space, dropping qualifiers such as
// "{source=...}".
func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
