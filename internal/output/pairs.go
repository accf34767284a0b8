// Package output provides gene-pair score and run summary formatters.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/chc2go/internal/score"
)

// PairColumns is the header of the pair score table.
var PairColumns = []string{
	"interaction",
	"distance",
	"category",
	"gene_a",
	"gene_b",
	"gene_a_id",
	"gene_b_id",
	"similarity",
}

// IDResolver maps a gene symbol to its annotation database object ID.
// *goa.Associations implements it.
type IDResolver interface {
	ObjectID(symbol string) (string, bool)
}

// PairWriter writes gene-pair scores in tab-delimited format.
type PairWriter struct {
	w   *bufio.Writer
	ids IDResolver
	row []string
}

// NewPairWriter creates a new tab-delimited pair writer. Genes without a
// known object ID, or all genes when ids is nil, get "-" in the ID columns.
func NewPairWriter(w io.Writer, ids IDResolver) *PairWriter {
	return &PairWriter{
		w:   bufio.NewWriter(w),
		ids: ids,
		row: make([]string, len(PairColumns)),
	}
}

// WriteHeader writes the header line.
func (pw *PairWriter) WriteHeader() error {
	_, err := pw.w.WriteString(strings.Join(PairColumns, "\t") + "\n")
	return err
}

// Write writes a single pair score. Similarity is printed with 4 decimals.
func (pw *PairWriter) Write(p score.PairScore) error {
	rec := p.Interaction
	pw.row[0] = rec.Key()
	pw.row[1] = strconv.FormatInt(rec.Distance, 10)
	pw.row[2] = rec.Category.String()
	pw.row[3] = p.GeneA
	pw.row[4] = p.GeneB
	pw.row[5] = pw.objectID(p.GeneA)
	pw.row[6] = pw.objectID(p.GeneB)
	pw.row[7] = strconv.FormatFloat(p.Similarity, 'f', 4, 64)

	_, err := pw.w.WriteString(strings.Join(pw.row, "\t") + "\n")
	return err
}

// WriteAll writes every pair in order.
func (pw *PairWriter) WriteAll(pairs []score.PairScore) error {
	for _, p := range pairs {
		if err := pw.Write(p); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PairWriter) objectID(symbol string) string {
	if pw.ids == nil {
		return "-"
	}
	if id, ok := pw.ids.ObjectID(symbol); ok {
		return id
	}
	return "-"
}

// Flush flushes any buffered data to the underlying writer.
func (pw *PairWriter) Flush() error {
	return pw.w.Flush()
}
