package chc

import "fmt"

// MalformedRecordError reports a line with the wrong number of fields.
// The parser logs it and continues with the next line.
type MalformedRecordError struct {
	Line   int
	Fields int
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("chc malformed line %d: %d fields, expected %d", e.Line, e.Fields, numFields)
}

// ParseError represents an unparsable field with line context.
// The parser logs it and skips the line.
type ParseError struct {
	Line    int
	Field   string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("chc parse error at line %d (%s): %s", e.Line, e.Field, e.Message)
}

// UnrecognizedEnrichmentTypeError is fatal: the enrichment column holds a
// value outside AA/AI/IA/II.
type UnrecognizedEnrichmentTypeError struct {
	Line  int
	Value string
}

func (e *UnrecognizedEnrichmentTypeError) Error() string {
	return fmt.Sprintf("chc line %d: unrecognized enrichment type %q", e.Line, e.Value)
}
