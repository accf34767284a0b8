package chc

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const scenarioLine = "chr1:100-200;chr1:300-400\t500\tS\tGENEA;GENEB,GENEC\t10:5\tAA\t3.0\t+/-\tchr1:150:+;"

func parseString(t *testing.T, input string) ([]*Interaction, Counters, error) {
	t.Helper()
	p, err := NewParserFromReader(strings.NewReader(input))
	require.NoError(t, err)
	return ReadAll(p)
}

func withField(line string, idx int, value string) string {
	fields := strings.Split(line, "\t")
	fields[idx] = value
	return strings.Join(fields, "\t")
}

func TestParser_ScenarioAccepted(t *testing.T) {
	records, counters, err := parseString(t, scenarioLine+"\n")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, []string{"GENEA"}, rec.GenesA)
	assert.Equal(t, []string{"GENEB", "GENEC"}, rec.GenesB)
	assert.Equal(t, CategorySimple, rec.Category)
	assert.Equal(t, EnrichmentAA, rec.Enrichment)
	assert.Equal(t, int64(500), rec.Distance)
	assert.Equal(t, ReadPairRatio{Simple: 10, Twisted: 5}, rec.ReadPairs)
	assert.InDelta(t, 3.0, rec.LogPValue, 1e-12)
	assert.Equal(t, Locus{Chrom: "chr1", Start: 100, End: 200}, rec.Anchors[0])
	assert.Equal(t, Locus{Chrom: "chr1", Start: 300, End: 400}, rec.Anchors[1])
	assert.Equal(t, "chr1:100-200;chr1:300-400", rec.Key())
	assert.Equal(t, 1, rec.Line)
	assert.Equal(t, 2, rec.PairCount())

	assert.Equal(t, 1, counters.AA)
	assert.Equal(t, 1, counters.Accepted)
}

func TestParser_ScenarioInactiveActive(t *testing.T) {
	records, counters, err := parseString(t, withField(scenarioLine, 5, "IA")+"\n")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 1, counters.IA)
	assert.Equal(t, 0, counters.AA)
	assert.Equal(t, 0, counters.Accepted)
}

func TestParser_FilterCounters(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		counter func(Counters) int
	}{
		{"IA", withField(scenarioLine, 5, "IA"), func(c Counters) int { return c.IA }},
		{"AI", withField(scenarioLine, 5, "AI"), func(c Counters) int { return c.AI }},
		{"II", withField(scenarioLine, 5, "II"), func(c Counters) int { return c.II }},
		{"only first anchor has genes", withField(scenarioLine, 3, "HIC1,MIR212;"), func(c Counters) int { return c.OnlyOneAnchorHasGenes }},
		{"only second anchor has genes", withField(scenarioLine, 3, ";GENEB"), func(c Counters) int { return c.OnlyOneAnchorHasGenes }},
		{"no genes", withField(scenarioLine, 3, ";"), func(c Counters) int { return c.NoGenes }},
		{"blank gene lists", withField(scenarioLine, 3, ",;,"), func(c Counters) int { return c.NoGenes }},
		{"undirected category", withField(scenarioLine, 2, "U"), func(c Counters) int { return c.OtherCategory }},
		{"NA category", withField(scenarioLine, 2, "NA"), func(c Counters) int { return c.OtherCategory }},
		{"URAI category", withField(scenarioLine, 2, "URAI"), func(c Counters) int { return c.OtherCategory }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, counters, err := parseString(t, tt.line+"\n")
			require.NoError(t, err)
			assert.Empty(t, records)
			assert.Equal(t, 1, tt.counter(counters))
			assert.Equal(t, 0, counters.Accepted)
		})
	}
}

func TestParser_AcceptedCategories(t *testing.T) {
	for _, cat := range []string{"S", "T", "URA"} {
		t.Run(cat, func(t *testing.T) {
			records, _, err := parseString(t, withField(scenarioLine, 2, cat)+"\n")
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, cat, records[0].Category.String())
		})
	}
}

func TestParser_MalformedLineContinues(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	short := strings.Join(strings.Split(scenarioLine, "\t")[:7], "\t")
	input := short + "\n" + scenarioLine + "\n"

	p, err := NewParserFromReader(strings.NewReader(input))
	require.NoError(t, err)
	p.SetLogger(zap.New(core))

	records, counters, err := ReadAll(p)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].Line)
	assert.Equal(t, 1, counters.Malformed)

	entries := logs.FilterMessage("skipping malformed interaction line").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(7), entries[0].ContextMap()["fields"])
	assert.Equal(t, int64(1), entries[0].ContextMap()["line"])
}

func TestParser_ParseErrorsSkipped(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		field string
	}{
		{"non-numeric distance", withField(scenarioLine, 1, "far"), "distance"},
		{"negative distance", withField(scenarioLine, 1, "-5"), "distance"},
		{"non-numeric p-value", withField(scenarioLine, 6, "NA"), "log_p_value"},
		{"bad read pairs", withField(scenarioLine, 4, "10-5"), "read_pairs"},
		{"bad locus", withField(scenarioLine, 0, "chr1;chr1:300-400"), "anchors"},
		{"single digest", withField(scenarioLine, 0, "chr1:100-200"), "anchors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			p, err := NewParserFromReader(strings.NewReader(tt.line + "\n" + scenarioLine + "\n"))
			require.NoError(t, err)
			p.SetLogger(zap.New(core))

			records, counters, err := ReadAll(p)
			require.NoError(t, err)
			assert.Len(t, records, 1)
			assert.Equal(t, 1, counters.ParseErrors)

			entries := logs.FilterMessage("skipping unparsable interaction line").All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.field, entries[0].ContextMap()["field"])
		})
	}
}

func TestParser_UnparsableLineNotCountedAsEnrichment(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"AA with bad locus", withField(scenarioLine, 0, "chr1;chr1:300-400")},
		{"AA with bad read pairs", withField(scenarioLine, 4, "ten:5")},
		{"AA with bad p-value", withField(scenarioLine, 6, "NA")},
		{"IA with bad locus", withField(withField(scenarioLine, 5, "IA"), 0, "chr1:1-2;chrX")},
		{"no genes with bad read pairs", withField(withField(scenarioLine, 3, ";"), 4, "1:")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, counters, err := parseString(t, tt.line+"\n")
			require.NoError(t, err)
			assert.Empty(t, records)
			assert.Equal(t, Counters{Lines: 1, ParseErrors: 1}, counters)
		})
	}
}

func TestReadAllContext_Cancelled(t *testing.T) {
	p, err := NewParserFromReader(strings.NewReader(scenarioLine + "\n" + scenarioLine + "\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, counters, err := ReadAllContext(ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, records)
	assert.Zero(t, counters.Lines)
}

func TestParser_UnrecognizedEnrichmentIsFatal(t *testing.T) {
	input := scenarioLine + "\n" + withField(scenarioLine, 5, "XX") + "\n" + scenarioLine + "\n"
	records, counters, err := parseString(t, input)
	require.Error(t, err)

	var enrichErr *UnrecognizedEnrichmentTypeError
	require.True(t, errors.As(err, &enrichErr))
	assert.Equal(t, 2, enrichErr.Line)
	assert.Equal(t, "XX", enrichErr.Value)
	assert.Len(t, records, 1)
	assert.Equal(t, 1, counters.Accepted)
}

func TestParser_SkipsBlankLinesAndMissingTrailingNewline(t *testing.T) {
	records, counters, err := parseString(t, "\n"+scenarioLine+"\n\r\n"+scenarioLine)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 2, counters.Lines)
}

func TestParser_TestdataFile(t *testing.T) {
	records, counters, err := Ingest(filepath.Join("testdata", "interactions.tsv"), nil)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"SNORD114-4", "SNORD114-6"}, records[0].GenesA)
	assert.Equal(t, []string{"DIO3OS", "DIO3", "MIR1247"}, records[0].GenesB)
	assert.Equal(t, CategoryTwisted, records[1].Category)

	assert.Equal(t, Counters{
		Lines:                 7,
		Accepted:              2,
		OtherCategory:         1,
		OnlyOneAnchorHasGenes: 1,
		AA:                    2,
		AI:                    1,
		IA:                    1,
		II:                    1,
	}, counters)
}

func TestParser_Gzip(t *testing.T) {
	plain, err := os.ReadFile(filepath.Join("testdata", "interactions.tsv"))
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err = zw.Write(plain)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "interactions.tsv.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	gzRecords, gzCounters, err := Ingest(path, nil)
	require.NoError(t, err)
	records, counters, err := Ingest(filepath.Join("testdata", "interactions.tsv"), nil)
	require.NoError(t, err)

	assert.Equal(t, counters, gzCounters)
	assert.Equal(t, records, gzRecords)
}

func TestParser_Deterministic(t *testing.T) {
	path := filepath.Join("testdata", "interactions.tsv")
	first, c1, err := Ingest(path, nil)
	require.NoError(t, err)
	second, c2, err := Ingest(path, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, c1, c2)
}

func TestIngest_MissingFile(t *testing.T) {
	_, _, err := Ingest("/nonexistent/interactions.tsv", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseLocus(t *testing.T) {
	tests := []struct {
		input   string
		want    Locus
		wantErr bool
	}{
		{"chr14:100952105-100959144", Locus{"chr14", 100952105, 100959144}, false},
		{"HLA-A:10-20", Locus{"HLA-A", 10, 20}, false},
		{"chr1", Locus{}, true},
		{"chr1:100", Locus{}, true},
		{"chr1:a-200", Locus{}, true},
		{":1-2", Locus{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLocus(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}
