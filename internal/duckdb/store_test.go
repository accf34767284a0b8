package duckdb

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/chc2go/internal/goa"
	"github.com/inodb/chc2go/internal/ontology"
)

var miniGAF = filepath.Join("..", "goa", "testdata", "mini.gaf")

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NoError(t, s.db.Ping())
	assert.Empty(t, s.path)
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "annotations.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}

func TestImportGAF(t *testing.T) {
	s := openInMemory(t)

	stats, err := s.ImportGAF(miniGAF, goa.Options{})
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Rows, "duplicate line is stored, NOT line is filtered")
	assert.Equal(t, 1, stats.Skipped)

	assoc, err := s.Associations()
	require.NoError(t, err)

	want, err := goa.LoadGAF(miniGAF, goa.Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, want.Genes(), assoc.Genes())
	for _, g := range want.Genes() {
		assert.Equal(t, want.DirectTerms(g), assoc.DirectTerms(g), g)
	}

	id, ok := assoc.ObjectID("GENEA")
	require.True(t, ok)
	assert.Equal(t, "UniProtKB:P00001", id)

	var rows int
	require.NoError(t, s.db.QueryRow("SELECT count(*) FROM go_annotations WHERE symbol = 'GENEA'").Scan(&rows))
	assert.Equal(t, 3, rows)
}

func TestImportGAF_Replaces(t *testing.T) {
	s := openInMemory(t)

	_, err := s.ImportGAF(miniGAF, goa.Options{})
	require.NoError(t, err)
	stats, err := s.ImportGAF(miniGAF, goa.Options{ExcludeEvidence: []string{"IEA"}})
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Rows)

	assoc, err := s.Associations()
	require.NoError(t, err)
	assert.Equal(t, []ontology.TermID{"GO:0000005"}, assoc.DirectTerms("GENEA"))
}

func TestImportGAF_FailureKeepsPreviousImport(t *testing.T) {
	s := openInMemory(t)
	_, err := s.ImportGAF(miniGAF, goa.Options{})
	require.NoError(t, err)

	data, err := os.ReadFile(miniGAF)
	require.NoError(t, err)
	broken := filepath.Join(t.TempDir(), "broken.gaf")
	truncated := "UniProtKB\tP00009\tGENEX\tenables\n"
	require.NoError(t, os.WriteFile(broken, append(data, truncated...), 0644))

	_, err = s.ImportGAF(broken, goa.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected at least 7 columns")

	assoc, err := s.Associations()
	require.NoError(t, err)
	assert.Equal(t, []string{"GENEA", "GENEB", "GENEC", "GENED"}, assoc.Genes())
	assert.Equal(t, 5, assoc.AnnotationCount())

	fp, err := StatFile(miniGAF)
	require.NoError(t, err)
	fresh, err := s.Fresh(fp, goa.Options{})
	require.NoError(t, err)
	assert.True(t, fresh, "fingerprint of the last good import survives")

	// The store stays usable after the rollback.
	stats, err := s.ImportGAF(miniGAF, goa.Options{ExcludeEvidence: []string{"IEA"}})
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Rows)
}

func TestImportGAF_Missing(t *testing.T) {
	s := openInMemory(t)

	_, err := s.ImportGAF("/nonexistent/goa_human.gaf", goa.Options{})
	var missing *ontology.MissingSourceError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "annotation", missing.Kind)
}

func TestFresh(t *testing.T) {
	s := openInMemory(t)
	fp, err := StatFile(miniGAF)
	require.NoError(t, err)

	fresh, err := s.Fresh(fp, goa.Options{})
	require.NoError(t, err)
	assert.False(t, fresh, "nothing imported yet")

	_, err = s.ImportGAF(miniGAF, goa.Options{ExcludeEvidence: []string{"iea", "ND"}})
	require.NoError(t, err)

	fresh, err = s.Fresh(fp, goa.Options{ExcludeEvidence: []string{"nd", "IEA"}})
	require.NoError(t, err)
	assert.True(t, fresh, "evidence filter order and case do not matter")

	fresh, err = s.Fresh(fp, goa.Options{})
	require.NoError(t, err)
	assert.False(t, fresh, "different options")

	changed := fp
	changed.ModTime = fp.ModTime.Add(time.Second)
	fresh, err = s.Fresh(changed, goa.Options{ExcludeEvidence: []string{"IEA", "ND"}})
	require.NoError(t, err)
	assert.False(t, fresh, "file changed")
}

func TestLoadAssociations_UsesCache(t *testing.T) {
	dir := t.TempDir()
	gaf := filepath.Join(dir, "mini.gaf")
	data, err := os.ReadFile(miniGAF)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(gaf, data, 0644))

	s := openInMemory(t)
	assoc, err := s.LoadAssociations(gaf, goa.Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, assoc.GeneCount())

	// Drop rows behind the store's back: a cache hit must not re-import.
	_, err = s.db.Exec("DELETE FROM go_annotations WHERE symbol = 'GENED'")
	require.NoError(t, err)

	assoc, err = s.LoadAssociations(gaf, goa.Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, assoc.GeneCount())

	// Touching the file invalidates the cache.
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(gaf, later, later))
	assoc, err = s.LoadAssociations(gaf, goa.Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, assoc.GeneCount())
}
