package score

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/chc2go/internal/chc"
)

// tableSimilarity looks scores up in a fixed table, 0 otherwise.
type tableSimilarity map[[2]string]float64

func (s tableSimilarity) GeneSimilarity(a, b string) float64 {
	if v, ok := s[[2]string{a, b}]; ok {
		return v
	}
	return s[[2]string{b, a}]
}

func interaction(line int, genesA, genesB []string) *chc.Interaction {
	return &chc.Interaction{
		Anchors: [2]chc.Locus{
			{Chrom: "chr1", Start: int64(line * 1000), End: int64(line*1000 + 100)},
			{Chrom: "chr1", Start: int64(line*1000 + 500), End: int64(line*1000 + 600)},
		},
		Category:   chc.CategorySimple,
		GenesA:     genesA,
		GenesB:     genesB,
		Enrichment: chc.EnrichmentAA,
		Line:       line,
	}
}

func TestScorer_Score(t *testing.T) {
	sim := tableSimilarity{
		{"A", "C"}: 0.5,
		{"B", "C"}: 1.25,
	}
	rec := interaction(1, []string{"A", "B"}, []string{"C", "D"})

	pairs := NewScorer(sim).Score(rec)
	require.Len(t, pairs, 4)

	want := []struct {
		a, b string
		sim  float64
	}{
		{"A", "C", 0.5},
		{"A", "D", 0},
		{"B", "C", 1.25},
		{"B", "D", 0},
	}
	for i, w := range want {
		assert.Same(t, rec, pairs[i].Interaction)
		assert.Equal(t, w.a, pairs[i].GeneA)
		assert.Equal(t, w.b, pairs[i].GeneB)
		assert.Equal(t, w.sim, pairs[i].Similarity)
	}
}

func TestScorer_EmptyAnchor(t *testing.T) {
	s := NewScorer(tableSimilarity{})
	assert.Empty(t, s.Score(interaction(1, nil, []string{"C"})))
	assert.Empty(t, s.Score(interaction(1, []string{"A"}, nil)))
}

func TestScorer_ScoreAll(t *testing.T) {
	recs := []*chc.Interaction{
		interaction(1, []string{"A"}, []string{"B", "C"}),
		interaction(2, []string{"D", "E", "F"}, []string{"G"}),
	}
	pairs := NewScorer(tableSimilarity{}).ScoreAll(recs)
	require.Len(t, pairs, 5)
	assert.Same(t, recs[0], pairs[1].Interaction)
	assert.Same(t, recs[1], pairs[2].Interaction)
}

func TestBestPairs(t *testing.T) {
	sim := tableSimilarity{
		{"A", "C"}: 0.5,
		{"B", "C"}: 1.25,
		{"B", "D"}: 1.25,
		{"E", "F"}: 0.1,
	}
	first := interaction(1, []string{"A", "B"}, []string{"C", "D"})
	second := interaction(2, []string{"E"}, []string{"F"})
	zero := interaction(3, []string{"X"}, []string{"Y", "Z"})

	best := BestPairs(NewScorer(sim).ScoreAll([]*chc.Interaction{first, second, zero}))
	require.Len(t, best, 3)

	assert.Same(t, first, best[0].Interaction)
	assert.Equal(t, "B", best[0].GeneA)
	assert.Equal(t, "C", best[0].GeneB, "tie keeps the earlier pair")
	assert.Equal(t, 1.25, best[0].Similarity)

	assert.Same(t, second, best[1].Interaction)
	assert.Equal(t, 0.1, best[1].Similarity)

	assert.Equal(t, "Y", best[2].GeneB, "all-zero interaction keeps its first pair")
	assert.Empty(t, BestPairs(nil))
}

func makeInteractions(n int) []*chc.Interaction {
	recs := make([]*chc.Interaction, n)
	for i := 0; i < n; i++ {
		recs[i] = interaction(i+1, []string{fmt.Sprintf("A%d", i)}, []string{"B", "C"})
	}
	return recs
}

func TestParallelScore_OrderPreservation(t *testing.T) {
	recs := makeInteractions(200)
	s := NewScorer(tableSimilarity{})

	var collected []int
	var pairs []PairScore
	err := OrderedCollect(s.ParallelScore(Items(recs), 8), func(r WorkResult) error {
		collected = append(collected, r.Seq)
		pairs = append(pairs, r.Pairs...)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, collected, 200)
	for i, seq := range collected {
		assert.Equal(t, i, seq, "result %d out of order", i)
	}
	assert.Equal(t, s.ScoreAll(recs), pairs)
}

func TestParallelScore_SingleWorker(t *testing.T) {
	recs := makeInteractions(50)
	s := NewScorer(tableSimilarity{})

	n := 0
	err := OrderedCollect(s.ParallelScore(Items(recs), 1), func(r WorkResult) error {
		assert.Same(t, recs[r.Seq], r.Interaction)
		n++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}

func TestParallelScore_DefaultWorkers(t *testing.T) {
	recs := makeInteractions(20)
	n := 0
	err := OrderedCollect(NewScorer(tableSimilarity{}).ParallelScore(Items(recs), 0), func(r WorkResult) error {
		n++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestOrderedCollect_Error(t *testing.T) {
	recs := makeInteractions(100)
	errStop := errors.New("stop")

	n := 0
	err := OrderedCollect(NewScorer(tableSimilarity{}).ParallelScore(Items(recs), 4), func(r WorkResult) error {
		n++
		if r.Seq == 10 {
			return errStop
		}
		return nil
	})
	assert.ErrorIs(t, err, errStop)
	assert.Equal(t, 11, n)
}
