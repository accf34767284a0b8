// Package score enumerates gene-pair similarity scores for interactions.
package score

import (
	"go.uber.org/zap"

	"github.com/inodb/chc2go/internal/chc"
)

// Similarity scores a pair of genes. *semsim.Engine implements it.
type Similarity interface {
	GeneSimilarity(a, b string) float64
}

// PairScore is one (interaction, geneA, geneB, similarity) tuple.
type PairScore struct {
	Interaction *chc.Interaction
	GeneA       string
	GeneB       string
	Similarity  float64
}

// Scorer scores every gene pair across the two anchors of an interaction.
type Scorer struct {
	sim    Similarity
	logger *zap.Logger
}

// NewScorer creates a scorer backed by the given similarity measure.
func NewScorer(sim Similarity) *Scorer {
	return &Scorer{
		sim:    sim,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for debug messages.
func (s *Scorer) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Score returns one PairScore per (geneA, geneB) in GenesA x GenesB, in
// anchor-list order. No aggregation is performed.
func (s *Scorer) Score(rec *chc.Interaction) []PairScore {
	if len(rec.GenesA) == 0 || len(rec.GenesB) == 0 {
		s.logger.Debug("interaction has an anchor without genes",
			zap.Int("line", rec.Line),
			zap.String("interaction", rec.Key()))
		return nil
	}

	pairs := make([]PairScore, 0, rec.PairCount())
	for _, a := range rec.GenesA {
		for _, b := range rec.GenesB {
			pairs = append(pairs, PairScore{
				Interaction: rec,
				GeneA:       a,
				GeneB:       b,
				Similarity:  s.sim.GeneSimilarity(a, b),
			})
		}
	}
	return pairs
}

// ScoreAll scores a sequence of interactions in order.
func (s *Scorer) ScoreAll(recs []*chc.Interaction) []PairScore {
	var pairs []PairScore
	for _, rec := range recs {
		pairs = append(pairs, s.Score(rec)...)
	}
	return pairs
}

// BestPairs reduces pairs to the highest-scoring pair per interaction.
// Interactions keep their first-seen order and ties keep the earlier pair.
func BestPairs(pairs []PairScore) []PairScore {
	var best []PairScore
	pos := make(map[*chc.Interaction]int)
	for _, p := range pairs {
		i, ok := pos[p.Interaction]
		if !ok {
			pos[p.Interaction] = len(best)
			best = append(best, p)
			continue
		}
		if p.Similarity > best[i].Similarity {
			best[i] = p
		}
	}
	return best
}
