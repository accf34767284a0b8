// Package metrics defines the Prometheus collectors for a scoring run and
// writes them in node-exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/inodb/chc2go/internal/chc"
)

// Line outcomes for InteractionLines.
const (
	OutcomeAccepted      = "accepted"
	OutcomeMalformed     = "malformed"
	OutcomeParseError    = "parse_error"
	OutcomeOtherCategory = "other_category"
	OutcomeOnlyOneAnchor = "only_one_anchor_has_genes"
	OutcomeNoGenes       = "no_genes"
	OutcomeAI            = "enrichment_ai"
	OutcomeIA            = "enrichment_ia"
	OutcomeII            = "enrichment_ii"
)

// Metrics holds all collectors for one run on a private registry.
type Metrics struct {
	InteractionLines *prometheus.CounterVec
	GenePairsScored  prometheus.Counter
	CacheLookups     *prometheus.CounterVec
	StageDuration    *prometheus.GaugeVec
	AnnotatedGenes   prometheus.Gauge
	InformativeTerms prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		InteractionLines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chc2go_interaction_lines_total",
				Help: "Interaction lines read, by outcome.",
			},
			[]string{"outcome"},
		),
		GenePairsScored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chc2go_gene_pairs_scored_total",
				Help: "Gene pairs scored across all interactions.",
			},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chc2go_similarity_cache_lookups_total",
				Help: "Term-pair similarity cache lookups by result (hit, miss).",
			},
			[]string{"result"},
		),
		StageDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chc2go_stage_duration_seconds",
				Help: "Wall time of each pipeline stage in seconds.",
			},
			[]string{"stage"},
		),
		AnnotatedGenes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chc2go_annotated_genes",
				Help: "Genes with at least one annotation in the index.",
			},
		),
		InformativeTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chc2go_informative_terms",
				Help: "Terms with a defined information content.",
			},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.InteractionLines,
		m.GenePairsScored,
		m.CacheLookups,
		m.StageDuration,
		m.AnnotatedGenes,
		m.InformativeTerms,
	)

	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveIngest records the per-outcome line counts of an ingestion.
// AA lines are reported as accepted.
func (m *Metrics) ObserveIngest(c chc.Counters) {
	add := func(outcome string, n int) {
		m.InteractionLines.WithLabelValues(outcome).Add(float64(n))
	}
	add(OutcomeAccepted, c.Accepted)
	add(OutcomeMalformed, c.Malformed)
	add(OutcomeParseError, c.ParseErrors)
	add(OutcomeOtherCategory, c.OtherCategory)
	add(OutcomeOnlyOneAnchor, c.OnlyOneAnchorHasGenes)
	add(OutcomeNoGenes, c.NoGenes)
	add(OutcomeAI, c.AI)
	add(OutcomeIA, c.IA)
	add(OutcomeII, c.II)
}

// ObserveCache records similarity cache hit and miss totals.
func (m *Metrics) ObserveCache(hits, misses int64) {
	m.CacheLookups.WithLabelValues("hit").Add(float64(hits))
	m.CacheLookups.WithLabelValues("miss").Add(float64(misses))
}

// Stage starts timing a pipeline stage. Call the returned func when it ends.
func (m *Metrics) Stage(name string) func() {
	start := time.Now()
	return func() {
		m.StageDuration.WithLabelValues(name).Set(time.Since(start).Seconds())
	}
}

// WriteTextfile writes all metrics to path for the node-exporter textfile
// collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
