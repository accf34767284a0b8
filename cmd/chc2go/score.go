package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/chc2go/internal/chc"
	"github.com/inodb/chc2go/internal/duckdb"
	"github.com/inodb/chc2go/internal/goa"
	"github.com/inodb/chc2go/internal/metrics"
	"github.com/inodb/chc2go/internal/ontology"
	"github.com/inodb/chc2go/internal/output"
	"github.com/inodb/chc2go/internal/score"
	"github.com/inodb/chc2go/internal/semsim"
)

const (
	defaultOBO = "go.obo"
	defaultGAF = "goa_human.gaf.gz"
)

func newScoreCmd(a *app) *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "score <interactions.tsv[.gz]>",
		Short: "Score gene pairs of capture Hi-C interactions by GO similarity",
		Long: `Score every gene pair across the two anchors of each accepted (AA)
interaction by Resnik semantic similarity over the Gene Ontology.

The ontology, the annotations and the interactions are loaded concurrently.
Use '-' to read interactions from stdin.`,
		Example: `  chc2go score interactions.tsv
  chc2go score --obo go.obo --gaf goa_human.gaf.gz -o pairs.tsv interactions.tsv.gz
  chc2go score --best-pair --annotation-db ~/.chc2go/goa.duckdb interactions.tsv`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(cmd, map[string]string{
				"ontology.obo":                "obo",
				"ontology.include-part-of":    "include-part-of",
				"annotation.gaf":              "gaf",
				"annotation.exclude-evidence": "exclude-evidence",
				"annotation.db":               "annotation-db",
				"score.workers":               "workers",
				"score.best-pair":             "best-pair",
				"metrics.textfile":            "metrics-textfile",
			}); err != nil {
				return err
			}
			return runScore(a, args[0], outputFile)
		},
	}

	cmd.Flags().String("obo", "", "GO ontology in OBO format (default <data-dir>/go.obo)")
	cmd.Flags().Bool("include-part-of", false, "follow part_of relationships as parent edges")
	cmd.Flags().String("gaf", "", "GO annotation file (default <data-dir>/goa_human.gaf.gz)")
	cmd.Flags().StringSlice("exclude-evidence", nil, "evidence codes to ignore, e.g. IEA,ND")
	cmd.Flags().String("annotation-db", "", "DuckDB file caching the imported annotations")
	cmd.Flags().Int("workers", 0, "scoring workers (default: number of CPUs)")
	cmd.Flags().Bool("best-pair", false, "report only the highest-scoring gene pair per interaction")
	cmd.Flags().String("metrics-textfile", "", "write Prometheus metrics to this textfile")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")

	return cmd
}

// bindFlags binds flags to config keys when the command runs, so that
// commands sharing a key do not overwrite each other's binding.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// sources holds everything loaded before scoring starts.
type sources struct {
	ont          *ontology.Ontology
	assoc        *goa.Associations
	interactions []*chc.Interaction
	counters     chc.Counters
	// ingested is set when ingestion ran to its own end, successful or
	// not, rather than being cancelled by another loader's failure.
	ingested bool
}

// checkSources fails before any loading starts when an input is missing.
func checkSources(oboPath, gafPath, interactionsPath string) error {
	for _, in := range []struct{ kind, path string }{
		{"ontology", oboPath},
		{"annotation", gafPath},
	} {
		if _, err := os.Stat(in.path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return &ontology.MissingSourceError{Kind: in.kind, Path: in.path, Err: err}
			}
			return fmt.Errorf("stat %s source: %w", in.kind, err)
		}
	}
	if interactionsPath != "-" {
		if _, err := os.Stat(interactionsPath); err != nil {
			return fmt.Errorf("open interaction file: %w", err)
		}
	}
	return nil
}

// loadSources loads the ontology, the annotations and the interactions
// concurrently. The returned sources are never nil, so callers can report
// partial ingestion counters on error.
func loadSources(a *app, m *metrics.Metrics, interactionsPath string) (*sources, error) {
	var src sources
	logger := a.logger

	oboPath := dataPath(viper.GetString("ontology.obo"), defaultOBO)
	gafPath := dataPath(viper.GetString("annotation.gaf"), defaultGAF)
	gafOpts := goa.Options{ExcludeEvidence: configList("annotation.exclude-evidence")}

	if err := checkSources(oboPath, gafPath, interactionsPath); err != nil {
		return &src, err
	}

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		defer m.Stage("ontology")()
		ont, err := ontology.LoadOBO(oboPath, ontology.Options{
			IncludePartOf: viper.GetBool("ontology.include-part-of"),
			Logger:        logger,
		})
		if err != nil {
			return err
		}
		src.ont = ont
		return nil
	})

	g.Go(func() error {
		defer m.Stage("annotations")()
		dbPath := viper.GetString("annotation.db")
		if dbPath == "" {
			assoc, err := goa.LoadGAF(gafPath, gafOpts, logger)
			if err != nil {
				return err
			}
			src.assoc = assoc
			return nil
		}

		store, err := duckdb.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		store.SetLogger(logger)

		assoc, err := store.LoadAssociations(gafPath, gafOpts)
		if err != nil {
			return err
		}
		src.assoc = assoc
		return nil
	})

	g.Go(func() error {
		defer m.Stage("ingest")()
		recs, counters, err := chc.IngestContext(ctx, interactionsPath, logger)
		src.interactions, src.counters = recs, counters
		src.ingested = !errors.Is(err, context.Canceled) && (err == nil || counters.Lines > 0)
		return err
	})

	return &src, g.Wait()
}

func runScore(a *app, interactionsPath, outputFile string) error {
	logger := a.logger
	m := metrics.New()

	src, err := loadSources(a, m, interactionsPath)
	if src.ingested {
		m.ObserveIngest(src.counters)
		output.WriteSummary(a.stderr, src.counters)
	}
	if err != nil {
		return err
	}

	endIndex := m.Stage("index")
	idx, err := semsim.BuildIndex(src.ont, src.assoc, logger)
	if err != nil {
		return err
	}
	ic := semsim.EstimateIC(idx)
	endIndex()
	m.AnnotatedGenes.Set(float64(idx.GeneCount()))
	m.InformativeTerms.Set(float64(ic.Len()))
	output.WriteIndexSummary(a.stderr, idx.Stats())

	engine := semsim.NewEngine(idx, ic)
	scorer := score.NewScorer(engine)
	scorer.SetLogger(logger)

	var out io.Writer = a.stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	endScore := m.Stage("score")
	pw := output.NewPairWriter(out, src.assoc)
	if err := pw.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bestPair := viper.GetBool("score.best-pair")
	results := scorer.ParallelScore(score.Items(src.interactions), viper.GetInt("score.workers"))

	var all []score.PairScore
	scored := 0
	err = score.OrderedCollect(results, func(r score.WorkResult) error {
		scored += len(r.Pairs)
		if bestPair {
			all = append(all, r.Pairs...)
			return nil
		}
		return pw.WriteAll(r.Pairs)
	})
	if err != nil {
		return fmt.Errorf("write pairs: %w", err)
	}
	if bestPair {
		if err := pw.WriteAll(score.BestPairs(all)); err != nil {
			return fmt.Errorf("write pairs: %w", err)
		}
	}
	if err := pw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	endScore()

	hits, misses := engine.CacheStats()
	m.ObserveCache(hits, misses)
	m.GenePairsScored.Add(float64(scored))
	output.WriteScoreSummary(a.stderr, output.ScoreStats{
		Interactions: len(src.interactions),
		Pairs:        scored,
		CacheHits:    hits,
		CacheMisses:  misses,
	})

	if path := viper.GetString("metrics.textfile"); path != "" {
		if err := m.WriteTextfile(path); err != nil {
			return err
		}
		logger.Debug("wrote metrics", zap.String("path", path))
	}
	return nil
}
