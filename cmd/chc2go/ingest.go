package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/chc2go/internal/chc"
	"github.com/inodb/chc2go/internal/metrics"
	"github.com/inodb/chc2go/internal/output"
)

func newIngestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <interactions.tsv[.gz]>",
		Short: "Read an interaction file and report what was accepted",
		Long: `Read a capture Hi-C interaction file without scoring and print how many
lines were accepted and why the others were rejected.`,
		Example: `  chc2go ingest interactions.tsv.gz
  zcat interactions.tsv.gz | chc2go ingest -`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(cmd, map[string]string{"metrics.textfile": "metrics-textfile"}); err != nil {
				return err
			}

			m := metrics.New()
			done := m.Stage("ingest")
			_, counters, err := chc.Ingest(args[0], a.logger)
			done()

			// An aborted ingestion still reports what was read before the
			// failing line.
			if err == nil || counters.Lines > 0 {
				m.ObserveIngest(counters)
				output.WriteSummary(a.stdout, counters)
			}
			if err != nil {
				return err
			}

			if path := viper.GetString("metrics.textfile"); path != "" {
				return m.WriteTextfile(path)
			}
			return nil
		},
	}

	cmd.Flags().String("metrics-textfile", "", "write Prometheus metrics to this textfile")
	return cmd
}
