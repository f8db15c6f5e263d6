package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cargoflow/partner-pulse/internal/model"
	"github.com/cargoflow/partner-pulse/internal/stats"
)

var (
	benchmarkInput string
	benchmarkSheet string
	benchmarkOut   string
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Snapshot per-partner 30-day order rates into the benchmark store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		records, err := loadDataset(benchmarkInput, benchmarkSheet)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		w30 := stats.WindowEnding(now, 30)

		byPartner := make(map[string][]model.OrderRecord)
		for _, r := range records {
			if r.PartnerID == "" {
				continue
			}
			byPartner[r.PartnerID] = append(byPartner[r.PartnerID], r)
		}

		benchmarks := make(map[string]model.Benchmark, len(byPartner))
		for partnerID, partnerRecords := range byPartner {
			benchmarks[partnerID] = model.Benchmark{
				Metric:     model.MetricOrdersPerDay,
				Period:     model.Timeframe30d,
				Value:      stats.WindowRate(partnerRecords, w30),
				CapturedAt: now,
			}
		}

		if benchmarkOut != "" {
			raw, err := yaml.Marshal(map[string]any{"benchmarks": benchmarks})
			if err != nil {
				return eris.Wrap(err, "marshal benchmarks")
			}
			if err := os.WriteFile(benchmarkOut, raw, 0o644); err != nil {
				return eris.Wrap(err, "write benchmarks file")
			}
			zap.L().Info("benchmarks written",
				zap.Int("partners", len(benchmarks)),
				zap.String("file", benchmarkOut),
			)
			return nil
		}

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		n, err := st.UpsertBenchmarks(ctx, benchmarks)
		if err != nil {
			return err
		}
		zap.L().Info("benchmarks stored", zap.Int("partners", n))
		return nil
	},
}

func init() {
	benchmarkCmd.Flags().StringVar(&benchmarkInput, "input", "", "dataset file, csv or xlsx (required)")
	benchmarkCmd.Flags().StringVar(&benchmarkSheet, "sheet", "", "xlsx sheet name (default: first sheet)")
	benchmarkCmd.Flags().StringVar(&benchmarkOut, "out", "", "write a yaml snapshot instead of using the store")
	_ = benchmarkCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(benchmarkCmd)
}
