package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cargoflow/partner-pulse/internal/alerts"
	"github.com/cargoflow/partner-pulse/internal/engine"
	"github.com/cargoflow/partner-pulse/internal/model"
	"github.com/cargoflow/partner-pulse/internal/store"
)

var (
	watchInput string
	watchSheet string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Periodically re-analyze a dataset file, persist alerts, and notify",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		eng := engine.New(alerts.NewCache())
		analyze := func(ctx context.Context) ([]model.PrioritizedAlert, error) {
			// The dataset file is re-read each pass so the watcher picks up
			// fresh drops from the ingestion pipeline.
			records, err := loadDataset(watchInput, watchSheet)
			if err != nil {
				return nil, err
			}
			known, err := st.KnownAlerts(ctx)
			if err != nil {
				return nil, err
			}
			benchmarks, err := st.LatestBenchmarks(ctx)
			if err != nil {
				return nil, err
			}

			result, err := eng.Analyze(ctx, records, engine.Options{
				Direction:      cfg.Analysis.Direction,
				Benchmarks:     benchmarks,
				AvgOrderValue:  cfg.Analysis.AvgOrderValue,
				Concurrency:    cfg.Analysis.Concurrency,
				KnownAlerts:    known,
				NewAlertWindow: time.Duration(cfg.Analysis.NewAlertWindowDays) * 24 * time.Hour,
			})
			if err != nil {
				return nil, err
			}

			alertRecords := make([]store.AlertRecord, 0, len(result.Prioritized))
			for _, a := range result.Prioritized {
				alertRecords = append(alertRecords, store.NewAlertRecord(a))
			}
			if _, err := st.UpsertAlerts(ctx, alertRecords); err != nil {
				return nil, err
			}
			return result.Prioritized, nil
		}

		notifier := alerts.NewNotifier(cfg.Notify)
		watcher := alerts.NewWatcher(analyze, notifier, eng.Cache(), cfg.Watch)

		zap.L().Info("watch started",
			zap.String("input", watchInput),
			zap.Int("interval_secs", cfg.Watch.IntervalSecs),
		)
		watcher.Run(ctx)
		zap.L().Info("watch stopped")
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchInput, "input", "", "dataset file, csv or xlsx (required)")
	watchCmd.Flags().StringVar(&watchSheet, "sheet", "", "xlsx sheet name (default: first sheet)")
	_ = watchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(watchCmd)
}
