package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cargoflow/partner-pulse/internal/engine"
	"github.com/cargoflow/partner-pulse/internal/model"
	"github.com/cargoflow/partner-pulse/internal/store"
)

var (
	alertsSyncInput string
	alertsSyncSheet string

	alertsListPartner    string
	alertsListSeverity   string
	alertsListUnresolved bool
	alertsListLimit      int
	alertsListJSON       bool
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Persist, list, and resolve stored alerts",
}

var alertsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Analyze a dataset file and upsert the resulting alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		records, err := loadDataset(alertsSyncInput, alertsSyncSheet)
		if err != nil {
			return err
		}

		known, err := st.KnownAlerts(ctx)
		if err != nil {
			return err
		}
		benchmarks, err := st.LatestBenchmarks(ctx)
		if err != nil {
			return err
		}

		eng := engine.New(nil)
		result, err := eng.Analyze(ctx, records, engine.Options{
			Direction:      cfg.Analysis.Direction,
			Benchmarks:     benchmarks,
			AvgOrderValue:  cfg.Analysis.AvgOrderValue,
			Concurrency:    cfg.Analysis.Concurrency,
			KnownAlerts:    known,
			NewAlertWindow: time.Duration(cfg.Analysis.NewAlertWindowDays) * 24 * time.Hour,
		})
		if err != nil {
			return eris.Wrap(err, "analysis pass")
		}

		alertRecords := make([]store.AlertRecord, 0, len(result.Prioritized))
		for _, a := range result.Prioritized {
			alertRecords = append(alertRecords, store.NewAlertRecord(a))
		}
		n, err := st.UpsertAlerts(ctx, alertRecords)
		if err != nil {
			return err
		}

		zap.L().Info("alerts synced",
			zap.Int("records", len(records)),
			zap.Int("detected", len(result.Prioritized)),
			zap.Int("upserted", n),
		)
		return nil
	},
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		out, err := st.ListAlerts(ctx, store.AlertFilter{
			PartnerID:  alertsListPartner,
			Severity:   model.Severity(alertsListSeverity),
			Unresolved: alertsListUnresolved,
			Limit:      alertsListLimit,
		})
		if err != nil {
			return err
		}

		if alertsListJSON {
			return printJSON(out)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPARTNER\tSKU\tTYPE\tSEV\tPRIORITY\tRESOLVED\tDETECTED")
		for _, r := range out {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.1f\t%t\t%s\n",
				r.ID, r.PartnerID, r.SKU, r.AlertType, r.Severity,
				r.PriorityScore, r.Resolved, r.DetectedAt.UTC().Format("2006-01-02"))
		}
		return w.Flush()
	},
}

var alertsResolveCmd = &cobra.Command{
	Use:   "resolve <alert-id>",
	Short: "Mark a stored alert resolved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		if err := st.ResolveAlert(ctx, args[0]); err != nil {
			return err
		}
		zap.L().Info("alert resolved", zap.String("id", args[0]))
		return nil
	},
}

func init() {
	alertsSyncCmd.Flags().StringVar(&alertsSyncInput, "input", "", "dataset file, csv or xlsx (required)")
	alertsSyncCmd.Flags().StringVar(&alertsSyncSheet, "sheet", "", "xlsx sheet name (default: first sheet)")
	_ = alertsSyncCmd.MarkFlagRequired("input")

	alertsListCmd.Flags().StringVar(&alertsListPartner, "partner", "", "filter by partner id")
	alertsListCmd.Flags().StringVar(&alertsListSeverity, "severity", "", "filter by stored severity")
	alertsListCmd.Flags().BoolVar(&alertsListUnresolved, "unresolved", false, "only unresolved alerts")
	alertsListCmd.Flags().IntVar(&alertsListLimit, "limit", 0, "max rows (default 100)")
	alertsListCmd.Flags().BoolVar(&alertsListJSON, "json", false, "emit alerts as JSON")

	alertsCmd.AddCommand(alertsSyncCmd, alertsListCmd, alertsResolveCmd)
	rootCmd.AddCommand(alertsCmd)
}
