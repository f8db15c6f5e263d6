package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cargoflow/partner-pulse/internal/model"
	"github.com/cargoflow/partner-pulse/internal/stats"
)

var (
	statsInput     string
	statsSheet     string
	statsDirection string
	statsSKUs      bool
	statsJSON      bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print partner (or SKU) behavior tables for a dataset file",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := loadDataset(statsInput, statsSheet)
		if err != nil {
			return err
		}

		direction := statsDirection
		if direction == "" {
			direction = cfg.Analysis.Direction
		}
		if direction != "" {
			filtered := records[:0:0]
			for _, r := range records {
				if r.EffectiveDirection() == direction {
					filtered = append(filtered, r)
				}
			}
			records = filtered
		}

		now := time.Now().UTC()
		zap.L().Info("stats computed", zap.Int("records", len(records)))

		if statsSKUs {
			skuStats := stats.BuildSKUStats(records, now)
			if statsJSON {
				return printJSON(skuStats)
			}
			printSKUTable(skuStats)
			return nil
		}

		partnerStats := stats.BuildPartnerStats(records, now)
		if statsJSON {
			return printJSON(partnerStats)
		}
		printPartnerTable(partnerStats)
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPartnerTable(partnerStats []model.PartnerStats) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PARTNER\tDIR\tORDERS\tSKUS\tWH\tAVG/DAY\tVOLAT\tLAST\tCHURN\tACTIVE")
	for _, ps := range partnerStats {
		last := "-"
		if !ps.LastOrderDate.IsZero() {
			last = ps.LastOrderDate.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.2f\t%.2f\t%s\t%.0f\t%t\n",
			ps.PartnerID, ps.Direction, ps.TotalOrders, ps.UniqueSKUs, ps.UniqueWarehouses,
			ps.AvgOrdersPerDay, ps.Volatility, last, ps.ChurnRisk, ps.IsActive)
	}
	w.Flush()
}

func printSKUTable(skuStats []model.SKUStats) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PARTNER\tSKU\tDIR\tORDERS\tAVG/DAY\tFREQ\tLAST\tDAYS AGO")
	for _, ss := range skuStats {
		last := "-"
		if !ss.LastOrderDate.IsZero() {
			last = ss.LastOrderDate.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%.1f\t%s\t%d\n",
			ss.PartnerID, ss.SKU, ss.Direction, ss.TotalOrders,
			ss.AvgOrdersPerDay, ss.OrderFrequencyDays, last, ss.DaysSinceLastOrder)
	}
	w.Flush()
}

func init() {
	statsCmd.Flags().StringVar(&statsInput, "input", "", "dataset file, csv or xlsx (required)")
	statsCmd.Flags().StringVar(&statsSheet, "sheet", "", "xlsx sheet name (default: first sheet)")
	statsCmd.Flags().StringVar(&statsDirection, "direction", "", "restrict to one logistics direction")
	statsCmd.Flags().BoolVar(&statsSKUs, "skus", false, "show per-SKU stats instead of per-partner")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "emit stats as JSON")
	_ = statsCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(statsCmd)
}
