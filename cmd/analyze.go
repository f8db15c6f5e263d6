package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cargoflow/partner-pulse/internal/alerts"
	"github.com/cargoflow/partner-pulse/internal/dataset"
	"github.com/cargoflow/partner-pulse/internal/engine"
	"github.com/cargoflow/partner-pulse/internal/model"
)

var (
	analyzeInput       string
	analyzeSheet       string
	analyzeBenchmarks  string
	analyzeDirection   string
	analyzeSeverities  []string
	analyzeMinPriority float64
	analyzeOnlyNew     bool
	analyzeJSON        bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a full anomaly analysis pass over a dataset file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		records, err := loadDataset(analyzeInput, analyzeSheet)
		if err != nil {
			return err
		}

		var benchmarks map[string]model.Benchmark
		if analyzeBenchmarks != "" {
			benchmarks, err = dataset.LoadBenchmarksFile(analyzeBenchmarks)
			if err != nil {
				return err
			}
		}

		direction := analyzeDirection
		if direction == "" {
			direction = cfg.Analysis.Direction
		}

		eng := engine.New(nil)
		result, err := eng.Analyze(ctx, records, engine.Options{
			Direction:     direction,
			Benchmarks:    benchmarks,
			AvgOrderValue: cfg.Analysis.AvgOrderValue,
			Concurrency:   cfg.Analysis.Concurrency,
		})
		if err != nil {
			return eris.Wrap(err, "analysis pass")
		}

		if filter := analyzeFilter(); filter != nil {
			result.Prioritized = filter.Apply(result.Prioritized)
			result.Groups = alerts.Group(result.Prioritized)
		}

		zap.L().Info("analysis complete",
			zap.Int("records", len(records)),
			zap.Int("partners", len(result.PartnerStats)),
			zap.Int("alerts", len(result.Prioritized)),
			zap.Int("groups", len(result.Groups)),
		)

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		printReport(os.Stdout, result)
		return nil
	},
}

// analyzeFilter builds the display filter from flags; nil means unfiltered.
func analyzeFilter() *alerts.Filter {
	if len(analyzeSeverities) == 0 && analyzeMinPriority <= 0 && !analyzeOnlyNew {
		return nil
	}
	f := alerts.Filter{MinPriority: analyzeMinPriority, OnlyNew: analyzeOnlyNew}
	for _, s := range analyzeSeverities {
		f.Severities = append(f.Severities, model.Severity(s))
	}
	return &f
}

func printReport(w io.Writer, result *engine.Result) {
	p := message.NewPrinter(language.English)

	if len(result.Groups) == 0 {
		fmt.Fprintln(w, "No anomalies detected.")
		return
	}

	for _, group := range result.Groups {
		p.Fprintf(w, "%s / %s: %d alert(s), total priority %.1f\n",
			group.Category, group.Severity, group.Count, group.TotalPriority)
		for _, a := range group.Alerts {
			target := a.PartnerID
			if a.SKU != "" {
				target += " / " + a.SKU
			}
			p.Fprintf(w, "  [%5.1f] %-20s %s\n", a.PriorityScore, target, a.Message)
			p.Fprintf(w, "          revenue at risk %v, churn risk %.0f, size %s",
				currency.NarrowSymbol(currency.USD.Amount(a.RevenueAtRisk)), a.ChurnRisk, a.CustomerSize)
			if a.IsNew {
				fmt.Fprint(w, ", new")
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeInput, "input", "", "dataset file, csv or xlsx (required)")
	analyzeCmd.Flags().StringVar(&analyzeSheet, "sheet", "", "xlsx sheet name (default: first sheet)")
	analyzeCmd.Flags().StringVar(&analyzeBenchmarks, "benchmarks", "", "benchmark snapshot yaml file")
	analyzeCmd.Flags().StringVar(&analyzeDirection, "direction", "", "restrict to one logistics direction")
	analyzeCmd.Flags().StringSliceVar(&analyzeSeverities, "severity", nil, "only show these scored severities")
	analyzeCmd.Flags().Float64Var(&analyzeMinPriority, "min-priority", 0, "only show alerts at or above this priority")
	analyzeCmd.Flags().BoolVar(&analyzeOnlyNew, "only-new", false, "only show alerts first seen this pass")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "emit the full result as JSON")
	_ = analyzeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(analyzeCmd)
}
