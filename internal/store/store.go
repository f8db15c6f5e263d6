// Package store persists alerts and benchmark snapshots. Two backends are
// provided: SQLite for single-node use and Postgres for shared deployments.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cargoflow/partner-pulse/internal/model"
)

// AlertRecord is the persisted form of a prioritized alert. One row exists
// per (partner_id, sku, alert_type, timeframe); re-detection updates the row
// in place and keeps the original detection time.
type AlertRecord struct {
	ID             string              `json:"id"`
	PartnerID      string              `json:"partner_id"`
	SKU            string              `json:"sku"`
	AlertType      model.AlertType     `json:"alert_type"`
	Severity       model.Severity      `json:"severity"`
	Timeframe      model.Timeframe     `json:"timeframe"`
	Message        string              `json:"message"`
	BenchmarkValue string              `json:"benchmark_value"`
	CurrentValue   string              `json:"current_value"`
	PctChange      float64             `json:"pct_change"`
	CustomerSize   model.CustomerSize  `json:"customer_size"`
	ChurnRisk      float64             `json:"churn_risk"`
	RevenueAtRisk  float64             `json:"revenue_at_risk"`
	PriorityScore  float64             `json:"priority_score"`
	Resolved       bool                `json:"resolved"`
	DetectedAt     time.Time           `json:"detected_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Key returns the upsert identity of the record.
func (r AlertRecord) Key() string {
	return r.PartnerID + "|" + r.SKU + "|" + string(r.AlertType) + "|" + string(r.Timeframe)
}

// NewAlertRecord converts a prioritized alert into its persisted form with a
// fresh id. The scored severity is what gets stored.
func NewAlertRecord(a model.PrioritizedAlert) AlertRecord {
	return AlertRecord{
		ID:             uuid.New().String(),
		PartnerID:      a.PartnerID,
		SKU:            a.SKU,
		AlertType:      a.Type,
		Severity:       a.ScoredSeverity,
		Timeframe:      a.Timeframe,
		Message:        a.Message,
		BenchmarkValue: a.BenchmarkValue,
		CurrentValue:   a.CurrentValue,
		PctChange:      a.PctChange,
		CustomerSize:   a.CustomerSize,
		ChurnRisk:      a.ChurnRisk,
		RevenueAtRisk:  a.RevenueAtRisk,
		PriorityScore:  a.PriorityScore,
		DetectedAt:     a.DetectedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// AlertFilter specifies criteria for listing alerts.
type AlertFilter struct {
	PartnerID  string         `json:"partner_id,omitempty"`
	Severity   model.Severity `json:"severity,omitempty"`
	Unresolved bool           `json:"unresolved,omitempty"`
	Limit      int            `json:"limit,omitempty"`
	Offset     int            `json:"offset,omitempty"`
}

// Store defines the persistence interface for the analytics engine.
type Store interface {
	// Alerts
	UpsertAlerts(ctx context.Context, records []AlertRecord) (int, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]AlertRecord, error)
	ResolveAlert(ctx context.Context, id string) error
	// KnownAlerts maps alert keys to their first detection time, feeding the
	// engine's new-alert handling.
	KnownAlerts(ctx context.Context) (map[string]time.Time, error)

	// Benchmarks
	UpsertBenchmarks(ctx context.Context, benchmarks map[string]model.Benchmark) (int, error)
	LatestBenchmarks(ctx context.Context) (map[string]model.Benchmark, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
