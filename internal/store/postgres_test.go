package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargoflow/partner-pulse/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgres_UpsertAlerts(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_stage_alerts"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_alerts"}, alertColumns).
		WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "alerts" .+ ON CONFLICT \("partner_id", "sku", "alert_type", "timeframe"\) DO UPDATE SET`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := s.UpsertAlerts(context.Background(), []AlertRecord{
		testRecord("ACME", "", model.AlertOrderDecline),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertAlerts_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	n, err := s.UpsertAlerts(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListAlerts_Filter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	detected := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"id", "partner_id", "sku", "alert_type", "severity", "timeframe",
		"message", "benchmark_value", "current_value", "pct_change",
		"customer_size", "churn_risk", "revenue_at_risk", "priority_score",
		"resolved", "detected_at", "updated_at",
	}).AddRow(
		"id-1", "ACME", "", "order_decline", "medium", "30d",
		"30-day order rate dropped", "0.33", "0.10", -70.0,
		"medium", 45.0, 2250.0, 50.0,
		false, detected, detected,
	)

	mock.ExpectQuery(`(?s)SELECT .+ FROM alerts WHERE TRUE AND partner_id = \$1 AND resolved = FALSE ORDER BY priority_score DESC`).
		WithArgs("ACME", 100).
		WillReturnRows(rows)

	out, err := s.ListAlerts(context.Background(), AlertFilter{PartnerID: "ACME", Unresolved: true})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, model.AlertOrderDecline, out[0].AlertType)
	assert.Equal(t, 50.0, out[0].PriorityScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ResolveAlert_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE alerts SET resolved = TRUE`).
		WithArgs(pgxmock.AnyArg(), "missing-id").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.ResolveAlert(context.Background(), "missing-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_KnownAlerts(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	detected := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"partner_id", "sku", "alert_type", "timeframe", "detected_at"}).
		AddRow("ACME", "S1", "sku_churn", "30d", detected)

	mock.ExpectQuery(`SELECT partner_id, sku, alert_type, timeframe, detected_at FROM alerts`).
		WillReturnRows(rows)

	known, err := s.KnownAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, known, 1)
	assert.Equal(t, detected, known["ACME|S1|sku_churn|30d"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertBenchmarks(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`(?s)INSERT INTO benchmarks .+ ON CONFLICT \(partner_id, metric, period\) DO UPDATE SET`).
		WithArgs("ACME", model.MetricOrdersPerDay, "30d", 0.33, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n, err := s.UpsertBenchmarks(context.Background(), map[string]model.Benchmark{
		"ACME": {Metric: model.MetricOrdersPerDay, Period: model.Timeframe30d, Value: 0.33, CapturedAt: time.Now()},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LatestBenchmarks(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	captured := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"partner_id", "metric", "period", "value", "captured_at"}).
		AddRow("ACME", model.MetricOrdersPerDay, "30d", 0.33, captured)

	mock.ExpectQuery(`SELECT partner_id, metric, period, value, captured_at FROM benchmarks`).
		WillReturnRows(rows)

	out, err := s.LatestBenchmarks(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.33, out["ACME"].Value, 1e-9)
	assert.Equal(t, model.Timeframe30d, out["ACME"].Period)
	assert.NoError(t, mock.ExpectationsWereMet())
}
