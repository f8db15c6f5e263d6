package store

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/cargoflow/partner-pulse/internal/db"
	"github.com/cargoflow/partner-pulse/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS alerts (
	id              TEXT PRIMARY KEY,
	partner_id      TEXT NOT NULL,
	sku             TEXT NOT NULL DEFAULT '',
	alert_type      TEXT NOT NULL,
	severity        TEXT NOT NULL,
	timeframe       TEXT NOT NULL,
	message         TEXT NOT NULL,
	benchmark_value TEXT NOT NULL DEFAULT '',
	current_value   TEXT NOT NULL DEFAULT '',
	pct_change      DOUBLE PRECISION NOT NULL DEFAULT 0,
	customer_size   TEXT NOT NULL DEFAULT '',
	churn_risk      DOUBLE PRECISION NOT NULL DEFAULT 0,
	revenue_at_risk DOUBLE PRECISION NOT NULL DEFAULT 0,
	priority_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
	resolved        BOOLEAN NOT NULL DEFAULT FALSE,
	detected_at     TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_identity
	ON alerts(partner_id, sku, alert_type, timeframe);
CREATE INDEX IF NOT EXISTS idx_alerts_partner ON alerts(partner_id);
CREATE INDEX IF NOT EXISTS idx_alerts_severity ON alerts(severity);
CREATE INDEX IF NOT EXISTS idx_alerts_resolved ON alerts(resolved);

CREATE TABLE IF NOT EXISTS benchmarks (
	partner_id  TEXT NOT NULL,
	metric      TEXT NOT NULL,
	period      TEXT NOT NULL,
	value       DOUBLE PRECISION NOT NULL,
	captured_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (partner_id, metric, period)
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var alertColumns = []string{
	"id", "partner_id", "sku", "alert_type", "severity", "timeframe",
	"message", "benchmark_value", "current_value", "pct_change",
	"customer_size", "churn_risk", "revenue_at_risk", "priority_score",
	"resolved", "detected_at", "updated_at",
}

// UpsertAlerts bulk-upserts one row per alert identity. Conflicts keep the
// stored id and detected_at so an alert's first detection survives refreshes.
func (s *PostgresStore) UpsertAlerts(ctx context.Context, records []AlertRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			r.ID, r.PartnerID, r.SKU, string(r.AlertType), string(r.Severity),
			string(r.Timeframe), r.Message, r.BenchmarkValue, r.CurrentValue,
			r.PctChange, string(r.CustomerSize), r.ChurnRisk, r.RevenueAtRisk,
			r.PriorityScore, false, r.DetectedAt.UTC(), r.UpdatedAt.UTC(),
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertSpec{
		Table:        "alerts",
		Columns:      alertColumns,
		ConflictKeys: []string{"partner_id", "sku", "alert_type", "timeframe"},
		UpdateCols: []string{
			"severity", "message", "benchmark_value", "current_value",
			"pct_change", "customer_size", "churn_risk", "revenue_at_risk",
			"priority_score", "resolved", "updated_at",
		},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert alerts")
	}
	return int(n), nil
}

func (s *PostgresStore) ListAlerts(ctx context.Context, filter AlertFilter) ([]AlertRecord, error) {
	query := `SELECT id, partner_id, sku, alert_type, severity, timeframe, message,
	benchmark_value, current_value, pct_change, customer_size,
	churn_risk, revenue_at_risk, priority_score, resolved, detected_at, updated_at
	FROM alerts WHERE TRUE`
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.PartnerID != "" {
		query += ` AND partner_id = ` + arg(filter.PartnerID)
	}
	if filter.Severity != "" {
		query += ` AND severity = ` + arg(string(filter.Severity))
	}
	if filter.Unresolved {
		query += ` AND resolved = FALSE`
	}
	query += ` ORDER BY priority_score DESC, partner_id, sku, alert_type`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list alerts")
	}
	defer rows.Close()

	var out []AlertRecord
	for rows.Next() {
		var r AlertRecord
		err := rows.Scan(
			&r.ID, &r.PartnerID, &r.SKU, &r.AlertType, &r.Severity, &r.Timeframe,
			&r.Message, &r.BenchmarkValue, &r.CurrentValue, &r.PctChange,
			&r.CustomerSize, &r.ChurnRisk, &r.RevenueAtRisk, &r.PriorityScore,
			&r.Resolved, &r.DetectedAt, &r.UpdatedAt,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan alert")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list alerts iterate")
}

func (s *PostgresStore) ResolveAlert(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE alerts SET resolved = TRUE, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: resolve alert %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("alert not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) KnownAlerts(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT partner_id, sku, alert_type, timeframe, detected_at FROM alerts`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: known alerts")
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var r AlertRecord
		if err := rows.Scan(&r.PartnerID, &r.SKU, &r.AlertType, &r.Timeframe, &r.DetectedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan known alert")
		}
		out[r.Key()] = r.DetectedAt
	}
	return out, eris.Wrap(rows.Err(), "postgres: known alerts iterate")
}

func (s *PostgresStore) UpsertBenchmarks(ctx context.Context, benchmarks map[string]model.Benchmark) (int, error) {
	const query = `
INSERT INTO benchmarks (partner_id, metric, period, value, captured_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (partner_id, metric, period) DO UPDATE SET
	value = EXCLUDED.value,
	captured_at = EXCLUDED.captured_at`

	n := 0
	for partnerID, b := range benchmarks {
		_, err := s.pool.Exec(ctx, query,
			partnerID, b.Metric, string(b.Period), b.Value, b.CapturedAt.UTC(),
		)
		if err != nil {
			return n, eris.Wrapf(err, "postgres: upsert benchmark %s", partnerID)
		}
		n++
	}
	return n, nil
}

func (s *PostgresStore) LatestBenchmarks(ctx context.Context) (map[string]model.Benchmark, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT partner_id, metric, period, value, captured_at FROM benchmarks`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest benchmarks")
	}
	defer rows.Close()

	out := make(map[string]model.Benchmark)
	for rows.Next() {
		var partnerID string
		var b model.Benchmark
		if err := rows.Scan(&partnerID, &b.Metric, &b.Period, &b.Value, &b.CapturedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan benchmark")
		}
		out[partnerID] = b
	}
	return out, eris.Wrap(rows.Err(), "postgres: latest benchmarks iterate")
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
