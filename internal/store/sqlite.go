package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/cargoflow/partner-pulse/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	pct_change      REAL NOT NULL DEFAULT 0,
	customer_size   TEXT NOT NULL DEFAULT '',
	churn_risk      REAL NOT NULL DEFAULT 0,
	revenue_at_risk REAL NOT NULL DEFAULT 0,
	priority_score  REAL NOT NULL DEFAULT 0,
	resolved        INTEGER NOT NULL DEFAULT 0,
	detected_at     DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
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
	value       REAL NOT NULL,
	captured_at DATETIME NOT NULL,
	PRIMARY KEY (partner_id, metric, period)
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertAlerts inserts or refreshes one row per alert identity. Re-detected
// alerts keep their original id and detected_at; resolution clears because
// the condition fired again.
func (s *SQLiteStore) UpsertAlerts(ctx context.Context, records []AlertRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	const query = `
INSERT INTO alerts (
	id, partner_id, sku, alert_type, severity, timeframe, message,
	benchmark_value, current_value, pct_change, customer_size,
	churn_risk, revenue_at_risk, priority_score, resolved, detected_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
ON CONFLICT (partner_id, sku, alert_type, timeframe) DO UPDATE SET
	severity = excluded.severity,
	message = excluded.message,
	benchmark_value = excluded.benchmark_value,
	current_value = excluded.current_value,
	pct_change = excluded.pct_change,
	customer_size = excluded.customer_size,
	churn_risk = excluded.churn_risk,
	revenue_at_risk = excluded.revenue_at_risk,
	priority_score = excluded.priority_score,
	resolved = 0,
	updated_at = excluded.updated_at`

	for _, r := range records {
		_, err := s.db.ExecContext(ctx, query,
			r.ID, r.PartnerID, r.SKU, string(r.AlertType), string(r.Severity),
			string(r.Timeframe), r.Message, r.BenchmarkValue, r.CurrentValue,
			r.PctChange, string(r.CustomerSize), r.ChurnRisk, r.RevenueAtRisk,
			r.PriorityScore, r.DetectedAt.UTC(), r.UpdatedAt.UTC(),
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert alert %s", r.Key())
		}
	}
	return len(records), nil
}

func (s *SQLiteStore) ListAlerts(ctx context.Context, filter AlertFilter) ([]AlertRecord, error) {
	query := `SELECT id, partner_id, sku, alert_type, severity, timeframe, message,
	benchmark_value, current_value, pct_change, customer_size,
	churn_risk, revenue_at_risk, priority_score, resolved, detected_at, updated_at
	FROM alerts WHERE 1=1`
	var args []any

	if filter.PartnerID != "" {
		query += ` AND partner_id = ?`
		args = append(args, filter.PartnerID)
	}
	if filter.Severity != "" {
		query += ` AND severity = ?`
		args = append(args, string(filter.Severity))
	}
	if filter.Unresolved {
		query += ` AND resolved = 0`
	}
	query += ` ORDER BY priority_score DESC, partner_id, sku, alert_type`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list alerts")
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
			return nil, eris.Wrap(err, "sqlite: scan alert")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list alerts iterate")
}

func (s *SQLiteStore) ResolveAlert(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET resolved = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: resolve alert %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("alert not found: %s", id)
	}
	return nil
}

func (s *SQLiteStore) KnownAlerts(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT partner_id, sku, alert_type, timeframe, detected_at FROM alerts`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: known alerts")
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var r AlertRecord
		if err := rows.Scan(&r.PartnerID, &r.SKU, &r.AlertType, &r.Timeframe, &r.DetectedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan known alert")
		}
		out[r.Key()] = r.DetectedAt
	}
	return out, eris.Wrap(rows.Err(), "sqlite: known alerts iterate")
}

func (s *SQLiteStore) UpsertBenchmarks(ctx context.Context, benchmarks map[string]model.Benchmark) (int, error) {
	const query = `
INSERT INTO benchmarks (partner_id, metric, period, value, captured_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (partner_id, metric, period) DO UPDATE SET
	value = excluded.value,
	captured_at = excluded.captured_at`

	n := 0
	for partnerID, b := range benchmarks {
		_, err := s.db.ExecContext(ctx, query,
			partnerID, b.Metric, string(b.Period), b.Value, b.CapturedAt.UTC(),
		)
		if err != nil {
			return n, eris.Wrapf(err, "sqlite: upsert benchmark %s", partnerID)
		}
		n++
	}
	return n, nil
}

func (s *SQLiteStore) LatestBenchmarks(ctx context.Context) (map[string]model.Benchmark, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT partner_id, metric, period, value, captured_at FROM benchmarks`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest benchmarks")
	}
	defer rows.Close()

	out := make(map[string]model.Benchmark)
	for rows.Next() {
		var partnerID string
		var b model.Benchmark
		if err := rows.Scan(&partnerID, &b.Metric, &b.Period, &b.Value, &b.CapturedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan benchmark")
		}
		out[partnerID] = b
	}
	return out, eris.Wrap(rows.Err(), "sqlite: latest benchmarks iterate")
}
