package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alertsSpec() UpsertSpec {
	return UpsertSpec{
		Table:        "alerts",
		Columns:      []string{"id", "partner_id", "churn_risk"},
		ConflictKeys: []string{"partner_id"},
		UpdateCols:   []string{"churn_risk"},
	}
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(nil, nil, alertsSpec(), nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestUpsertSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*UpsertSpec)
		wantErr string
	}{
		{"no table", func(s *UpsertSpec) { s.Table = "" }, "no table specified"},
		{"no columns", func(s *UpsertSpec) { s.Columns = nil }, "no columns specified"},
		{"no conflict keys", func(s *UpsertSpec) { s.ConflictKeys = nil }, "no conflict keys specified"},
		{"no update columns", func(s *UpsertSpec) { s.UpdateCols = nil }, "no update columns specified"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := alertsSpec()
			tt.mutate(&spec)
			_, err := BulkUpsert(nil, nil, spec, [][]any{{"a1", "ACME", 45.0}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUpsertSpec_MergeSQL(t *testing.T) {
	got := alertsSpec().mergeSQL()
	want := `INSERT INTO "alerts" ("id", "partner_id", "churn_risk") ` +
		`SELECT "id", "partner_id", "churn_risk" FROM "_stage_alerts" ` +
		`ON CONFLICT ("partner_id") DO UPDATE SET "churn_risk" = EXCLUDED."churn_risk"`
	assert.Equal(t, want, got)
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_stage_alerts"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_alerts"}, []string{"id", "partner_id", "churn_risk"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "alerts" .+ ON CONFLICT \("partner_id"\) DO UPDATE SET`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, alertsSpec(),
		[][]any{{"a1", "ACME", 45.0}, {"a2", "BETA", 10.0}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentList(t *testing.T) {
	assert.Equal(t, `"id", "partner_id", "value"`, identList([]string{"id", "partner_id", "value"}))
}
