package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertSpec describes a staged bulk upsert: rows are copied into a session
// staging table and merged into Table with INSERT ... ON CONFLICT over
// ConflictKeys. UpdateCols lists exactly what the merge overwrites; columns
// left out keep their stored values, which is how alert rows preserve id and
// detected_at across analysis passes.
type UpsertSpec struct {
	Table        string
	Columns      []string
	ConflictKeys []string
	UpdateCols   []string
}

func (s UpsertSpec) validate() error {
	switch {
	case s.Table == "":
		return eris.New("db: upsert: no table specified")
	case len(s.Columns) == 0:
		return eris.New("db: upsert: no columns specified")
	case len(s.ConflictKeys) == 0:
		return eris.New("db: upsert: no conflict keys specified")
	case len(s.UpdateCols) == 0:
		return eris.New("db: upsert: no update columns specified")
	}
	return nil
}

func (s UpsertSpec) stagingTable() string {
	return "_stage_" + s.Table
}

func (s UpsertSpec) mergeSQL() string {
	cols := identList(s.Columns)
	set := make([]string, len(s.UpdateCols))
	for i, c := range s.UpdateCols {
		set[i] = ident(c) + " = EXCLUDED." + ident(c)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		ident(s.Table), cols, cols,
		ident(s.stagingTable()), identList(s.ConflictKeys), strings.Join(set, ", "),
	)
}

// BulkUpsert merges rows into spec.Table through a temp staging table. COPY
// is far cheaper than row-at-a-time INSERTs for a full analysis pass, and a
// single merge statement keeps the conflict handling in one place. Returns
// the number of rows the merge touched.
func BulkUpsert(ctx context.Context, pool Pool, spec UpsertSpec, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := spec.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx)

	staging := spec.stagingTable()
	create := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		ident(staging), ident(spec.Table),
	)
	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create staging table for %s", spec.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{staging}, spec.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: copy into staging table for %s", spec.Table)
	}

	tag, err := tx.Exec(ctx, spec.mergeSQL())
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge into %s", spec.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func identList(cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = ident(c)
	}
	return strings.Join(parts, ", ")
}
