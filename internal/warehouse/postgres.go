package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresLoader replaces a table inside a single transaction: create if
// missing, truncate, COPY the rows, commit. A failure at any step rolls back
// and the previous contents stay visible.
type PostgresLoader struct {
	DB *sql.DB
}

var _ Loader = (*PostgresLoader)(nil)

func NewPostgresLoader(db *sql.DB) *PostgresLoader {
	return &PostgresLoader{DB: db}
}

func (l *PostgresLoader) Load(ctx context.Context, table string, schema Schema, rows []Row) (result LoadResult, err error) {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return LoadResult{}, fmt.Errorf("begin load of %s: %w", table, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, schema.CreateTableSQL(table)); err != nil {
		return LoadResult{}, fmt.Errorf("create table %s: %w", table, err)
	}
	if _, err = tx.ExecContext(ctx, "TRUNCATE TABLE "+pq.QuoteIdentifier(table)); err != nil {
		return LoadResult{}, fmt.Errorf("truncate %s: %w", table, err)
	}

	loaded, err := copyRows(ctx, tx, table, schema, rows)
	if err != nil {
		return LoadResult{}, err
	}

	if err = tx.Commit(); err != nil {
		return LoadResult{}, fmt.Errorf("commit load of %s: %w", table, err)
	}

	return LoadResult{JobID: uuid.NewString(), Status: "DONE", RowsLoaded: loaded}, nil
}

func copyRows(ctx context.Context, tx *sql.Tx, table string, schema Schema, rows []Row) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, schema.Names()...))
	if err != nil {
		return 0, fmt.Errorf("prepare copy into %s: %w", table, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		values := row.Values()
		if err := checkWidth(schema, values); err != nil {
			return 0, fmt.Errorf("copy row %d into %s: %w", i, table, err)
		}
		for j, v := range values {
			if s, ok := v.([]string); ok {
				values[j] = pq.Array(s)
			}
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return 0, fmt.Errorf("copy row %d into %s: %w", i, table, err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		return 0, fmt.Errorf("flush copy into %s: %w", table, err)
	}
	return int64(len(rows)), nil
}
