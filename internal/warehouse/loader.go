package warehouse

import (
	"context"
	"fmt"
)

// Row is a record that can be written to a table; Values follows the
// column order of the table Schema.
type Row interface {
	Values() []any
}

// LoadResult carries load job statistics.
type LoadResult struct {
	JobID      string
	Status     string
	RowsLoaded int64
}

// Loader replaces the complete contents of a table with rows. Either all
// rows become the table contents or the table is left unchanged and an error
// is returned.
type Loader interface {
	Load(ctx context.Context, table string, schema Schema, rows []Row) (LoadResult, error)
}

// RowsOf widens a typed row slice to []Row.
func RowsOf[R Row](rows []R) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

func checkWidth(schema Schema, values []any) error {
	if len(values) != len(schema) {
		return fmt.Errorf("row has %d values, schema has %d columns", len(values), len(schema))
	}
	return nil
}
