package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// EncodeNDJSON renders rows as newline-delimited JSON objects keyed by the
// schema column names.
func EncodeNDJSON(schema Schema, rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, row := range rows {
		values := row.Values()
		if err := checkWidth(schema, values); err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i, err)
		}

		record := make(map[string]any, len(schema))
		for j, f := range schema {
			record[f.Name] = jsonValue(values[j])
		}
		if err := enc.Encode(record); err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

func jsonValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(timestampLayout)
	}
	return v
}

// NDJSONLoader writes rows to W instead of a warehouse. It backs dry runs.
type NDJSONLoader struct {
	W io.Writer

	mu sync.Mutex
}

var _ Loader = (*NDJSONLoader)(nil)

func NewNDJSONLoader(w io.Writer) *NDJSONLoader {
	return &NDJSONLoader{W: w}
}

func (l *NDJSONLoader) Load(ctx context.Context, table string, schema Schema, rows []Row) (LoadResult, error) {
	if err := ctx.Err(); err != nil {
		return LoadResult{}, err
	}

	data, err := EncodeNDJSON(schema, rows)
	if err != nil {
		return LoadResult{}, fmt.Errorf("load %s: %w", table, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.W.Write(data); err != nil {
		return LoadResult{}, fmt.Errorf("write %s: %w", table, err)
	}

	return LoadResult{
		JobID:      "dry-run-" + uuid.NewString(),
		Status:     "DONE",
		RowsLoaded: int64(len(rows)),
	}, nil
}
