package warehouse

import (
	"bytes"
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// BigQueryLoader replaces tables of one dataset through NDJSON load jobs
// with WRITE_TRUNCATE, which BigQuery applies atomically when the job
// completes.
type BigQueryLoader struct {
	Client   *bigquery.Client
	Dataset  string
	Location string
}

var _ Loader = (*BigQueryLoader)(nil)

func NewBigQueryLoader(client *bigquery.Client, dataset, location string) *BigQueryLoader {
	return &BigQueryLoader{Client: client, Dataset: dataset, Location: location}
}

func (l *BigQueryLoader) Load(ctx context.Context, table string, schema Schema, rows []Row) (LoadResult, error) {
	data, err := EncodeNDJSON(schema, rows)
	if err != nil {
		return LoadResult{}, fmt.Errorf("load %s: %w", table, err)
	}

	source := bigquery.NewReaderSource(bytes.NewReader(data))
	source.SourceFormat = bigquery.JSON
	source.Schema = schema.BigQuery()

	loader := l.Client.Dataset(l.Dataset).Table(table).LoaderFrom(source)
	loader.WriteDisposition = bigquery.WriteTruncate
	loader.CreateDisposition = bigquery.CreateIfNeeded
	if l.Location != "" {
		loader.Location = l.Location
	}

	job, err := loader.Run(ctx)
	if err != nil {
		return LoadResult{}, fmt.Errorf("start load job for %s.%s: %w", l.Dataset, table, err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return LoadResult{}, fmt.Errorf("wait for load job %s: %w", job.ID(), err)
	}
	if err := status.Err(); err != nil {
		return LoadResult{}, fmt.Errorf("load job %s failed: %w", job.ID(), err)
	}

	return loadResult(job.ID(), status), nil
}

// loadResult reads the output row count from a finished load job.
func loadResult(jobID string, status *bigquery.JobStatus) LoadResult {
	result := LoadResult{JobID: jobID, Status: "DONE"}
	if status == nil || status.Statistics == nil {
		return result
	}
	if stats, ok := status.Statistics.Details.(*bigquery.LoadStatistics); ok {
		result.RowsLoaded = stats.OutputRows
	}
	return result
}
