package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// NewBigQuery creates a client using application default credentials. An
// empty project lets the library detect it from the environment.
func NewBigQuery(ctx context.Context, project, location string) (*bigquery.Client, error) {
	if project == "" {
		project = bigquery.DetectProjectID
	}
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	if location != "" {
		client.Location = location
	}
	return client, nil
}
