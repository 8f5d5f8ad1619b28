package repository

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/VlastikSap/product-sets-integration/internal/model"
)

// BigQueryStore runs parameterized queries against the dataset written by
// the BigQuery warehouse loader.
type BigQueryStore struct {
	Client   *bigquery.Client
	Dataset  string
	Location string
	Tables   Tables
}

var _ Store = (*BigQueryStore)(nil)

func NewBigQueryStore(client *bigquery.Client, dataset, location string, tables Tables) *BigQueryStore {
	return &BigQueryStore{Client: client, Dataset: dataset, Location: location, Tables: tables}
}

func (s *BigQueryStore) SetsForProduct(ctx context.Context, productCode string) ([]model.SetSummary, error) {
	sql := fmt.Sprintf(`
		SELECT DISTINCT
			p.product_code AS code,
			IFNULL(p.name, '') AS name,
			IFNULL(p.url, '') AS url,
			IFNULL(p.img_url, '') AS imgUrl,
			IFNULL(p.short_description, '') AS description
		FROM %s si
		JOIN %s p ON si.set_code = p.product_code
		WHERE si.item_code = @productCode
		ORDER BY name, code`,
		s.table(s.Tables.SetItems), s.table(s.Tables.Products))

	sets, err := readAll[model.SetSummary](ctx, s.query(sql, "productCode", productCode))
	if err != nil {
		return nil, fmt.Errorf("query sets for %s: %w", productCode, err)
	}
	return sets, nil
}

func (s *BigQueryStore) SetByCode(ctx context.Context, setCode string) (model.SetSummary, error) {
	sql := fmt.Sprintf(`
		SELECT
			product_code AS code,
			IFNULL(name, '') AS name,
			IFNULL(url, '') AS url,
			IFNULL(img_url, '') AS imgUrl,
			IFNULL(short_description, '') AS description
		FROM %s
		WHERE product_code = @setCode
		LIMIT 1`,
		s.table(s.Tables.Products))

	sets, err := readAll[model.SetSummary](ctx, s.query(sql, "setCode", setCode))
	if err != nil {
		return model.SetSummary{}, fmt.Errorf("query set %s: %w", setCode, err)
	}
	if len(sets) == 0 {
		return model.SetSummary{}, ErrNotFound
	}
	return sets[0], nil
}

func (s *BigQueryStore) SetItems(ctx context.Context, setCode string) ([]model.SetItem, error) {
	sql := fmt.Sprintf(`
		SELECT
			si.item_code AS code,
			IFNULL(si.amount, 1) AS amount,
			IFNULL(p.name, '') AS name,
			IFNULL(p.url, '') AS url,
			IFNULL(p.img_url, '') AS imgUrl,
			IFNULL(p.short_description, '') AS description,
			IFNULL(p.availability, '') AS availability
		FROM %s si
		JOIN %s p ON si.item_code = p.product_code
		WHERE si.set_code = @setCode
		ORDER BY name, code`,
		s.table(s.Tables.SetItems), s.table(s.Tables.Products))

	items, err := readAll[model.SetItem](ctx, s.query(sql, "setCode", setCode))
	if err != nil {
		return nil, fmt.Errorf("query items of %s: %w", setCode, err)
	}
	return items, nil
}

func (s *BigQueryStore) query(sql, param string, value any) *bigquery.Query {
	q := s.Client.Query(sql)
	q.Parameters = []bigquery.QueryParameter{{Name: param, Value: value}}
	if s.Location != "" {
		q.Location = s.Location
	}
	return q
}

func (s *BigQueryStore) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.Client.Project(), s.Dataset, name)
}

func readAll[T any](ctx context.Context, q *bigquery.Query) ([]T, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}

	out := []T{}
	for {
		var row T
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
}
