package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VlastikSap/product-sets-integration/internal/model"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var summaryColumns = []string{
	"p.product_code AS code",
	"COALESCE(p.name, '') AS name",
	"COALESCE(p.url, '') AS url",
	"COALESCE(p.img_url, '') AS img_url",
	"COALESCE(p.short_description, '') AS description",
}

// PostgresStore reads the tables written by the Postgres warehouse loader.
type PostgresStore struct {
	DB     *pgxpool.Pool
	Tables Tables
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool, tables Tables) *PostgresStore {
	return &PostgresStore{DB: pool, Tables: tables}
}

func (s *PostgresStore) SetsForProduct(ctx context.Context, productCode string) ([]model.SetSummary, error) {
	query, args, err := setsForProductQuery(s.Tables, productCode).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sets query: %w", err)
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sets for %s: %w", productCode, err)
	}
	sets, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.SetSummary])
	if err != nil {
		return nil, fmt.Errorf("scan sets for %s: %w", productCode, err)
	}
	return sets, nil
}

func (s *PostgresStore) SetByCode(ctx context.Context, setCode string) (model.SetSummary, error) {
	query, args, err := setByCodeQuery(s.Tables, setCode).ToSql()
	if err != nil {
		return model.SetSummary{}, fmt.Errorf("build set query: %w", err)
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return model.SetSummary{}, fmt.Errorf("query set %s: %w", setCode, err)
	}
	set, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.SetSummary])
	if errors.Is(err, pgx.ErrNoRows) {
		return model.SetSummary{}, ErrNotFound
	}
	if err != nil {
		return model.SetSummary{}, fmt.Errorf("scan set %s: %w", setCode, err)
	}
	return set, nil
}

func (s *PostgresStore) SetItems(ctx context.Context, setCode string) ([]model.SetItem, error) {
	query, args, err := setItemsQuery(s.Tables, setCode).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items of %s: %w", setCode, err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.SetItem])
	if err != nil {
		return nil, fmt.Errorf("scan items of %s: %w", setCode, err)
	}
	return items, nil
}

func setsForProductQuery(t Tables, productCode string) sq.SelectBuilder {
	return psql.Select(summaryColumns...).
		Distinct().
		From(ident(t.Products) + " p").
		Join(ident(t.SetItems) + " si ON si.set_code = p.product_code").
		Where(sq.Eq{"si.item_code": productCode}).
		OrderBy("name", "code")
}

func setByCodeQuery(t Tables, setCode string) sq.SelectBuilder {
	return psql.Select(summaryColumns...).
		From(ident(t.Products) + " p").
		Where(sq.Eq{"p.product_code": setCode}).
		Limit(1)
}

func setItemsQuery(t Tables, setCode string) sq.SelectBuilder {
	return psql.Select(
		"si.item_code AS code",
		"COALESCE(si.amount, 1) AS amount",
		"COALESCE(p.name, '') AS name",
		"COALESCE(p.url, '') AS url",
		"COALESCE(p.img_url, '') AS img_url",
		"COALESCE(p.short_description, '') AS description",
		"COALESCE(p.availability, '') AS availability",
	).
		From(ident(t.SetItems) + " si").
		Join(ident(t.Products) + " p ON si.item_code = p.product_code").
		Where(sq.Eq{"si.set_code": setCode}).
		OrderBy("name", "code")
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
