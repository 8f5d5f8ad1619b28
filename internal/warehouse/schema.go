package warehouse

import (
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/lib/pq"
)

// FieldType is the warehouse column type.
type FieldType string

const (
	String    FieldType = "STRING"
	Integer   FieldType = "INTEGER"
	Float     FieldType = "FLOAT"
	Timestamp FieldType = "TIMESTAMP"
)

// Mode is the column cardinality/nullability.
type Mode string

const (
	Required Mode = "REQUIRED"
	Nullable Mode = "NULLABLE"
	Repeated Mode = "REPEATED"
)

// Field describes one table column.
type Field struct {
	Name string
	Type FieldType
	Mode Mode
}

// Schema is an ordered column list; Row.Values follows the same order.
type Schema []Field

// ProductsSchema is the layout of the products table.
var ProductsSchema = Schema{
	{Name: "product_code", Type: String, Mode: Required},
	{Name: "product_id", Type: Integer, Mode: Nullable},
	{Name: "name", Type: String, Mode: Nullable},
	{Name: "url", Type: String, Mode: Nullable},
	{Name: "img_url", Type: String, Mode: Nullable},
	{Name: "short_description", Type: String, Mode: Nullable},
	{Name: "description_html", Type: String, Mode: Nullable},
	{Name: "visibility", Type: String, Mode: Nullable},
	{Name: "availability", Type: String, Mode: Nullable},
	{Name: "category_ids", Type: String, Mode: Repeated},
	{Name: "raw_xml", Type: String, Mode: Nullable},
	{Name: "updated_at", Type: Timestamp, Mode: Required},
}

// SetItemsSchema is the layout of the set_items table.
var SetItemsSchema = Schema{
	{Name: "set_code", Type: String, Mode: Required},
	{Name: "item_code", Type: String, Mode: Required},
	{Name: "amount", Type: Float, Mode: Nullable},
	{Name: "updated_at", Type: Timestamp, Mode: Required},
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// BigQuery converts the schema for load jobs.
func (s Schema) BigQuery() bigquery.Schema {
	out := make(bigquery.Schema, 0, len(s))
	for _, f := range s {
		out = append(out, &bigquery.FieldSchema{
			Name:     f.Name,
			Type:     bigqueryType(f.Type),
			Required: f.Mode == Required,
			Repeated: f.Mode == Repeated,
		})
	}
	return out
}

func bigqueryType(t FieldType) bigquery.FieldType {
	switch t {
	case Integer:
		return bigquery.IntegerFieldType
	case Float:
		return bigquery.FloatFieldType
	case Timestamp:
		return bigquery.TimestampFieldType
	default:
		return bigquery.StringFieldType
	}
}

// CreateTableSQL renders Postgres DDL for the schema.
func (s Schema) CreateTableSQL(table string) string {
	cols := make([]string, 0, len(s))
	for _, f := range s {
		col := pq.QuoteIdentifier(f.Name) + " " + postgresType(f)
		if f.Mode == Required {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", pq.QuoteIdentifier(table), strings.Join(cols, ", "))
}

func postgresType(f Field) string {
	var base string
	switch f.Type {
	case Integer:
		base = "BIGINT"
	case Float:
		base = "DOUBLE PRECISION"
	case Timestamp:
		base = "TIMESTAMPTZ"
	default:
		base = "TEXT"
	}
	if f.Mode == Repeated {
		return base + "[]"
	}
	return base
}
