package repository

import (
	"context"
	"errors"

	"github.com/VlastikSap/product-sets-integration/internal/model"
)

// ErrNotFound is returned when a requested set does not exist.
var ErrNotFound = errors.New("not found")

// Store answers the read API queries over the products and set_items tables.
type Store interface {
	// SetsForProduct lists the sets that contain productCode, ordered by name.
	SetsForProduct(ctx context.Context, productCode string) ([]model.SetSummary, error)
	// SetByCode returns the catalog entry of a set or ErrNotFound.
	SetByCode(ctx context.Context, setCode string) (model.SetSummary, error)
	// SetItems lists the members of a set joined with their catalog data.
	SetItems(ctx context.Context, setCode string) ([]model.SetItem, error)
}

// Tables names the two tables the stores read from.
type Tables struct {
	Products string
	SetItems string
}
