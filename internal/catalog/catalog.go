// Package catalog is the engine's read-only view of product records.
// Price and stock are read here at two distinct points (cart time and
// order time) and must always be fetched live, never cached for a final
// computation. Nothing in this package mutates the catalog.
package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

type Product struct {
	ID    int64
	Name  string
	Price decimal.Decimal
	Stock int
}

type Catalog interface {
	// GetProduct returns the current product record or ErrProductNotFound.
	GetProduct(ctx context.Context, id int64) (*Product, error)

	// GetProducts returns the current records for the given ids. Missing
	// ids are absent from the result, not an error; callers decide how to
	// treat them.
	GetProducts(ctx context.Context, ids []int64) (map[int64]Product, error)
}
