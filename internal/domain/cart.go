package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is the persisted shape of a cart entry. Only the product
// reference and quantity are stored; price, name and stock are joined
// from the catalog on every read.
type CartLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Cart is the authoritative per-owner cart. Version is the optimistic
// concurrency token: every successful mutation increments it, and a
// mutation commits only against the version it read.
type Cart struct {
	OwnerID   string     `json:"owner_id"`
	Lines     []CartLine `json:"lines"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Line returns the index of the line for productID, or -1.
func (c *Cart) Line(productID int64) int {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// CartViewLine is one cart line joined with live catalog data.
type CartViewLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Stock     int             `json:"stock"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartView is the read projection of a cart: lines joined against the
// catalog plus computed totals. It is recomputed on every read and never
// persisted, so displayed prices always reflect the catalog.
type CartView struct {
	OwnerID  string          `json:"owner_id"`
	Lines    []CartViewLine  `json:"lines"`
	Version  int64           `json:"version"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}
