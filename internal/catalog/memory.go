package catalog

import (
	"context"
	"sync"
)

// MemoryCatalog is an in-memory Catalog used in tests and local runs.
// It mirrors the postgres implementation's semantics.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[int64]Product
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{products: make(map[int64]Product)}
}

// SetProduct inserts or replaces a product record. This stands in for the
// external admin tooling that owns the catalog.
func (c *MemoryCatalog) SetProduct(p Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

// SetStock adjusts only the stock level of an existing product.
func (c *MemoryCatalog) SetStock(id int64, stock int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.products[id]; ok {
		p.Stock = stock
		c.products[id] = p
	}
}

func (c *MemoryCatalog) GetProduct(_ context.Context, id int64) (*Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

func (c *MemoryCatalog) GetProducts(_ context.Context, ids []int64) (map[int64]Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make(map[int64]Product, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}
