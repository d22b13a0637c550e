package cache

import (
	"context"
	"errors"

	"github.com/akarpov/cartcore/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// ProjectionCache holds cart read projections only. The authoritative
// cart always lives in the repository; the cache is invalidated on every
// mutation, never mutated in place.
type ProjectionCache interface {
	Get(ctx context.Context, ownerID string) (*domain.CartView, error)
	Set(ctx context.Context, ownerID string, view *domain.CartView) error
	Delete(ctx context.Context, ownerID string) error
}
