// Package cart owns the mutable per-owner cart: atomic line mutations
// validated against live stock, and a read projection joined with the
// catalog on every read.
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/akarpov/cartcore/internal/cache"
	"github.com/akarpov/cartcore/internal/catalog"
	"github.com/akarpov/cartcore/internal/domain"
	"github.com/akarpov/cartcore/internal/pricing"
	"github.com/akarpov/cartcore/internal/repository"
)

// defaultMaxRetries bounds the optimistic-concurrency retry loop before a
// mutation is surfaced as ErrConcurrentModification.
const defaultMaxRetries = 3

type Service struct {
	repo    repository.CartRepository
	catalog catalog.Catalog
	cache   cache.ProjectionCache
	logger  zerolog.Logger
	taxRate decimal.Decimal
	retries int
	sfg     singleflight.Group // Prevents cache stampede
}

func NewService(repo repository.CartRepository, cat catalog.Catalog, c cache.ProjectionCache, logger zerolog.Logger, taxRate decimal.Decimal) *Service {
	return &Service{
		repo:    repo,
		catalog: cat,
		cache:   c,
		logger:  logger,
		taxRate: taxRate,
		retries: defaultMaxRetries,
	}
}

// WithMaxRetries overrides the optimistic-concurrency retry bound.
func (s *Service) WithMaxRetries(n int) *Service {
	if n > 0 {
		s.retries = n
	}
	return s
}

// Get returns the cart joined with live product data. The projection is
// recomputed on every cache miss and may be slightly stale relative to the
// catalog; price is only authoritative at order-creation time.
func (s *Service) Get(ctx context.Context, ownerID string) (*domain.CartView, error) {
	v, err, _ := s.sfg.Do(ownerID, func() (interface{}, error) {
		view, err := s.cache.Get(ctx, ownerID)
		if err == nil {
			return view, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("cache get failed")
		}

		view, err = s.project(ctx, ownerID)
		if err != nil {
			return nil, err
		}

		// Stored before returning: a deferred write could land after a
		// concurrent mutation's invalidation and pin a stale projection
		// until TTL.
		if errSet := s.cache.Set(ctx, ownerID, view); errSet != nil {
			s.logger.Warn().Err(errSet).Str("owner_id", ownerID).Msg("cache set failed")
		}

		return view, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.CartView), nil
}

// AddItem accumulates quantity onto an existing line, clamped to current
// stock. A clamp that reduces the requested increment still succeeds; the
// caller detects it by comparing requested vs returned quantity. Only a
// product with zero stock fails outright.
func (s *Service) AddItem(ctx context.Context, ownerID string, productID int64, quantity int) (*domain.CartView, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	return s.mutate(ctx, ownerID, true, func(cart *domain.Cart) error {
		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return err
		}

		i := cart.Line(productID)
		if product.Stock == 0 {
			if i >= 0 {
				// Stock ran out under an existing line; the line is left
				// untouched and the caller sees the discrepancy in the
				// returned projection.
				return errNoop
			}
			return &domain.StockError{ProductID: productID, Requested: quantity, Available: 0}
		}

		if i >= 0 {
			next := cart.Lines[i].Quantity + quantity
			if next > product.Stock {
				next = product.Stock
			}
			cart.Lines[i].Quantity = next
			return nil
		}

		next := quantity
		if next > product.Stock {
			next = product.Stock
		}
		cart.Lines = append(cart.Lines, domain.CartLine{ProductID: productID, Quantity: next})
		return nil
	})
}

// UpdateItem sets an absolute quantity. Unlike AddItem it never clamps: a
// request exceeding stock is rejected so the caller can react.
func (s *Service) UpdateItem(ctx context.Context, ownerID string, productID int64, quantity int) (*domain.CartView, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	return s.mutate(ctx, ownerID, false, func(cart *domain.Cart) error {
		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if quantity > product.Stock {
			return &domain.StockError{ProductID: productID, Requested: quantity, Available: product.Stock}
		}

		i := cart.Line(productID)
		if i < 0 {
			return domain.ErrLineNotFound
		}
		cart.Lines[i].Quantity = quantity
		return nil
	})
}

// RemoveItem is idempotent: removing an absent line (or from an absent
// cart) is a no-op success, which makes retries safe.
func (s *Service) RemoveItem(ctx context.Context, ownerID string, productID int64) (*domain.CartView, error) {
	return s.mutate(ctx, ownerID, false, func(cart *domain.Cart) error {
		i := cart.Line(productID)
		if i < 0 {
			return errNoop
		}
		cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
		return nil
	})
}

// Clear empties the cart. Checkout does not use this path; it clears the
// cart inside the order transaction.
func (s *Service) Clear(ctx context.Context, ownerID string) (*domain.CartView, error) {
	return s.mutate(ctx, ownerID, false, func(cart *domain.Cart) error {
		if len(cart.Lines) == 0 {
			return errNoop
		}
		cart.Lines = nil
		return nil
	})
}

// errNoop short-circuits a mutation that would not change anything, so no
// version bump or cache invalidation happens.
var errNoop = errors.New("no-op mutation")

// mutate runs the optimistic read-modify-write loop: read (lines, version),
// apply, commit against the version read, retry on conflict up to the
// bound. createIfMissing lazily creates the cart for first mutations.
func (s *Service) mutate(ctx context.Context, ownerID string, createIfMissing bool, apply func(*domain.Cart) error) (*domain.CartView, error) {
	for attempt := 0; attempt < s.retries; attempt++ {
		cart, err := s.repo.GetCart(ctx, ownerID)
		if errors.Is(err, repository.ErrCartNotFound) {
			if !createIfMissing {
				return s.project(ctx, ownerID)
			}
			if errEnsure := s.repo.EnsureCart(ctx, ownerID); errEnsure != nil {
				return nil, errEnsure
			}
			cart, err = s.repo.GetCart(ctx, ownerID)
		}
		if err != nil {
			return nil, err
		}

		if errApply := apply(cart); errApply != nil {
			if errors.Is(errApply, errNoop) {
				return s.project(ctx, ownerID)
			}
			return nil, errApply
		}

		err = s.repo.SaveLines(ctx, ownerID, cart.Lines, cart.Version)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.invalidate(ownerID)
		return s.project(ctx, ownerID)
	}

	return nil, domain.ErrConcurrentModification
}

// project builds the read projection: stored lines joined against the
// live catalog, totals from the pricing calculator. Lines whose product
// vanished from the catalog are omitted from the view.
func (s *Service) project(ctx context.Context, ownerID string) (*domain.CartView, error) {
	cart, err := s.repo.GetCart(ctx, ownerID)
	if errors.Is(err, repository.ErrCartNotFound) {
		cart = &domain.Cart{OwnerID: ownerID}
	} else if err != nil {
		return nil, err
	}

	view := &domain.CartView{
		OwnerID:  ownerID,
		Lines:    []domain.CartViewLine{},
		Version:  cart.Version,
		Subtotal: decimal.Zero,
		Tax:      decimal.Zero,
		Total:    decimal.Zero,
	}
	if len(cart.Lines) == 0 {
		return view, nil
	}

	ids := make([]int64, len(cart.Lines))
	for i, l := range cart.Lines {
		ids[i] = l.ProductID
	}
	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	priceLines := make([]pricing.Line, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		p, ok := products[l.ProductID]
		if !ok {
			continue
		}
		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		view.Lines = append(view.Lines, domain.CartViewLine{
			ProductID: l.ProductID,
			Name:      p.Name,
			Quantity:  l.Quantity,
			UnitPrice: p.Price,
			Stock:     p.Stock,
			LineTotal: lineTotal,
		})
		priceLines = append(priceLines, pricing.Line{Quantity: l.Quantity, UnitPrice: p.Price})
	}

	totals := pricing.Calculate(priceLines, s.taxRate)
	view.Subtotal = totals.Subtotal
	view.Tax = totals.Tax
	view.Total = totals.Total
	return view, nil
}

func (s *Service) invalidate(ownerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, ownerID); err != nil {
		s.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("cache invalidate failed")
	}
}
