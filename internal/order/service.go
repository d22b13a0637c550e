// Package order turns a validated cart into an immutable order record and
// governs the legal status transitions on existing orders.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/akarpov/cartcore/internal/cache"
	"github.com/akarpov/cartcore/internal/catalog"
	"github.com/akarpov/cartcore/internal/domain"
	"github.com/akarpov/cartcore/internal/pricing"
	"github.com/akarpov/cartcore/internal/repository"
)

const defaultMaxRetries = 3

type Service struct {
	orders  repository.OrderRepository
	carts   repository.CartRepository
	catalog catalog.Catalog
	cache   cache.ProjectionCache
	logger  zerolog.Logger
	taxRate decimal.Decimal
	retries int
}

func NewService(orders repository.OrderRepository, carts repository.CartRepository, cat catalog.Catalog, c cache.ProjectionCache, logger zerolog.Logger, taxRate decimal.Decimal) *Service {
	return &Service{
		orders:  orders,
		carts:   carts,
		catalog: cat,
		cache:   c,
		logger:  logger,
		taxRate: taxRate,
		retries: defaultMaxRetries,
	}
}

// WithMaxRetries overrides the checkout revalidation retry bound.
func (s *Service) WithMaxRetries(n int) *Service {
	if n > 0 {
		s.retries = n
	}
	return s
}

// CreateOrder is the only path that produces an order. It re-validates
// stock against the live catalog, freezes unit prices at this instant (not
// at cart-insertion time), prices the frozen lines and persists the order
// together with the cart clear in one transaction. A concurrent cart
// mutation during checkout restarts the whole validation.
func (s *Service) CreateOrder(ctx context.Context, ownerID, shippingAddress string, method domain.PaymentMethod) (*domain.Order, error) {
	for attempt := 0; attempt < s.retries; attempt++ {
		cart, err := s.carts.GetCart(ctx, ownerID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, domain.ErrEmptyCart
		}
		if err != nil {
			return nil, err
		}
		if len(cart.Lines) == 0 {
			return nil, domain.ErrEmptyCart
		}

		ids := make([]int64, len(cart.Lines))
		for i, l := range cart.Lines {
			ids[i] = l.ProductID
		}
		products, err := s.catalog.GetProducts(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}

		// Checkout never partially succeeds: collect every offender
		// before failing, so the caller can fix the cart in one pass.
		var offending []int64
		for _, l := range cart.Lines {
			p, ok := products[l.ProductID]
			if !ok || l.Quantity > p.Stock {
				offending = append(offending, l.ProductID)
			}
		}
		if len(offending) > 0 {
			return nil, &domain.StockChangedError{ProductIDs: offending}
		}

		lines := make([]domain.OrderLine, len(cart.Lines))
		priceLines := make([]pricing.Line, len(cart.Lines))
		for i, l := range cart.Lines {
			p := products[l.ProductID]
			lines[i] = domain.OrderLine{
				ProductID: l.ProductID,
				Name:      p.Name,
				Quantity:  l.Quantity,
				UnitPrice: p.Price,
			}
			priceLines[i] = pricing.Line{Quantity: l.Quantity, UnitPrice: p.Price}
		}
		totals := pricing.Calculate(priceLines, s.taxRate)

		now := time.Now()
		order := &domain.Order{
			ID:              uuid.New(),
			OwnerID:         ownerID,
			Lines:           lines,
			ShippingAddress: shippingAddress,
			PaymentMethod:   method,
			Status:          domain.OrderStatusPending,
			PaymentStatus:   domain.PaymentStatusPending,
			Subtotal:        totals.Subtotal,
			Tax:             totals.Tax,
			Total:           totals.Total,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		err = s.orders.CreateOrder(ctx, order, cart.Version)
		if errors.Is(err, repository.ErrVersionConflict) {
			s.logger.Debug().Str("owner_id", ownerID).Int("attempt", attempt+1).Msg("cart changed during checkout, revalidating")
			continue
		}
		if err != nil {
			return nil, err
		}

		s.invalidateCart(ownerID)
		s.logger.Info().Str("order_id", order.ID.String()).Str("owner_id", ownerID).Str("total", order.Total.StringFixed(2)).Msg("order created")
		return order, nil
	}

	return nil, domain.ErrConcurrentModification
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orders.GetOrderByID(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, ownerID string) ([]*domain.Order, error) {
	return s.orders.ListOrdersByOwner(ctx, ownerID)
}

// UpdateStatus applies a partial patch to the two status axes. Only the
// fields present are validated; patching one axis never resets the other.
// The write commits only against the statuses the validation saw, so
// racing patches serialize: the loser re-reads and revalidates against
// the winner's result instead of overwriting it.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, patch domain.StatusPatch) (*domain.Order, error) {
	for attempt := 0; attempt < s.retries; attempt++ {
		order, err := s.orders.GetOrderByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if patch.Status != nil {
			if order.Status.IsTerminal() {
				return nil, domain.ErrOrderFinalized
			}
			if !order.Status.CanTransitionTo(*patch.Status) {
				return nil, &domain.TransitionError{From: order.Status.String(), To: patch.Status.String()}
			}
		}
		if patch.PaymentStatus != nil {
			if !order.PaymentStatus.CanTransitionTo(*patch.PaymentStatus) {
				return nil, &domain.TransitionError{From: order.PaymentStatus.String(), To: patch.PaymentStatus.String()}
			}
		}

		fromStatus, fromPayment := order.Status, order.PaymentStatus
		if patch.Status != nil {
			order.Status = *patch.Status
		}
		if patch.PaymentStatus != nil {
			order.PaymentStatus = *patch.PaymentStatus
		}
		order.UpdatedAt = time.Now()

		payload, err := json.Marshal(map[string]string{
			"order_id":       order.ID.String(),
			"status":         order.Status.String(),
			"payment_status": order.PaymentStatus.String(),
		})
		if err != nil {
			return nil, fmt.Errorf("marshal status payload: %w", err)
		}

		err = s.orders.UpdateOrderStatus(ctx, order, fromStatus, fromPayment, payload)
		if errors.Is(err, repository.ErrVersionConflict) {
			s.logger.Debug().Str("order_id", order.ID.String()).Int("attempt", attempt+1).Msg("order changed during status patch, revalidating")
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info().Str("order_id", order.ID.String()).Str("status", order.Status.String()).Str("payment_status", order.PaymentStatus.String()).Msg("order status updated")
		return order, nil
	}

	return nil, domain.ErrConcurrentModification
}

func (s *Service) invalidateCart(ownerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, ownerID); err != nil {
		s.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("cache invalidate failed")
	}
}
