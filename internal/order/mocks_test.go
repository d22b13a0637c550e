package order

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/akarpov/cartcore/internal/cache"
	"github.com/akarpov/cartcore/internal/domain"
	"github.com/akarpov/cartcore/internal/repository"
)

// mockCartRepo serves a fixed cart. Only GetCart is exercised by checkout;
// the cart clear happens inside the order repository's transaction.
type mockCartRepo struct {
	Cart   *domain.Cart
	GetErr error
}

func (m *mockCartRepo) GetCart(_ context.Context, _ string) (*domain.Cart, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	cp := *m.Cart
	cp.Lines = append([]domain.CartLine(nil), m.Cart.Lines...)
	return &cp, nil
}

func (m *mockCartRepo) EnsureCart(_ context.Context, _ string) error { return nil }

func (m *mockCartRepo) SaveLines(_ context.Context, _ string, _ []domain.CartLine, _ int64) error {
	return nil
}

// mockOrderRepo captures writes. Conflicts injects that many
// ErrVersionConflict failures into CreateOrder to simulate the cart
// changing mid-checkout. BeforeStatusWrite runs just before each status
// compare-and-set, letting tests slip a competing change in between the
// service's read and its write.
type mockOrderRepo struct {
	Conflicts         int
	CreateCalls       int
	CreateErr         error
	Created           *domain.Order
	CreatedAtVer      int64
	Orders            map[uuid.UUID]*domain.Order
	UpdatedOrder      *domain.Order
	StatusPayload     json.RawMessage
	UpdateErr         error
	StatusWrites      int
	BeforeStatusWrite func()
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{Orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *mockOrderRepo) CreateOrder(_ context.Context, order *domain.Order, cartVersion int64) error {
	m.CreateCalls++
	if m.Conflicts > 0 {
		m.Conflicts--
		return repository.ErrVersionConflict
	}
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.Created = order
	m.CreatedAtVer = cartVersion
	m.Orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	order, ok := m.Orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *order
	return &cp, nil
}

func (m *mockOrderRepo) ListOrdersByOwner(_ context.Context, ownerID string) ([]*domain.Order, error) {
	var result []*domain.Order
	for _, o := range m.Orders {
		if o.OwnerID == ownerID {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *mockOrderRepo) UpdateOrderStatus(_ context.Context, order *domain.Order, fromStatus domain.OrderStatus, fromPayment domain.PaymentStatus, payload json.RawMessage) error {
	m.StatusWrites++
	if m.BeforeStatusWrite != nil {
		m.BeforeStatusWrite()
	}
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	stored, ok := m.Orders[order.ID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if stored.Status != fromStatus || stored.PaymentStatus != fromPayment {
		return repository.ErrVersionConflict
	}
	m.UpdatedOrder = order
	m.StatusPayload = payload
	m.Orders[order.ID] = order
	return nil
}

type mockCache struct {
	Deletes int
}

func (m *mockCache) Get(_ context.Context, _ string) (*domain.CartView, error) {
	return nil, cache.ErrCacheMiss
}

func (m *mockCache) Set(_ context.Context, _ string, _ *domain.CartView) error { return nil }

func (m *mockCache) Delete(_ context.Context, _ string) error {
	m.Deletes++
	return nil
}
