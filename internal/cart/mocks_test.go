package cart

import (
	"context"
	"sync"

	"github.com/akarpov/cartcore/internal/cache"
	"github.com/akarpov/cartcore/internal/domain"
	"github.com/akarpov/cartcore/internal/repository"
)

// mockCartRepo implements repository.CartRepository in memory. Conflicts
// injects that many ErrVersionConflict failures into SaveLines before it
// starts succeeding, to exercise the optimistic retry loop.
type mockCartRepo struct {
	mu        sync.Mutex
	carts     map[string]*domain.Cart
	Conflicts int
	SaveCalls int
	GetErr    error
	SaveErr   error
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[string]*domain.Cart)}
}

func (m *mockCartRepo) GetCart(_ context.Context, ownerID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	cart, ok := m.carts[ownerID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	cp := *cart
	cp.Lines = append([]domain.CartLine(nil), cart.Lines...)
	return &cp, nil
}

func (m *mockCartRepo) EnsureCart(_ context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[ownerID]; !ok {
		m.carts[ownerID] = &domain.Cart{OwnerID: ownerID}
	}
	return nil
}

func (m *mockCartRepo) SaveLines(_ context.Context, ownerID string, lines []domain.CartLine, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if m.Conflicts > 0 {
		m.Conflicts--
		return repository.ErrVersionConflict
	}
	cart, ok := m.carts[ownerID]
	if !ok || cart.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	cart.Lines = append([]domain.CartLine(nil), lines...)
	cart.Version++
	return nil
}

// mockCache implements cache.ProjectionCache. It never hits and records
// invalidations.
type mockCache struct {
	mu      sync.Mutex
	Views   map[string]*domain.CartView
	Deletes int
}

func newMockCache() *mockCache {
	return &mockCache{Views: make(map[string]*domain.CartView)}
}

func (m *mockCache) Get(_ context.Context, ownerID string) (*domain.CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if view, ok := m.Views[ownerID]; ok {
		return view, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *mockCache) Set(_ context.Context, ownerID string, view *domain.CartView) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Views[ownerID] = view
	return nil
}

func (m *mockCache) Delete(_ context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Views, ownerID)
	m.Deletes++
	return nil
}
