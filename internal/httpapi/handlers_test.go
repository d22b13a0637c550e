package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarpov/cartcore/internal/domain"
)

// mockCartService implements CartService with canned responses.
type mockCartService struct {
	View *domain.CartView
	Err  error

	LastProductID int64
	LastQuantity  int
}

func (m *mockCartService) Get(_ context.Context, _ string) (*domain.CartView, error) {
	return m.View, m.Err
}

func (m *mockCartService) AddItem(_ context.Context, _ string, productID int64, quantity int) (*domain.CartView, error) {
	m.LastProductID = productID
	m.LastQuantity = quantity
	return m.View, m.Err
}

func (m *mockCartService) UpdateItem(_ context.Context, _ string, productID int64, quantity int) (*domain.CartView, error) {
	m.LastProductID = productID
	m.LastQuantity = quantity
	return m.View, m.Err
}

func (m *mockCartService) RemoveItem(_ context.Context, _ string, productID int64) (*domain.CartView, error) {
	m.LastProductID = productID
	return m.View, m.Err
}

func (m *mockCartService) Clear(_ context.Context, _ string) (*domain.CartView, error) {
	return m.View, m.Err
}

// mockOrderService implements OrderService with canned responses.
type mockOrderService struct {
	Order  *domain.Order
	Orders []*domain.Order
	Err    error

	LastPatch domain.StatusPatch
}

func (m *mockOrderService) CreateOrder(_ context.Context, _ string, _ string, _ domain.PaymentMethod) (*domain.Order, error) {
	return m.Order, m.Err
}

func (m *mockOrderService) GetOrder(_ context.Context, _ uuid.UUID) (*domain.Order, error) {
	return m.Order, m.Err
}

func (m *mockOrderService) ListOrders(_ context.Context, _ string) ([]*domain.Order, error) {
	return m.Orders, m.Err
}

func (m *mockOrderService) UpdateStatus(_ context.Context, _ uuid.UUID, patch domain.StatusPatch) (*domain.Order, error) {
	m.LastPatch = patch
	return m.Order, m.Err
}

func newTestServer(cartSvc CartService, orderSvc OrderService) http.Handler {
	return NewRouter(NewCartHandler(cartSvc), NewOrdersHandler(orderSvc), zerolog.Nop(), 5*time.Second)
}

func emptyView(ownerID string) *domain.CartView {
	return &domain.CartView{
		OwnerID:  ownerID,
		Lines:    []domain.CartViewLine{},
		Subtotal: decimal.Zero,
		Tax:      decimal.Zero,
		Total:    decimal.Zero,
	}
}

func sampleView(ownerID string) *domain.CartView {
	return &domain.CartView{
		OwnerID: ownerID,
		Lines: []domain.CartViewLine{
			{ProductID: 1, Name: "Keyboard", Quantity: 2, UnitPrice: decimal.RequireFromString("100.00"), Stock: 10, LineTotal: decimal.RequireFromString("200.00")},
		},
		Version:  3,
		Subtotal: decimal.RequireFromString("200.00"),
		Tax:      decimal.RequireFromString("36.00"),
		Total:    decimal.RequireFromString("236.00"),
	}
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:      uuid.New(),
		OwnerID: "user-1",
		Lines: []domain.OrderLine{
			{ProductID: 1, Name: "Keyboard", Quantity: 2, UnitPrice: decimal.RequireFromString("100.00")},
		},
		ShippingAddress: "1 Main St",
		PaymentMethod:   domain.PaymentMethodCard,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		Subtotal:        decimal.RequireFromString("200.00"),
		Tax:             decimal.RequireFromString("36.00"),
		Total:           decimal.RequireFromString("236.00"),
		CreatedAt:       time.Now(),
	}
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body interface{}, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGetCart_Success(t *testing.T) {
	srv := newTestServer(&mockCartService{View: sampleView("user-1")}, &mockOrderService{})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/cart", nil, "user-1")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp CartResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "user-1", resp.OwnerID)
	assert.Equal(t, "236.00", resp.Total)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "100.00", resp.Lines[0].UnitPrice)
	assert.Equal(t, "200.00", resp.Lines[0].LineTotal)
}

func TestGetCart_MissingUser(t *testing.T) {
	srv := newTestServer(&mockCartService{View: sampleView("user-1")}, &mockOrderService{})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/cart", nil, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddItem_Success(t *testing.T) {
	svc := &mockCartService{View: sampleView("user-1")}
	srv := newTestServer(svc, &mockOrderService{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/cart/items",
		AddItemRequestDTO{ProductID: 1, Quantity: 2}, "user-1")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(1), svc.LastProductID)
	assert.Equal(t, 2, svc.LastQuantity)
}

func TestAddItem_QuantityDefaultsToOne(t *testing.T) {
	svc := &mockCartService{View: sampleView("user-1")}
	srv := newTestServer(svc, &mockOrderService{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/cart/items",
		AddItemRequestDTO{ProductID: 1}, "user-1")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, svc.LastQuantity)
}

func TestAddItem_OutOfStockMapsTo409(t *testing.T) {
	svc := &mockCartService{Err: &domain.StockError{ProductID: 3, Requested: 1, Available: 0}}
	srv := newTestServer(svc, &mockOrderService{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/cart/items",
		AddItemRequestDTO{ProductID: 3, Quantity: 1}, "user-1")

	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "out_of_stock", resp.Code)
	assert.Contains(t, resp.Details, "product 3")
}

func TestAddItem_InvalidBody(t *testing.T) {
	srv := newTestServer(&mockCartService{}, &mockOrderService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewReader([]byte("{not json")))
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateItem_InvalidQuantityMapsTo400(t *testing.T) {
	svc := &mockCartService{Err: domain.ErrInvalidQuantity}
	srv := newTestServer(svc, &mockOrderService{})

	rec := doRequest(t, srv, http.MethodPatch, "/api/v1/cart/items/1",
		UpdateQuantityRequestDTO{Quantity: 0}, "user-1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateItem_AbsentLineMapsTo404(t *testing.T) {
	svc := &mockCartService{Err: domain.ErrLineNotFound}
	srv := newTestServer(svc, &mockOrderService{})

	rec := doRequest(t, srv, http.MethodPatch, "/api/v1/cart/items/7",
		UpdateQuantityRequestDTO{Quantity: 2}, "user-1")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, int64(7), svc.LastProductID)
}

func TestUpdateItem_BadProductID(t *testing.T) {
	srv := newTestServer(&mockCartService{}, &mockOrderService{})

	rec := doRequest(t, srv, http.MethodPatch, "/api/v1/cart/items/abc",
		UpdateQuantityRequestDTO{Quantity: 2}, "user-1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveItem_Success(t *testing.T) {
	svc := &mockCartService{View: emptyView("user-1")}
	srv := newTestServer(svc, &mockOrderService{})

	rec := doRequest(t, srv, http.MethodDelete, "/api/v1/cart/items/1", nil, "user-1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), svc.LastProductID)
}

func TestClearCart_Success(t *testing.T) {
	srv := newTestServer(&mockCartService{View: emptyView("user-1")}, &mockOrderService{})

	rec := doRequest(t, srv, http.MethodDelete, "/api/v1/cart", nil, "user-1")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp CartResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Lines)
	assert.Equal(t, "0.00", resp.Total)
}

func TestCheckout_Success(t *testing.T) {
	order := sampleOrder()
	srv := newTestServer(&mockCartService{}, &mockOrderService{Order: order})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/checkout",
		CheckoutRequestDTO{ShippingAddress: "1 Main St", PaymentMethod: "card"}, "user-1")

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp OrderResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, order.ID.String(), resp.ID)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "pending", resp.PaymentStatus)
	assert.Equal(t, "236.00", resp.Total)
}

func TestCheckout_MissingShippingAddress(t *testing.T) {
	srv := newTestServer(&mockCartService{}, &mockOrderService{Order: sampleOrder()})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/checkout",
		CheckoutRequestDTO{PaymentMethod: "card"}, "user-1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckout_UnknownPaymentMethod(t *testing.T) {
	srv := newTestServer(&mockCartService{}, &mockOrderService{Order: sampleOrder()})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/checkout",
		CheckoutRequestDTO{ShippingAddress: "1 Main St", PaymentMethod: "bitcoin"}, "user-1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckout_EmptyCartMapsTo422(t *testing.T) {
	srv := newTestServer(&mockCartService{}, &mockOrderService{Err: domain.ErrEmptyCart})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/checkout",
		CheckoutRequestDTO{ShippingAddress: "1 Main St", PaymentMethod: "card"}, "user-1")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "empty_cart", resp.Code)
}

func TestCheckout_StockChangedMapsTo409(t *testing.T) {
	srv := newTestServer(&mockCartService{}, &mockOrderService{Err: &domain.StockChangedError{ProductIDs: []int64{1, 2}}})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/checkout",
		CheckoutRequestDTO{ShippingAddress: "1 Main St", PaymentMethod: "card"}, "user-1")

	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "stock_changed", resp.Code)
	assert.Contains(t, resp.Details, "[1 2]")
}

func TestGetOrder_BadID(t *testing.T) {
	srv := newTestServer(&mockCartService{}, &mockOrderService{Order: sampleOrder()})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/orders/not-a-uuid", nil, "user-1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOrders_Success(t *testing.T) {
	srv := newTestServer(&mockCartService{}, &mockOrderService{Orders: []*domain.Order{sampleOrder(), sampleOrder()}})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/orders", nil, "user-1")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp []OrderResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestUpdateStatus_Success(t *testing.T) {
	order := sampleOrder()
	order.Status = domain.OrderStatusProcessing
	svc := &mockOrderService{Order: order}
	srv := newTestServer(&mockCartService{}, svc)

	status := "processing"
	rec := doRequest(t, srv, http.MethodPatch, "/api/v1/orders/"+order.ID.String()+"/status",
		StatusPatchDTO{Status: &status}, "user-1")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.LastPatch.Status)
	assert.Equal(t, domain.OrderStatusProcessing, *svc.LastPatch.Status)
	assert.Nil(t, svc.LastPatch.PaymentStatus)
}

func TestUpdateStatus_EmptyPatch(t *testing.T) {
	srv := newTestServer(&mockCartService{}, &mockOrderService{Order: sampleOrder()})

	rec := doRequest(t, srv, http.MethodPatch, "/api/v1/orders/"+uuid.NewString()+"/status",
		StatusPatchDTO{}, "user-1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatus_UnknownStatusValue(t *testing.T) {
	srv := newTestServer(&mockCartService{}, &mockOrderService{Order: sampleOrder()})

	status := "returned"
	rec := doRequest(t, srv, http.MethodPatch, "/api/v1/orders/"+uuid.NewString()+"/status",
		StatusPatchDTO{Status: &status}, "user-1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatus_IllegalTransitionMapsTo422(t *testing.T) {
	srv := newTestServer(&mockCartService{}, &mockOrderService{Err: &domain.TransitionError{From: "pending", To: "delivered"}})

	status := "delivered"
	rec := doRequest(t, srv, http.MethodPatch, "/api/v1/orders/"+uuid.NewString()+"/status",
		StatusPatchDTO{Status: &status}, "user-1")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_transition", resp.Code)
}

func TestUpdateStatus_FinalizedMapsTo409(t *testing.T) {
	srv := newTestServer(&mockCartService{}, &mockOrderService{Err: domain.ErrOrderFinalized})

	status := "pending"
	rec := doRequest(t, srv, http.MethodPatch, "/api/v1/orders/"+uuid.NewString()+"/status",
		StatusPatchDTO{Status: &status}, "user-1")

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&mockCartService{}, &mockOrderService{})

	rec := doRequest(t, srv, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
}
