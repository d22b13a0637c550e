package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/akarpov/cartcore/internal/domain"
)

// OrderService is the slice of the order engine the handlers need.
type OrderService interface {
	CreateOrder(ctx context.Context, ownerID, shippingAddress string, method domain.PaymentMethod) (*domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, ownerID string) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, patch domain.StatusPatch) (*domain.Order, error)
}

type OrdersHandler struct {
	svc OrderService
}

func NewOrdersHandler(svc OrderService) *OrdersHandler {
	return &OrdersHandler{svc: svc}
}

type CheckoutRequestDTO struct {
	ShippingAddress string `json:"shipping_address"`
	PaymentMethod   string `json:"payment_method"`
}

type StatusPatchDTO struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"payment_status"`
}

type OrderLineDTO struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type OrderResponseDTO struct {
	ID              string         `json:"id"`
	OwnerID         string         `json:"owner_id"`
	Lines           []OrderLineDTO `json:"lines"`
	ShippingAddress string         `json:"shipping_address"`
	PaymentMethod   string         `json:"payment_method"`
	Status          string         `json:"status"`
	PaymentStatus   string         `json:"payment_status"`
	Subtotal        string         `json:"subtotal"`
	Tax             string         `json:"tax"`
	Total           string         `json:"total"`
	CreatedAt       string         `json:"created_at"`
}

func convertOrder(o *domain.Order) OrderResponseDTO {
	lines := make([]OrderLineDTO, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineDTO{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
		})
	}

	return OrderResponseDTO{
		ID:              o.ID.String(),
		OwnerID:         o.OwnerID,
		Lines:           lines,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   string(o.PaymentMethod),
		Status:          o.Status.String(),
		PaymentStatus:   o.PaymentStatus.String(),
		Subtotal:        o.Subtotal.StringFixed(2),
		Tax:             o.Tax.StringFixed(2),
		Total:           o.Total.StringFixed(2),
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
	}
}

// POST /api/v1/checkout
func (h *OrdersHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerIDFromContext(r.Context())
	if ownerID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ShippingAddress == "" {
		respondError(w, http.StatusBadRequest, "missing_shipping_address", "shipping_address is required")
		return
	}
	method := domain.PaymentMethod(req.PaymentMethod)
	if !method.IsValid() {
		respondError(w, http.StatusBadRequest, "invalid_payment_method", "unknown payment method")
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), ownerID, req.ShippingAddress, method)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertOrder(order))
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerIDFromContext(r.Context())
	if ownerID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.svc.ListOrders(r.Context(), ownerID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, convertOrder(o))
	}

	respondJSON(w, http.StatusOK, dtos)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a valid uuid")
		return
	}

	order, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}

// PATCH /api/v1/orders/{order_id}/status
//
// Administrative. The patch is partial: only the fields present are
// validated and applied.
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a valid uuid")
		return
	}

	var req StatusPatchDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Status == nil && req.PaymentStatus == nil {
		respondError(w, http.StatusBadRequest, "empty_patch", "at least one of status, payment_status is required")
		return
	}

	var patch domain.StatusPatch
	if req.Status != nil {
		status := domain.OrderStatus(*req.Status)
		if !status.IsValid() {
			respondError(w, http.StatusBadRequest, "invalid_status", "unknown status value")
			return
		}
		patch.Status = &status
	}
	if req.PaymentStatus != nil {
		payment := domain.PaymentStatus(*req.PaymentStatus)
		if !payment.IsValid() {
			respondError(w, http.StatusBadRequest, "invalid_payment_status", "unknown payment_status value")
			return
		}
		patch.PaymentStatus = &payment
	}

	order, err := h.svc.UpdateStatus(r.Context(), orderID, patch)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}
