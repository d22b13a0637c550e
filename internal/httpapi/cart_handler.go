package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/akarpov/cartcore/internal/domain"
)

// CartService is the slice of the cart store the handlers need.
type CartService interface {
	Get(ctx context.Context, ownerID string) (*domain.CartView, error)
	AddItem(ctx context.Context, ownerID string, productID int64, quantity int) (*domain.CartView, error)
	UpdateItem(ctx context.Context, ownerID string, productID int64, quantity int) (*domain.CartView, error)
	RemoveItem(ctx context.Context, ownerID string, productID int64) (*domain.CartView, error)
	Clear(ctx context.Context, ownerID string) (*domain.CartView, error)
}

type CartHandler struct {
	svc CartService
}

func NewCartHandler(svc CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartLineDTO struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Stock     int    `json:"stock"`
	LineTotal string `json:"line_total"`
}

type CartResponseDTO struct {
	OwnerID  string        `json:"owner_id"`
	Lines    []CartLineDTO `json:"lines"`
	Version  int64         `json:"version"`
	Subtotal string        `json:"subtotal"`
	Tax      string        `json:"tax"`
	Total    string        `json:"total"`
}

// Monetary values go over the wire as fixed-point strings with two
// places, never floats.
func convertCartView(v *domain.CartView) CartResponseDTO {
	dto := CartResponseDTO{
		OwnerID:  v.OwnerID,
		Lines:    make([]CartLineDTO, 0, len(v.Lines)),
		Version:  v.Version,
		Subtotal: v.Subtotal.StringFixed(2),
		Tax:      v.Tax.StringFixed(2),
		Total:    v.Total.StringFixed(2),
	}
	for _, l := range v.Lines {
		dto.Lines = append(dto.Lines, CartLineDTO{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Stock:     l.Stock,
			LineTotal: l.LineTotal.StringFixed(2),
		})
	}
	return dto
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerIDFromContext(r.Context())
	if ownerID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	view, err := h.svc.Get(r.Context(), ownerID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertCartView(view))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerIDFromContext(r.Context())
	if ownerID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	view, err := h.svc.AddItem(r.Context(), ownerID, req.ProductID, req.Quantity)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertCartView(view))
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerIDFromContext(r.Context())
	if ownerID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	productID, err := parseProductID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	view, err := h.svc.UpdateItem(r.Context(), ownerID, productID, req.Quantity)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertCartView(view))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerIDFromContext(r.Context())
	if ownerID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	productID, err := parseProductID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	view, err := h.svc.RemoveItem(r.Context(), ownerID, productID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertCartView(view))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerIDFromContext(r.Context())
	if ownerID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	view, err := h.svc.Clear(r.Context(), ownerID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertCartView(view))
}

func parseProductID(r *http.Request) (int64, error) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		return 0, strconv.ErrSyntax
	}
	return productID, nil
}
