package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/akarpov/cartcore/internal/catalog"
	"github.com/akarpov/cartcore/internal/domain"
	"github.com/akarpov/cartcore/internal/repository"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondDomainError maps the engine's recoverable error taxonomy onto
// HTTP. Every branch carries enough detail for the caller to correct the
// request.
func respondDomainError(w http.ResponseWriter, err error) {
	var stockErr *domain.StockError
	if errors.As(err, &stockErr) {
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "insufficient stock",
			Code:    "out_of_stock",
			Details: fmt.Sprintf("product %d: requested %d, available %d", stockErr.ProductID, stockErr.Requested, stockErr.Available),
		})
		return
	}

	var changedErr *domain.StockChangedError
	if errors.As(err, &changedErr) {
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "stock changed since the cart was assembled",
			Code:    "stock_changed",
			Details: fmt.Sprintf("products: %v", changedErr.ProductIDs),
		})
		return
	}

	var transErr *domain.TransitionError
	if errors.As(err, &transErr) {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "illegal status transition",
			Code:    "invalid_transition",
			Details: fmt.Sprintf("cannot transition from %s to %s", transErr.From, transErr.To),
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at least 1")
	case errors.Is(err, domain.ErrOutOfStock):
		respondError(w, http.StatusConflict, "out_of_stock", "product is out of stock")
	case errors.Is(err, domain.ErrLineNotFound):
		respondError(w, http.StatusNotFound, "line_not_found", "product is not in the cart")
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, domain.ErrEmptyCart):
		respondError(w, http.StatusUnprocessableEntity, "empty_cart", "cart is empty, nothing to checkout")
	case errors.Is(err, domain.ErrStockChanged):
		respondError(w, http.StatusConflict, "stock_changed", "stock changed since the cart was assembled")
	case errors.Is(err, domain.ErrConcurrentModification):
		respondError(w, http.StatusConflict, "concurrent_modification", "cart was modified concurrently, retry the request")
	case errors.Is(err, domain.ErrOrderFinalized):
		respondError(w, http.StatusConflict, "order_finalized", "order is in a terminal status")
	case errors.Is(err, domain.ErrInvalidTransition):
		respondError(w, http.StatusUnprocessableEntity, "invalid_transition", "illegal status transition")
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
	default:
		log.Error().Err(err).Msg("internal error")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
