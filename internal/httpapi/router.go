package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func NewRouter(cartH *CartHandler, ordersH *OrdersHandler, logger zerolog.Logger, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(RequestLogger(logger))
	r.Use(OwnerIDMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartH.GetCart)
			r.Delete("/", cartH.ClearCart)
			r.Post("/items", cartH.AddItem)
			r.Patch("/items/{product_id}", cartH.UpdateItem)
			r.Delete("/items/{product_id}", cartH.RemoveItem)
		})

		r.Post("/checkout", ordersH.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersH.ListOrders)
			r.Get("/{order_id}", ordersH.GetOrder)
			r.Patch("/{order_id}/status", ordersH.UpdateStatus)
		})
	})

	return otelhttp.NewHandler(r, "cartcore")
}
