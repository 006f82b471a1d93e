package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/checkout", h.Checkout)
		r.Post("/pos/transactions", h.POSTransaction)

		r.Get("/orders", h.ListSales)
		r.Get("/orders/{saleId}", h.GetSale)

		r.Get("/inventory/{productId}", h.GetAvailability)
		r.Post("/inventory/adjust", h.AdjustAvailability)

		r.Post("/services", h.CreateServiceRequest)
		r.Get("/services", h.ListServiceRequests)
	})

	return r
}
