package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all settings routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/currencies", h.HandleGetCurrencies)
	r.Get("/currency", h.HandleGetCurrency)
	r.Post("/currency", h.HandleSetCurrency)

	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.HandleGetSettings)
		r.Put("/ignore-for-total", h.HandleSetIgnoreForTotal)
	})
}
