package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all rate routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/rates", func(r chi.Router) {
		r.Get("/rate", h.HandleGetRate)
		r.Post("/sync", h.HandleSync)
	})
}
