package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all balance routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/accounts", h.HandleGetAccounts)
	r.Get("/pie/{group}", h.HandleGetPie)

	r.Route("/balances", func(r chi.Router) {
		r.Get("/", h.HandleGetSeries)
		r.Post("/", h.HandleIngest)
		r.Get("/summary", h.HandleGetSummary)
		r.Get("/currencies", h.HandleGetRecordCurrencies)
		r.Post("/import", h.HandleImportCSV)
	})
}
