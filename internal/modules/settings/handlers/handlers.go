// Package handlers provides HTTP handlers for engine settings.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/modules/settings"
)

// CurrencyLister provides the currencies with known rates.
type CurrencyLister interface {
	Currencies() ([]string, error)
}

// ConfigInvalidator drops cached grouping config after settings change.
type ConfigInvalidator interface {
	InvalidateConfig(owner string)
}

// ResultsInvalidator drops an owner's computed balance results. The
// ignore-list shapes the synthetic total series, so cached series are
// stale the moment it changes.
type ResultsInvalidator interface {
	Invalidate(owner string) error
}

// Handler handles settings HTTP requests
type Handler struct {
	service *settings.Service
	rates   CurrencyLister
	groups  ConfigInvalidator
	results ResultsInvalidator
	pivot   string
	log     zerolog.Logger
}

// NewHandler creates a new settings handler
func NewHandler(service *settings.Service, rates CurrencyLister, groups ConfigInvalidator, results ResultsInvalidator, pivot string, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		rates:   rates,
		groups:  groups,
		results: results,
		pivot:   pivot,
		log:     log.With().Str("handler", "settings").Logger(),
	}
}

// CurrencyRequest is the body of POST /currency.
type CurrencyRequest struct {
	Currency string `json:"currency"`
}

// IgnoreRequest is the body of PUT /settings/ignore-for-total.
type IgnoreRequest struct {
	Accounts    []string `json:"accounts"`
	HideIgnored bool     `json:"hide_ignored"`
}

// HandleGetCurrencies handles GET /api/currencies
func (h *Handler) HandleGetCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.rates.Currencies()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list currencies")
		http.Error(w, "Failed to list currencies", http.StatusInternalServerError)
		return
	}

	seen := map[string]bool{h.pivot: true}
	out := []string{h.pivot}
	for _, c := range currencies {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"currencies": out,
		},
		"metadata": map[string]interface{}{
			"pivot":     h.pivot,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetCurrency handles GET /api/currency
func (h *Handler) HandleGetCurrency(w http.ResponseWriter, r *http.Request) {
	currency, err := h.service.MainCurrency()
	if err != nil {
		http.Error(w, "Failed to read currency", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"currency": currency,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleSetCurrency handles POST /api/currency
func (h *Handler) HandleSetCurrency(w http.ResponseWriter, r *http.Request) {
	var req CurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.SetMainCurrency(req.Currency); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	currency, _ := h.service.MainCurrency()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"currency": currency,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetSettings handles GET /api/settings
func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.All()
	if err != nil {
		http.Error(w, "Failed to read settings", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": all,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleSetIgnoreForTotal handles PUT /api/settings/ignore-for-total
func (h *Handler) HandleSetIgnoreForTotal(w http.ResponseWriter, r *http.Request) {
	var req IgnoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.SetIgnoreForTotal(req.Accounts); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := h.service.SetHideIgnored(req.HideIgnored); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	owner := ownerFrom(r)
	if h.groups != nil {
		// Grouping config folds these settings in; recomputed lazily.
		h.groups.InvalidateConfig(owner)
	}
	if h.results != nil {
		if err := h.results.Invalidate(owner); err != nil {
			h.log.Warn().Err(err).Str("owner", owner).Msg("Result cache invalidation failed after ignore-list change")
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"accounts":     req.Accounts,
			"hide_ignored": req.HideIgnored,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func ownerFrom(r *http.Request) string {
	if owner := r.URL.Query().Get("owner"); owner != "" {
		return owner
	}
	return domain.DefaultOwner
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
