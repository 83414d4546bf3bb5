// Package handlers provides HTTP handlers for security price operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/modules/prices"
)

// Handler handles price HTTP requests
type Handler struct {
	repo   *prices.Repository
	syncer *prices.Syncer
	log    zerolog.Logger
}

// NewHandler creates a new prices handler
func NewHandler(repo *prices.Repository, syncer *prices.Syncer, log zerolog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		syncer: syncer,
		log:    log.With().Str("handler", "prices").Logger(),
	}
}

// HandleGetHistory handles GET /api/prices/{symbol}
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	history, err := h.repo.History(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to load price history")
		http.Error(w, "Failed to load price history", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []prices.PriceEntry{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"symbol":  symbol,
			"history": history,
		},
		"metadata": map[string]interface{}{
			"count":     len(history),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetSymbols handles GET /api/prices
func (h *Handler) HandleGetSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.repo.Symbols()
	if err != nil {
		http.Error(w, "Failed to list symbols", http.StatusInternalServerError)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"symbols": symbols,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleSync handles POST /api/prices/sync
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	stored, err := h.syncer.Sync()
	if err != nil {
		h.log.Error().Err(err).Msg("Price sync failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"stored": stored,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
