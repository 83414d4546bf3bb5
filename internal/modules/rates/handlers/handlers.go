// Package handlers provides HTTP handlers for exchange rate operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/modules/rates"
)

// Handler handles rate HTTP requests
type Handler struct {
	service *rates.Service
	syncer  *rates.Syncer
	log     zerolog.Logger
}

// NewHandler creates a new rates handler
func NewHandler(service *rates.Service, syncer *rates.Syncer, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		syncer:  syncer,
		log:     log.With().Str("handler", "rates").Logger(),
	}
}

// HandleGetRate handles GET /api/rates/rate
func (h *Handler) HandleGetRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	base := strings.ToUpper(q.Get("base"))
	target := strings.ToUpper(q.Get("target"))
	if base == "" || target == "" {
		http.Error(w, "base and target are required", http.StatusBadRequest)
		return
	}

	date := q.Get("date")
	if date == "" {
		date = domain.FormatDay(time.Now().UTC())
	} else if _, err := domain.ParseDay(date); err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	rate, ok, err := h.service.Rate(date, base, target)
	if err != nil {
		h.log.Error().Err(err).Msg("Rate lookup failed")
		http.Error(w, "Rate lookup failed", http.StatusInternalServerError)
		return
	}

	data := map[string]interface{}{
		"date":   date,
		"base":   base,
		"target": target,
		"found":  ok,
	}
	if ok {
		data["rate"] = rate
	} else {
		data["rate"] = nil
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"pivot":     h.service.Pivot(),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleSync handles POST /api/rates/sync
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	stored, err := h.syncer.Sync()
	if err != nil {
		h.log.Error().Err(err).Msg("Rate sync failed")
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
