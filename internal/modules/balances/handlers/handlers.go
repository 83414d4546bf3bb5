// Package handlers provides HTTP handlers for balance series operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/modules/balances"
)

// CurrencySource resolves the default display currency.
type CurrencySource interface {
	MainCurrency() (string, error)
}

// Handler handles balance HTTP requests
type Handler struct {
	service  *balances.Service
	currency CurrencySource
	log      zerolog.Logger
}

// NewHandler creates a new balances handler
func NewHandler(service *balances.Service, currency CurrencySource, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		currency: currency,
		log:      log.With().Str("handler", "balances").Logger(),
	}
}

// IngestRequest is the body of POST /balances.
type IngestRequest struct {
	Records []domain.BalanceRecord `json:"records"`
}

// HandleGetAccounts handles GET /api/accounts
func (h *Handler) HandleGetAccounts(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	accounts, err := h.service.Accounts(owner)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		http.Error(w, "Failed to list accounts", http.StatusInternalServerError)
		return
	}
	if accounts == nil {
		accounts = []string{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"accounts": accounts,
		},
		"metadata": map[string]interface{}{
			"owner":     owner,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetSeries handles GET /api/balances
func (h *Handler) HandleGetSeries(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	currency, err := h.resolveCurrency(r)
	if err != nil {
		http.Error(w, "Failed to resolve currency", http.StatusInternalServerError)
		return
	}

	req := balances.SeriesRequest{
		StartDate: r.URL.Query().Get("start_date"),
		EndDate:   r.URL.Query().Get("end_date"),
		Accounts:  splitAccounts(r.URL.Query().Get("accounts")),
		Currency:  currency,
	}

	result, err := h.service.Series(owner, req)
	if err != nil {
		h.log.Error().Err(err).Str("owner", owner).Msg("Failed to compute series")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"owner":     owner,
			"cached":    result.Cached,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetSummary handles GET /api/balances/summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	currency, err := h.resolveCurrency(r)
	if err != nil {
		http.Error(w, "Failed to resolve currency", http.StatusInternalServerError)
		return
	}

	summary, err := h.service.Summarize(owner, balances.SeriesRequest{
		StartDate: r.URL.Query().Get("start_date"),
		EndDate:   r.URL.Query().Get("end_date"),
		Accounts:  splitAccounts(r.URL.Query().Get("accounts")),
		Currency:  currency,
	})
	if err != nil {
		h.log.Error().Err(err).Str("owner", owner).Msg("Failed to compute summary")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": summary,
		"metadata": map[string]interface{}{
			"owner":     owner,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetPie handles GET /api/pie/{group}
func (h *Handler) HandleGetPie(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	group := chi.URLParam(r, "group")
	currency, err := h.resolveCurrency(r)
	if err != nil {
		http.Error(w, "Failed to resolve currency", http.StatusInternalServerError)
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = domain.FormatDay(time.Now().UTC())
	}

	snapshot, err := h.service.ValueOn(owner, date, currency, group)
	if err != nil {
		h.log.Warn().Err(err).Str("group", group).Msg("Failed to compute snapshot")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Pie slices are magnitudes: zero-value accounts disappear and
	// debts (negative balances) show their absolute size.
	slices := make(map[string]float64, len(snapshot.Values))
	total := 0.0
	for account, v := range snapshot.Values {
		if v < 0 {
			v = -v
		}
		if v == 0 {
			continue
		}
		slices[account] = v
		total += v
	}
	snapshot.Values = slices
	snapshot.Total = total

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": snapshot,
		"metadata": map[string]interface{}{
			"owner":     owner,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleIngest handles POST /api/balances
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Records) == 0 {
		http.Error(w, "records are required", http.StatusBadRequest)
		return
	}

	count, err := h.service.Ingest(owner, req.Records)
	if err != nil {
		h.log.Warn().Err(err).Str("owner", owner).Msg("Ingest rejected")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": map[string]interface{}{
			"ingested": count,
		},
		"metadata": map[string]interface{}{
			"owner":     owner,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleImportCSV handles POST /api/balances/import
func (h *Handler) HandleImportCSV(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	currency, err := h.resolveCurrency(r)
	if err != nil {
		http.Error(w, "Failed to resolve currency", http.StatusInternalServerError)
		return
	}

	records, err := balances.ParseCSV(r.Body, currency)
	if err != nil {
		h.log.Warn().Err(err).Msg("CSV import rejected")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(records) == 0 {
		http.Error(w, "no records in CSV", http.StatusBadRequest)
		return
	}

	count, err := h.service.Ingest(owner, records)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": map[string]interface{}{
			"ingested": count,
		},
		"metadata": map[string]interface{}{
			"owner":     owner,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetRecordCurrencies handles GET /api/balances/currencies
func (h *Handler) HandleGetRecordCurrencies(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	currencies, err := h.service.Currencies(owner)
	if err != nil {
		http.Error(w, "Failed to list currencies", http.StatusInternalServerError)
		return
	}
	if currencies == nil {
		currencies = []string{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"currencies": currencies,
		},
		"metadata": map[string]interface{}{
			"owner":     owner,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) resolveCurrency(r *http.Request) (string, error) {
	if c := r.URL.Query().Get("currency"); c != "" {
		return strings.ToUpper(c), nil
	}
	currency, err := h.currency.MainCurrency()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read main currency")
		return "", err
	}
	return currency, nil
}

func ownerFrom(r *http.Request) string {
	if owner := r.URL.Query().Get("owner"); owner != "" {
		return owner
	}
	return domain.DefaultOwner
}

func splitAccounts(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	accounts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			accounts = append(accounts, p)
		}
	}
	return accounts
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
