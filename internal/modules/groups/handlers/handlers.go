// Package handlers provides HTTP handlers for account group management.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/modules/groups"
)

// Handler handles account group HTTP requests
type Handler struct {
	service *groups.Service
	log     zerolog.Logger
}

// NewHandler creates a new groups handler
func NewHandler(service *groups.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "groups").Logger(),
	}
}

// GroupRequest is the body of create and update requests.
type GroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// HandleList handles GET /api/account-groups
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	list, err := h.service.List(owner)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list groups")
		http.Error(w, "Failed to list groups", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []groups.Group{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"groups": list,
		},
		"metadata": map[string]interface{}{
			"owner":     owner,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGet handles GET /api/account-groups/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	group, err := h.service.Get(owner, chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Failed to get group", http.StatusInternalServerError)
		return
	}
	if group == nil {
		http.Error(w, "Group not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": group,
		"metadata": map[string]interface{}{
			"owner":     owner,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleCreate handles POST /api/account-groups
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)

	var req GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	group, err := h.service.Create(owner, req.Name, req.Members)
	if err != nil {
		h.log.Warn().Err(err).Str("name", req.Name).Msg("Group creation rejected")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": group,
		"metadata": map[string]interface{}{
			"owner":     owner,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleUpdate handles PUT /api/account-groups/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)

	var req GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	group, err := h.service.Update(owner, chi.URLParam(r, "id"), req.Name, req.Members)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if group == nil {
		http.Error(w, "Group not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": group,
		"metadata": map[string]interface{}{
			"owner":     owner,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleDelete handles DELETE /api/account-groups/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)

	ok, err := h.service.Delete(owner, chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Failed to delete group", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Group not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
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
