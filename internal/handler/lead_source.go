package handler

import (
	"net/http"
	"strconv"

	"pipelineiq-backend/internal/domain"
	"pipelineiq-backend/internal/repository"

	"github.com/go-chi/chi/v5"
)

type LeadSourceHandler struct {
	Sources repository.LeadSourceRepository
}

func (h LeadSourceHandler) RegisterReadRoutes(r chi.Router) {
	r.Get("/lead-sources", h.list)
}

func (h LeadSourceHandler) RegisterRoutes(r chi.Router) {
	r.Post("/lead-sources", h.create)
	r.Put("/lead-sources/{id}", h.update)
	r.Delete("/lead-sources/{id}", h.delete)
}

type leadSourcePayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func toLeadSourcePayload(s domain.LeadSource) leadSourcePayload {
	return leadSourcePayload{ID: s.ID, Name: s.Name}
}

func (h LeadSourceHandler) list(w http.ResponseWriter, r *http.Request) {
	sources, err := h.Sources.List(r.Context())
	if err != nil {
		writeRepoError(w, err)
		return
	}
	payload := make([]leadSourcePayload, 0, len(sources))
	for _, s := range sources {
		payload = append(payload, toLeadSourcePayload(s))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h LeadSourceHandler) create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	source, err := h.Sources.Create(r.Context(), req.Name)
	if err != nil {
		if repository.IsDuplicate(err) {
			writeError(w, http.StatusConflict, "lead source already exists")
			return
		}
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeadSourcePayload(*source))
}

func (h LeadSourceHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	source, err := h.Sources.Update(r.Context(), id, req.Name)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeadSourcePayload(*source))
}

func (h LeadSourceHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Sources.Delete(r.Context(), id); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
