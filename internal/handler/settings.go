package handler

import (
	"net/http"

	"pipelineiq-backend/internal/domain"
	"pipelineiq-backend/internal/repository"

	"github.com/go-chi/chi/v5"
)

type SettingsHandler struct {
	Settings repository.SettingsRepository
}

func (h SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/settings", h.get)
	r.Put("/settings", h.save)
}

type settingsPayload struct {
	BusinessName  string  `json:"businessName"`
	CurrencyCode  string  `json:"currencyCode"`
	AnnualGCIGoal float64 `json:"annualGciGoal"`
}

func (h SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.Get(r.Context())
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsPayload{
		BusinessName:  settings.BusinessName,
		CurrencyCode:  settings.CurrencyCode,
		AnnualGCIGoal: settings.AnnualGCIGoal,
	})
}

func (h SettingsHandler) save(w http.ResponseWriter, r *http.Request) {
	var req settingsPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AnnualGCIGoal < 0 {
		writeError(w, http.StatusBadRequest, "annualGciGoal must not be negative")
		return
	}
	saved, err := h.Settings.Save(r.Context(), domain.WorkspaceSettings{
		BusinessName:  req.BusinessName,
		CurrencyCode:  req.CurrencyCode,
		AnnualGCIGoal: req.AnnualGCIGoal,
	})
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsPayload{
		BusinessName:  saved.BusinessName,
		CurrencyCode:  saved.CurrencyCode,
		AnnualGCIGoal: saved.AnnualGCIGoal,
	})
}
