package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"pipelineiq-backend/internal/domain"
	"pipelineiq-backend/internal/repository"

	"github.com/go-chi/chi/v5"
)

type StatusHandler struct {
	Statuses repository.StatusRepository
	Deals    repository.DealRepository
}

// RegisterReadRoutes exposes the stage list to every member; the pipeline is
// workspace-wide so reads are not scoped.
func (h StatusHandler) RegisterReadRoutes(r chi.Router) {
	r.Get("/pipeline-statuses", h.list)
	r.Get("/pipeline-templates", h.templates)
}

func (h StatusHandler) RegisterRoutes(r chi.Router) {
	r.Post("/pipeline-statuses", h.create)
	r.Put("/pipeline-statuses/{id}", h.update)
	r.Delete("/pipeline-statuses/{id}", h.delete)
	r.Post("/pipeline-statuses/reorder", h.reorder)
	r.Put("/pipeline-statuses/replace", h.replace)
	r.Post("/pipeline-templates/{name}/apply", h.applyTemplate)
}

type statusPayload struct {
	ID        int64                 `json:"id"`
	Name      string                `json:"name"`
	Color     string                `json:"color"`
	SortOrder int                   `json:"sortOrder"`
	Lifecycle domain.LifecycleStage `json:"lifecycleStage"`
}

func toStatusPayload(s domain.PipelineStatus) statusPayload {
	return statusPayload{
		ID:        s.ID,
		Name:      s.Name,
		Color:     s.Color,
		SortOrder: s.SortOrder,
		Lifecycle: s.Lifecycle,
	}
}

func (h StatusHandler) list(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.Statuses.List(r.Context())
	if err != nil {
		writeRepoError(w, err)
		return
	}
	payload := make([]statusPayload, 0, len(statuses))
	for _, s := range statuses {
		payload = append(payload, toStatusPayload(s))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h StatusHandler) templates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, repository.PipelineTemplates)
}

type statusRequest struct {
	Name      string `json:"name"`
	Color     string `json:"color"`
	SortOrder int    `json:"sortOrder"`
	Lifecycle string `json:"lifecycleStage"`
}

func (r statusRequest) validate() (repository.SaveStatusInput, string) {
	if r.Name == "" {
		return repository.SaveStatusInput{}, "name is required"
	}
	stage := domain.LifecycleStage(r.Lifecycle)
	if !domain.ValidLifecycleStage(stage) {
		return repository.SaveStatusInput{}, "invalid lifecycleStage"
	}
	if r.Color != "" && !validHexColor(r.Color) {
		return repository.SaveStatusInput{}, "color must be a hex value like #4F46E5"
	}
	return repository.SaveStatusInput{
		Name:      r.Name,
		Color:     r.Color,
		SortOrder: r.SortOrder,
		Lifecycle: stage,
	}, ""
}

func validHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func (h StatusHandler) create(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, msg := req.validate()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	status, err := h.Statuses.Create(r.Context(), in)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStatusPayload(*status))
}

func (h StatusHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, msg := req.validate()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	status, err := h.Statuses.Update(r.Context(), id, in)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusPayload(*status))
}

// minPipelineStages is the smallest workable pipeline. Deleting below it is
// refused so a workspace can never end up with a single-column board.
const minPipelineStages = 2

// delete removes a stage. Deals still in the stage block deletion unless a
// ?migrateTo= target is given, in which case they are moved first.
func (h StatusHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.Statuses.List(r.Context())
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if len(existing)-1 < minPipelineStages {
		writeError(w, http.StatusBadRequest, "a pipeline needs at least two stages")
		return
	}
	if migrateStr := r.URL.Query().Get("migrateTo"); migrateStr != "" {
		targetID, err := strconv.ParseInt(migrateStr, 10, 64)
		if err != nil || targetID == id {
			writeError(w, http.StatusBadRequest, "invalid migrateTo")
			return
		}
		target, err := h.Statuses.Get(r.Context(), targetID)
		if err != nil {
			writeRepoError(w, err)
			return
		}
		now := time.Now().UTC()
		t := repository.StageTransition{
			StatusID:       target.ID,
			Stage:          target.Lifecycle,
			StageEnteredAt: now,
		}
		if target.Lifecycle == domain.StageClosed {
			t.ClosedAt = &now
		}
		if _, err := h.Deals.MigrateStatus(r.Context(), id, t); err != nil {
			writeRepoError(w, err)
			return
		}
	}
	if err := h.Statuses.Delete(r.Context(), id, h.Deals); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h StatusHandler) reorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderedIDs []int64 `json:"orderedIds"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.OrderedIDs) == 0 {
		writeError(w, http.StatusBadRequest, "orderedIds is required")
		return
	}
	if err := h.Statuses.Reorder(r.Context(), req.OrderedIDs); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// validatePipeline checks a custom stage set before it replaces the board.
// A workable pipeline needs at least two stages.
func validatePipeline(reqs []statusRequest) ([]repository.SaveStatusInput, string) {
	if len(reqs) < minPipelineStages {
		return nil, "a custom pipeline needs at least two stages"
	}
	ins := make([]repository.SaveStatusInput, 0, len(reqs))
	for _, req := range reqs {
		in, msg := req.validate()
		if msg != "" {
			return nil, msg
		}
		ins = append(ins, in)
	}
	return ins, ""
}

// replace swaps the whole board for a custom stage set. Stages still holding
// deals are left in place, like applyTemplate.
func (h StatusHandler) replace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stages []statusRequest `json:"stages"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	ins, msg := validatePipeline(req.Stages)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	h.installStages(w, r, ins)
}

// applyTemplate installs a built-in stage set, replacing stages that hold no
// deals. Stages still holding deals are left in place.
func (h StatusHandler) applyTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	tpl, ok := repository.FindPipelineTemplate(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown template")
		return
	}
	h.installStages(w, r, tpl.Stages)
}

func (h StatusHandler) installStages(w http.ResponseWriter, r *http.Request, ins []repository.SaveStatusInput) {
	existing, err := h.Statuses.List(r.Context())
	if err != nil {
		writeRepoError(w, err)
		return
	}
	for _, s := range existing {
		if err := h.Statuses.Delete(r.Context(), s.ID, h.Deals); err != nil {
			if errors.Is(err, repository.ErrStatusInUse) {
				continue
			}
			writeRepoError(w, err)
			return
		}
	}
	created := make([]statusPayload, 0, len(ins))
	for _, in := range ins {
		status, err := h.Statuses.Create(r.Context(), in)
		if err != nil {
			writeRepoError(w, err)
			return
		}
		created = append(created, toStatusPayload(*status))
	}
	writeJSON(w, http.StatusOK, created)
}
