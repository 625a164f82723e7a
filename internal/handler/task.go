package handler

import (
	"net/http"
	"strconv"
	"time"

	"pipelineiq-backend/internal/analytics"
	"pipelineiq-backend/internal/domain"
	"pipelineiq-backend/internal/repository"
	"pipelineiq-backend/internal/server/authctx"
	"pipelineiq-backend/internal/service"

	"github.com/go-chi/chi/v5"
)

type TaskHandler struct {
	Tasks  repository.TaskRepository
	Access service.AccessService
}

func (h TaskHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tasks", h.list)
	r.Post("/tasks", h.create)
	r.Patch("/tasks/{id}/complete", h.complete)
	r.Delete("/tasks/{id}", h.delete)
}

type taskPayload struct {
	ID        int64  `json:"id"`
	DealID    *int64 `json:"dealId,omitempty"`
	UserID    int64  `json:"userId"`
	Title     string `json:"title"`
	DueDate   string `json:"dueDate,omitempty"`
	Completed bool   `json:"completed"`
}

func toTaskPayload(t domain.Task) taskPayload {
	return taskPayload{
		ID:        t.ID,
		DealID:    t.DealID,
		UserID:    t.UserID,
		Title:     t.Title,
		DueDate:   t.DueDate,
		Completed: t.Completed,
	}
}

func (h TaskHandler) list(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	scope := h.Access.ResolveScope(r.Context(), *user)

	var (
		tasks []domain.Task
		err   error
	)
	if dealStr := r.URL.Query().Get("dealId"); dealStr != "" {
		dealID, perr := strconv.ParseInt(dealStr, 10, 64)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid dealId")
			return
		}
		tasks, err = h.Tasks.ListByDeal(r.Context(), scope.UserIDs, dealID)
	} else {
		includeCompleted := r.URL.Query().Get("includeCompleted") == "true"
		tasks, err = h.Tasks.List(r.Context(), scope.UserIDs, includeCompleted, 0)
	}
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if due := r.URL.Query().Get("due"); due != "" {
		if due != analytics.DueOverdue && due != analytics.DueToday && due != analytics.DueUpcoming {
			writeError(w, http.StatusBadRequest, "invalid due (use overdue, today or upcoming)")
			return
		}
		now := time.Now().UTC()
		filtered := tasks[:0]
		for _, t := range tasks {
			if analytics.DueBucket(t.DueDate, now) == due {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	payload := make([]taskPayload, 0, len(tasks))
	for _, t := range tasks {
		payload = append(payload, toTaskPayload(t))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h TaskHandler) create(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	var req struct {
		DealID  *int64 `json:"dealId"`
		Title   string `json:"title"`
		DueDate string `json:"dueDate"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	task, err := h.Tasks.Create(r.Context(), repository.SaveTaskInput{
		DealID:  req.DealID,
		UserID:  user.ID,
		Title:   req.Title,
		DueDate: req.DueDate,
	})
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskPayload(*task))
}

func (h TaskHandler) complete(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Completed *bool `json:"completed"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}
	scope := h.Access.ResolveScope(r.Context(), *user)
	task, err := h.Tasks.SetCompleted(r.Context(), scope.UserIDs, id, completed)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskPayload(*task))
}

func (h TaskHandler) delete(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	scope := h.Access.ResolveScope(r.Context(), *user)
	if err := h.Tasks.Delete(r.Context(), scope.UserIDs, id); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
