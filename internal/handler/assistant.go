package handler

import (
	"errors"
	"net/http"

	"pipelineiq-backend/internal/server/authctx"
	"pipelineiq-backend/internal/service"

	"github.com/go-chi/chi/v5"
)

type AssistantHandler struct {
	Assistant *service.AssistantService
	Access    service.AccessService
}

func (h AssistantHandler) RegisterRoutes(r chi.Router) {
	r.Post("/assistant/conversations", h.start)
	r.Get("/assistant/conversations/{id}", h.history)
	r.Post("/assistant/conversations/{id}/messages", h.send)
}

func (h AssistantHandler) start(w http.ResponseWriter, r *http.Request) {
	id := h.Assistant.StartConversation()
	writeJSON(w, http.StatusCreated, map[string]string{"conversationId": id})
}

func (h AssistantHandler) history(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	history := h.Assistant.History(id)
	if history == nil {
		history = []service.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (h AssistantHandler) send(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	id := chi.URLParam(r, "id")
	var req struct {
		Message string `json:"message"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	scope := h.Access.ResolveScope(r.Context(), *user)
	reply, err := h.Assistant.Chat(r.Context(), scope.UserIDs, id, req.Message)
	if err != nil {
		if errors.Is(err, service.ErrSuperseded) {
			// a newer message took over; the client already has its reply
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
