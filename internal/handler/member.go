package handler

import (
	"net/http"
	"strconv"

	"pipelineiq-backend/internal/domain"
	"pipelineiq-backend/internal/repository"

	"github.com/go-chi/chi/v5"
)

// MemberHandler manages workspace membership and teams. Admin only.
type MemberHandler struct {
	Users repository.UserRepository
	Teams repository.TeamRepository
}

func (h MemberHandler) RegisterRoutes(r chi.Router) {
	r.Get("/members", h.listMembers)
	r.Put("/members/{id}", h.updateMember)
	r.Get("/teams", h.listTeams)
	r.Post("/teams", h.createTeam)
}

type memberPayload struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Role   string `json:"role"`
	TeamID *int64 `json:"teamId,omitempty"`
	Active bool   `json:"active"`
}

func toMemberPayload(u domain.User) memberPayload {
	return memberPayload{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Phone:  u.Phone,
		Role:   string(u.Role),
		TeamID: u.TeamID,
		Active: u.Active,
	}
}

func (h MemberHandler) listMembers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		writeRepoError(w, err)
		return
	}
	payload := make([]memberPayload, 0, len(users))
	for _, u := range users {
		payload = append(payload, toMemberPayload(u))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h MemberHandler) updateMember(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Role   *string `json:"role"`
		TeamID *int64  `json:"teamId"`
		Active *bool   `json:"active"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	params := repository.UpdateUserParams{
		TeamID: req.TeamID,
		Active: req.Active,
	}
	if req.Role != nil {
		role := domain.UserRole(*req.Role)
		switch role {
		case domain.RoleAgent, domain.RoleTeamLead, domain.RoleSalesManager, domain.RoleAdmin:
		default:
			writeError(w, http.StatusBadRequest, "invalid role")
			return
		}
		params.Role = &role
	}
	user, err := h.Users.Update(r.Context(), id, params)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberPayload(*user))
}

type teamPayload struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	LeadID *int64 `json:"leadId,omitempty"`
}

func (h MemberHandler) listTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.Teams.List(r.Context())
	if err != nil {
		writeRepoError(w, err)
		return
	}
	payload := make([]teamPayload, 0, len(teams))
	for _, t := range teams {
		payload = append(payload, teamPayload{ID: t.ID, Name: t.Name, LeadID: t.LeadID})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h MemberHandler) createTeam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string `json:"name"`
		LeadID *int64 `json:"leadId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	team, err := h.Teams.Create(r.Context(), req.Name, req.LeadID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, teamPayload{ID: team.ID, Name: team.Name, LeadID: team.LeadID})
}
