package service

import (
	"context"
	"log/slog"

	"pipelineiq-backend/internal/domain"
	"pipelineiq-backend/internal/server/authctx"
)

// MemberLister is the slice of the user repository the scope resolver needs.
type MemberLister interface {
	ListActiveIDs(ctx context.Context) ([]int64, error)
	ListTeamMemberIDs(ctx context.Context, teamID int64) ([]int64, error)
}

// AccessScope is the set of member ids whose records the caller may see.
// An empty UserIDs slice means no visibility at all, never "everything".
type AccessScope struct {
	UserIDs []int64
}

func (s AccessScope) Contains(userID int64) bool {
	for _, id := range s.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type AccessService struct {
	Members MemberLister
	Logger  *slog.Logger
}

// ResolveScope maps the caller's role to the member ids they can read.
// Agents see only themselves; team leads and sales managers see their team;
// admins see every active member. When team membership cannot be resolved the
// scope degrades to self-only rather than failing the request.
func (s AccessService) ResolveScope(ctx context.Context, user authctx.CurrentUser) AccessScope {
	switch user.Role {
	case domain.RoleAdmin:
		ids, err := s.Members.ListActiveIDs(ctx)
		if err != nil {
			s.Logger.Warn("resolve admin scope failed, falling back to self", "user_id", user.ID, "error", err)
			return AccessScope{UserIDs: []int64{user.ID}}
		}
		return AccessScope{UserIDs: ids}
	case domain.RoleTeamLead, domain.RoleSalesManager:
		if user.TeamID == nil {
			return AccessScope{UserIDs: []int64{user.ID}}
		}
		ids, err := s.Members.ListTeamMemberIDs(ctx, *user.TeamID)
		if err != nil {
			s.Logger.Warn("resolve team scope failed, falling back to self", "user_id", user.ID, "team_id", *user.TeamID, "error", err)
			return AccessScope{UserIDs: []int64{user.ID}}
		}
		if !containsID(ids, user.ID) {
			ids = append(ids, user.ID)
		}
		return AccessScope{UserIDs: ids}
	default:
		return AccessScope{UserIDs: []int64{user.ID}}
	}
}

// NarrowScope intersects the resolved scope with an explicit member filter.
// Requested ids outside the scope are silently dropped.
func (s AccessService) NarrowScope(scope AccessScope, requested []int64) AccessScope {
	if len(requested) == 0 {
		return scope
	}
	var ids []int64
	for _, id := range requested {
		if scope.Contains(id) {
			ids = append(ids, id)
		}
	}
	if ids == nil {
		ids = []int64{}
	}
	return AccessScope{UserIDs: ids}
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
