package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"pipelineiq-backend/internal/domain"
	"pipelineiq-backend/internal/server/authctx"

	"github.com/stretchr/testify/assert"
)

type stubMembers struct {
	allIDs  []int64
	teamIDs map[int64][]int64
	err     error
}

func (s stubMembers) ListActiveIDs(ctx context.Context) ([]int64, error) {
	return s.allIDs, s.err
}

func (s stubMembers) ListTeamMemberIDs(ctx context.Context, teamID int64) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.teamIDs[teamID], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolveScopeAgentSelfOnly(t *testing.T) {
	svc := AccessService{Members: stubMembers{allIDs: []int64{1, 2, 3}}, Logger: discardLogger()}
	scope := svc.ResolveScope(context.Background(), authctx.CurrentUser{ID: 2, Role: domain.RoleAgent})
	assert.Equal(t, []int64{2}, scope.UserIDs)
}

func TestResolveScopeTeamLeadSeesTeam(t *testing.T) {
	teamID := int64(7)
	svc := AccessService{
		Members: stubMembers{teamIDs: map[int64][]int64{7: {4, 5, 6}}},
		Logger:  discardLogger(),
	}
	scope := svc.ResolveScope(context.Background(), authctx.CurrentUser{ID: 5, Role: domain.RoleTeamLead, TeamID: &teamID})
	assert.ElementsMatch(t, []int64{4, 5, 6}, scope.UserIDs)
}

func TestResolveScopeTeamLeadIncludedEvenWhenNotListed(t *testing.T) {
	teamID := int64(7)
	svc := AccessService{
		Members: stubMembers{teamIDs: map[int64][]int64{7: {4, 6}}},
		Logger:  discardLogger(),
	}
	scope := svc.ResolveScope(context.Background(), authctx.CurrentUser{ID: 5, Role: domain.RoleSalesManager, TeamID: &teamID})
	assert.Contains(t, scope.UserIDs, int64(5))
}

func TestResolveScopeTeamLeadWithoutTeamFallsBackToSelf(t *testing.T) {
	svc := AccessService{Members: stubMembers{}, Logger: discardLogger()}
	scope := svc.ResolveScope(context.Background(), authctx.CurrentUser{ID: 9, Role: domain.RoleTeamLead})
	assert.Equal(t, []int64{9}, scope.UserIDs)
}

func TestResolveScopeAdminSeesAll(t *testing.T) {
	svc := AccessService{Members: stubMembers{allIDs: []int64{1, 2, 3, 4}}, Logger: discardLogger()}
	scope := svc.ResolveScope(context.Background(), authctx.CurrentUser{ID: 1, Role: domain.RoleAdmin})
	assert.Len(t, scope.UserIDs, 4)
}

func TestResolveScopeLookupFailureDegradesToSelf(t *testing.T) {
	svc := AccessService{Members: stubMembers{err: errors.New("db down")}, Logger: discardLogger()}
	scope := svc.ResolveScope(context.Background(), authctx.CurrentUser{ID: 3, Role: domain.RoleAdmin})
	assert.Equal(t, []int64{3}, scope.UserIDs)
}

func TestNarrowScopeDropsOutsiders(t *testing.T) {
	svc := AccessService{Logger: discardLogger()}
	scope := AccessScope{UserIDs: []int64{1, 2, 3}}

	narrowed := svc.NarrowScope(scope, []int64{2, 99})
	assert.Equal(t, []int64{2}, narrowed.UserIDs)

	// An all-outsider filter yields an empty scope, not the full one.
	empty := svc.NarrowScope(scope, []int64{99})
	assert.Empty(t, empty.UserIDs)
	assert.NotNil(t, empty.UserIDs)

	// No filter keeps the scope intact.
	same := svc.NarrowScope(scope, nil)
	assert.Equal(t, scope.UserIDs, same.UserIDs)
}
