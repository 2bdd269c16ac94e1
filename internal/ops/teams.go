package ops

import (
	"context"

	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/model"
)

func (d *Dispatcher) CreateTeam(ctx context.Context, ac authz.Context, orgID model.OrgID, name, displayName string, ownerUserID model.UserID) (OperationResult[*model.Team], error) {
	org, err := d.Store.Orgs().Get(ctx, orgID)
	if err != nil {
		return OperationResult[*model.Team]{}, err
	}
	if !ac.IsSuperuser() {
		if err := authz.Check(ac, authz.RequiredOrgAdmin(org.Name)); err != nil {
			return OperationResult[*model.Team]{}, err
		}
	}
	team := &model.Team{
		ID:          model.NewTeamID(),
		OrgID:       orgID,
		Name:        name,
		DisplayName: displayName,
		OwnerUserID: ownerUserID,
	}
	if err := team.Validate(); err != nil {
		return OperationResult[*model.Team]{}, err
	}
	if err := d.Store.Teams().Create(ctx, team); err != nil {
		return OperationResult[*model.Team]{}, err
	}

	// Derive the owner's initial team scopes from their org role (spec.md
	// 3's TeamMembership.Scopes rule); an org admin creating a team for
	// themself gets full read/write, kept minimal here since it can be
	// overridden explicitly by an org admin afterward via SetTeamScopes.
	membership, err := d.Store.Users().GetMembership(ctx, ownerUserID, orgID)
	if err == nil {
		scopes := defaultTeamScopes(membership.Role, name)
		_ = d.Store.Users().SetTeamScopes(ctx, ownerUserID, team.ID, scopes)
	}

	return ResultWithMessage(team, "Team created."), nil
}

// defaultTeamScopes mirrors spec.md 3's "derived from the user's org
// role when a team is created": Owner/Admin get full write access to
// every team-scoped resource kind, Member gets read-only.
func defaultTeamScopes(role model.OrgRole, teamName string) []string {
	resources := []string{authz.ResClusters, authz.ResRoutes, authz.ResListeners, authz.ResFilters, authz.ResLearningSessions, authz.ResSchemas}
	actions := []authz.Action{authz.ActionRead}
	if role == model.OrgRoleOwner || role == model.OrgRoleAdmin {
		actions = append(actions, authz.ActionWrite)
	}
	scopes := make([]string, 0, len(resources)*len(actions))
	for _, r := range resources {
		for _, a := range actions {
			scopes = append(scopes, authz.Required(teamName, r, a))
		}
	}
	return scopes
}

func (d *Dispatcher) GetTeam(ctx context.Context, ac authz.Context, id model.TeamID) (*model.Team, error) {
	return d.Store.Teams().Get(ctx, id)
}

func (d *Dispatcher) ListTeams(ctx context.Context, ac authz.Context, orgID model.OrgID) ([]*model.Team, error) {
	return d.Store.Teams().ListByOrg(ctx, orgID)
}

func (d *Dispatcher) DeleteTeam(ctx context.Context, ac authz.Context, id model.TeamID) error {
	team, err := d.Store.Teams().Get(ctx, id)
	if err != nil {
		return err
	}
	org, err := d.Store.Orgs().Get(ctx, team.OrgID)
	if err != nil {
		return err
	}
	if !ac.IsSuperuser() {
		if err := authz.Check(ac, authz.RequiredOrgAdmin(org.Name)); err != nil {
			return err
		}
	}
	return d.Store.Teams().Delete(ctx, id)
}
