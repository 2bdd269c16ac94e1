package ops

import (
	"context"
	"strings"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

// teamScopeForResource derives the store.TeamScope a read/list operation
// should apply for (resource, action): admin-wide for admin:all or
// cp:read/cp:write callers, every team in the caller's own org for an
// org-admin scope, and otherwise exactly the teams named by the caller's
// "team:<name>:<resource>:<action>" scopes (write scopes also cover
// read, per authz.actionCovers). This is the read-side analogue of
// authz.Check: it answers "which rows are visible" rather than "is this
// one access allowed".
func (d *Dispatcher) teamScopeForResource(ctx context.Context, ac authz.Context, resource string, action authz.Action) (store.TeamScope, error) {
	if ac.IsSuperuser() || ac.HasExact("cp:write") || (action == authz.ActionRead && ac.HasExact("cp:read")) {
		return store.AllTeams(), nil
	}

	seen := make(map[model.TeamID]struct{})

	if ac.OrgID != nil {
		if org, err := d.Store.Orgs().Get(ctx, *ac.OrgID); err == nil {
			if ac.HasExact(authz.RequiredOrgAdmin(org.Name)) {
				teams, err := d.Store.Teams().ListByOrg(ctx, *ac.OrgID)
				if err != nil {
					return store.TeamScope{}, err
				}
				for _, t := range teams {
					seen[t.ID] = struct{}{}
				}
			}
		}
	}

	for _, scope := range ac.ScopeList() {
		if !strings.HasPrefix(scope, "team:") {
			continue
		}
		parts := strings.SplitN(scope, ":", 4)
		if len(parts) != 4 {
			continue
		}
		name, res, act := parts[1], parts[2], parts[3]
		if res != resource || (act != string(action) && act != "write") {
			continue
		}
		if ac.OrgID == nil {
			continue
		}
		team, err := d.Store.Teams().GetByName(ctx, *ac.OrgID, name)
		if err != nil {
			continue // not visible to this caller; skip rather than fail the whole list
		}
		seen[team.ID] = struct{}{}
	}

	ids := make([]model.TeamID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return store.ScopeToTeams(ids...), nil
}

// checkTeamWrite enforces the write-side scope check for a Create
// scoped to teamName (blank meaning a global/system resource, which only
// admin:all may create/update/delete per spec.md 4.10), and returns the
// resolved TeamID for the caller to persist. It routes through
// teamScopeForResource's org-admin-covering resolution -- the same path
// Update/Delete already get for free via Get's scope filter -- so a
// caller holding only "org:<org>:admin" (with no explicit
// "team:<name>:<resource>:write" scope) can create resources in any team
// in their org, consistent with spec.md 4.8's "org:<org>:admin -- full
// control of an org" and with how Update/Delete already behave.
func (d *Dispatcher) checkTeamWrite(ctx context.Context, ac authz.Context, teamName, resource string) (*model.TeamID, error) {
	teamID, err := d.resolveTeam(ctx, ac, teamName)
	if err != nil {
		return nil, err
	}
	if teamID == nil {
		if ac.IsSuperuser() {
			return nil, nil
		}
		return nil, apierr.Forbiddenf("%s: global resources require admin:all", resource)
	}
	scope, err := d.teamScopeForResource(ctx, ac, resource, authz.ActionWrite)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(teamID) {
		return nil, apierr.Forbiddenf("%s: requires write access to team %q", resource, teamName)
	}
	return teamID, nil
}
