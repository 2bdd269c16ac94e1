package ops

import (
	"context"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/model"
)

func (d *Dispatcher) GetAggregatedSchema(ctx context.Context, ac authz.Context, teamName, path, method string) (*model.AggregatedSchema, error) {
	teamID, err := d.resolveTeam(ctx, ac, teamName)
	if err != nil {
		return nil, err
	}
	if teamID == nil {
		if err := authz.Check(ac, authz.RequiredGlobal(authz.ResSchemas, authz.ActionRead)); err != nil {
			return nil, err
		}
		return nil, apierr.Validationf("aggregated_schema", "team", "aggregated schemas require a team")
	}
	if err := authz.Check(ac, authz.Required(teamName, authz.ResSchemas, authz.ActionRead)); err != nil {
		return nil, err
	}
	return d.Store.AggregatedSchemas().Get(ctx, *teamID, path, method)
}

func (d *Dispatcher) ListAggregatedSchemas(ctx context.Context, ac authz.Context) ([]*model.AggregatedSchema, error) {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResSchemas, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	return d.Store.AggregatedSchemas().List(ctx, scope)
}
