package ops

import (
	"context"

	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/model"
)

type CreateRouteConfigRequest struct {
	Name string
	Team string
	Spec model.RouteConfigSpec
}

func (d *Dispatcher) CreateRouteConfig(ctx context.Context, ac authz.Context, req CreateRouteConfigRequest) (OperationResult[*model.RouteConfig], error) {
	teamID, err := d.checkTeamWrite(ctx, ac, req.Team, authz.ResRoutes)
	if err != nil {
		return OperationResult[*model.RouteConfig]{}, err
	}
	rc := &model.RouteConfig{
		ID:     model.NewRouteConfigID(),
		Name:   req.Name,
		TeamID: teamID,
		Spec:   req.Spec,
	}
	if err := rc.Validate(); err != nil {
		return OperationResult[*model.RouteConfig]{}, err
	}
	if err := d.Store.RouteConfigs().Create(ctx, rc); err != nil {
		return OperationResult[*model.RouteConfig]{}, err
	}
	if d.Log != nil {
		d.Log.Info("route config created", "route_config_id", rc.ID, "name", rc.Name, "team", req.Team)
	}
	return ResultWithMessage(rc, "Route config created successfully. xDS configuration has been refreshed."), nil
}

func (d *Dispatcher) GetRouteConfig(ctx context.Context, ac authz.Context, id model.RouteConfigID) (*model.RouteConfig, error) {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResRoutes, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	return d.Store.RouteConfigs().Get(ctx, scope, id)
}

func (d *Dispatcher) GetRouteConfigByName(ctx context.Context, ac authz.Context, teamName, name string) (*model.RouteConfig, error) {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResRoutes, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	teamID, err := d.resolveTeam(ctx, ac, teamName)
	if err != nil {
		return nil, err
	}
	return d.Store.RouteConfigs().GetByName(ctx, scope, teamID, name)
}

func (d *Dispatcher) ListRouteConfigs(ctx context.Context, ac authz.Context) ([]*model.RouteConfig, error) {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResRoutes, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	return d.Store.RouteConfigs().List(ctx, scope)
}

func (d *Dispatcher) UpdateRouteConfig(ctx context.Context, ac authz.Context, id model.RouteConfigID, spec model.RouteConfigSpec) (OperationResult[*model.RouteConfig], error) {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResRoutes, authz.ActionWrite)
	if err != nil {
		return OperationResult[*model.RouteConfig]{}, err
	}
	existing, err := d.Store.RouteConfigs().Get(ctx, scope, id)
	if err != nil {
		return OperationResult[*model.RouteConfig]{}, err
	}
	existing.Spec = spec
	if err := existing.Validate(); err != nil {
		return OperationResult[*model.RouteConfig]{}, err
	}
	existing.Version++
	if err := d.Store.RouteConfigs().Update(ctx, existing); err != nil {
		return OperationResult[*model.RouteConfig]{}, err
	}
	return ResultWithMessage(existing, "Route config updated successfully. xDS configuration has been refreshed."), nil
}

func (d *Dispatcher) DeleteRouteConfig(ctx context.Context, ac authz.Context, id model.RouteConfigID) error {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResRoutes, authz.ActionWrite)
	if err != nil {
		return err
	}
	if _, err := d.Store.RouteConfigs().Get(ctx, scope, id); err != nil {
		return err
	}
	return d.Store.RouteConfigs().Delete(ctx, id)
}
