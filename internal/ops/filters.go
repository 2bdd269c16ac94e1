package ops

import (
	"context"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/model"
)

type CreateFilterRequest struct {
	Name        string
	Team        string // filters always team-scoped, never global
	FilterType  model.FilterType
	Description string
	Spec        map[string]any
}

// validateFilterSpec additionally validates req.Spec against any
// registered dynamic schema for the filter type, per C3's "dynamic
// (schema-driven)" path -- a built-in FilterType has no registered
// schema and is simply passed through.
func (d *Dispatcher) validateFilterSpec(ft model.FilterType, spec map[string]any) error {
	if d.Schemas == nil {
		return nil
	}
	if err := d.Schemas.Validate(string(ft), spec); err != nil {
		return apierr.Validationf("filter", "spec", "%s", err)
	}
	return nil
}

func (d *Dispatcher) CreateFilter(ctx context.Context, ac authz.Context, req CreateFilterRequest) (OperationResult[*model.Filter], error) {
	if req.Team == "" {
		return OperationResult[*model.Filter]{}, apierr.Validationf("filter", "team", "filters require a team")
	}
	teamID, err := d.checkTeamWrite(ctx, ac, req.Team, authz.ResFilters)
	if err != nil {
		return OperationResult[*model.Filter]{}, err
	}
	if err := d.validateFilterSpec(req.FilterType, req.Spec); err != nil {
		return OperationResult[*model.Filter]{}, err
	}
	f := &model.Filter{
		ID:          model.NewFilterID(),
		Name:        req.Name,
		TeamID:      *teamID,
		FilterType:  req.FilterType,
		Description: req.Description,
		Spec:        req.Spec,
	}
	if err := f.Validate(); err != nil {
		return OperationResult[*model.Filter]{}, err
	}
	if err := d.Store.Filters().Create(ctx, f); err != nil {
		return OperationResult[*model.Filter]{}, err
	}
	if d.Log != nil {
		d.Log.Info("filter created", "filter_id", f.ID, "name", f.Name, "type", f.FilterType, "team", req.Team)
	}
	return ResultWithMessage(f, "Filter created successfully."), nil
}

func (d *Dispatcher) GetFilter(ctx context.Context, ac authz.Context, id model.FilterID) (*model.Filter, error) {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResFilters, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	return d.Store.Filters().Get(ctx, scope, id)
}

func (d *Dispatcher) ListFilters(ctx context.Context, ac authz.Context) ([]*model.Filter, error) {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResFilters, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	return d.Store.Filters().List(ctx, scope)
}

func (d *Dispatcher) UpdateFilter(ctx context.Context, ac authz.Context, id model.FilterID, spec map[string]any, description string) (OperationResult[*model.Filter], error) {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResFilters, authz.ActionWrite)
	if err != nil {
		return OperationResult[*model.Filter]{}, err
	}
	existing, err := d.Store.Filters().Get(ctx, scope, id)
	if err != nil {
		return OperationResult[*model.Filter]{}, err
	}
	if err := d.validateFilterSpec(existing.FilterType, spec); err != nil {
		return OperationResult[*model.Filter]{}, err
	}
	existing.Spec = spec
	if description != "" {
		existing.Description = description
	}
	if err := existing.Validate(); err != nil {
		return OperationResult[*model.Filter]{}, err
	}
	if err := d.Store.Filters().Update(ctx, existing); err != nil {
		return OperationResult[*model.Filter]{}, err
	}
	return ResultWithMessage(existing, "Filter updated successfully. xDS configuration has been refreshed."), nil
}

func (d *Dispatcher) DeleteFilter(ctx context.Context, ac authz.Context, id model.FilterID) error {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResFilters, authz.ActionWrite)
	if err != nil {
		return err
	}
	if _, err := d.Store.Filters().Get(ctx, scope, id); err != nil {
		return err
	}
	return d.Store.Filters().Delete(ctx, id)
}
