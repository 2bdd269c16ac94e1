package ops

import (
	"context"

	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/model"
)

type CreateListenerRequest struct {
	Name        string
	Team        string
	Address     string
	Port        uint32
	Protocol    model.ListenerProtocol
	Spec        model.ListenerSpec
	DataplaneID string
}

func (d *Dispatcher) CreateListener(ctx context.Context, ac authz.Context, req CreateListenerRequest) (OperationResult[*model.Listener], error) {
	teamID, err := d.checkTeamWrite(ctx, ac, req.Team, authz.ResListeners)
	if err != nil {
		return OperationResult[*model.Listener]{}, err
	}
	protocol := req.Protocol
	if protocol == "" {
		protocol = model.ListenerTCP
	}
	l := &model.Listener{
		ID:          model.NewListenerID(),
		Name:        req.Name,
		TeamID:      teamID,
		Address:     req.Address,
		Port:        req.Port,
		Protocol:    protocol,
		Spec:        req.Spec,
		DataplaneID: req.DataplaneID,
	}
	if err := l.Validate(); err != nil {
		return OperationResult[*model.Listener]{}, err
	}
	if err := d.Store.Listeners().Create(ctx, l); err != nil {
		return OperationResult[*model.Listener]{}, err
	}
	if d.Log != nil {
		d.Log.Info("listener created", "listener_id", l.ID, "name", l.Name, "team", req.Team)
	}
	return ResultWithMessage(l, "Listener created successfully. xDS configuration has been refreshed."), nil
}

func (d *Dispatcher) GetListener(ctx context.Context, ac authz.Context, id model.ListenerID) (*model.Listener, error) {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResListeners, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	return d.Store.Listeners().Get(ctx, scope, id)
}

func (d *Dispatcher) GetListenerByName(ctx context.Context, ac authz.Context, teamName, name string) (*model.Listener, error) {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResListeners, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	teamID, err := d.resolveTeam(ctx, ac, teamName)
	if err != nil {
		return nil, err
	}
	return d.Store.Listeners().GetByName(ctx, scope, teamID, name)
}

func (d *Dispatcher) ListListeners(ctx context.Context, ac authz.Context) ([]*model.Listener, error) {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResListeners, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	return d.Store.Listeners().List(ctx, scope)
}

func (d *Dispatcher) UpdateListener(ctx context.Context, ac authz.Context, id model.ListenerID, spec model.ListenerSpec) (OperationResult[*model.Listener], error) {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResListeners, authz.ActionWrite)
	if err != nil {
		return OperationResult[*model.Listener]{}, err
	}
	existing, err := d.Store.Listeners().Get(ctx, scope, id)
	if err != nil {
		return OperationResult[*model.Listener]{}, err
	}
	existing.Spec = spec
	if err := existing.Validate(); err != nil {
		return OperationResult[*model.Listener]{}, err
	}
	existing.Version++
	if err := d.Store.Listeners().Update(ctx, existing); err != nil {
		return OperationResult[*model.Listener]{}, err
	}
	return ResultWithMessage(existing, "Listener updated successfully. xDS configuration has been refreshed."), nil
}

func (d *Dispatcher) DeleteListener(ctx context.Context, ac authz.Context, id model.ListenerID) error {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResListeners, authz.ActionWrite)
	if err != nil {
		return err
	}
	if _, err := d.Store.Listeners().Get(ctx, scope, id); err != nil {
		return err
	}
	return d.Store.Listeners().Delete(ctx, id)
}
