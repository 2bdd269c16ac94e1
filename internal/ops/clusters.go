package ops

import (
	"context"

	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/model"
)

// CreateClusterRequest is the resolved, validated input to
// ClusterOperations.Create. Team is a name (UX affordance); the
// operation resolves it to a UUID before persisting, per spec.md 4.9
// step 1.
type CreateClusterRequest struct {
	Name        string
	ServiceName string
	Team        string
	Spec        model.ClusterSpec
}

func (d *Dispatcher) CreateCluster(ctx context.Context, ac authz.Context, req CreateClusterRequest) (OperationResult[*model.Cluster], error) {
	teamID, err := d.checkTeamWrite(ctx, ac, req.Team, authz.ResClusters)
	if err != nil {
		return OperationResult[*model.Cluster]{}, err
	}
	c := &model.Cluster{
		ID:          model.NewClusterID(),
		Name:        req.Name,
		TeamID:      teamID,
		ServiceName: req.ServiceName,
		Spec:        req.Spec,
	}
	if c.ServiceName == "" {
		c.ServiceName = c.Name
	}
	if err := c.Validate(); err != nil {
		return OperationResult[*model.Cluster]{}, err
	}
	if err := d.Store.Clusters().Create(ctx, c); err != nil {
		return OperationResult[*model.Cluster]{}, err
	}
	if d.Log != nil {
		d.Log.Info("cluster created", "cluster_id", c.ID, "cluster_name", c.Name, "team", req.Team)
	}
	return ResultWithMessage(c, "Cluster created successfully. xDS configuration has been refreshed."), nil
}

func (d *Dispatcher) GetCluster(ctx context.Context, ac authz.Context, id model.ClusterID) (*model.Cluster, error) {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResClusters, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	return d.Store.Clusters().Get(ctx, scope, id)
}

func (d *Dispatcher) GetClusterByName(ctx context.Context, ac authz.Context, teamName, name string) (*model.Cluster, error) {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResClusters, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	teamID, err := d.resolveTeam(ctx, ac, teamName)
	if err != nil {
		return nil, err
	}
	return d.Store.Clusters().GetByName(ctx, scope, teamID, name)
}

func (d *Dispatcher) ListClusters(ctx context.Context, ac authz.Context) ([]*model.Cluster, error) {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResClusters, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	return d.Store.Clusters().List(ctx, scope)
}

// UpdateClusterRequest carries the new spec; ServiceName is optional
// (blank means "leave as-is").
type UpdateClusterRequest struct {
	ServiceName string
	Spec        model.ClusterSpec
}

func (d *Dispatcher) UpdateCluster(ctx context.Context, ac authz.Context, id model.ClusterID, req UpdateClusterRequest) (OperationResult[*model.Cluster], error) {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResClusters, authz.ActionWrite)
	if err != nil {
		return OperationResult[*model.Cluster]{}, err
	}
	existing, err := d.Store.Clusters().Get(ctx, scope, id)
	if err != nil {
		return OperationResult[*model.Cluster]{}, err
	}
	existing.Spec = req.Spec
	if req.ServiceName != "" {
		existing.ServiceName = req.ServiceName
	}
	if err := existing.Validate(); err != nil {
		return OperationResult[*model.Cluster]{}, err
	}
	existing.Version++
	if err := d.Store.Clusters().Update(ctx, existing); err != nil {
		return OperationResult[*model.Cluster]{}, err
	}
	return ResultWithMessage(existing, "Cluster updated successfully. xDS configuration has been refreshed."), nil
}

func (d *Dispatcher) DeleteCluster(ctx context.Context, ac authz.Context, id model.ClusterID) error {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResClusters, authz.ActionWrite)
	if err != nil {
		return err
	}
	if _, err := d.Store.Clusters().Get(ctx, scope, id); err != nil {
		return err
	}
	return d.Store.Clusters().Delete(ctx, id)
}
