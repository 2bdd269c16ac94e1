package ops

import (
	"context"

	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/model"
)

func (d *Dispatcher) CreateOrg(ctx context.Context, ac authz.Context, name, displayName string) (OperationResult[*model.Organization], error) {
	if !ac.IsSuperuser() {
		return OperationResult[*model.Organization]{}, authz.Check(ac, authz.ScopeAdminAll)
	}
	org := &model.Organization{ID: model.NewOrgID(), Name: name, DisplayName: displayName}
	if err := org.Validate(); err != nil {
		return OperationResult[*model.Organization]{}, err
	}
	if err := d.Store.Orgs().Create(ctx, org); err != nil {
		return OperationResult[*model.Organization]{}, err
	}
	return ResultWithMessage(org, "Organization created."), nil
}

func (d *Dispatcher) GetOrg(ctx context.Context, ac authz.Context, id model.OrgID) (*model.Organization, error) {
	return d.Store.Orgs().Get(ctx, id)
}

func (d *Dispatcher) ListOrgs(ctx context.Context, ac authz.Context) ([]*model.Organization, error) {
	if !ac.IsSuperuser() {
		return nil, authz.Check(ac, authz.ScopeAdminAll)
	}
	return d.Store.Orgs().List(ctx)
}

// DeleteOrg enforces spec.md 4.8's special rule: platform-wide org
// deletion requires admin:all only, even for that org's own admins.
func (d *Dispatcher) DeleteOrg(ctx context.Context, ac authz.Context, id model.OrgID) error {
	if err := authz.CheckOrgDelete(ac); err != nil {
		return err
	}
	return d.Store.Orgs().Delete(ctx, id)
}
