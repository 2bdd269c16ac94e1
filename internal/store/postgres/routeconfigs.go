package postgres

import (
	"context"
	"encoding/json"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

type routeConfigRepo struct{ s *Store }

const routeConfigColumns = `id, name, team_id, spec, version, created_at, updated_at`

// Create inserts the route config row and, inside the same transaction,
// the normalized virtual_hosts/routes read-model SPEC_FULL.md calls for
// (fast per-route lookups without decoding the whole jsonb spec).
func (r *routeConfigRepo) Create(ctx context.Context, rc *model.RouteConfig) error {
	spec, err := json.Marshal(rc.Spec)
	if err != nil {
		return apierr.Wrap(apierr.Internal, "route_config", rc.Name, err)
	}
	err = withTx(ctx, r.s.pool, func(tx pgxTx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO route_configs (id, name, team_id, spec, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rc.ID, rc.Name, rc.TeamID, spec, rc.Version, rc.CreatedAt, rc.UpdatedAt)
		if err != nil {
			return err
		}
		return syncRouteConfigReadModel(ctx, tx, rc)
	})
	if err != nil {
		return translateErr(err, "route_config", rc.Name)
	}
	r.s.notify()
	return nil
}

// syncRouteConfigReadModel replaces every virtual_hosts/routes row
// derived from rc.Spec. Called on both create and update, inside the
// caller's transaction.
func syncRouteConfigReadModel(ctx context.Context, tx pgxTx, rc *model.RouteConfig) error {
	if _, err := tx.Exec(ctx, `DELETE FROM routes WHERE route_config_id = $1`, rc.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM virtual_hosts WHERE route_config_id = $1`, rc.ID); err != nil {
		return err
	}
	for _, vh := range rc.Spec.VirtualHosts {
		if _, err := tx.Exec(ctx, `
			INSERT INTO virtual_hosts (route_config_id, name, domains)
			VALUES ($1, $2, $3)`, rc.ID, vh.Name, vh.Domains); err != nil {
			return err
		}
		for _, route := range vh.Routes {
			cluster, _ := route.Action.PrimaryCluster()
			if _, err := tx.Exec(ctx, `
				INSERT INTO routes (route_config_id, virtual_host_name, name, primary_cluster)
				VALUES ($1, $2, $3, $4)`, rc.ID, vh.Name, route.Name, cluster); err != nil {
				return err
			}
		}
	}
	return nil
}

func scanRouteConfig(row interface{ Scan(dest ...any) error }, name string) (*model.RouteConfig, error) {
	var rc model.RouteConfig
	var spec []byte
	if err := row.Scan(&rc.ID, &rc.Name, &rc.TeamID, &spec, &rc.Version, &rc.CreatedAt, &rc.UpdatedAt); err != nil {
		return nil, translateErr(err, "route_config", name)
	}
	if err := json.Unmarshal(spec, &rc.Spec); err != nil {
		return nil, apierr.Wrap(apierr.Internal, "route_config", name, err)
	}
	return &rc, nil
}

func (r *routeConfigRepo) Get(ctx context.Context, scope store.TeamScope, id model.RouteConfigID) (*model.RouteConfig, error) {
	row := r.s.pool.QueryRow(ctx, `SELECT `+routeConfigColumns+` FROM route_configs WHERE id = $1`, id)
	rc, err := scanRouteConfig(row, string(id))
	if err != nil {
		return nil, err
	}
	if !scope.Allows(rc.TeamID) {
		return nil, apierr.NotFoundf("route_config", string(id))
	}
	return rc, nil
}

func (r *routeConfigRepo) GetByName(ctx context.Context, scope store.TeamScope, teamID *model.TeamID, name string) (*model.RouteConfig, error) {
	row := r.s.pool.QueryRow(ctx, `
		SELECT `+routeConfigColumns+` FROM route_configs WHERE team_id IS NOT DISTINCT FROM $1 AND name = $2`, teamID, name)
	rc, err := scanRouteConfig(row, name)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(rc.TeamID) {
		return nil, apierr.NotFoundf("route_config", name)
	}
	return rc, nil
}

func (r *routeConfigRepo) List(ctx context.Context, scope store.TeamScope) ([]*model.RouteConfig, error) {
	rows, err := queryScoped(ctx, r.s.pool, `SELECT `+routeConfigColumns+` FROM route_configs`, "team_id", scope)
	if err != nil {
		return nil, translateErr(err, "route_config", "")
	}
	defer rows.Close()
	var out []*model.RouteConfig
	for rows.Next() {
		rc, err := scanRouteConfig(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (r *routeConfigRepo) Update(ctx context.Context, rc *model.RouteConfig) error {
	spec, err := json.Marshal(rc.Spec)
	if err != nil {
		return apierr.Wrap(apierr.Internal, "route_config", rc.Name, err)
	}
	err = withTx(ctx, r.s.pool, func(tx pgxTx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE route_configs SET name = $1, spec = $2, version = $3, updated_at = $4 WHERE id = $5`,
			rc.Name, spec, rc.Version, rc.UpdatedAt, rc.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apierr.NotFoundf("route_config", string(rc.ID))
		}
		return syncRouteConfigReadModel(ctx, tx, rc)
	})
	if err != nil {
		return translateErr(err, "route_config", rc.Name)
	}
	r.s.notify()
	return nil
}

func (r *routeConfigRepo) Delete(ctx context.Context, id model.RouteConfigID) error {
	var teamID *model.TeamID
	var name string
	err := r.s.pool.QueryRow(ctx, `SELECT team_id, name FROM route_configs WHERE id = $1`, id).Scan(&teamID, &name)
	if err != nil {
		return translateErr(err, "route_config", string(id))
	}
	if teamID == nil {
		return apierr.Forbiddenf("system resource %q is protected from deletion", name)
	}
	var refCount int
	if err := r.s.pool.QueryRow(ctx, `
		SELECT count(*) FROM listener_route_refs WHERE route_config_name = $1`, name).Scan(&refCount); err != nil {
		return translateErr(err, "route_config", string(id))
	}
	if refCount > 0 {
		return apierr.Conflictf("route_config", string(id), "route config is still referenced by a listener")
	}
	if _, err := r.s.pool.Exec(ctx, `DELETE FROM route_configs WHERE id = $1`, id); err != nil {
		return translateErr(err, "route_config", string(id))
	}
	r.s.notify()
	return nil
}
