package postgres

import (
	"context"
	"encoding/json"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

type clusterRepo struct{ s *Store }

func (r *clusterRepo) Create(ctx context.Context, c *model.Cluster) error {
	spec, err := json.Marshal(c.Spec)
	if err != nil {
		return apierr.Wrap(apierr.Internal, "cluster", c.Name, err)
	}
	_, err = r.s.pool.Exec(ctx, `
		INSERT INTO clusters (id, name, team_id, service_name, spec, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Name, c.TeamID, c.ServiceName, spec, c.Version, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return translateErr(err, "cluster", c.Name)
	}
	r.s.notify()
	return nil
}

func scanCluster(row interface{ Scan(dest ...any) error }, name string) (*model.Cluster, error) {
	var c model.Cluster
	var spec []byte
	if err := row.Scan(&c.ID, &c.Name, &c.TeamID, &c.ServiceName, &spec, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, translateErr(err, "cluster", name)
	}
	if err := json.Unmarshal(spec, &c.Spec); err != nil {
		return nil, apierr.Wrap(apierr.Internal, "cluster", name, err)
	}
	return &c, nil
}

const clusterColumns = `id, name, team_id, service_name, spec, version, created_at, updated_at`

func (r *clusterRepo) Get(ctx context.Context, scope store.TeamScope, id model.ClusterID) (*model.Cluster, error) {
	row := r.s.pool.QueryRow(ctx, `SELECT `+clusterColumns+` FROM clusters WHERE id = $1`, id)
	c, err := scanCluster(row, string(id))
	if err != nil {
		return nil, err
	}
	// Cross-tenant reads return NotFound, never Forbidden (spec.md 4.2).
	if !scope.Allows(c.TeamID) {
		return nil, apierr.NotFoundf("cluster", string(id))
	}
	return c, nil
}

func (r *clusterRepo) GetByName(ctx context.Context, scope store.TeamScope, teamID *model.TeamID, name string) (*model.Cluster, error) {
	row := r.s.pool.QueryRow(ctx, `
		SELECT `+clusterColumns+` FROM clusters WHERE team_id IS NOT DISTINCT FROM $1 AND name = $2`, teamID, name)
	c, err := scanCluster(row, name)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(c.TeamID) {
		return nil, apierr.NotFoundf("cluster", name)
	}
	return c, nil
}

func (r *clusterRepo) List(ctx context.Context, scope store.TeamScope) ([]*model.Cluster, error) {
	rows, err := queryScoped(ctx, r.s.pool, `SELECT `+clusterColumns+` FROM clusters`, "team_id", scope)
	if err != nil {
		return nil, translateErr(err, "cluster", "")
	}
	defer rows.Close()
	var out []*model.Cluster
	for rows.Next() {
		c, err := scanCluster(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *clusterRepo) Update(ctx context.Context, c *model.Cluster) error {
	spec, err := json.Marshal(c.Spec)
	if err != nil {
		return apierr.Wrap(apierr.Internal, "cluster", c.Name, err)
	}
	tag, err := r.s.pool.Exec(ctx, `
		UPDATE clusters SET name = $1, service_name = $2, spec = $3, version = $4, updated_at = $5
		WHERE id = $6`, c.Name, c.ServiceName, spec, c.Version, c.UpdatedAt, c.ID)
	if err != nil {
		return translateErr(err, "cluster", c.Name)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFoundf("cluster", string(c.ID))
	}
	r.s.notify()
	return nil
}

func (r *clusterRepo) Delete(ctx context.Context, id model.ClusterID) error {
	var teamID *model.TeamID
	var name string
	err := r.s.pool.QueryRow(ctx, `SELECT team_id, name FROM clusters WHERE id = $1`, id).Scan(&teamID, &name)
	if err != nil {
		return translateErr(err, "cluster", string(id))
	}
	if teamID == nil {
		return apierr.Forbiddenf("system resource %q is protected from deletion", name)
	}
	if _, err := r.s.pool.Exec(ctx, `DELETE FROM clusters WHERE id = $1`, id); err != nil {
		return translateErr(err, "cluster", string(id))
	}
	r.s.notify()
	return nil
}
