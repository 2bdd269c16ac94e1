package postgres

import (
	"context"
	"encoding/json"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

type listenerRepo struct{ s *Store }

const listenerColumns = `id, name, team_id, address, port, protocol, spec, dataplane_id, version, created_at, updated_at`

// syncListenerRouteRefs maintains listener_route_refs, the normalized
// read-model table routeConfigRepo.Delete and ListReferencing query
// instead of decoding every listener's jsonb spec.
func syncListenerRouteRefs(ctx context.Context, tx pgxTx, l *model.Listener) error {
	if _, err := tx.Exec(ctx, `DELETE FROM listener_route_refs WHERE listener_id = $1`, l.ID); err != nil {
		return err
	}
	for _, hcm := range l.Spec.HCMs() {
		if hcm.RouteConfigName == "" {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO listener_route_refs (listener_id, route_config_name) VALUES ($1, $2)`,
			l.ID, hcm.RouteConfigName); err != nil {
			return err
		}
	}
	return nil
}

func (r *listenerRepo) Create(ctx context.Context, l *model.Listener) error {
	spec, err := json.Marshal(l.Spec)
	if err != nil {
		return apierr.Wrap(apierr.Internal, "listener", l.Name, err)
	}
	err = withTx(ctx, r.s.pool, func(tx pgxTx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO listeners (id, name, team_id, address, port, protocol, spec, dataplane_id, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			l.ID, l.Name, l.TeamID, l.Address, l.Port, l.Protocol, spec, l.DataplaneID, l.Version, l.CreatedAt, l.UpdatedAt)
		if err != nil {
			return err
		}
		return syncListenerRouteRefs(ctx, tx, l)
	})
	if err != nil {
		return translateErr(err, "listener", l.Name)
	}
	r.s.notify()
	return nil
}

func scanListener(row interface{ Scan(dest ...any) error }, name string) (*model.Listener, error) {
	var l model.Listener
	var spec []byte
	if err := row.Scan(&l.ID, &l.Name, &l.TeamID, &l.Address, &l.Port, &l.Protocol, &spec, &l.DataplaneID, &l.Version, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, translateErr(err, "listener", name)
	}
	if err := json.Unmarshal(spec, &l.Spec); err != nil {
		return nil, apierr.Wrap(apierr.Internal, "listener", name, err)
	}
	return &l, nil
}

func (r *listenerRepo) Get(ctx context.Context, scope store.TeamScope, id model.ListenerID) (*model.Listener, error) {
	row := r.s.pool.QueryRow(ctx, `SELECT `+listenerColumns+` FROM listeners WHERE id = $1`, id)
	l, err := scanListener(row, string(id))
	if err != nil {
		return nil, err
	}
	if !scope.Allows(l.TeamID) {
		return nil, apierr.NotFoundf("listener", string(id))
	}
	return l, nil
}

func (r *listenerRepo) GetByName(ctx context.Context, scope store.TeamScope, teamID *model.TeamID, name string) (*model.Listener, error) {
	row := r.s.pool.QueryRow(ctx, `
		SELECT `+listenerColumns+` FROM listeners WHERE team_id IS NOT DISTINCT FROM $1 AND name = $2`, teamID, name)
	l, err := scanListener(row, name)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(l.TeamID) {
		return nil, apierr.NotFoundf("listener", name)
	}
	return l, nil
}

func (r *listenerRepo) List(ctx context.Context, scope store.TeamScope) ([]*model.Listener, error) {
	rows, err := queryScoped(ctx, r.s.pool, `SELECT `+listenerColumns+` FROM listeners`, "team_id", scope)
	if err != nil {
		return nil, translateErr(err, "listener", "")
	}
	defer rows.Close()
	var out []*model.Listener
	for rows.Next() {
		l, err := scanListener(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *listenerRepo) ListReferencing(ctx context.Context, teamID *model.TeamID, routeConfigName string) ([]*model.Listener, error) {
	rows, err := r.s.pool.Query(ctx, `
		SELECT `+listenerColumns+` FROM listeners l
		JOIN listener_route_refs ref ON ref.listener_id = l.id
		WHERE l.team_id IS NOT DISTINCT FROM $1 AND ref.route_config_name = $2`, teamID, routeConfigName)
	if err != nil {
		return nil, translateErr(err, "listener", "")
	}
	defer rows.Close()
	var out []*model.Listener
	for rows.Next() {
		l, err := scanListener(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *listenerRepo) Update(ctx context.Context, l *model.Listener) error {
	spec, err := json.Marshal(l.Spec)
	if err != nil {
		return apierr.Wrap(apierr.Internal, "listener", l.Name, err)
	}
	err = withTx(ctx, r.s.pool, func(tx pgxTx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE listeners SET name = $1, address = $2, port = $3, protocol = $4, spec = $5,
				dataplane_id = $6, version = $7, updated_at = $8 WHERE id = $9`,
			l.Name, l.Address, l.Port, l.Protocol, spec, l.DataplaneID, l.Version, l.UpdatedAt, l.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apierr.NotFoundf("listener", string(l.ID))
		}
		return syncListenerRouteRefs(ctx, tx, l)
	})
	if err != nil {
		return translateErr(err, "listener", l.Name)
	}
	r.s.notify()
	return nil
}

func (r *listenerRepo) Delete(ctx context.Context, id model.ListenerID) error {
	var teamID *model.TeamID
	var name string
	err := r.s.pool.QueryRow(ctx, `SELECT team_id, name FROM listeners WHERE id = $1`, id).Scan(&teamID, &name)
	if err != nil {
		return translateErr(err, "listener", string(id))
	}
	if teamID == nil {
		return apierr.Forbiddenf("system resource %q is protected from deletion", name)
	}
	if _, err := r.s.pool.Exec(ctx, `DELETE FROM listeners WHERE id = $1`, id); err != nil {
		return translateErr(err, "listener", string(id))
	}
	r.s.notify()
	return nil
}
