package postgres

import (
	"context"
	"encoding/json"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

type filterRepo struct{ s *Store }

const filterColumns = `id, name, team_id, filter_type, description, spec, created_at, updated_at`

func (r *filterRepo) Create(ctx context.Context, f *model.Filter) error {
	spec, err := json.Marshal(f.Spec)
	if err != nil {
		return apierr.Wrap(apierr.Internal, "filter", f.Name, err)
	}
	_, err = r.s.pool.Exec(ctx, `
		INSERT INTO filters (id, name, team_id, filter_type, description, spec, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		f.ID, f.Name, f.TeamID, f.FilterType, f.Description, spec, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return translateErr(err, "filter", f.Name)
	}
	r.s.notify()
	return nil
}

func scanFilter(row interface{ Scan(dest ...any) error }, name string) (*model.Filter, error) {
	var f model.Filter
	var spec []byte
	if err := row.Scan(&f.ID, &f.Name, &f.TeamID, &f.FilterType, &f.Description, &spec, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, translateErr(err, "filter", name)
	}
	if len(spec) > 0 {
		if err := json.Unmarshal(spec, &f.Spec); err != nil {
			return nil, apierr.Wrap(apierr.Internal, "filter", name, err)
		}
	}
	return &f, nil
}

func (r *filterRepo) Get(ctx context.Context, scope store.TeamScope, id model.FilterID) (*model.Filter, error) {
	row := r.s.pool.QueryRow(ctx, `SELECT `+filterColumns+` FROM filters WHERE id = $1`, id)
	f, err := scanFilter(row, string(id))
	if err != nil {
		return nil, err
	}
	if !scope.Allows(&f.TeamID) {
		return nil, apierr.NotFoundf("filter", string(id))
	}
	return f, nil
}

func (r *filterRepo) GetByName(ctx context.Context, teamID model.TeamID, name string) (*model.Filter, error) {
	row := r.s.pool.QueryRow(ctx, `
		SELECT `+filterColumns+` FROM filters WHERE team_id = $1 AND name = $2`, teamID, name)
	return scanFilter(row, name)
}

func (r *filterRepo) List(ctx context.Context, scope store.TeamScope) ([]*model.Filter, error) {
	rows, err := queryScoped(ctx, r.s.pool, `SELECT `+filterColumns+` FROM filters`, "team_id", scope)
	if err != nil {
		return nil, translateErr(err, "filter", "")
	}
	defer rows.Close()
	var out []*model.Filter
	for rows.Next() {
		f, err := scanFilter(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *filterRepo) Update(ctx context.Context, f *model.Filter) error {
	spec, err := json.Marshal(f.Spec)
	if err != nil {
		return apierr.Wrap(apierr.Internal, "filter", f.Name, err)
	}
	tag, err := r.s.pool.Exec(ctx, `
		UPDATE filters SET name = $1, description = $2, spec = $3, updated_at = $4 WHERE id = $5`,
		f.Name, f.Description, spec, f.UpdatedAt, f.ID)
	if err != nil {
		return translateErr(err, "filter", f.Name)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFoundf("filter", string(f.ID))
	}
	r.s.notify()
	return nil
}

func (r *filterRepo) Delete(ctx context.Context, id model.FilterID) error {
	tag, err := r.s.pool.Exec(ctx, `DELETE FROM filters WHERE id = $1`, id)
	if err != nil {
		return translateErr(err, "filter", string(id))
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFoundf("filter", string(id))
	}
	r.s.notify()
	return nil
}
