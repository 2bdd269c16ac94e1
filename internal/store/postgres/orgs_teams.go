package postgres

import (
	"context"
	"encoding/json"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
)

type orgRepo struct{ s *Store }

func (r *orgRepo) Create(ctx context.Context, org *model.Organization) error {
	settings, _ := json.Marshal(org.Settings)
	_, err := r.s.pool.Exec(ctx, `
		INSERT INTO organizations (id, name, display_name, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		org.ID, org.Name, org.DisplayName, settings, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		return translateErr(err, "organization", org.Name)
	}
	r.s.notify()
	return nil
}

func (r *orgRepo) scanOrg(row interface {
	Scan(dest ...any) error
}, name string) (*model.Organization, error) {
	var o model.Organization
	var settings []byte
	if err := row.Scan(&o.ID, &o.Name, &o.DisplayName, &settings, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, translateErr(err, "organization", name)
	}
	if len(settings) > 0 {
		_ = json.Unmarshal(settings, &o.Settings)
	}
	return &o, nil
}

func (r *orgRepo) Get(ctx context.Context, id model.OrgID) (*model.Organization, error) {
	row := r.s.pool.QueryRow(ctx, `
		SELECT id, name, display_name, settings, created_at, updated_at
		FROM organizations WHERE id = $1`, id)
	return r.scanOrg(row, string(id))
}

func (r *orgRepo) GetByName(ctx context.Context, name string) (*model.Organization, error) {
	row := r.s.pool.QueryRow(ctx, `
		SELECT id, name, display_name, settings, created_at, updated_at
		FROM organizations WHERE name = $1`, name)
	return r.scanOrg(row, name)
}

func (r *orgRepo) List(ctx context.Context) ([]*model.Organization, error) {
	rows, err := r.s.pool.Query(ctx, `
		SELECT id, name, display_name, settings, created_at, updated_at
		FROM organizations ORDER BY name`)
	if err != nil {
		return nil, translateErr(err, "organization", "")
	}
	defer rows.Close()
	var out []*model.Organization
	for rows.Next() {
		o, err := r.scanOrg(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *orgRepo) Delete(ctx context.Context, id model.OrgID) error {
	var teamCount, userCount int
	if err := r.s.pool.QueryRow(ctx, `SELECT count(*) FROM teams WHERE org_id = $1`, id).Scan(&teamCount); err != nil {
		return translateErr(err, "organization", string(id))
	}
	if teamCount > 0 {
		return apierr.Conflictf("organization", string(id), "organization still has teams")
	}
	if err := r.s.pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE org_id = $1`, id).Scan(&userCount); err != nil {
		return translateErr(err, "organization", string(id))
	}
	if userCount > 0 {
		return apierr.Conflictf("organization", string(id), "organization still has users")
	}
	tag, err := r.s.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return translateErr(err, "organization", string(id))
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFoundf("organization", string(id))
	}
	r.s.notify()
	return nil
}

type teamRepo struct{ s *Store }

func (r *teamRepo) Create(ctx context.Context, team *model.Team) error {
	_, err := r.s.pool.Exec(ctx, `
		INSERT INTO teams (id, org_id, name, display_name, owner_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		team.ID, team.OrgID, team.Name, team.DisplayName, team.OwnerUserID, team.CreatedAt)
	if err != nil {
		return translateErr(err, "team", team.Name)
	}
	r.s.notify()
	return nil
}

func (r *teamRepo) scanTeam(row interface{ Scan(dest ...any) error }, name string) (*model.Team, error) {
	var t model.Team
	if err := row.Scan(&t.ID, &t.OrgID, &t.Name, &t.DisplayName, &t.OwnerUserID, &t.CreatedAt); err != nil {
		return nil, translateErr(err, "team", name)
	}
	return &t, nil
}

func (r *teamRepo) Get(ctx context.Context, id model.TeamID) (*model.Team, error) {
	row := r.s.pool.QueryRow(ctx, `
		SELECT id, org_id, name, display_name, owner_user_id, created_at
		FROM teams WHERE id = $1`, id)
	return r.scanTeam(row, string(id))
}

func (r *teamRepo) GetByName(ctx context.Context, orgID model.OrgID, name string) (*model.Team, error) {
	row := r.s.pool.QueryRow(ctx, `
		SELECT id, org_id, name, display_name, owner_user_id, created_at
		FROM teams WHERE org_id = $1 AND name = $2`, orgID, name)
	return r.scanTeam(row, name)
}

func (r *teamRepo) ListByOrg(ctx context.Context, orgID model.OrgID) ([]*model.Team, error) {
	rows, err := r.s.pool.Query(ctx, `
		SELECT id, org_id, name, display_name, owner_user_id, created_at
		FROM teams WHERE org_id = $1 ORDER BY name`, orgID)
	if err != nil {
		return nil, translateErr(err, "team", "")
	}
	defer rows.Close()
	var out []*model.Team
	for rows.Next() {
		t, err := r.scanTeam(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Delete relies on the schema's FK constraints (ON DELETE RESTRICT from
// clusters/route_configs/listeners/filters to teams) to surface a
// foreign_key_violation, which translateErr maps to Conflict — the
// Postgres analogue of internal/store/memory's explicit subtree scan.
func (r *teamRepo) Delete(ctx context.Context, id model.TeamID) error {
	tag, err := r.s.pool.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return translateErr(err, "team", string(id))
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFoundf("team", string(id))
	}
	r.s.notify()
	return nil
}
