package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.s.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, org_id, is_admin, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`,
		user.ID, user.Email, user.PasswordHash, user.OrgID, user.IsAdmin, user.CreatedAt)
	if err != nil {
		return translateErr(err, "user", user.Email)
	}
	r.s.notify()
	return nil
}

func scanUser(row interface{ Scan(dest ...any) error }, name string) (*model.User, error) {
	var u model.User
	var orgID *model.OrgID
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &orgID, &u.IsAdmin, &u.CreatedAt); err != nil {
		return nil, translateErr(err, "user", name)
	}
	if orgID != nil {
		u.OrgID = *orgID
	}
	return &u, nil
}

func (r *userRepo) Get(ctx context.Context, id model.UserID) (*model.User, error) {
	row := r.s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, org_id, is_admin, created_at FROM users WHERE id = $1`, id)
	return scanUser(row, string(id))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, org_id, is_admin, created_at FROM users WHERE email = $1`, email)
	return scanUser(row, email)
}

// AssignOrg implements spec.md 4.2's TOCTOU-closed transaction: the user
// row is locked FOR UPDATE before its org_id is inspected, so two
// concurrent AssignOrg calls for the same user can't both observe an
// unset org_id and both succeed.
func (r *userRepo) AssignOrg(ctx context.Context, userID model.UserID, orgID model.OrgID, role model.OrgRole) error {
	err := withTx(ctx, r.s.pool, func(tx pgx.Tx) error {
		var currentOrg *model.OrgID
		err := tx.QueryRow(ctx, `SELECT org_id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&currentOrg)
		if err != nil {
			return translateErr(err, "user", string(userID))
		}
		if currentOrg == nil {
			if _, err := tx.Exec(ctx, `UPDATE users SET org_id = $1 WHERE id = $2`, orgID, userID); err != nil {
				return translateErr(err, "user", string(userID))
			}
		} else if *currentOrg != orgID {
			return apierr.Conflictf("user", string(userID), "user already belongs to a different organization")
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO org_memberships (user_id, org_id, role) VALUES ($1, $2, $3)`,
			userID, orgID, role)
		if err != nil {
			return translateErr(err, "org_membership", string(userID)+"/"+string(orgID))
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.s.notify()
	return nil
}

func (r *userRepo) ListMemberships(ctx context.Context, orgID model.OrgID) ([]*model.OrgMembership, error) {
	rows, err := r.s.pool.Query(ctx, `
		SELECT user_id, org_id, role FROM org_memberships WHERE org_id = $1`, orgID)
	if err != nil {
		return nil, translateErr(err, "org_membership", "")
	}
	defer rows.Close()
	var out []*model.OrgMembership
	for rows.Next() {
		var m model.OrgMembership
		if err := rows.Scan(&m.UserID, &m.OrgID, &m.Role); err != nil {
			return nil, translateErr(err, "org_membership", "")
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *userRepo) GetMembership(ctx context.Context, userID model.UserID, orgID model.OrgID) (*model.OrgMembership, error) {
	var m model.OrgMembership
	err := r.s.pool.QueryRow(ctx, `
		SELECT user_id, org_id, role FROM org_memberships WHERE user_id = $1 AND org_id = $2`,
		userID, orgID).Scan(&m.UserID, &m.OrgID, &m.Role)
	if err != nil {
		return nil, translateErr(err, "org_membership", string(userID)+"/"+string(orgID))
	}
	return &m, nil
}

func countOwners(ctx context.Context, tx pgx.Tx, orgID model.OrgID) (int, error) {
	var n int
	err := tx.QueryRow(ctx, `
		SELECT count(*) FROM org_memberships WHERE org_id = $1 AND role = 'owner'`, orgID).Scan(&n)
	return n, err
}

func (r *userRepo) SetRole(ctx context.Context, userID model.UserID, orgID model.OrgID, role model.OrgRole) error {
	err := withTx(ctx, r.s.pool, func(tx pgx.Tx) error {
		var currentRole model.OrgRole
		err := tx.QueryRow(ctx, `
			SELECT role FROM org_memberships WHERE user_id = $1 AND org_id = $2 FOR UPDATE`,
			userID, orgID).Scan(&currentRole)
		if err != nil {
			return translateErr(err, "org_membership", string(userID)+"/"+string(orgID))
		}
		if currentRole == model.OrgRoleOwner && role != model.OrgRoleOwner {
			n, err := countOwners(ctx, tx, orgID)
			if err != nil {
				return translateErr(err, "org_membership", string(orgID))
			}
			if n <= 1 {
				return apierr.Conflictf("org_membership", string(userID), "cannot downgrade the last Owner of an organization")
			}
		}
		_, err = tx.Exec(ctx, `
			UPDATE org_memberships SET role = $1 WHERE user_id = $2 AND org_id = $3`, role, userID, orgID)
		return translateErr(err, "org_membership", string(userID))
	})
	if err != nil {
		return err
	}
	r.s.notify()
	return nil
}

func (r *userRepo) RemoveMembership(ctx context.Context, userID model.UserID, orgID model.OrgID) error {
	err := withTx(ctx, r.s.pool, func(tx pgx.Tx) error {
		var currentRole model.OrgRole
		err := tx.QueryRow(ctx, `
			SELECT role FROM org_memberships WHERE user_id = $1 AND org_id = $2 FOR UPDATE`,
			userID, orgID).Scan(&currentRole)
		if err != nil {
			return translateErr(err, "org_membership", string(userID)+"/"+string(orgID))
		}
		if currentRole == model.OrgRoleOwner {
			n, err := countOwners(ctx, tx, orgID)
			if err != nil {
				return translateErr(err, "org_membership", string(orgID))
			}
			if n <= 1 {
				return apierr.Conflictf("org_membership", string(userID), "cannot remove the last Owner of an organization")
			}
		}
		_, err = tx.Exec(ctx, `DELETE FROM org_memberships WHERE user_id = $1 AND org_id = $2`, userID, orgID)
		return translateErr(err, "org_membership", string(userID))
	})
	if err != nil {
		return err
	}
	r.s.notify()
	return nil
}

func (r *userRepo) SetTeamScopes(ctx context.Context, userID model.UserID, teamID model.TeamID, scopes []string) error {
	_, err := r.s.pool.Exec(ctx, `
		INSERT INTO team_memberships (user_id, team_id, scopes) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, team_id) DO UPDATE SET scopes = EXCLUDED.scopes`,
		userID, teamID, scopes)
	if err != nil {
		return translateErr(err, "team_membership", string(userID)+"/"+string(teamID))
	}
	r.s.notify()
	return nil
}

func (r *userRepo) TeamScopes(ctx context.Context, userID model.UserID, teamID model.TeamID) ([]string, error) {
	var scopes []string
	err := r.s.pool.QueryRow(ctx, `
		SELECT scopes FROM team_memberships WHERE user_id = $1 AND team_id = $2`,
		userID, teamID).Scan(&scopes)
	if err != nil {
		return nil, translateErr(err, "team_membership", string(userID)+"/"+string(teamID))
	}
	return scopes, nil
}

type tokenRepo struct{ s *Store }

func (r *tokenRepo) Create(ctx context.Context, t *model.PersonalAccessToken) error {
	_, err := r.s.pool.Exec(ctx, `
		INSERT INTO personal_access_tokens (id, user_id, name, token_hash, scopes, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.UserID, t.Name, t.TokenHash, t.Scopes, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return translateErr(err, "token", t.Name)
	}
	r.s.notify()
	return nil
}

func scanToken(row interface{ Scan(dest ...any) error }, name string) (*model.PersonalAccessToken, error) {
	var t model.PersonalAccessToken
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.TokenHash, &t.Scopes, &t.ExpiresAt, &t.CreatedAt); err != nil {
		return nil, translateErr(err, "token", name)
	}
	return &t, nil
}

func (r *tokenRepo) GetByHash(ctx context.Context, tokenHash string) (*model.PersonalAccessToken, error) {
	row := r.s.pool.QueryRow(ctx, `
		SELECT id, user_id, name, token_hash, scopes, expires_at, created_at
		FROM personal_access_tokens WHERE token_hash = $1`, tokenHash)
	return scanToken(row, "<hash>")
}

func (r *tokenRepo) Get(ctx context.Context, id model.TokenID) (*model.PersonalAccessToken, error) {
	row := r.s.pool.QueryRow(ctx, `
		SELECT id, user_id, name, token_hash, scopes, expires_at, created_at
		FROM personal_access_tokens WHERE id = $1`, id)
	return scanToken(row, string(id))
}

func (r *tokenRepo) ListByUser(ctx context.Context, userID model.UserID) ([]*model.PersonalAccessToken, error) {
	rows, err := r.s.pool.Query(ctx, `
		SELECT id, user_id, name, token_hash, scopes, expires_at, created_at
		FROM personal_access_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, translateErr(err, "token", "")
	}
	defer rows.Close()
	var out []*model.PersonalAccessToken
	for rows.Next() {
		t, err := scanToken(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *tokenRepo) Revoke(ctx context.Context, id model.TokenID) error {
	tag, err := r.s.pool.Exec(ctx, `DELETE FROM personal_access_tokens WHERE id = $1`, id)
	if err != nil {
		return translateErr(err, "token", string(id))
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFoundf("token", string(id))
	}
	r.s.notify()
	return nil
}
