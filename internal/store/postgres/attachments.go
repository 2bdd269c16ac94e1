package postgres

import (
	"context"
	"encoding/json"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
)

type attachmentRepo struct{ s *Store }

func (r *attachmentRepo) Attach(ctx context.Context, a *model.FilterAttachment) (bool, error) {
	var settings []byte
	var err error
	if a.Settings != nil {
		settings, err = json.Marshal(a.Settings)
		if err != nil {
			return false, apierr.Wrap(apierr.Internal, "filter_attachment", a.ScopeID, err)
		}
	}
	tag, err := r.s.pool.Exec(ctx, `
		INSERT INTO filter_attachments (filter_id, scope, scope_id, settings)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (scope, scope_id, filter_id) DO UPDATE SET settings = EXCLUDED.settings`,
		a.FilterID, a.Scope, a.ScopeID, settings)
	if err != nil {
		return false, translateErr(err, "filter_attachment", a.ScopeID)
	}
	r.s.notify()
	// ON CONFLICT DO UPDATE always reports RowsAffected()==1; distinguishing
	// create-vs-update would need a RETURNING xmax trick not worth the
	// complexity here, so created is approximated as "statement succeeded".
	return tag.RowsAffected() == 1, nil
}

func (r *attachmentRepo) Detach(ctx context.Context, scope model.AttachmentScope, scopeID string, filterID model.FilterID) error {
	tag, err := r.s.pool.Exec(ctx, `
		DELETE FROM filter_attachments WHERE scope = $1 AND scope_id = $2 AND filter_id = $3`,
		scope, scopeID, filterID)
	if err != nil {
		return translateErr(err, "filter_attachment", scopeID)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFoundf("filter_attachment", scopeID)
	}
	r.s.notify()
	return nil
}

func scanAttachment(rows interface{ Scan(dest ...any) error }) (*model.FilterAttachment, error) {
	var a model.FilterAttachment
	var settings []byte
	if err := rows.Scan(&a.FilterID, &a.Scope, &a.ScopeID, &settings); err != nil {
		return nil, translateErr(err, "filter_attachment", a.ScopeID)
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &a.Settings); err != nil {
			return nil, apierr.Wrap(apierr.Internal, "filter_attachment", a.ScopeID, err)
		}
	}
	return &a, nil
}

func (r *attachmentRepo) ListByScope(ctx context.Context, scope model.AttachmentScope, scopeID string) ([]*model.FilterAttachment, error) {
	rows, err := r.s.pool.Query(ctx, `
		SELECT filter_id, scope, scope_id, settings FROM filter_attachments
		WHERE scope = $1 AND scope_id = $2`, scope, scopeID)
	if err != nil {
		return nil, translateErr(err, "filter_attachment", scopeID)
	}
	defer rows.Close()
	var out []*model.FilterAttachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListByRouteConfig mirrors internal/store/memory's prefix scan: a
// RouteConfig-scope attachment matches scope_id = routeConfigID exactly,
// while VirtualHost/Route-scope attachments match scope_id values of the
// form "<rc-id>/...".
func (r *attachmentRepo) ListByRouteConfig(ctx context.Context, routeConfigID model.RouteConfigID) ([]*model.FilterAttachment, error) {
	rcID := string(routeConfigID)
	rows, err := r.s.pool.Query(ctx, `
		SELECT filter_id, scope, scope_id, settings FROM filter_attachments
		WHERE (scope = 'route_config' AND scope_id = $1)
		   OR (scope IN ('virtual_host', 'route') AND scope_id LIKE $2)`,
		rcID, rcID+"/%")
	if err != nil {
		return nil, translateErr(err, "filter_attachment", rcID)
	}
	defer rows.Close()
	var out []*model.FilterAttachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
