package postgres

import (
	"context"
	"encoding/json"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
)

type auditRepo struct{ s *Store }

func (r *auditRepo) Append(ctx context.Context, entry *model.AuditLog) error {
	before, err := json.Marshal(entry.Before)
	if err != nil {
		return apierr.Wrap(apierr.Internal, "audit_log", entry.ResourceID, err)
	}
	after, err := json.Marshal(entry.After)
	if err != nil {
		return apierr.Wrap(apierr.Internal, "audit_log", entry.ResourceID, err)
	}
	_, err = r.s.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, actor_token_id, action, resource_type, resource_id, before, after, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.ActorTokenID, entry.Action, entry.ResourceType, entry.ResourceID, before, after, entry.Timestamp)
	if err != nil {
		return translateErr(err, "audit_log", entry.ResourceID)
	}
	r.s.notify()
	return nil
}

func (r *auditRepo) List(ctx context.Context, resourceType, resourceID string) ([]*model.AuditLog, error) {
	rows, err := r.s.pool.Query(ctx, `
		SELECT id, actor_token_id, action, resource_type, resource_id, before, after, timestamp
		FROM audit_logs WHERE resource_type = $1 AND resource_id = $2 ORDER BY timestamp`, resourceType, resourceID)
	if err != nil {
		return nil, translateErr(err, "audit_log", resourceID)
	}
	defer rows.Close()
	var out []*model.AuditLog
	for rows.Next() {
		var e model.AuditLog
		var before, after []byte
		if err := rows.Scan(&e.ID, &e.ActorTokenID, &e.Action, &e.ResourceType, &e.ResourceID, &before, &after, &e.Timestamp); err != nil {
			return nil, translateErr(err, "audit_log", resourceID)
		}
		if len(before) > 0 {
			_ = json.Unmarshal(before, &e.Before)
		}
		if len(after) > 0 {
			_ = json.Unmarshal(after, &e.After)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
