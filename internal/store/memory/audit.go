package memory

import (
	"context"

	"github.com/flowmesh/controlplane/internal/model"
)

type auditRepo Store

func (r *auditRepo) s() *Store { return (*Store)(r) }

func (r *auditRepo) Append(_ context.Context, entry *model.AuditLog) error {
	s := r.s()
	s.mu.Lock()
	cp := *entry
	s.audit = append(s.audit, &cp)
	s.mu.Unlock()
	s.notify()
	return nil
}

func (r *auditRepo) List(_ context.Context, resourceType, resourceID string) ([]*model.AuditLog, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.AuditLog
	for _, entry := range s.audit {
		if entry.ResourceType == resourceType && entry.ResourceID == resourceID {
			cp := *entry
			out = append(out, &cp)
		}
	}
	return out, nil
}
