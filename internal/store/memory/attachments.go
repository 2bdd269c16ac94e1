package memory

import (
	"context"
	"strings"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
)

type attachmentRepo Store

func (r *attachmentRepo) s() *Store { return (*Store)(r) }

func (r *attachmentRepo) Attach(_ context.Context, a *model.FilterAttachment) (bool, error) {
	s := r.s()
	s.mu.Lock()
	key := attachmentKey(a.Scope, a.ScopeID, a.FilterID)
	_, existed := s.attachments[key]
	cp := *a
	s.attachments[key] = &cp
	s.mu.Unlock()
	s.notify()
	return !existed, nil
}

func (r *attachmentRepo) Detach(_ context.Context, scope model.AttachmentScope, scopeID string, filterID model.FilterID) error {
	s := r.s()
	s.mu.Lock()
	key := attachmentKey(scope, scopeID, filterID)
	if _, ok := s.attachments[key]; !ok {
		s.mu.Unlock()
		return apierr.NotFoundf("filter_attachment", key)
	}
	delete(s.attachments, key)
	s.mu.Unlock()
	s.notify()
	return nil
}

func (r *attachmentRepo) ListByScope(_ context.Context, scope model.AttachmentScope, scopeID string) ([]*model.FilterAttachment, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := string(scope) + "/" + scopeID + "/"
	var out []*model.FilterAttachment
	for key, a := range s.attachments {
		if strings.HasPrefix(key, prefix) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListByRouteConfig returns every attachment whose ScopeID falls under
// routeConfigID: the RouteConfig's own scope, plus every VirtualHost and
// Route scope keyed "<rc-id>/..." beneath it (model.FilterAttachment's
// ScopeID encoding).
func (r *attachmentRepo) ListByRouteConfig(_ context.Context, routeConfigID model.RouteConfigID) ([]*model.FilterAttachment, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	rcID := string(routeConfigID)
	var out []*model.FilterAttachment
	for _, a := range s.attachments {
		switch a.Scope {
		case model.ScopeRouteConfig:
			if a.ScopeID == rcID {
				cp := *a
				out = append(out, &cp)
			}
		case model.ScopeVirtualHost, model.ScopeRoute:
			if strings.HasPrefix(a.ScopeID, rcID+"/") {
				cp := *a
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}
