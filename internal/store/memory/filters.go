package memory

import (
	"context"
	"strings"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

type filterRepo Store

func (r *filterRepo) s() *Store { return (*Store)(r) }

func (r *filterRepo) Create(_ context.Context, f *model.Filter) error {
	s := r.s()
	s.mu.Lock()
	for _, existing := range s.filters {
		if existing.TeamID == f.TeamID && existing.Name == f.Name {
			s.mu.Unlock()
			return apierr.AlreadyExistsf("filter", f.Name)
		}
	}
	cp := *f
	s.filters[f.ID] = &cp
	s.mu.Unlock()
	s.notify()
	return nil
}

func (r *filterRepo) Get(_ context.Context, scope store.TeamScope, id model.FilterID) (*model.Filter, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.filters[id]
	if !ok || !scope.Allows(&f.TeamID) {
		return nil, apierr.NotFoundf("filter", string(id))
	}
	cp := *f
	return &cp, nil
}

func (r *filterRepo) GetByName(_ context.Context, teamID model.TeamID, name string) (*model.Filter, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.filters {
		if f.TeamID == teamID && f.Name == name {
			cp := *f
			return &cp, nil
		}
	}
	return nil, apierr.NotFoundf("filter", name)
}

func (r *filterRepo) List(_ context.Context, scope store.TeamScope) ([]*model.Filter, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Filter
	for _, f := range s.filters {
		if scope.Allows(&f.TeamID) {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *filterRepo) Update(_ context.Context, f *model.Filter) error {
	s := r.s()
	s.mu.Lock()
	if _, ok := s.filters[f.ID]; !ok {
		s.mu.Unlock()
		return apierr.NotFoundf("filter", string(f.ID))
	}
	cp := *f
	s.filters[f.ID] = &cp
	s.mu.Unlock()
	s.notify()
	return nil
}

func (r *filterRepo) Delete(_ context.Context, id model.FilterID) error {
	s := r.s()
	s.mu.Lock()
	if _, ok := s.filters[id]; !ok {
		s.mu.Unlock()
		return apierr.NotFoundf("filter", string(id))
	}
	prefix := string(id)
	for _, a := range s.attachments {
		if a.FilterID == model.FilterID(prefix) {
			s.mu.Unlock()
			return apierr.Conflictf("filter", string(id), "filter is still attached at scope %q", a.Scope)
		}
	}
	delete(s.filters, id)
	s.mu.Unlock()
	s.notify()
	return nil
}

// attachmentKey mirrors the composite key of the Postgres
// filter_attachments table: scope + scope_id + filter_id.
func attachmentKey(scope model.AttachmentScope, scopeID string, filterID model.FilterID) string {
	return strings.Join([]string{string(scope), scopeID, string(filterID)}, "/")
}
