package memory

import (
	"context"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

type listenerRepo Store

func (r *listenerRepo) s() *Store { return (*Store)(r) }

func (r *listenerRepo) Create(_ context.Context, l *model.Listener) error {
	s := r.s()
	s.mu.Lock()
	for _, existing := range s.listeners {
		if sameTeam(existing.TeamID, l.TeamID) && existing.Name == l.Name {
			s.mu.Unlock()
			return apierr.AlreadyExistsf("listener", l.Name)
		}
	}
	cp := *l
	s.listeners[l.ID] = &cp
	s.mu.Unlock()
	s.notify()
	return nil
}

func (r *listenerRepo) Get(_ context.Context, scope store.TeamScope, id model.ListenerID) (*model.Listener, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listeners[id]
	if !ok || !scope.Allows(l.TeamID) {
		return nil, apierr.NotFoundf("listener", string(id))
	}
	cp := *l
	return &cp, nil
}

func (r *listenerRepo) GetByName(_ context.Context, scope store.TeamScope, teamID *model.TeamID, name string) (*model.Listener, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.listeners {
		if sameTeam(l.TeamID, teamID) && l.Name == name {
			if !scope.Allows(l.TeamID) {
				return nil, apierr.NotFoundf("listener", name)
			}
			cp := *l
			return &cp, nil
		}
	}
	return nil, apierr.NotFoundf("listener", name)
}

func (r *listenerRepo) List(_ context.Context, scope store.TeamScope) ([]*model.Listener, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Listener
	for _, l := range s.listeners {
		if scope.Allows(l.TeamID) {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *listenerRepo) ListReferencing(_ context.Context, teamID *model.TeamID, routeConfigName string) ([]*model.Listener, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Listener
	for _, l := range s.listeners {
		if sameTeam(l.TeamID, teamID) && l.ReferencesRouteConfig(routeConfigName) {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *listenerRepo) Update(_ context.Context, l *model.Listener) error {
	s := r.s()
	s.mu.Lock()
	if _, ok := s.listeners[l.ID]; !ok {
		s.mu.Unlock()
		return apierr.NotFoundf("listener", string(l.ID))
	}
	cp := *l
	s.listeners[l.ID] = &cp
	s.mu.Unlock()
	s.notify()
	return nil
}

func (r *listenerRepo) Delete(_ context.Context, id model.ListenerID) error {
	s := r.s()
	s.mu.Lock()
	l, ok := s.listeners[id]
	if !ok {
		s.mu.Unlock()
		return apierr.NotFoundf("listener", string(id))
	}
	if l.IsSystem() {
		s.mu.Unlock()
		return apierr.Forbiddenf("system resource %q is protected from deletion", l.Name)
	}
	delete(s.listeners, id)
	s.mu.Unlock()
	s.notify()
	return nil
}
