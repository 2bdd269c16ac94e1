package memory

import (
	"context"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

type routeConfigRepo Store

func (r *routeConfigRepo) s() *Store { return (*Store)(r) }

func (r *routeConfigRepo) Create(_ context.Context, rc *model.RouteConfig) error {
	s := r.s()
	s.mu.Lock()
	for _, existing := range s.routeConfigs {
		if sameTeam(existing.TeamID, rc.TeamID) && existing.Name == rc.Name {
			s.mu.Unlock()
			return apierr.AlreadyExistsf("route_config", rc.Name)
		}
	}
	cp := *rc
	s.routeConfigs[rc.ID] = &cp
	s.mu.Unlock()
	s.notify()
	return nil
}

func (r *routeConfigRepo) Get(_ context.Context, scope store.TeamScope, id model.RouteConfigID) (*model.RouteConfig, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	rc, ok := s.routeConfigs[id]
	if !ok || !scope.Allows(rc.TeamID) {
		return nil, apierr.NotFoundf("route_config", string(id))
	}
	cp := *rc
	return &cp, nil
}

func (r *routeConfigRepo) GetByName(_ context.Context, scope store.TeamScope, teamID *model.TeamID, name string) (*model.RouteConfig, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rc := range s.routeConfigs {
		if sameTeam(rc.TeamID, teamID) && rc.Name == name {
			if !scope.Allows(rc.TeamID) {
				return nil, apierr.NotFoundf("route_config", name)
			}
			cp := *rc
			return &cp, nil
		}
	}
	return nil, apierr.NotFoundf("route_config", name)
}

func (r *routeConfigRepo) List(_ context.Context, scope store.TeamScope) ([]*model.RouteConfig, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.RouteConfig
	for _, rc := range s.routeConfigs {
		if scope.Allows(rc.TeamID) {
			cp := *rc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *routeConfigRepo) Update(_ context.Context, rc *model.RouteConfig) error {
	s := r.s()
	s.mu.Lock()
	if _, ok := s.routeConfigs[rc.ID]; !ok {
		s.mu.Unlock()
		return apierr.NotFoundf("route_config", string(rc.ID))
	}
	cp := *rc
	s.routeConfigs[rc.ID] = &cp
	s.mu.Unlock()
	s.notify()
	return nil
}

func (r *routeConfigRepo) Delete(_ context.Context, id model.RouteConfigID) error {
	s := r.s()
	s.mu.Lock()
	rc, ok := s.routeConfigs[id]
	if !ok {
		s.mu.Unlock()
		return apierr.NotFoundf("route_config", string(id))
	}
	if rc.IsSystem() {
		s.mu.Unlock()
		return apierr.Forbiddenf("system resource %q is protected from deletion", rc.Name)
	}
	for _, l := range s.listeners {
		if l.ReferencesRouteConfig(rc.Name) {
			s.mu.Unlock()
			return apierr.Conflictf("route_config", string(id), "route config is still referenced by listener %q", l.Name)
		}
	}
	delete(s.routeConfigs, id)
	s.mu.Unlock()
	s.notify()
	return nil
}
