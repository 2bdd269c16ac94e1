package memory

import (
	"context"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

type clusterRepo Store

func (r *clusterRepo) s() *Store { return (*Store)(r) }

func sameTeam(a, b *model.TeamID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (r *clusterRepo) Create(_ context.Context, c *model.Cluster) error {
	s := r.s()
	s.mu.Lock()
	for _, existing := range s.clusters {
		if sameTeam(existing.TeamID, c.TeamID) && existing.Name == c.Name {
			s.mu.Unlock()
			return apierr.AlreadyExistsf("cluster", c.Name)
		}
	}
	cp := *c
	s.clusters[c.ID] = &cp
	s.mu.Unlock()
	s.notify()
	return nil
}

func (r *clusterRepo) Get(_ context.Context, scope store.TeamScope, id model.ClusterID) (*model.Cluster, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clusters[id]
	// Cross-tenant reads return NotFound, never Forbidden, so existence
	// isn't leaked (spec.md 4.2).
	if !ok || !scope.Allows(c.TeamID) {
		return nil, apierr.NotFoundf("cluster", string(id))
	}
	cp := *c
	return &cp, nil
}

func (r *clusterRepo) GetByName(_ context.Context, scope store.TeamScope, teamID *model.TeamID, name string) (*model.Cluster, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clusters {
		if sameTeam(c.TeamID, teamID) && c.Name == name {
			if !scope.Allows(c.TeamID) {
				return nil, apierr.NotFoundf("cluster", name)
			}
			cp := *c
			return &cp, nil
		}
	}
	return nil, apierr.NotFoundf("cluster", name)
}

func (r *clusterRepo) List(_ context.Context, scope store.TeamScope) ([]*model.Cluster, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Cluster
	for _, c := range s.clusters {
		if scope.Allows(c.TeamID) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *clusterRepo) Update(_ context.Context, c *model.Cluster) error {
	s := r.s()
	s.mu.Lock()
	if _, ok := s.clusters[c.ID]; !ok {
		s.mu.Unlock()
		return apierr.NotFoundf("cluster", string(c.ID))
	}
	cp := *c
	s.clusters[c.ID] = &cp
	s.mu.Unlock()
	s.notify()
	return nil
}

func (r *clusterRepo) Delete(_ context.Context, id model.ClusterID) error {
	s := r.s()
	s.mu.Lock()
	c, ok := s.clusters[id]
	if !ok {
		s.mu.Unlock()
		return apierr.NotFoundf("cluster", string(id))
	}
	if c.IsSystem() {
		s.mu.Unlock()
		return apierr.Forbiddenf("system resource %q is protected from deletion", c.Name)
	}
	delete(s.clusters, id)
	s.mu.Unlock()
	s.notify()
	return nil
}
