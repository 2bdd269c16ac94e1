package memory

import (
	"context"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
)

type orgRepo Store

func (r *orgRepo) s() *Store { return (*Store)(r) }

func (r *orgRepo) Create(_ context.Context, org *model.Organization) error {
	s := r.s()
	s.mu.Lock()
	for _, o := range s.orgs {
		if o.Name == org.Name {
			s.mu.Unlock()
			return apierr.AlreadyExistsf("organization", org.Name)
		}
	}
	cp := *org
	s.orgs[org.ID] = &cp
	s.mu.Unlock()
	s.notify()
	return nil
}

func (r *orgRepo) Get(_ context.Context, id model.OrgID) (*model.Organization, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orgs[id]
	if !ok {
		return nil, apierr.NotFoundf("organization", string(id))
	}
	cp := *o
	return &cp, nil
}

func (r *orgRepo) GetByName(_ context.Context, name string) (*model.Organization, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orgs {
		if o.Name == name {
			cp := *o
			return &cp, nil
		}
	}
	return nil, apierr.NotFoundf("organization", name)
}

func (r *orgRepo) List(_ context.Context) ([]*model.Organization, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Organization, 0, len(s.orgs))
	for _, o := range s.orgs {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (r *orgRepo) Delete(_ context.Context, id model.OrgID) error {
	s := r.s()
	s.mu.Lock()
	defer func() { s.mu.Unlock(); s.notify() }()

	if _, ok := s.orgs[id]; !ok {
		return apierr.NotFoundf("organization", string(id))
	}
	for _, t := range s.teams {
		if t.OrgID == id {
			return apierr.Conflictf("organization", string(id), "organization still has teams")
		}
	}
	for _, u := range s.users {
		if u.OrgID == id {
			return apierr.Conflictf("organization", string(id), "organization still has users")
		}
	}
	delete(s.orgs, id)
	return nil
}

type teamRepo Store

func (r *teamRepo) s() *Store { return (*Store)(r) }

func (r *teamRepo) Create(_ context.Context, team *model.Team) error {
	s := r.s()
	s.mu.Lock()
	for _, t := range s.teams {
		if t.OrgID == team.OrgID && t.Name == team.Name {
			s.mu.Unlock()
			return apierr.AlreadyExistsf("team", team.Name)
		}
	}
	cp := *team
	s.teams[team.ID] = &cp
	s.mu.Unlock()
	s.notify()
	return nil
}

func (r *teamRepo) Get(_ context.Context, id model.TeamID) (*model.Team, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return nil, apierr.NotFoundf("team", string(id))
	}
	cp := *t
	return &cp, nil
}

func (r *teamRepo) GetByName(_ context.Context, orgID model.OrgID, name string) (*model.Team, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.teams {
		if t.OrgID == orgID && t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apierr.NotFoundf("team", name)
}

func (r *teamRepo) ListByOrg(_ context.Context, orgID model.OrgID) ([]*model.Team, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Team
	for _, t := range s.teams {
		if t.OrgID == orgID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *teamRepo) Delete(_ context.Context, id model.TeamID) error {
	s := r.s()
	s.mu.Lock()
	defer func() { s.mu.Unlock(); s.notify() }()

	if _, ok := s.teams[id]; !ok {
		return apierr.NotFoundf("team", string(id))
	}
	for _, c := range s.clusters {
		if c.TeamID != nil && *c.TeamID == id {
			return apierr.Conflictf("team", string(id), "team still owns clusters")
		}
	}
	for _, rc := range s.routeConfigs {
		if rc.TeamID != nil && *rc.TeamID == id {
			return apierr.Conflictf("team", string(id), "team still owns route configs")
		}
	}
	for _, l := range s.listeners {
		if l.TeamID != nil && *l.TeamID == id {
			return apierr.Conflictf("team", string(id), "team still owns listeners")
		}
	}
	for _, f := range s.filters {
		if f.TeamID == id {
			return apierr.Conflictf("team", string(id), "team still owns filters")
		}
	}
	delete(s.teams, id)
	return nil
}
