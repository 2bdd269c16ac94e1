package memory

import (
	"context"
	"fmt"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
)

type userRepo Store

func (r *userRepo) s() *Store { return (*Store)(r) }

func membershipKey(userID model.UserID, orgID model.OrgID) string {
	return fmt.Sprintf("%s/%s", userID, orgID)
}

func teamScopeKey(userID model.UserID, teamID model.TeamID) string {
	return fmt.Sprintf("%s/%s", userID, teamID)
}

func (r *userRepo) Create(_ context.Context, user *model.User) error {
	s := r.s()
	s.mu.Lock()
	for _, u := range s.users {
		if u.Email == user.Email {
			s.mu.Unlock()
			return apierr.AlreadyExistsf("user", user.Email)
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	s.mu.Unlock()
	s.notify()
	return nil
}

func (r *userRepo) Get(_ context.Context, id model.UserID) (*model.User, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apierr.NotFoundf("user", string(id))
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apierr.NotFoundf("user", email)
}

// AssignOrg mirrors spec.md 4.2's single-transaction flow: lock the
// (simulated) user row, check the current org_id, set it if unset, then
// check for an existing membership and insert it. The in-memory store
// holds s.mu for the whole call, which is the mutex-based equivalent of
// "SELECT ... FOR UPDATE" for a single-process test double.
func (r *userRepo) AssignOrg(_ context.Context, userID model.UserID, orgID model.OrgID, role model.OrgRole) error {
	s := r.s()
	s.mu.Lock()
	defer func() { s.mu.Unlock(); s.notify() }()

	u, ok := s.users[userID]
	if !ok {
		return apierr.NotFoundf("user", string(userID))
	}
	if u.OrgID == "" {
		u.OrgID = orgID
	} else if u.OrgID != orgID {
		return apierr.Conflictf("user", string(userID), "user already belongs to a different organization")
	}

	key := membershipKey(userID, orgID)
	if _, exists := s.memberships[key]; exists {
		return apierr.AlreadyExistsf("org_membership", key)
	}
	s.memberships[key] = &model.OrgMembership{UserID: userID, OrgID: orgID, Role: role}
	return nil
}

func (r *userRepo) ListMemberships(_ context.Context, orgID model.OrgID) ([]*model.OrgMembership, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.OrgMembership
	for _, m := range s.memberships {
		if m.OrgID == orgID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *userRepo) GetMembership(_ context.Context, userID model.UserID, orgID model.OrgID) (*model.OrgMembership, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memberships[membershipKey(userID, orgID)]
	if !ok {
		return nil, apierr.NotFoundf("org_membership", membershipKey(userID, orgID))
	}
	cp := *m
	return &cp, nil
}

// countOwners must be called with s.mu already held.
func (s *Store) countOwners(orgID model.OrgID) int {
	n := 0
	for _, m := range s.memberships {
		if m.OrgID == orgID && m.Role == model.OrgRoleOwner {
			n++
		}
	}
	return n
}

func (r *userRepo) SetRole(_ context.Context, userID model.UserID, orgID model.OrgID, role model.OrgRole) error {
	s := r.s()
	s.mu.Lock()
	defer func() { s.mu.Unlock(); s.notify() }()

	key := membershipKey(userID, orgID)
	m, ok := s.memberships[key]
	if !ok {
		return apierr.NotFoundf("org_membership", key)
	}
	if m.Role == model.OrgRoleOwner && role != model.OrgRoleOwner && s.countOwners(orgID) <= 1 {
		return apierr.Conflictf("org_membership", key, "cannot downgrade the last Owner of an organization")
	}
	m.Role = role
	return nil
}

func (r *userRepo) RemoveMembership(_ context.Context, userID model.UserID, orgID model.OrgID) error {
	s := r.s()
	s.mu.Lock()
	defer func() { s.mu.Unlock(); s.notify() }()

	key := membershipKey(userID, orgID)
	m, ok := s.memberships[key]
	if !ok {
		return apierr.NotFoundf("org_membership", key)
	}
	if m.Role == model.OrgRoleOwner && s.countOwners(orgID) <= 1 {
		return apierr.Conflictf("org_membership", key, "cannot remove the last Owner of an organization")
	}
	delete(s.memberships, key)
	return nil
}

func (r *userRepo) SetTeamScopes(_ context.Context, userID model.UserID, teamID model.TeamID, scopes []string) error {
	s := r.s()
	s.mu.Lock()
	s.teamScopes[teamScopeKey(userID, teamID)] = append([]string(nil), scopes...)
	s.mu.Unlock()
	s.notify()
	return nil
}

func (r *userRepo) TeamScopes(_ context.Context, userID model.UserID, teamID model.TeamID) ([]string, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	scopes, ok := s.teamScopes[teamScopeKey(userID, teamID)]
	if !ok {
		return nil, apierr.NotFoundf("team_membership", teamScopeKey(userID, teamID))
	}
	return append([]string(nil), scopes...), nil
}
