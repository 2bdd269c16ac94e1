package memory

import (
	"context"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
)

type tokenRepo Store

func (r *tokenRepo) s() *Store { return (*Store)(r) }

func (r *tokenRepo) Create(_ context.Context, t *model.PersonalAccessToken) error {
	s := r.s()
	s.mu.Lock()
	for _, existing := range s.tokens {
		if existing.TokenHash == t.TokenHash {
			s.mu.Unlock()
			return apierr.AlreadyExistsf("token", t.Name)
		}
	}
	cp := *t
	s.tokens[t.ID] = &cp
	s.mu.Unlock()
	s.notify()
	return nil
}

func (r *tokenRepo) GetByHash(_ context.Context, tokenHash string) (*model.PersonalAccessToken, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tokens {
		if t.TokenHash == tokenHash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apierr.NotFoundf("token", "<hash>")
}

func (r *tokenRepo) Get(_ context.Context, id model.TokenID) (*model.PersonalAccessToken, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[id]
	if !ok {
		return nil, apierr.NotFoundf("token", string(id))
	}
	cp := *t
	return &cp, nil
}

func (r *tokenRepo) ListByUser(_ context.Context, userID model.UserID) ([]*model.PersonalAccessToken, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.PersonalAccessToken
	for _, t := range s.tokens {
		if t.UserID != nil && *t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *tokenRepo) Revoke(_ context.Context, id model.TokenID) error {
	s := r.s()
	s.mu.Lock()
	defer func() { s.mu.Unlock(); s.notify() }()
	if _, ok := s.tokens[id]; !ok {
		return apierr.NotFoundf("token", string(id))
	}
	delete(s.tokens, id)
	return nil
}
