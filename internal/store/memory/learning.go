package memory

import (
	"context"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

type learningRepo Store

func (r *learningRepo) s() *Store { return (*Store)(r) }

func (r *learningRepo) Create(_ context.Context, sess *model.LearningSession) error {
	s := r.s()
	s.mu.Lock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	s.mu.Unlock()
	s.notify()
	return nil
}

func (r *learningRepo) Get(_ context.Context, id model.LearningSessionID) (*model.LearningSession, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, apierr.NotFoundf("learning_session", string(id))
	}
	cp := *sess
	return &cp, nil
}

func (r *learningRepo) List(_ context.Context, scope store.TeamScope) ([]*model.LearningSession, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.LearningSession
	for _, sess := range s.sessions {
		if scope.Allows(&sess.TeamID) {
			cp := *sess
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *learningRepo) ListActive(_ context.Context) ([]*model.LearningSession, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.LearningSession
	for _, sess := range s.sessions {
		if sess.Status == model.SessionActive {
			cp := *sess
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *learningRepo) Update(_ context.Context, sess *model.LearningSession) error {
	s := r.s()
	s.mu.Lock()
	if _, ok := s.sessions[sess.ID]; !ok {
		s.mu.Unlock()
		return apierr.NotFoundf("learning_session", string(sess.ID))
	}
	cp := *sess
	s.sessions[sess.ID] = &cp
	s.mu.Unlock()
	s.notify()
	return nil
}

// IncrementSample bumps CurrentSampleCount under the store mutex so
// concurrent access-log workers observe a consistent sequence, the same
// guarantee a "SELECT ... FOR UPDATE" + increment gives in Postgres.
func (r *learningRepo) IncrementSample(_ context.Context, id model.LearningSessionID) (int, error) {
	s := r.s()
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return 0, apierr.NotFoundf("learning_session", string(id))
	}
	sess.CurrentSampleCount++
	n := sess.CurrentSampleCount
	s.mu.Unlock()
	s.notify()
	return n, nil
}
