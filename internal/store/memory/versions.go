package memory

import (
	"context"

	"github.com/flowmesh/controlplane/internal/store"
)

type versionRepo Store

func (r *versionRepo) s() *Store { return (*Store)(r) }

// Next returns the next value in rt's monotonic sequence, the source of
// truth for C5's per-resource version_info strings.
func (r *versionRepo) Next(_ context.Context, rt store.ResourceType) (uint64, error) {
	s := r.s()
	s.mu.Lock()
	s.versions[rt]++
	n := s.versions[rt]
	s.mu.Unlock()
	s.notify()
	return n, nil
}

func (r *versionRepo) Current(_ context.Context, rt store.ResourceType) (uint64, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[rt], nil
}
