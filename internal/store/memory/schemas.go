package memory

import (
	"context"
	"reflect"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

type schemaRepo Store

func (r *schemaRepo) s() *Store { return (*Store)(r) }

func schemaKey(teamID model.TeamID, path, method string) string {
	return string(teamID) + "/" + path + "/" + method
}

// Upsert replaces the current version of a (team, path, method) schema.
// If a prior version with a different ID exists and its RequestSchema
// differs, the new row is version-linked via PreviousVersionID rather
// than overwriting history in place, mirroring spec.md 4.7's
// breaking-change tracking. A row carrying the current row's ID replaces
// it at the same Version.
func (r *schemaRepo) Upsert(_ context.Context, sc *model.AggregatedSchema) error {
	s := r.s()
	s.mu.Lock()
	key := schemaKey(sc.TeamID, sc.Path, sc.HTTPMethod)
	if prev, ok := s.schemas[key]; ok && prev.ID != sc.ID && !reflect.DeepEqual(prev.RequestSchema, sc.RequestSchema) {
		prevID := prev.ID
		sc.PreviousVersionID = &prevID
		sc.Version = prev.Version + 1
	} else if ok {
		sc.Version = prev.Version
	} else {
		sc.Version = 1
	}
	cp := *sc
	s.schemas[key] = &cp
	s.mu.Unlock()
	s.notify()
	return nil
}

func (r *schemaRepo) Get(_ context.Context, teamID model.TeamID, path, method string) (*model.AggregatedSchema, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.schemas[schemaKey(teamID, path, method)]
	if !ok {
		return nil, apierr.NotFoundf("aggregated_schema", path+" "+method)
	}
	cp := *sc
	return &cp, nil
}

func (r *schemaRepo) List(_ context.Context, scope store.TeamScope) ([]*model.AggregatedSchema, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.AggregatedSchema
	for _, sc := range s.schemas {
		if scope.Allows(&sc.TeamID) {
			cp := *sc
			out = append(out, &cp)
		}
	}
	return out, nil
}
