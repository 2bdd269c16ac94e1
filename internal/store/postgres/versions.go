package postgres

import (
	"context"

	"github.com/flowmesh/controlplane/internal/store"
)

type versionRepo struct{ s *Store }

// Next relies on an UPSERT + RETURNING round trip against a single-row
// counter table keyed by resource_type, avoiding a separate sequence
// object per ResourceType.
func (r *versionRepo) Next(ctx context.Context, rt store.ResourceType) (uint64, error) {
	var n uint64
	err := r.s.pool.QueryRow(ctx, `
		INSERT INTO resource_versions (resource_type, version) VALUES ($1, 1)
		ON CONFLICT (resource_type) DO UPDATE SET version = resource_versions.version + 1
		RETURNING version`, rt).Scan(&n)
	if err != nil {
		return 0, translateErr(err, "resource_version", string(rt))
	}
	r.s.notify()
	return n, nil
}

func (r *versionRepo) Current(ctx context.Context, rt store.ResourceType) (uint64, error) {
	var n uint64
	err := r.s.pool.QueryRow(ctx, `SELECT version FROM resource_versions WHERE resource_type = $1`, rt).Scan(&n)
	if err != nil {
		if errIsNoRows(err) {
			return 0, nil
		}
		return 0, translateErr(err, "resource_version", string(rt))
	}
	return n, nil
}
