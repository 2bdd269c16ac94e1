package postgres

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/jackc/pgx/v5"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

type schemaRepo struct{ s *Store }

const schemaColumns = `id, team_id, path, http_method, request_schema, response_schemas,
	sample_count, confidence_score, version, previous_version_id, breaking_changes, created_at, updated_at`

// Upsert mirrors internal/store/memory's version-linking: the current
// row for (team, path, method) is locked, compared, and either updated
// in place (unchanged shape) or superseded by a new row carrying
// PreviousVersionID (shape drift), inside one transaction.
func (r *schemaRepo) Upsert(ctx context.Context, sc *model.AggregatedSchema) error {
	err := withTx(ctx, r.s.pool, func(tx pgxTx) error {
		row := tx.QueryRow(ctx, `
			SELECT `+schemaColumns+` FROM aggregated_schemas
			WHERE team_id = $1 AND path = $2 AND http_method = $3 AND previous_version_id IS NULL
			FOR UPDATE`, sc.TeamID, sc.Path, sc.HTTPMethod)
		prev, err := scanSchema(row, sc.Path)
		switch {
		case err == nil && !reflect.DeepEqual(prev.RequestSchema, sc.RequestSchema):
			prevID := prev.ID
			sc.PreviousVersionID = &prevID
			sc.Version = prev.Version + 1
			return insertSchema(ctx, tx, sc)
		case err == nil:
			sc.Version = prev.Version
			sc.ID = prev.ID
			return updateSchema(ctx, tx, sc)
		case apierr.Is(err, apierr.NotFound):
			sc.Version = 1
			return insertSchema(ctx, tx, sc)
		default:
			return err
		}
	})
	if err != nil {
		return translateErr(err, "aggregated_schema", sc.Path)
	}
	r.s.notify()
	return nil
}

func insertSchema(ctx context.Context, tx pgxTx, sc *model.AggregatedSchema) error {
	reqSchema, err := json.Marshal(sc.RequestSchema)
	if err != nil {
		return err
	}
	respSchemas, err := json.Marshal(sc.ResponseSchemas)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO aggregated_schemas (id, team_id, path, http_method, request_schema, response_schemas,
			sample_count, confidence_score, version, previous_version_id, breaking_changes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sc.ID, sc.TeamID, sc.Path, sc.HTTPMethod, reqSchema, respSchemas, sc.SampleCount, sc.ConfidenceScore,
		sc.Version, sc.PreviousVersionID, sc.BreakingChanges, sc.CreatedAt, sc.UpdatedAt)
	return err
}

func updateSchema(ctx context.Context, tx pgxTx, sc *model.AggregatedSchema) error {
	respSchemas, err := json.Marshal(sc.ResponseSchemas)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE aggregated_schemas SET sample_count = $1, confidence_score = $2, response_schemas = $3,
			updated_at = $4 WHERE id = $5`,
		sc.SampleCount, sc.ConfidenceScore, respSchemas, sc.UpdatedAt, sc.ID)
	return err
}

func scanSchema(row interface{ Scan(dest ...any) error }, name string) (*model.AggregatedSchema, error) {
	var sc model.AggregatedSchema
	var reqSchema, respSchemas []byte
	err := row.Scan(&sc.ID, &sc.TeamID, &sc.Path, &sc.HTTPMethod, &reqSchema, &respSchemas, &sc.SampleCount,
		&sc.ConfidenceScore, &sc.Version, &sc.PreviousVersionID, &sc.BreakingChanges, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		if errIsNoRows(err) {
			return nil, apierr.NotFoundf("aggregated_schema", name)
		}
		return nil, translateErr(err, "aggregated_schema", name)
	}
	if len(reqSchema) > 0 {
		_ = json.Unmarshal(reqSchema, &sc.RequestSchema)
	}
	if len(respSchemas) > 0 {
		_ = json.Unmarshal(respSchemas, &sc.ResponseSchemas)
	}
	return &sc, nil
}

func errIsNoRows(err error) bool {
	return err == pgx.ErrNoRows
}

func (r *schemaRepo) Get(ctx context.Context, teamID model.TeamID, path, method string) (*model.AggregatedSchema, error) {
	row := r.s.pool.QueryRow(ctx, `
		SELECT `+schemaColumns+` FROM aggregated_schemas
		WHERE team_id = $1 AND path = $2 AND http_method = $3 AND previous_version_id IS NULL`,
		teamID, path, method)
	return scanSchema(row, path)
}

func (r *schemaRepo) List(ctx context.Context, scope store.TeamScope) ([]*model.AggregatedSchema, error) {
	var rows pgx.Rows
	var err error
	if scope.IsAdminWide() {
		rows, err = r.s.pool.Query(ctx, `
			SELECT `+schemaColumns+` FROM aggregated_schemas WHERE previous_version_id IS NULL ORDER BY path`)
	} else {
		teams := make([]model.TeamID, 0, len(scope.AllowedTeams))
		for t := range scope.AllowedTeams {
			teams = append(teams, t)
		}
		rows, err = r.s.pool.Query(ctx, `
			SELECT `+schemaColumns+` FROM aggregated_schemas
			WHERE previous_version_id IS NULL AND team_id = ANY($1) ORDER BY path`, teams)
	}
	if err != nil {
		return nil, translateErr(err, "aggregated_schema", "")
	}
	defer rows.Close()
	var out []*model.AggregatedSchema
	for rows.Next() {
		sc, err := scanSchema(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
