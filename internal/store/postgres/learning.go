package postgres

import (
	"context"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

type learningRepo struct{ s *Store }

const learningColumns = `id, team_id, route_config_name, route_pattern, cluster_name, http_methods,
	status, target_sample_count, current_sample_count, capture_body, created_at, activated_at, completed_at`

func (r *learningRepo) Create(ctx context.Context, sess *model.LearningSession) error {
	_, err := r.s.pool.Exec(ctx, `
		INSERT INTO learning_sessions (id, team_id, route_config_name, route_pattern, cluster_name,
			http_methods, status, target_sample_count, current_sample_count, capture_body, created_at,
			activated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sess.ID, sess.TeamID, sess.RouteConfigName, sess.RoutePattern, sess.ClusterName, sess.HTTPMethods,
		sess.Status, sess.TargetSampleCount, sess.CurrentSampleCount, sess.CaptureBody, sess.CreatedAt,
		sess.ActivatedAt, sess.CompletedAt)
	if err != nil {
		return translateErr(err, "learning_session", string(sess.ID))
	}
	r.s.notify()
	return nil
}

func scanSession(row interface{ Scan(dest ...any) error }, name string) (*model.LearningSession, error) {
	var sess model.LearningSession
	err := row.Scan(&sess.ID, &sess.TeamID, &sess.RouteConfigName, &sess.RoutePattern, &sess.ClusterName,
		&sess.HTTPMethods, &sess.Status, &sess.TargetSampleCount, &sess.CurrentSampleCount, &sess.CaptureBody,
		&sess.CreatedAt, &sess.ActivatedAt, &sess.CompletedAt)
	if err != nil {
		return nil, translateErr(err, "learning_session", name)
	}
	return &sess, nil
}

func (r *learningRepo) Get(ctx context.Context, id model.LearningSessionID) (*model.LearningSession, error) {
	row := r.s.pool.QueryRow(ctx, `SELECT `+learningColumns+` FROM learning_sessions WHERE id = $1`, id)
	return scanSession(row, string(id))
}

func (r *learningRepo) List(ctx context.Context, scope store.TeamScope) ([]*model.LearningSession, error) {
	rows, err := queryScoped(ctx, r.s.pool, `SELECT `+learningColumns+` FROM learning_sessions`, "team_id", scope)
	if err != nil {
		return nil, translateErr(err, "learning_session", "")
	}
	defer rows.Close()
	var out []*model.LearningSession
	for rows.Next() {
		sess, err := scanSession(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (r *learningRepo) ListActive(ctx context.Context) ([]*model.LearningSession, error) {
	rows, err := r.s.pool.Query(ctx, `SELECT `+learningColumns+` FROM learning_sessions WHERE status = 'active'`)
	if err != nil {
		return nil, translateErr(err, "learning_session", "")
	}
	defer rows.Close()
	var out []*model.LearningSession
	for rows.Next() {
		sess, err := scanSession(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (r *learningRepo) Update(ctx context.Context, sess *model.LearningSession) error {
	tag, err := r.s.pool.Exec(ctx, `
		UPDATE learning_sessions SET status = $1, current_sample_count = $2, activated_at = $3, completed_at = $4
		WHERE id = $5`, sess.Status, sess.CurrentSampleCount, sess.ActivatedAt, sess.CompletedAt, sess.ID)
	if err != nil {
		return translateErr(err, "learning_session", string(sess.ID))
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFoundf("learning_session", string(sess.ID))
	}
	r.s.notify()
	return nil
}

// IncrementSample uses UPDATE ... RETURNING so the increment and read
// happen as one atomic statement, the Postgres analogue of the in-memory
// store's mutex-held read-modify-write.
func (r *learningRepo) IncrementSample(ctx context.Context, id model.LearningSessionID) (int, error) {
	var n int
	err := r.s.pool.QueryRow(ctx, `
		UPDATE learning_sessions SET current_sample_count = current_sample_count + 1
		WHERE id = $1 RETURNING current_sample_count`, id).Scan(&n)
	if err != nil {
		return 0, translateErr(err, "learning_session", string(id))
	}
	r.s.notify()
	return n, nil
}
