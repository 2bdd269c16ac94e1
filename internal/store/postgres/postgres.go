// Package postgres is the primary store.Store backend: pgx/v5 against a
// schema of one row per entity (JSONB spec columns) plus normalized
// virtual_hosts/routes read-model tables kept in sync on write, per
// SPEC_FULL.md's persistence notes. Modeled on the pgxpool + repository
// construction shape used throughout the retrieval pack's Postgres-backed
// services (constructor-injected *pgxpool.Pool per repository, one
// pgconn.PgError-based error translator shared by every mutating query).
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

// pgxTx aliases pgx.Tx so the entity files don't each need their own
// import of jackc/pgx/v5 just to name the transaction type.
type pgxTx = pgx.Tx

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Store wraps a pgxpool.Pool and hands out one repository value per
// entity kind, all sharing the same pool and a single OnChange hook.
type Store struct {
	pool     *pgxpool.Pool
	onChange func()
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) OnChange(fn func()) { s.onChange = fn }

// notify fires after every mutating statement commits, the same hook
// contract internal/store/memory.Store.notify implements.
func (s *Store) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

func (s *Store) Orgs() store.OrgRepository                           { return &orgRepo{s} }
func (s *Store) Teams() store.TeamRepository                         { return &teamRepo{s} }
func (s *Store) Users() store.UserRepository                         { return &userRepo{s} }
func (s *Store) Tokens() store.TokenRepository                       { return &tokenRepo{s} }
func (s *Store) Clusters() store.ClusterRepository                   { return &clusterRepo{s} }
func (s *Store) RouteConfigs() store.RouteConfigRepository           { return &routeConfigRepo{s} }
func (s *Store) Listeners() store.ListenerRepository                 { return &listenerRepo{s} }
func (s *Store) Filters() store.FilterRepository                     { return &filterRepo{s} }
func (s *Store) Attachments() store.AttachmentRepository             { return &attachmentRepo{s} }
func (s *Store) LearningSessions() store.LearningSessionRepository   { return &learningRepo{s} }
func (s *Store) AggregatedSchemas() store.AggregatedSchemaRepository { return &schemaRepo{s} }
func (s *Store) Audit() store.AuditRepository                        { return &auditRepo{s} }
func (s *Store) Versions() store.VersionRepository                   { return &versionRepo{s} }

// translateErr maps a pgx/pgconn driver error to the apierr taxonomy so
// callers above internal/store never see raw SQL errors. notFoundResource
// is used when err is pgx.ErrNoRows.
func translateErr(err error, notFoundResource, name string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apierr.NotFoundf(notFoundResource, name)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apierr.AlreadyExistsf(notFoundResource, name)
		case pgForeignKeyViolation:
			return apierr.Conflictf(notFoundResource, name, "referenced by another resource: %s", pgErr.Detail)
		}
	}
	return apierr.Wrap(apierr.Internal, notFoundResource, name, err)
}

// withTx runs fn inside a transaction, committing on success. Used for
// every multi-statement flow (AssignOrg, last-Owner checks, derived
// virtual_hosts/routes sync) that needs row-lock discipline across more
// than one statement.
func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// queryScoped runs baseQuery unfiltered for an admin-wide scope, or with
// a "WHERE <teamCol> = ANY($1)" clause appended for a team-restricted
// scope — the query-layer equivalent of store.TeamScope.Allows.
func queryScoped(ctx context.Context, pool *pgxpool.Pool, baseQuery, teamCol string, scope store.TeamScope) (pgx.Rows, error) {
	if scope.IsAdminWide() {
		return pool.Query(ctx, baseQuery+" ORDER BY name")
	}
	teams := make([]model.TeamID, 0, len(scope.AllowedTeams))
	for t := range scope.AllowedTeams {
		teams = append(teams, t)
	}
	return pool.Query(ctx, baseQuery+" WHERE "+teamCol+" = ANY($1) ORDER BY name", teams)
}
