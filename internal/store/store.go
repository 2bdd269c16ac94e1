// Package store defines the repository layer (C2): transactional CRUD
// with team/org scoping and FK discipline. Store is implemented by
// internal/store/postgres (the primary backend) and internal/store/memory
// (an in-memory test double used throughout the rest of the codebase's
// test suites, per the Design Notes' "trait/interface-per-repository").
package store

import (
	"context"

	"github.com/flowmesh/controlplane/internal/model"
)

// ResourceType names the xDS-relevant entity kinds that carry a
// monotonic per-type version sequence (C5's version_info source).
type ResourceType string

const (
	ResourceCluster     ResourceType = "cluster"
	ResourceRouteConfig ResourceType = "route_config"
	ResourceListener    ResourceType = "listener"
)

// TeamScope filters a List call to the given set of teams. A nil
// AllowedTeams means admin-wide access (no filtering), per spec.md 4.2.
// AllowedTeams being non-nil but empty is a distinct state: it means the
// caller's scopes resolved to exactly zero teams (e.g. an org-admin scope
// for an org the caller doesn't grant team access beyond, or no matching
// scope at all) and must filter everything out, not fall back to
// admin-wide — ScopeToTeams always returns a non-nil map, even when
// called with zero teams, so this distinction is never accidental.
type TeamScope struct {
	AllowedTeams map[model.TeamID]struct{}
}

func AllTeams() TeamScope { return TeamScope{} }

func ScopeToTeams(teams ...model.TeamID) TeamScope {
	m := make(map[model.TeamID]struct{}, len(teams))
	for _, t := range teams {
		m[t] = struct{}{}
	}
	return TeamScope{AllowedTeams: m}
}

func (s TeamScope) IsAdminWide() bool { return s.AllowedTeams == nil }

func (s TeamScope) Allows(team *model.TeamID) bool {
	if s.IsAdminWide() {
		return true
	}
	if team == nil {
		return false
	}
	_, ok := s.AllowedTeams[*team]
	return ok
}

// OrgRepository manages organizations.
type OrgRepository interface {
	Create(ctx context.Context, org *model.Organization) error
	Get(ctx context.Context, id model.OrgID) (*model.Organization, error)
	GetByName(ctx context.Context, name string) (*model.Organization, error)
	List(ctx context.Context) ([]*model.Organization, error)
	// Delete fails with Conflict if the org still owns teams/users/resources.
	Delete(ctx context.Context, id model.OrgID) error
}

// TeamRepository manages teams.
type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	Get(ctx context.Context, id model.TeamID) (*model.Team, error)
	GetByName(ctx context.Context, orgID model.OrgID, name string) (*model.Team, error)
	ListByOrg(ctx context.Context, orgID model.OrgID) ([]*model.Team, error)
	// Delete fails with Conflict if the team still owns resources.
	Delete(ctx context.Context, id model.TeamID) error
}

// UserRepository manages users and org memberships.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id model.UserID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// AssignOrg implements spec.md 4.2's TOCTOU-closed transaction: locks
	// the user row FOR UPDATE, checks the current org_id, sets it if
	// unset, and inserts the membership row, all in one transaction.
	AssignOrg(ctx context.Context, userID model.UserID, orgID model.OrgID, role model.OrgRole) error

	ListMemberships(ctx context.Context, orgID model.OrgID) ([]*model.OrgMembership, error)
	GetMembership(ctx context.Context, userID model.UserID, orgID model.OrgID) (*model.OrgMembership, error)

	// SetRole changes a membership's role. Downgrading or removing the
	// last Owner of an org fails with Conflict, checked transactionally.
	SetRole(ctx context.Context, userID model.UserID, orgID model.OrgID, role model.OrgRole) error
	RemoveMembership(ctx context.Context, userID model.UserID, orgID model.OrgID) error

	SetTeamScopes(ctx context.Context, userID model.UserID, teamID model.TeamID, scopes []string) error
	TeamScopes(ctx context.Context, userID model.UserID, teamID model.TeamID) ([]string, error)
}

// TokenRepository manages personal access tokens.
type TokenRepository interface {
	Create(ctx context.Context, token *model.PersonalAccessToken) error
	GetByHash(ctx context.Context, tokenHash string) (*model.PersonalAccessToken, error)
	Get(ctx context.Context, id model.TokenID) (*model.PersonalAccessToken, error)
	ListByUser(ctx context.Context, userID model.UserID) ([]*model.PersonalAccessToken, error)
	Revoke(ctx context.Context, id model.TokenID) error
}

// ClusterRepository manages clusters, scoped by team.
type ClusterRepository interface {
	Create(ctx context.Context, c *model.Cluster) error
	Get(ctx context.Context, scope TeamScope, id model.ClusterID) (*model.Cluster, error)
	GetByName(ctx context.Context, scope TeamScope, teamID *model.TeamID, name string) (*model.Cluster, error)
	List(ctx context.Context, scope TeamScope) ([]*model.Cluster, error)
	Update(ctx context.Context, c *model.Cluster) error
	Delete(ctx context.Context, id model.ClusterID) error
}

// RouteConfigRepository manages route configs.
type RouteConfigRepository interface {
	Create(ctx context.Context, rc *model.RouteConfig) error
	Get(ctx context.Context, scope TeamScope, id model.RouteConfigID) (*model.RouteConfig, error)
	GetByName(ctx context.Context, scope TeamScope, teamID *model.TeamID, name string) (*model.RouteConfig, error)
	List(ctx context.Context, scope TeamScope) ([]*model.RouteConfig, error)
	Update(ctx context.Context, rc *model.RouteConfig) error
	Delete(ctx context.Context, id model.RouteConfigID) error
}

// ListenerRepository manages listeners.
type ListenerRepository interface {
	Create(ctx context.Context, l *model.Listener) error
	Get(ctx context.Context, scope TeamScope, id model.ListenerID) (*model.Listener, error)
	GetByName(ctx context.Context, scope TeamScope, teamID *model.TeamID, name string) (*model.Listener, error)
	List(ctx context.Context, scope TeamScope) ([]*model.Listener, error)
	// ListReferencing returns every listener (directly, via HCM.RouteConfigName)
	// bound to the given route config name, regardless of team scope
	// within the route config's own team (injection is intra-team).
	ListReferencing(ctx context.Context, teamID *model.TeamID, routeConfigName string) ([]*model.Listener, error)
	Update(ctx context.Context, l *model.Listener) error
	Delete(ctx context.Context, id model.ListenerID) error
}

// FilterRepository manages reusable Filter definitions.
type FilterRepository interface {
	Create(ctx context.Context, f *model.Filter) error
	Get(ctx context.Context, scope TeamScope, id model.FilterID) (*model.Filter, error)
	GetByName(ctx context.Context, teamID model.TeamID, name string) (*model.Filter, error)
	List(ctx context.Context, scope TeamScope) ([]*model.Filter, error)
	Update(ctx context.Context, f *model.Filter) error
	Delete(ctx context.Context, id model.FilterID) error
}

// AttachmentRepository manages FilterAttachment rows at all four scopes
// (one filter_attachments table in Postgres, keyed by scope, scope_id and
// filter_id).
type AttachmentRepository interface {
	Attach(ctx context.Context, a *model.FilterAttachment) (created bool, err error)
	Detach(ctx context.Context, scope model.AttachmentScope, scopeID string, filterID model.FilterID) error
	ListByScope(ctx context.Context, scope model.AttachmentScope, scopeID string) ([]*model.FilterAttachment, error)
	// ListByRouteConfig returns every attachment at RouteConfig/VirtualHost/Route
	// scope whose scopeID falls under routeConfigID, for the injector to
	// load in one call.
	ListByRouteConfig(ctx context.Context, routeConfigID model.RouteConfigID) ([]*model.FilterAttachment, error)
}

// LearningSessionRepository manages learning sessions.
type LearningSessionRepository interface {
	Create(ctx context.Context, s *model.LearningSession) error
	Get(ctx context.Context, id model.LearningSessionID) (*model.LearningSession, error)
	List(ctx context.Context, scope TeamScope) ([]*model.LearningSession, error)
	// ListActive returns every session in Active status, used by the
	// access-log worker pool to match incoming entries.
	ListActive(ctx context.Context) ([]*model.LearningSession, error)
	Update(ctx context.Context, s *model.LearningSession) error
	// IncrementSample atomically bumps CurrentSampleCount and returns the
	// new value, so the caller can detect crossing TargetSampleCount
	// without a read-modify-write race across workers.
	IncrementSample(ctx context.Context, id model.LearningSessionID) (int, error)
}

// AggregatedSchemaRepository manages learned endpoint schemas.
type AggregatedSchemaRepository interface {
	Upsert(ctx context.Context, s *model.AggregatedSchema) error
	Get(ctx context.Context, teamID model.TeamID, path, method string) (*model.AggregatedSchema, error)
	List(ctx context.Context, scope TeamScope) ([]*model.AggregatedSchema, error)
}

// AuditRepository appends audit records.
type AuditRepository interface {
	Append(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, resourceType, resourceID string) ([]*model.AuditLog, error)
}

// VersionRepository hands out monotonically increasing per-ResourceType
// version sequences (C5's version_info source).
type VersionRepository interface {
	Next(ctx context.Context, rt ResourceType) (uint64, error)
	Current(ctx context.Context, rt ResourceType) (uint64, error)
}

// Store aggregates every repository. Mutating operations that need
// cross-repository atomicity (e.g. AssignOrg) are exposed as single
// methods on the relevant repository rather than requiring callers to
// manage transactions directly — keeps C9's operation methods simple.
type Store interface {
	Orgs() OrgRepository
	Teams() TeamRepository
	Users() UserRepository
	Tokens() TokenRepository
	Clusters() ClusterRepository
	RouteConfigs() RouteConfigRepository
	Listeners() ListenerRepository
	Filters() FilterRepository
	Attachments() AttachmentRepository
	LearningSessions() LearningSessionRepository
	AggregatedSchemas() AggregatedSchemaRepository
	Audit() AuditRepository
	Versions() VersionRepository

	// OnChange registers a callback invoked after any mutating call
	// completes, the hook internal/xds.Publisher uses to trigger a
	// debounced snapshot rebuild. Mirrors the teacher's
	// registry.Registry.OnChange, generalized to the whole store.
	OnChange(fn func())
}
