// Package memory is an in-memory implementation of store.Store, used as
// the primary test fixture across the codebase (per the Design Notes'
// trait/interface-per-repository guidance) and usable as a lightweight
// standalone backend for local development without Postgres.
package memory

import (
	"sync"

	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

// Store is a sync.RWMutex-guarded map-of-maps implementation of
// store.Store. All repositories share one mutex since the whole point of
// the in-memory store is correctness under concurrent test access, not
// throughput.
type Store struct {
	mu sync.RWMutex

	orgs          map[model.OrgID]*model.Organization
	teams         map[model.TeamID]*model.Team
	users         map[model.UserID]*model.User
	memberships   map[string]*model.OrgMembership // key: userID+"/"+orgID
	teamScopes    map[string][]string             // key: userID+"/"+teamID
	tokens        map[model.TokenID]*model.PersonalAccessToken
	clusters      map[model.ClusterID]*model.Cluster
	routeConfigs  map[model.RouteConfigID]*model.RouteConfig
	listeners     map[model.ListenerID]*model.Listener
	filters       map[model.FilterID]*model.Filter
	attachments   map[string]*model.FilterAttachment // key: scope+"/"+scopeID+"/"+filterID
	sessions      map[model.LearningSessionID]*model.LearningSession
	schemas       map[string]*model.AggregatedSchema // key: teamID+"/"+path+"/"+method (current version)
	audit         []*model.AuditLog
	versions      map[store.ResourceType]uint64

	onChange func()
}

func New() *Store {
	return &Store{
		orgs:         make(map[model.OrgID]*model.Organization),
		teams:        make(map[model.TeamID]*model.Team),
		users:        make(map[model.UserID]*model.User),
		memberships:  make(map[string]*model.OrgMembership),
		teamScopes:   make(map[string][]string),
		tokens:       make(map[model.TokenID]*model.PersonalAccessToken),
		clusters:     make(map[model.ClusterID]*model.Cluster),
		routeConfigs: make(map[model.RouteConfigID]*model.RouteConfig),
		listeners:    make(map[model.ListenerID]*model.Listener),
		filters:      make(map[model.FilterID]*model.Filter),
		attachments:  make(map[string]*model.FilterAttachment),
		sessions:     make(map[model.LearningSessionID]*model.LearningSession),
		schemas:      make(map[string]*model.AggregatedSchema),
		versions:     make(map[store.ResourceType]uint64),
	}
}

func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// notify fires the onChange hook. Must be called without s.mu held, the
// same discipline the teacher's registry.Registry uses to avoid
// deadlocking a callback that turns around and reads the store.
func (s *Store) notify() {
	s.mu.RLock()
	cb := s.onChange
	s.mu.RUnlock()
	if cb != nil {
		cb()
	}
}

func (s *Store) Orgs() store.OrgRepository                           { return (*orgRepo)(s) }
func (s *Store) Teams() store.TeamRepository                         { return (*teamRepo)(s) }
func (s *Store) Users() store.UserRepository                         { return (*userRepo)(s) }
func (s *Store) Tokens() store.TokenRepository                       { return (*tokenRepo)(s) }
func (s *Store) Clusters() store.ClusterRepository                   { return (*clusterRepo)(s) }
func (s *Store) RouteConfigs() store.RouteConfigRepository           { return (*routeConfigRepo)(s) }
func (s *Store) Listeners() store.ListenerRepository                 { return (*listenerRepo)(s) }
func (s *Store) Filters() store.FilterRepository                     { return (*filterRepo)(s) }
func (s *Store) Attachments() store.AttachmentRepository             { return (*attachmentRepo)(s) }
func (s *Store) LearningSessions() store.LearningSessionRepository   { return (*learningRepo)(s) }
func (s *Store) AggregatedSchemas() store.AggregatedSchemaRepository { return (*schemaRepo)(s) }
func (s *Store) Audit() store.AuditRepository                        { return (*auditRepo)(s) }
func (s *Store) Versions() store.VersionRepository                   { return (*versionRepo)(s) }
