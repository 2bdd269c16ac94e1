// Package model defines the control plane's resource model: typed IDs,
// entity structs, and the structural invariants each entity must satisfy
// before it can be persisted (C1 in the design).
package model

import "github.com/google/uuid"

// OrgID, TeamID, etc. are newtypes over a UUID string form so that a
// ClusterID can never be passed where a TeamID is expected, without
// requiring a distinct Go type per entity's storage representation.
type (
	OrgID            string
	TeamID           string
	UserID           string
	TokenID          string
	ClusterID        string
	ListenerID       string
	RouteConfigID    string
	FilterID         string
	LearningSessionID string
	AggregatedSchemaID string
	AuditLogID       string
)

func NewOrgID() OrgID                       { return OrgID(uuid.NewString()) }
func NewTeamID() TeamID                     { return TeamID(uuid.NewString()) }
func NewUserID() UserID                     { return UserID(uuid.NewString()) }
func NewTokenID() TokenID                   { return TokenID(uuid.NewString()) }
func NewClusterID() ClusterID               { return ClusterID(uuid.NewString()) }
func NewListenerID() ListenerID             { return ListenerID(uuid.NewString()) }
func NewRouteConfigID() RouteConfigID       { return RouteConfigID(uuid.NewString()) }
func NewFilterID() FilterID                 { return FilterID(uuid.NewString()) }
func NewLearningSessionID() LearningSessionID { return LearningSessionID(uuid.NewString()) }
func NewAggregatedSchemaID() AggregatedSchemaID { return AggregatedSchemaID(uuid.NewString()) }
func NewAuditLogID() AuditLogID             { return AuditLogID(uuid.NewString()) }

// Valid reports whether the id parses as a UUID.
func ValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
