package model

import (
	"time"

	"github.com/flowmesh/controlplane/internal/apierr"
)

// LearningSessionStatus is the session lifecycle state. Legal arrows:
// Pending->Active (activate), Active->Completing (target reached),
// Completing->Completed (aggregation done); Cancelled/Failed are
// terminal from Active/Pending only.
type LearningSessionStatus string

const (
	SessionPending    LearningSessionStatus = "pending"
	SessionActive     LearningSessionStatus = "active"
	SessionCompleting LearningSessionStatus = "completing"
	SessionCompleted  LearningSessionStatus = "completed"
	SessionCancelled  LearningSessionStatus = "cancelled"
	SessionFailed     LearningSessionStatus = "failed"
)

var sessionTransitions = map[LearningSessionStatus]map[LearningSessionStatus]bool{
	SessionPending:    {SessionActive: true, SessionCancelled: true, SessionFailed: true},
	SessionActive:     {SessionCompleting: true, SessionCancelled: true, SessionFailed: true},
	SessionCompleting: {SessionCompleted: true},
}

// CanTransition reports whether moving from s to next is a legal
// lifecycle arrow.
func (s LearningSessionStatus) CanTransition(next LearningSessionStatus) bool {
	return sessionTransitions[s][next]
}

// LearningSession is a bounded observation window over traffic matching
// a route config (and optionally a cluster / HTTP method subset).
type LearningSession struct {
	ID                  LearningSessionID
	TeamID              TeamID
	RouteConfigName     string
	RoutePattern        string // alternative to RouteConfigName; at least one must be set
	ClusterName         string
	HTTPMethods         []string
	Status              LearningSessionStatus
	TargetSampleCount   int
	CurrentSampleCount  int
	CaptureBody         bool // stored and returned only; the resource builder adds no ExtProc filter for it
	CreatedAt           time.Time
	ActivatedAt         *time.Time
	CompletedAt         *time.Time
}

func (s *LearningSession) Validate() error {
	if !ValidUUID(string(s.TeamID)) {
		return apierr.Validationf("learning_session", "team_id", "invalid team_id")
	}
	if s.RouteConfigName == "" && s.RoutePattern == "" {
		return apierr.Validationf("learning_session", "route_config_name", "session requires a route_config_name or route_pattern")
	}
	if s.TargetSampleCount <= 0 {
		return apierr.Validationf("learning_session", "target_sample_count", "target_sample_count must be > 0")
	}
	return nil
}

// Matches reports whether a request with the given HTTP method passes
// this session's method filter: every method passes when HTTPMethods is
// empty, otherwise only the listed ones do. It does not look at the
// entry's session id, path or route config; that correlation happens
// upstream (the data plane stamps the session id per-listener).
func (s *LearningSession) Matches(method string) bool {
	if len(s.HTTPMethods) == 0 {
		return true
	}
	for _, m := range s.HTTPMethods {
		if m == method {
			return true
		}
	}
	return false
}

// Progress returns the confidence score per spec.md 4.7:
// min(1.0, sample_count/target_sample_count).
func (s *LearningSession) Progress() float64 {
	if s.TargetSampleCount <= 0 {
		return 0
	}
	p := float64(s.CurrentSampleCount) / float64(s.TargetSampleCount)
	if p > 1.0 {
		p = 1.0
	}
	return p
}

// JSONSchema is a minimal JSON Schema document representation (the
// subset this system generates: object type with properties/required).
type JSONSchema struct {
	Type       string                 `json:"type"`
	Properties map[string]FieldSchema `json:"properties,omitempty"`
	Required   []string               `json:"required,omitempty"`
}

// FieldSchema is one property's inferred shape. Types holds every
// primitive type observed for this field across samples; len(Types) > 1
// means the field was widened to a union type.
type FieldSchema struct {
	Types []string `json:"type"`
}

// AggregatedSchema is the learned shape of one (team, path, http_method)
// endpoint, versioned so repeated shape drift produces a new row linked
// to its predecessor.
type AggregatedSchema struct {
	ID                AggregatedSchemaID
	TeamID            TeamID
	Path              string
	HTTPMethod        string
	RequestSchema     JSONSchema
	ResponseSchemas   map[int]JSONSchema // status code -> schema
	SampleCount       int
	ConfidenceScore   float64
	Version           int
	PreviousVersionID *AggregatedSchemaID
	BreakingChanges   []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (a *AggregatedSchema) Validate() error {
	if !ValidUUID(string(a.TeamID)) {
		return apierr.Validationf("aggregated_schema", "team_id", "invalid team_id")
	}
	if a.Path == "" {
		return apierr.Validationf("aggregated_schema", "path", "path must not be empty")
	}
	if a.HTTPMethod == "" {
		return apierr.Validationf("aggregated_schema", "http_method", "http_method must not be empty")
	}
	if a.ConfidenceScore < 0 || a.ConfidenceScore > 1 {
		return apierr.Validationf("aggregated_schema", "confidence_score", "confidence_score must be in [0,1]")
	}
	return nil
}
