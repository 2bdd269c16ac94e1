package model

import (
	"time"

	"github.com/flowmesh/controlplane/internal/apierr"
)

// LBPolicy is the cluster's load-balancing policy.
type LBPolicy string

const (
	LBRoundRobin      LBPolicy = "round_robin"
	LBLeastRequest    LBPolicy = "least_request"
	LBRandom          LBPolicy = "random"
	LBRingHash        LBPolicy = "ring_hash"
	LBMaglev          LBPolicy = "maglev"
	LBClusterProvided LBPolicy = "cluster_provided"
)

// UpstreamProtocol is the protocol Envoy speaks to the cluster's endpoints.
type UpstreamProtocol string

const (
	ProtoHTTP1 UpstreamProtocol = "http1"
	ProtoHTTP2 UpstreamProtocol = "http2"
	ProtoGRPC  UpstreamProtocol = "grpc"
)

// DNSLookupFamily controls how logical (hostname) endpoints are resolved.
type DNSLookupFamily string

const (
	DNSAuto DNSLookupFamily = "auto"
	DNSV4   DNSLookupFamily = "v4_only"
	DNSV6   DNSLookupFamily = "v6_only"
)

// EndpointKind discriminates the EndpointSpec tagged union.
type EndpointKind string

const (
	EndpointAddress EndpointKind = "address"
	EndpointLogical EndpointKind = "logical_name"
)

// Endpoint (EndpointSpec in spec.md) is one upstream target: either a
// literal address:port, or a logical name resolved via DNS (the
// cluster's DNSLookupFamily applies to the latter).
type Endpoint struct {
	Kind EndpointKind

	// EndpointAddress
	Address string
	Port    uint32

	// EndpointLogical
	LogicalName string

	Weight uint32
}

func (e Endpoint) Validate() error {
	switch e.Kind {
	case EndpointAddress:
		if e.Address == "" {
			return apierr.Validationf("cluster.endpoint", "address", "endpoint needs an address")
		}
	case EndpointLogical:
		if e.LogicalName == "" {
			return apierr.Validationf("cluster.endpoint", "logical_name", "endpoint needs a logical_name")
		}
	default:
		return apierr.Validationf("cluster.endpoint", "type", "unknown endpoint kind %q", e.Kind)
	}
	if e.Port == 0 {
		return apierr.Validationf("cluster.endpoint", "port", "endpoint port must be > 0")
	}
	return nil
}

// HealthCheckKind selects the active health-check protocol.
type HealthCheckKind string

const (
	HealthCheckHTTP HealthCheckKind = "http"
	HealthCheckTCP  HealthCheckKind = "tcp"
	HealthCheckGRPC HealthCheckKind = "grpc"
)

type HealthCheckSpec struct {
	Kind               HealthCheckKind
	Path               string // HTTP only
	Interval           time.Duration
	Timeout            time.Duration
	UnhealthyThreshold uint32
	HealthyThreshold   uint32
}

func (h *HealthCheckSpec) Validate() error {
	if h.Interval <= 0 || h.Timeout <= 0 {
		return apierr.Validationf("cluster.health_check", "interval", "interval and timeout must be positive")
	}
	if h.UnhealthyThreshold == 0 || h.HealthyThreshold == 0 {
		return apierr.Validationf("cluster.health_check", "threshold", "thresholds must be > 0")
	}
	if h.Kind == HealthCheckHTTP && h.Path == "" {
		return apierr.Validationf("cluster.health_check", "path", "HTTP health checks require a path")
	}
	return nil
}

// CircuitBreakerThresholds is keyed by RoutingPriority (default/high).
type RoutingPriority string

const (
	PriorityDefault RoutingPriority = "default"
	PriorityHigh    RoutingPriority = "high"
)

type CircuitBreakerThresholds struct {
	MaxConnections     uint32
	MaxPendingRequests uint32
	MaxRequests        uint32
	MaxRetries         uint32
}

type OutlierDetection struct {
	Consecutive5xx                     uint32
	Interval                           time.Duration
	BaseEjectionTime                   time.Duration
	MaxEjectionPercent                 uint32
}

// ClusterSpec is the full configuration body stored as JSON (the source
// of truth used by internal/builder to produce a CDS resource).
type ClusterSpec struct {
	Endpoints         []Endpoint
	ConnectTimeout    time.Duration
	TLSEnabled        bool
	SNI               string
	DNSLookupFamily   DNSLookupFamily
	LBPolicy          LBPolicy
	HealthCheck       *HealthCheckSpec
	CircuitBreakers   map[RoutingPriority]CircuitBreakerThresholds
	OutlierDetection  *OutlierDetection
	UpstreamProtocol  UpstreamProtocol
}

func (s *ClusterSpec) Validate() error {
	if len(s.Endpoints) == 0 {
		return apierr.Validationf("cluster", "endpoints", "cluster must have at least one endpoint")
	}
	for _, ep := range s.Endpoints {
		if err := ep.Validate(); err != nil {
			return err
		}
	}
	if s.ConnectTimeout <= 0 {
		return apierr.Validationf("cluster", "connect_timeout", "connect_timeout must be positive")
	}
	if s.HealthCheck != nil {
		if err := s.HealthCheck.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Cluster is a named upstream target set, unique per team.
type Cluster struct {
	ID          ClusterID
	Name        string
	TeamID      *TeamID // nil => global/system resource
	ServiceName string
	Spec        ClusterSpec
	Version     uint64 // bumped on every update; feeds C5's version_info
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c *Cluster) Validate() error {
	if err := validateName("cluster", c.Name); err != nil {
		return err
	}
	if err := validateOptionalTeamID("cluster", c.TeamID); err != nil {
		return err
	}
	return c.Spec.Validate()
}

// IsSystem reports whether this is a team_id=NULL protected resource.
func (c *Cluster) IsSystem() bool { return c.TeamID == nil }
