package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowmesh/controlplane/internal/apierr"
)

// PathMatchKind discriminates the PathMatch tagged union.
type PathMatchKind string

const (
	PathPrefix   PathMatchKind = "prefix"
	PathExact    PathMatchKind = "exact"
	PathRegex    PathMatchKind = "regex"
	PathTemplate PathMatchKind = "template"
)

// PathMatch is a closed union over the four supported path-matching
// strategies, tagged on the wire with a "type" discriminator (the Go
// analogue of the original's serde-tagged enum, per the Design Notes).
type PathMatch struct {
	Kind  PathMatchKind
	Value string // the prefix/exact string, regex pattern, or URI template
}

func (m PathMatch) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  PathMatchKind `json:"type"`
		Value string        `json:"value"`
	}{m.Kind, m.Value})
}

func (m *PathMatch) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type  PathMatchKind `json:"type"`
		Value string        `json:"value"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	m.Kind, m.Value = raw.Type, raw.Value
	return nil
}

func (m PathMatch) Validate() error {
	switch m.Kind {
	case PathPrefix, PathExact, PathRegex, PathTemplate:
		if m.Value == "" {
			return apierr.Validationf("route.match", "value", "path match value must not be empty")
		}
		return nil
	default:
		return apierr.Validationf("route.match", "type", "unknown path match kind %q", m.Kind)
	}
}

// HeaderMatch / QueryMatch are simple exact or present-only matchers.
type HeaderMatch struct {
	Name    string
	Value   string // empty + Present=true means "header present, any value"
	Present bool
}

type QueryMatch struct {
	Name  string
	Value string
}

// RouteMatch is the full match clause for a Route.
type RouteMatch struct {
	Path    PathMatch
	Headers []HeaderMatch
	Query   []QueryMatch
}

func (m RouteMatch) Validate() error { return m.Path.Validate() }

// RouteActionKind discriminates the RouteAction tagged union.
type RouteActionKind string

const (
	ActionForward         RouteActionKind = "forward"
	ActionWeightedCluster RouteActionKind = "weighted_clusters"
	ActionRedirect        RouteActionKind = "redirect"
)

// WeightedCluster is one entry of a weighted-clusters action.
type WeightedCluster struct {
	ClusterName string
	Weight      uint32
}

// RouteAction is a closed union over forward / weighted-clusters /
// redirect route actions.
type RouteAction struct {
	Kind RouteActionKind

	// ActionForward
	ClusterName string

	// ActionWeightedCluster
	WeightedClusters []WeightedCluster

	// ActionRedirect
	RedirectHost       string
	RedirectPathPrefix string
	RedirectResponseCode uint32
}

func (a RouteAction) MarshalJSON() ([]byte, error) {
	type wire struct {
		Type                 RouteActionKind   `json:"type"`
		ClusterName          string            `json:"cluster_name,omitempty"`
		WeightedClusters     []WeightedCluster `json:"weighted_clusters,omitempty"`
		RedirectHost         string            `json:"redirect_host,omitempty"`
		RedirectPathPrefix   string            `json:"redirect_path_prefix,omitempty"`
		RedirectResponseCode uint32            `json:"redirect_response_code,omitempty"`
	}
	return json.Marshal(wire{a.Kind, a.ClusterName, a.WeightedClusters, a.RedirectHost, a.RedirectPathPrefix, a.RedirectResponseCode})
}

func (a *RouteAction) UnmarshalJSON(b []byte) error {
	type wire struct {
		Type                 RouteActionKind   `json:"type"`
		ClusterName          string            `json:"cluster_name,omitempty"`
		WeightedClusters     []WeightedCluster `json:"weighted_clusters,omitempty"`
		RedirectHost         string            `json:"redirect_host,omitempty"`
		RedirectPathPrefix   string            `json:"redirect_path_prefix,omitempty"`
		RedirectResponseCode uint32            `json:"redirect_response_code,omitempty"`
	}
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*a = RouteAction(w)
	return nil
}

func (a RouteAction) Validate() error {
	switch a.Kind {
	case ActionForward:
		if a.ClusterName == "" {
			return apierr.Validationf("route.action", "cluster_name", "forward action requires cluster_name")
		}
	case ActionWeightedCluster:
		if len(a.WeightedClusters) == 0 {
			return apierr.Validationf("route.action", "weighted_clusters", "weighted action requires at least one cluster")
		}
		for _, wc := range a.WeightedClusters {
			if wc.ClusterName == "" {
				return apierr.Validationf("route.action", "weighted_clusters", "weighted cluster entry missing cluster_name")
			}
		}
	case ActionRedirect:
		if a.RedirectHost == "" && a.RedirectPathPrefix == "" {
			return apierr.Validationf("route.action", "redirect", "redirect action requires a host or path_prefix")
		}
	default:
		return apierr.Validationf("route.action", "type", "unknown route action kind %q", a.Kind)
	}
	return nil
}

// PrimaryCluster returns the first cluster name referenced by the action,
// used by internal/store/postgres to fill the routes read-model table's
// primary_cluster column (the full cluster set lives inside the JSON
// spec).
func (a RouteAction) PrimaryCluster() (string, bool) {
	switch a.Kind {
	case ActionForward:
		return a.ClusterName, a.ClusterName != ""
	case ActionWeightedCluster:
		if len(a.WeightedClusters) == 0 {
			return "", false
		}
		return a.WeightedClusters[0].ClusterName, true
	default:
		return "", false
	}
}

// Route is one entry in a VirtualHost's ordered route list. Matching is
// first-match-wins; more specific matches must sort earlier (enforced by
// the client per spec.md 3, not the store).
type Route struct {
	Name   string
	Match  RouteMatch
	Action RouteAction
}

func (r Route) Validate() error {
	if r.Name == "" {
		return apierr.Validationf("route", "name", "route name must not be empty")
	}
	if err := r.Match.Validate(); err != nil {
		return err
	}
	return r.Action.Validate()
}

// VirtualHost groups routes under a set of domains.
type VirtualHost struct {
	Name    string
	Domains []string
	Routes  []Route
}

func (vh VirtualHost) Validate() error {
	if vh.Name == "" {
		return apierr.Validationf("virtual_host", "name", "virtual_host name must not be empty")
	}
	if len(vh.Domains) == 0 {
		return apierr.Validationf("virtual_host", "domains", "virtual_host %q must have at least one domain", vh.Name)
	}
	seen := make(map[string]bool, len(vh.Routes))
	for _, r := range vh.Routes {
		if err := r.Validate(); err != nil {
			return err
		}
		if seen[r.Name] {
			return apierr.Validationf("virtual_host", "routes", "duplicate route name %q in virtual_host %q", r.Name, vh.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// RouteConfigSpec is the JSON spec body: an ordered list of virtual
// hosts, each with an ordered list of routes.
type RouteConfigSpec struct {
	VirtualHosts []VirtualHost
}

func (s RouteConfigSpec) Validate() error {
	for _, vh := range s.VirtualHosts {
		if err := vh.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PrimaryClusterName returns the first cluster referenced anywhere in the
// route graph, used as the RouteConfig's single normalized FK per
// spec.md 4.2.
func (s RouteConfigSpec) PrimaryClusterName() (string, bool) {
	for _, vh := range s.VirtualHosts {
		for _, r := range vh.Routes {
			if name, ok := r.Action.PrimaryCluster(); ok {
				return name, true
			}
		}
	}
	return "", false
}

// RouteConfig is a named, team-scoped collection of virtual hosts.
type RouteConfig struct {
	ID        RouteConfigID
	Name      string
	TeamID    *TeamID
	Spec      RouteConfigSpec
	Version   uint64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (rc *RouteConfig) Validate() error {
	if err := validateName("route_config", rc.Name); err != nil {
		return err
	}
	if err := validateOptionalTeamID("route_config", rc.TeamID); err != nil {
		return err
	}
	return rc.Spec.Validate()
}

func (rc *RouteConfig) IsSystem() bool { return rc.TeamID == nil }

// FindVirtualHost returns a pointer into rc.Spec.VirtualHosts by name, or
// nil. Exists so injection code can mutate in place without re-copying
// the whole spec.
func (rc *RouteConfig) FindVirtualHost(name string) *VirtualHost {
	for i := range rc.Spec.VirtualHosts {
		if rc.Spec.VirtualHosts[i].Name == name {
			return &rc.Spec.VirtualHosts[i]
		}
	}
	return nil
}

func (rc *RouteConfig) String() string {
	return fmt.Sprintf("RouteConfig(%s)", rc.Name)
}
