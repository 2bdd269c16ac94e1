package model

import (
	"time"

	"github.com/flowmesh/controlplane/internal/apierr"
)

// ListenerProtocol is the L4 protocol a listener accepts.
type ListenerProtocol string

const (
	ListenerTCP ListenerProtocol = "tcp"
	ListenerUDP ListenerProtocol = "udp"
)

const MinListenerPort = 1024

// TLSContext is a minimal downstream TLS configuration. Certificate
// material itself is out of scope (abstracted behind a secret-store
// trait boundary per spec.md 1); SDSSecretName references it indirectly.
type TLSContext struct {
	SDSSecretName string
	RequireClientCert bool
}

// HTTPFilterRef is one entry of an HTTP connection manager's ordered
// filter chain. It names the Filter row by FilterID and FilterType and
// carries no spec of its own; the filter's base JSON spec is read from
// that Filter row.
type HTTPFilterRef struct {
	FilterID   FilterID
	FilterType FilterType
}

// AccessLogConfig names the destination cluster/session for the ALS
// sink, used when a learning session demands traffic capture on this
// listener (spec.md 4.7).
type AccessLogConfig struct {
	Enabled            bool
	LearningSessionID  *LearningSessionID
}

// TracingConfig is a placeholder for tracing provider configuration;
// kept minimal since distributed tracing is not part of the core spec.
type TracingConfig struct {
	ProviderName string
}

// HTTPConnectionManager is a network filter that parses HTTP and runs an
// ordered HTTP filter pipeline, always terminated by the Router filter.
type HTTPConnectionManager struct {
	// Exactly one of RouteConfigName / InlineRouteConfig must be set.
	RouteConfigName   string
	InlineRouteConfig *RouteConfigSpec

	HTTPFilters []HTTPFilterRef // Router is implicit and always appended last
	AccessLog   AccessLogConfig
	Tracing     *TracingConfig
}

func (h *HTTPConnectionManager) Validate() error {
	if h.RouteConfigName == "" && h.InlineRouteConfig == nil {
		return apierr.Validationf("listener.hcm", "route_config", "HCM requires either a referenced or inline route config")
	}
	if h.InlineRouteConfig != nil {
		if err := h.InlineRouteConfig.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NetworkFilterKind discriminates non-HTTP network filters; HCM is
// modeled separately since it is the overwhelmingly common case and
// carries the HTTP filter chain.
type NetworkFilterKind string

const (
	NetworkFilterHCM    NetworkFilterKind = "hcm"
	NetworkFilterTCPProxy NetworkFilterKind = "tcp_proxy"
)

type NetworkFilter struct {
	Kind NetworkFilterKind
	HCM  *HTTPConnectionManager // set iff Kind == NetworkFilterHCM
	// TCPProxy cluster name, set iff Kind == NetworkFilterTCPProxy.
	TCPProxyCluster string
}

func (nf NetworkFilter) Validate() error {
	switch nf.Kind {
	case NetworkFilterHCM:
		if nf.HCM == nil {
			return apierr.Validationf("listener.filter_chain", "hcm", "hcm filter missing its HttpConnectionManager body")
		}
		return nf.HCM.Validate()
	case NetworkFilterTCPProxy:
		if nf.TCPProxyCluster == "" {
			return apierr.Validationf("listener.filter_chain", "tcp_proxy", "tcp_proxy filter requires a cluster")
		}
		return nil
	default:
		return apierr.Validationf("listener.filter_chain", "type", "unknown network filter kind %q", nf.Kind)
	}
}

// FilterChain is one TLS-scoped set of ordered network filters.
type FilterChain struct {
	TLS     *TLSContext
	Filters []NetworkFilter
}

func (fc FilterChain) Validate() error {
	if len(fc.Filters) == 0 {
		return apierr.Validationf("listener.filter_chain", "filters", "filter chain must have at least one filter")
	}
	for _, f := range fc.Filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ListenerSpec is the persisted JSON body of a Listener.
type ListenerSpec struct {
	FilterChains []FilterChain
}

func (s ListenerSpec) Validate() error {
	if len(s.FilterChains) == 0 {
		return apierr.Validationf("listener", "filter_chains", "listener must have at least one filter chain")
	}
	for _, fc := range s.FilterChains {
		if err := fc.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// HCMs returns every HTTP connection manager across all filter chains,
// the set internal/inject walks when syncing listener-level filters.
func (s *ListenerSpec) HCMs() []*HTTPConnectionManager {
	var out []*HTTPConnectionManager
	for i := range s.FilterChains {
		for j := range s.FilterChains[i].Filters {
			f := &s.FilterChains[i].Filters[j]
			if f.Kind == NetworkFilterHCM && f.HCM != nil {
				out = append(out, f.HCM)
			}
		}
	}
	return out
}

// Listener is a named, team-scoped address:port binding.
type Listener struct {
	ID         ListenerID
	Name       string
	TeamID     *TeamID
	Address    string
	Port       uint32
	Protocol   ListenerProtocol
	Spec       ListenerSpec
	DataplaneID string // xDS node_id this listener is delivered to; "" means all nodes
	Version    uint64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (l *Listener) Validate() error {
	if err := validateName("listener", l.Name); err != nil {
		return err
	}
	if err := validateOptionalTeamID("listener", l.TeamID); err != nil {
		return err
	}
	if l.Port < MinListenerPort || l.Port > 65535 {
		return apierr.Validationf("listener", "port", "port must be in [%d, 65535], got %d", MinListenerPort, l.Port)
	}
	if l.Address == "" {
		return apierr.Validationf("listener", "address", "address must not be empty")
	}
	return l.Spec.Validate()
}

func (l *Listener) IsSystem() bool { return l.TeamID == nil }

// ReferencesRouteConfig reports whether any HCM in this listener
// references routeConfigName (directly — inline route configs never
// match by name).
func (l *Listener) ReferencesRouteConfig(routeConfigName string) bool {
	for _, hcm := range l.Spec.HCMs() {
		if hcm.RouteConfigName == routeConfigName {
			return true
		}
	}
	return false
}
