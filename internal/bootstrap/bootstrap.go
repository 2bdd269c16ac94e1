// Package bootstrap implements C10: first-run admin token issuance and
// default-gateway seeding. Grounded on spec.md 4.10 directly; the
// explicit Seed-before-Serve shape is kept from the teacher's
// cmd/controlplane/main.go, which calls xdsServer.Seed() once before
// accepting connections so a proxy dialing in before the first mutation
// still gets a snapshot.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

const minBootstrapTokenLength = 32

// knownPlaceholders rejects the example values a copy-pasted .env file
// would otherwise let through silently.
var knownPlaceholders = map[string]bool{
	"changeme":                        true,
	"change-me":                       true,
	"change_me":                       true,
	"secret":                          true,
	"password":                        true,
	"your-bootstrap-token-here":       true,
	"replace-with-a-real-secret-value": true,
}

// ValidateBootstrapToken enforces spec.md 6's BOOTSTRAP_TOKEN
// requirements: present, >=32 chars, not a known placeholder.
func ValidateBootstrapToken(token string) error {
	if token == "" {
		return fmt.Errorf("BOOTSTRAP_TOKEN is required")
	}
	if len(token) < minBootstrapTokenLength {
		return fmt.Errorf("BOOTSTRAP_TOKEN must be at least %d characters", minBootstrapTokenLength)
	}
	if knownPlaceholders[token] {
		return fmt.Errorf("BOOTSTRAP_TOKEN is a known placeholder value; set a real secret")
	}
	return nil
}

// AccessLogClusterName matches internal/builder.AccessLogClusterName;
// duplicated as a literal here rather than imported to keep this package
// free of a dependency on internal/builder, which itself depends on
// internal/store for unrelated reasons -- bootstrap only needs the name.
const AccessLogClusterName = "access_log_sink"

const (
	DefaultClusterName  = "default-gateway-cluster"
	DefaultRouteName    = "default-gateway-routes"
	DefaultListenerName = "default-gateway-listener"
)

// Run performs first-run seeding: validates the bootstrap secret, issues
// (or confirms, idempotently) the initial admin.PersonalAccessToken, and
// -- only if the cluster/route/listener tables are empty -- seeds the
// default gateway and its access-log sink cluster. All seeded resources
// carry TeamID == nil (system, undeletable per model.Cluster.IsSystem
// and friends).
func Run(ctx context.Context, st store.Store, bootstrapToken string, log *slog.Logger) error {
	if err := ValidateBootstrapToken(bootstrapToken); err != nil {
		return err
	}

	if err := issueAdminToken(ctx, st, bootstrapToken, log); err != nil {
		return fmt.Errorf("bootstrap: issuing admin token: %w", err)
	}

	clusters, err := st.Clusters().List(ctx, store.AllTeams())
	if err != nil {
		return fmt.Errorf("bootstrap: listing clusters: %w", err)
	}
	routeConfigs, err := st.RouteConfigs().List(ctx, store.AllTeams())
	if err != nil {
		return fmt.Errorf("bootstrap: listing route configs: %w", err)
	}
	listeners, err := st.Listeners().List(ctx, store.AllTeams())
	if err != nil {
		return fmt.Errorf("bootstrap: listing listeners: %w", err)
	}
	if len(clusters) > 0 || len(routeConfigs) > 0 || len(listeners) > 0 {
		log.Info("bootstrap: existing resources found, skipping default-gateway seeding")
		return nil
	}

	if err := seedDefaults(ctx, st); err != nil {
		return fmt.Errorf("bootstrap: seeding defaults: %w", err)
	}
	log.Info("bootstrap: seeded default gateway",
		"cluster", DefaultClusterName, "route_config", DefaultRouteName, "listener", DefaultListenerName)
	return nil
}

// issueAdminToken is idempotent across restarts: HashToken is a
// deterministic digest, so re-running bootstrap with the same
// BOOTSTRAP_TOKEN finds the row GetByHash already created and does
// nothing further (spec.md 4.10 step 2). Changing BOOTSTRAP_TOKEN on an
// already-bootstrapped database issues an additional admin credential
// under the new secret rather than erroring; operators who rotate the
// secret should revoke the old token explicitly via the tokens API.
func issueAdminToken(ctx context.Context, st store.Store, secret string, log *slog.Logger) error {
	hash, err := authz.HashToken(secret)
	if err != nil {
		return err
	}

	if existing, err := st.Tokens().GetByHash(ctx, hash); err == nil && existing != nil {
		log.Info("bootstrap: admin token already initialized")
		return nil
	}

	token := &model.PersonalAccessToken{
		ID:        model.NewTokenID(),
		UserID:    nil,
		Name:      "bootstrap-admin",
		TokenHash: hash,
		Scopes:    []string{authz.ScopeAdminAll},
	}
	if err := token.Validate(); err != nil {
		return err
	}
	if err := st.Tokens().Create(ctx, token); err != nil {
		return err
	}
	// Emitted exactly once, to stderr, per spec.md 4.8's bootstrap rule --
	// this is the only place the plaintext is ever observable again.
	fmt.Fprintf(logWriter{log}, "bootstrap admin token issued: %s\n", secret)
	return nil
}

func seedDefaults(ctx context.Context, st store.Store) error {
	cluster := &model.Cluster{
		ID:          model.NewClusterID(),
		Name:        DefaultClusterName,
		TeamID:      nil,
		ServiceName: DefaultClusterName,
		Spec: model.ClusterSpec{
			Endpoints: []model.Endpoint{{
				Kind:    model.EndpointAddress,
				Address: "127.0.0.1",
				Port:    19999, // deliberately unreachable; operators replace this cluster's spec
				Weight:  1,
			}},
			ConnectTimeout:   5 * time.Second,
			DNSLookupFamily:  model.DNSAuto,
			LBPolicy:         model.LBRoundRobin,
			UpstreamProtocol: model.ProtoHTTP1,
		},
	}
	if err := cluster.Validate(); err != nil {
		return err
	}
	if err := st.Clusters().Create(ctx, cluster); err != nil {
		return err
	}

	alsCluster := &model.Cluster{
		ID:          model.NewClusterID(),
		Name:        AccessLogClusterName,
		TeamID:      nil,
		ServiceName: AccessLogClusterName,
		Spec: model.ClusterSpec{
			Endpoints: []model.Endpoint{{
				Kind:    model.EndpointAddress,
				Address: "127.0.0.1",
				Port:    9091,
				Weight:  1,
			}},
			ConnectTimeout:   5 * time.Second,
			DNSLookupFamily:  model.DNSAuto,
			LBPolicy:         model.LBRoundRobin,
			UpstreamProtocol: model.ProtoHTTP2,
		},
	}
	if err := alsCluster.Validate(); err != nil {
		return err
	}
	if err := st.Clusters().Create(ctx, alsCluster); err != nil {
		return err
	}

	routeConfig := &model.RouteConfig{
		ID:     model.NewRouteConfigID(),
		Name:   DefaultRouteName,
		TeamID: nil,
		Spec: model.RouteConfigSpec{
			VirtualHosts: []model.VirtualHost{{
				Name:    "default",
				Domains: []string{"*"},
				Routes: []model.Route{{
					Name:  "default",
					Match: model.RouteMatch{Path: model.PathMatch{Kind: model.PathPrefix, Value: "/"}},
					Action: model.RouteAction{
						Kind:        model.ActionForward,
						ClusterName: DefaultClusterName,
					},
				}},
			}},
		},
	}
	if err := routeConfig.Validate(); err != nil {
		return err
	}
	if err := st.RouteConfigs().Create(ctx, routeConfig); err != nil {
		return err
	}

	listener := &model.Listener{
		ID:       model.NewListenerID(),
		Name:     DefaultListenerName,
		TeamID:   nil,
		Address:  "0.0.0.0",
		Port:     10000,
		Protocol: model.ListenerTCP,
		Spec: model.ListenerSpec{
			FilterChains: []model.FilterChain{{
				Filters: []model.NetworkFilter{{
					Kind: model.NetworkFilterHCM,
					HCM: &model.HTTPConnectionManager{
						RouteConfigName: DefaultRouteName,
						// No HTTP filters are attached: the default
						// gateway carries no rate-limit filter, only the
						// Router internal/builder always appends last.
					},
				}},
			}},
		},
	}
	if err := listener.Validate(); err != nil {
		return err
	}
	return st.Listeners().Create(ctx, listener)
}

// logWriter adapts *slog.Logger to io.Writer for the one deliberately
// unstructured stderr line spec.md 4.8 requires the bootstrap token to
// be emitted as.
type logWriter struct{ log *slog.Logger }

func (w logWriter) Write(p []byte) (int, error) {
	w.log.Warn("BOOTSTRAP ADMIN TOKEN written to stderr (emitted once, save it now)")
	return os.Stderr.Write(p)
}
