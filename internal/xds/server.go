// Package xds implements C6: the ADS server proxies connect to, a
// delivery-status tracker recording per-node ACK/NACK state, and a
// debounced publisher that rebuilds snapshots off store.Store.OnChange.
// Grounded on the teacher's internal/xds/server.go, generalized from a
// single flat registry.Registry/node-list pair to internal/builder's
// multi-resource, per-dataplane-node snapshot map.
package xds

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	cachev3 "github.com/envoyproxy/go-control-plane/pkg/cache/v3"
	serverv3 "github.com/envoyproxy/go-control-plane/pkg/server/v3"

	clusterservice "github.com/envoyproxy/go-control-plane/envoy/service/cluster/v3"
	discoverygrpc "github.com/envoyproxy/go-control-plane/envoy/service/discovery/v3"
	endpointservice "github.com/envoyproxy/go-control-plane/envoy/service/endpoint/v3"
	listenerservice "github.com/envoyproxy/go-control-plane/envoy/service/listener/v3"
	routeservice "github.com/envoyproxy/go-control-plane/envoy/service/route/v3"
	secretservice "github.com/envoyproxy/go-control-plane/envoy/service/secret/v3"

	"google.golang.org/grpc"

	"github.com/flowmesh/controlplane/internal/builder"
	"github.com/flowmesh/controlplane/internal/config"
)

// Server is the xDS control plane server: a SnapshotCache kept current by
// Publisher, served over gRPC to every connecting Envoy node.
type Server struct {
	cache     cachev3.SnapshotCache
	builder   *builder.Builder
	tracker   *StatusTracker
	publisher *Publisher
	cfg       *config.Config
	log       *slog.Logger
}

func NewServer(b *builder.Builder, cfg *config.Config, log *slog.Logger) *Server {
	tracker := NewStatusTracker()
	s := &Server{
		cache:   cachev3.NewSnapshotCache(true, cachev3.IDHash{}, nil),
		builder: b,
		tracker: tracker,
		cfg:     cfg,
		log:     log,
	}
	s.publisher = NewPublisher(cfg, log, s.rebuild)
	return s
}

// OnStoreChange is registered with store.Store.OnChange by the caller
// that wires this server up; kept as a thin passthrough so internal/xds
// itself never imports internal/store.
func (s *Server) OnStoreChange() { s.publisher.Notify() }

// Tracker exposes per-node delivery status for internal/ops to surface.
func (s *Server) Tracker() *StatusTracker { return s.tracker }

func (s *Server) rebuild(ctx context.Context) error {
	snapshots, err := s.builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("building xds snapshots: %w", err)
	}
	for nodeID, snap := range snapshots {
		if nodeID == "" {
			continue
		}
		if err := s.cache.SetSnapshot(ctx, nodeID, snap); err != nil {
			return fmt.Errorf("setting snapshot for node %q: %w", nodeID, err)
		}
	}
	s.log.Info("pushed xds snapshots", "nodes", len(snapshots))
	return nil
}

// Seed runs an immediate, non-debounced rebuild, used once at startup
// right after bootstrap seeding so a proxy connecting before the first
// store mutation still gets a snapshot.
func (s *Server) Seed(ctx context.Context) error {
	return s.publisher.NotifyNow(ctx)
}

func (s *Server) Serve(ctx context.Context, addr string) error {
	xdsServer := serverv3.NewServer(ctx, s.cache, s.tracker)
	grpcServer := grpc.NewServer()
	registerXDSServices(grpcServer, xdsServer)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.log.Info("xds server listening", "addr", addr)

	go func() {
		<-ctx.Done()
		s.log.Info("shutting down xds server")
		grpcServer.GracefulStop()
	}()

	return grpcServer.Serve(lis)
}

func registerXDSServices(grpcServer *grpc.Server, xdsServer serverv3.Server) {
	discoverygrpc.RegisterAggregatedDiscoveryServiceServer(grpcServer, xdsServer)
	clusterservice.RegisterClusterDiscoveryServiceServer(grpcServer, xdsServer)
	endpointservice.RegisterEndpointDiscoveryServiceServer(grpcServer, xdsServer)
	listenerservice.RegisterListenerDiscoveryServiceServer(grpcServer, xdsServer)
	routeservice.RegisterRouteDiscoveryServiceServer(grpcServer, xdsServer)
	secretservice.RegisterSecretDiscoveryServiceServer(grpcServer, xdsServer)
}
