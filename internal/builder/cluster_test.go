package builder

import (
	"testing"
	"time"

	clusterv3 "github.com/envoyproxy/go-control-plane/envoy/config/cluster/v3"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/controlplane/internal/model"
)

func baseCluster() *model.Cluster {
	return &model.Cluster{
		ID:          model.NewClusterID(),
		Name:        "payments",
		ServiceName: "payments",
		Spec: model.ClusterSpec{
			Endpoints:       []model.Endpoint{{Kind: model.EndpointAddress, Address: "10.0.0.1", Port: 8080, Weight: 1}},
			ConnectTimeout:  5 * time.Second,
			DNSLookupFamily: model.DNSAuto,
			LBPolicy:        model.LBRoundRobin,
		},
	}
}

func TestBuildCluster_StaticAddressEndpoint(t *testing.T) {
	c := baseCluster()
	out, err := BuildCluster(c)
	require.NoError(t, err)
	require.Equal(t, "payments", out.Name)
	require.Equal(t, clusterv3.Cluster_STATIC, out.GetType())
	require.Equal(t, clusterv3.Cluster_ROUND_ROBIN, out.LbPolicy)
	require.Len(t, out.LoadAssignment.Endpoints[0].LbEndpoints, 1)
}

func TestBuildCluster_LogicalEndpointUsesStrictDNS(t *testing.T) {
	c := baseCluster()
	c.Spec.Endpoints = []model.Endpoint{{Kind: model.EndpointLogical, LogicalName: "payments.svc.cluster.local", Port: 8080}}
	out, err := BuildCluster(c)
	require.NoError(t, err)
	require.Equal(t, clusterv3.Cluster_STRICT_DNS, out.GetType())
}

func TestBuildCluster_TLSSetsTransportSocket(t *testing.T) {
	c := baseCluster()
	c.Spec.TLSEnabled = true
	c.Spec.SNI = "payments.internal"
	out, err := BuildCluster(c)
	require.NoError(t, err)
	require.NotNil(t, out.TransportSocket)
	require.Equal(t, upstreamTLSTransportSocketName, out.TransportSocket.Name)
}

func TestBuildCluster_NoTLSLeavesTransportSocketNil(t *testing.T) {
	out, err := BuildCluster(baseCluster())
	require.NoError(t, err)
	require.Nil(t, out.TransportSocket)
}

func TestBuildCluster_HealthCheck(t *testing.T) {
	c := baseCluster()
	c.Spec.HealthCheck = &model.HealthCheckSpec{
		Kind: model.HealthCheckHTTP, Path: "/healthz",
		Interval: time.Second, Timeout: time.Second,
		UnhealthyThreshold: 3, HealthyThreshold: 2,
	}
	out, err := BuildCluster(c)
	require.NoError(t, err)
	require.Len(t, out.HealthChecks, 1)
	http := out.HealthChecks[0].GetHttpHealthCheck()
	require.NotNil(t, http)
	require.Equal(t, "/healthz", http.Path)
}

func TestBuildCluster_CircuitBreakersAndOutlierDetection(t *testing.T) {
	c := baseCluster()
	c.Spec.CircuitBreakers = map[model.RoutingPriority]model.CircuitBreakerThresholds{
		model.PriorityDefault: {MaxConnections: 100, MaxPendingRequests: 50, MaxRequests: 200, MaxRetries: 3},
	}
	c.Spec.OutlierDetection = &model.OutlierDetection{
		Consecutive5xx: 5, Interval: 10 * time.Second, BaseEjectionTime: 30 * time.Second, MaxEjectionPercent: 50,
	}
	out, err := BuildCluster(c)
	require.NoError(t, err)
	require.Len(t, out.CircuitBreakers.Thresholds, 1)
	require.NotNil(t, out.OutlierDetection)
	require.EqualValues(t, 5, out.OutlierDetection.Consecutive_5Xx.Value)
}

func TestBuildCluster_UnknownEndpointKindErrors(t *testing.T) {
	c := baseCluster()
	c.Spec.Endpoints = []model.Endpoint{{Kind: "bogus", Port: 1}}
	_, err := BuildCluster(c)
	require.Error(t, err)
}

func TestBuildCluster_DeterministicOutput(t *testing.T) {
	c := baseCluster()
	out1, err := BuildCluster(c)
	require.NoError(t, err)
	out2, err := BuildCluster(c)
	require.NoError(t, err)
	require.Equal(t, out1.String(), out2.String(), "building the same cluster twice must produce byte-identical output for ACK idempotency")
}
