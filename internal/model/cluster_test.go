package model

import (
	"testing"
	"time"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/stretchr/testify/require"
)

func validCluster() *Cluster {
	return &Cluster{
		ID:          NewClusterID(),
		Name:        "payments",
		ServiceName: "payments",
		Spec: ClusterSpec{
			Endpoints:        []Endpoint{{Kind: EndpointAddress, Address: "10.0.0.1", Port: 8080, Weight: 1}},
			ConnectTimeout:   5 * time.Second,
			DNSLookupFamily:  DNSAuto,
			LBPolicy:         LBRoundRobin,
			UpstreamProtocol: ProtoHTTP1,
		},
	}
}

func TestClusterValidate_ZeroEndpoints(t *testing.T) {
	c := validCluster()
	c.Spec.Endpoints = nil
	err := c.Validate()
	require.Error(t, err)
	require.Equal(t, apierr.Validation, apierr.KindOf(err))
}

func TestClusterValidate_OK(t *testing.T) {
	require.NoError(t, validCluster().Validate())
}

func TestClusterValidate_EndpointMissingAddress(t *testing.T) {
	c := validCluster()
	c.Spec.Endpoints = []Endpoint{{Kind: EndpointAddress, Port: 8080}}
	require.Error(t, c.Validate())
}

func TestClusterValidate_EndpointMissingPort(t *testing.T) {
	c := validCluster()
	c.Spec.Endpoints = []Endpoint{{Kind: EndpointAddress, Address: "10.0.0.1"}}
	require.Error(t, c.Validate())
}

func TestClusterValidate_LogicalEndpointRequiresName(t *testing.T) {
	c := validCluster()
	c.Spec.Endpoints = []Endpoint{{Kind: EndpointLogical, Port: 8080}}
	require.Error(t, c.Validate())
}

func TestClusterValidate_NameBounds(t *testing.T) {
	c := validCluster()
	c.Name = ""
	require.Error(t, c.Validate())

	c2 := validCluster()
	c2.Name = make63RuneString(101)
	require.Error(t, c2.Validate())

	c3 := validCluster()
	c3.Name = make63RuneString(100)
	require.NoError(t, c3.Validate())
}

func TestClusterValidate_ConnectTimeoutMustBePositive(t *testing.T) {
	c := validCluster()
	c.Spec.ConnectTimeout = 0
	require.Error(t, c.Validate())
}

func TestClusterValidate_InvalidTeamID(t *testing.T) {
	c := validCluster()
	bad := TeamID("not-a-uuid")
	c.TeamID = &bad
	require.Error(t, c.Validate())
}

func TestClusterIsSystem(t *testing.T) {
	c := validCluster()
	require.True(t, c.IsSystem())
	team := NewTeamID()
	c.TeamID = &team
	require.False(t, c.IsSystem())
}

func make63RuneString(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
