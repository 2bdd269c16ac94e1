package builder

import (
	"testing"

	routev3 "github.com/envoyproxy/go-control-plane/envoy/config/route/v3"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/controlplane/internal/filters"
	"github.com/flowmesh/controlplane/internal/inject"
	"github.com/flowmesh/controlplane/internal/model"
)

func simpleRouteConfig() *model.RouteConfig {
	return &model.RouteConfig{
		ID:   model.NewRouteConfigID(),
		Name: "rc1",
		Spec: model.RouteConfigSpec{
			VirtualHosts: []model.VirtualHost{{
				Name:    "v1",
				Domains: []string{"v1.example.com"},
				Routes: []model.Route{{
					Name:   "r1",
					Match:  model.RouteMatch{Path: model.PathMatch{Kind: model.PathPrefix, Value: "/"}},
					Action: model.RouteAction{Kind: model.ActionForward, ClusterName: "payments"},
				}},
			}},
		},
	}
}

func TestBuildRouteConfig_Basic(t *testing.T) {
	conv := filters.NewConverter(filters.NewSchemaRegistry())
	out, err := BuildRouteConfig(simpleRouteConfig(), nil, conv)
	require.NoError(t, err)
	require.Equal(t, "rc1", out.Name)
	require.Len(t, out.VirtualHosts, 1)
	require.Equal(t, []string{"v1.example.com"}, out.VirtualHosts[0].Domains)

	route := out.VirtualHosts[0].Routes[0]
	require.Equal(t, "payments", route.GetRoute().GetCluster())
	require.Nil(t, route.TypedPerFilterConfig)
}

func TestBuildRouteConfig_WeightedClusterAction(t *testing.T) {
	rc := simpleRouteConfig()
	rc.Spec.VirtualHosts[0].Routes[0].Action = model.RouteAction{
		Kind: model.ActionWeightedCluster,
		WeightedClusters: []model.WeightedCluster{
			{ClusterName: "v1", Weight: 80},
			{ClusterName: "v2", Weight: 20},
		},
	}
	conv := filters.NewConverter(filters.NewSchemaRegistry())
	out, err := BuildRouteConfig(rc, nil, conv)
	require.NoError(t, err)

	wc := out.VirtualHosts[0].Routes[0].GetRoute().GetWeightedClusters()
	require.Len(t, wc.Clusters, 2)
}

func TestBuildRouteConfig_RedirectAction(t *testing.T) {
	rc := simpleRouteConfig()
	rc.Spec.VirtualHosts[0].Routes[0].Action = model.RouteAction{
		Kind: model.ActionRedirect, RedirectHost: "new.example.com",
	}
	conv := filters.NewConverter(filters.NewSchemaRegistry())
	out, err := BuildRouteConfig(rc, nil, conv)
	require.NoError(t, err)
	require.IsType(t, &routev3.Route_Redirect{}, out.VirtualHosts[0].Routes[0].Action)
}

func TestBuildRouteConfig_PerRouteFilterOverrideSetsTypedPerFilterConfig(t *testing.T) {
	rc := simpleRouteConfig()
	conv := filters.NewConverter(filters.NewSchemaRegistry())

	f := &model.Filter{ID: model.NewFilterID(), FilterType: model.FilterLocalRateLimit, Spec: map[string]any{"max_tokens": 5}}
	perRoute := map[inject.RouteKey]map[model.FilterType]inject.ResolvedFilter{
		{VirtualHost: "v1", Route: "r1"}: {
			model.FilterLocalRateLimit: {Filter: f},
		},
	}

	out, err := BuildRouteConfig(rc, perRoute, conv)
	require.NoError(t, err)
	route := out.VirtualHosts[0].Routes[0]
	require.Contains(t, route.TypedPerFilterConfig, "envoy.filters.http.local_ratelimit")
}

func TestBuildRouteConfig_RegexPathMatch(t *testing.T) {
	rc := simpleRouteConfig()
	rc.Spec.VirtualHosts[0].Routes[0].Match.Path = model.PathMatch{Kind: model.PathRegex, Value: "^/v[0-9]+/.*"}
	conv := filters.NewConverter(filters.NewSchemaRegistry())
	out, err := BuildRouteConfig(rc, nil, conv)
	require.NoError(t, err)
	require.NotNil(t, out.VirtualHosts[0].Routes[0].Match.GetSafeRegex())
}
