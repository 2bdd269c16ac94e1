package builder

import (
	"testing"

	hcmv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/network/http_connection_manager/v3"
	"github.com/envoyproxy/go-control-plane/pkg/wellknown"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/controlplane/internal/filters"
	"github.com/flowmesh/controlplane/internal/model"
)

func baseListener() *model.Listener {
	return &model.Listener{
		ID:       model.NewListenerID(),
		Name:     "public",
		Address:  "0.0.0.0",
		Port:     8080,
		Protocol: model.ListenerTCP,
		Spec: model.ListenerSpec{
			FilterChains: []model.FilterChain{{
				Filters: []model.NetworkFilter{{
					Kind: model.NetworkFilterHCM,
					HCM:  &model.HTTPConnectionManager{RouteConfigName: "routes"},
				}},
			}},
		},
	}
}

func TestBuildListener_BasicHCMWithRDS(t *testing.T) {
	conv := filters.NewConverter(filters.NewSchemaRegistry())
	out, err := BuildListener(baseListener(), conv, nil)
	require.NoError(t, err)
	require.Equal(t, "public", out.Name)
	require.Len(t, out.FilterChains, 1)
	require.Equal(t, wellknown.HTTPConnectionManager, out.FilterChains[0].Filters[0].Name)

	var mgr hcmv3.HttpConnectionManager
	require.NoError(t, out.FilterChains[0].Filters[0].GetTypedConfig().UnmarshalTo(&mgr))
	rds := mgr.GetRds()
	require.NotNil(t, rds)
	require.Equal(t, "routes", rds.RouteConfigName)
	// Router is always present and always last.
	require.Equal(t, wellknown.Router, mgr.HttpFilters[len(mgr.HttpFilters)-1].Name)
}

func TestBuildListener_InlineRouteConfig(t *testing.T) {
	conv := filters.NewConverter(filters.NewSchemaRegistry())
	l := baseListener()
	l.Spec.FilterChains[0].Filters[0].HCM = &model.HTTPConnectionManager{
		InlineRouteConfig: &model.RouteConfigSpec{
			VirtualHosts: []model.VirtualHost{{Name: "vh1", Domains: []string{"*"}}},
		},
	}
	out, err := BuildListener(l, conv, nil)
	require.NoError(t, err)

	var mgr hcmv3.HttpConnectionManager
	require.NoError(t, out.FilterChains[0].Filters[0].GetTypedConfig().UnmarshalTo(&mgr))
	require.NotNil(t, mgr.GetRouteConfig())
	require.Nil(t, mgr.GetRds())
}

func TestBuildListener_HTTPFiltersResolveFromMap(t *testing.T) {
	conv := filters.NewConverter(filters.NewSchemaRegistry())
	f := &model.Filter{
		ID: model.NewFilterID(), FilterType: model.FilterLocalRateLimit,
		Spec: map[string]any{"max_tokens": 10},
	}
	l := baseListener()
	l.Spec.FilterChains[0].Filters[0].HCM.HTTPFilters = []model.HTTPFilterRef{{FilterID: f.ID, FilterType: f.FilterType}}

	out, err := BuildListener(l, conv, map[model.FilterID]*model.Filter{f.ID: f})
	require.NoError(t, err)

	var mgr hcmv3.HttpConnectionManager
	require.NoError(t, out.FilterChains[0].Filters[0].GetTypedConfig().UnmarshalTo(&mgr))
	require.Len(t, mgr.HttpFilters, 2) // local_ratelimit + router
	require.Equal(t, "envoy.filters.http.local_ratelimit", mgr.HttpFilters[0].Name)
}

func TestBuildListener_UnresolvedFilterIDErrors(t *testing.T) {
	conv := filters.NewConverter(filters.NewSchemaRegistry())
	l := baseListener()
	l.Spec.FilterChains[0].Filters[0].HCM.HTTPFilters = []model.HTTPFilterRef{{FilterID: model.NewFilterID()}}
	_, err := BuildListener(l, conv, nil)
	require.Error(t, err)
}

func TestBuildListener_TCPProxy(t *testing.T) {
	conv := filters.NewConverter(filters.NewSchemaRegistry())
	l := baseListener()
	l.Spec.FilterChains[0].Filters[0] = model.NetworkFilter{Kind: model.NetworkFilterTCPProxy, TCPProxyCluster: "raw_tcp"}

	out, err := BuildListener(l, conv, nil)
	require.NoError(t, err)
	require.Equal(t, wellknown.TCPProxy, out.FilterChains[0].Filters[0].Name)
}

func TestBuildListener_AccessLogEnabled(t *testing.T) {
	conv := filters.NewConverter(filters.NewSchemaRegistry())
	l := baseListener()
	sessID := model.NewLearningSessionID()
	l.Spec.FilterChains[0].Filters[0].HCM.AccessLog = model.AccessLogConfig{Enabled: true, LearningSessionID: &sessID}

	out, err := BuildListener(l, conv, nil)
	require.NoError(t, err)

	var mgr hcmv3.HttpConnectionManager
	require.NoError(t, out.FilterChains[0].Filters[0].GetTypedConfig().UnmarshalTo(&mgr))
	require.Len(t, mgr.AccessLog, 1)
}
