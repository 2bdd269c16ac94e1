package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validListener() *Listener {
	return &Listener{
		ID:       NewListenerID(),
		Name:     "public",
		Address:  "0.0.0.0",
		Port:     1024,
		Protocol: ListenerTCP,
		Spec: ListenerSpec{
			FilterChains: []FilterChain{{
				Filters: []NetworkFilter{{
					Kind: NetworkFilterHCM,
					HCM:  &HTTPConnectionManager{RouteConfigName: "routes"},
				}},
			}},
		},
	}
}

func TestListenerValidate_PortBoundary(t *testing.T) {
	l := validListener()
	l.Port = 1023
	require.Error(t, l.Validate(), "port 1023 must be rejected")

	l2 := validListener()
	l2.Port = 1024
	require.NoError(t, l2.Validate(), "port 1024 must be accepted")
}

func TestListenerValidate_PortUpperBound(t *testing.T) {
	l := validListener()
	l.Port = 65536
	require.Error(t, l.Validate())
}

func TestListenerValidate_RequiresFilterChain(t *testing.T) {
	l := validListener()
	l.Spec.FilterChains = nil
	require.Error(t, l.Validate())
}

func TestListenerValidate_FilterChainRequiresFilter(t *testing.T) {
	l := validListener()
	l.Spec.FilterChains = []FilterChain{{Filters: nil}}
	require.Error(t, l.Validate())
}

func TestHCMValidate_RequiresRouteConfigOrInline(t *testing.T) {
	hcm := &HTTPConnectionManager{}
	require.Error(t, hcm.Validate())

	hcm.RouteConfigName = "routes"
	require.NoError(t, hcm.Validate())
}

func TestListener_ReferencesRouteConfig(t *testing.T) {
	l := validListener()
	require.True(t, l.ReferencesRouteConfig("routes"))
	require.False(t, l.ReferencesRouteConfig("other"))
}

func TestListener_HCMs(t *testing.T) {
	l := validListener()
	hcms := l.Spec.HCMs()
	require.Len(t, hcms, 1)
	require.Equal(t, "routes", hcms[0].RouteConfigName)
}

func TestListenerValidate_MissingAddress(t *testing.T) {
	l := validListener()
	l.Address = ""
	require.Error(t, l.Validate())
}
