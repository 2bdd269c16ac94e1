package inject

import (
	"testing"

	jwtauthnv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/jwt_authn/v3"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/controlplane/internal/filters"
	"github.com/flowmesh/controlplane/internal/model"
)

// buildScenario3 constructs the RouteConfig/attachment fixture for the
// hierarchical override scenario: RC carries a JwtAuth filter at the
// RouteConfig scope (provA), vhost v1 overrides it with provB, and route
// r1 inside v1 disables it. v2 (a separate vhost) and r2 (a separate
// route in v1) see no scope-specific attachment and must fall back to
// whatever scope is next most specific.
func buildScenario3(t *testing.T) (*model.RouteConfig, []*model.FilterAttachment, map[model.FilterID]*model.Filter) {
	t.Helper()

	rc := &model.RouteConfig{
		ID:   model.NewRouteConfigID(),
		Name: "rc1",
		Spec: model.RouteConfigSpec{
			VirtualHosts: []model.VirtualHost{
				{
					Name:    "v1",
					Domains: []string{"v1.example.com"},
					Routes: []model.Route{
						{Name: "r1"},
						{Name: "r2"},
					},
				},
				{
					Name:    "v2",
					Domains: []string{"v2.example.com"},
					Routes: []model.Route{
						{Name: "r3"},
					},
				},
			},
		},
	}

	team := model.NewTeamID()
	filterA := &model.Filter{ID: model.NewFilterID(), Name: "provA", TeamID: team, FilterType: model.FilterJwtAuth}
	filterB := &model.Filter{ID: model.NewFilterID(), Name: "provB", TeamID: team, FilterType: model.FilterJwtAuth}

	filtersByID := map[model.FilterID]*model.Filter{
		filterA.ID: filterA,
		filterB.ID: filterB,
	}

	attachments := []*model.FilterAttachment{
		{FilterID: filterA.ID, Scope: model.ScopeRouteConfig, ScopeID: string(rc.ID)},
		{FilterID: filterB.ID, Scope: model.ScopeVirtualHost, ScopeID: string(rc.ID) + "/v1"},
		{
			FilterID: filterB.ID,
			Scope:    model.ScopeRoute,
			ScopeID:  string(rc.ID) + "/v1/r1",
			Settings: &model.AttachmentSettings{Behavior: model.BehaviorDisable},
		},
	}

	return rc, attachments, filtersByID
}

func TestResolveRouteFilters_MostSpecificScopeWins(t *testing.T) {
	rc, attachments, filtersByID := buildScenario3(t)
	resolved := ResolveRouteFilters(rc, attachments, filtersByID)

	r1 := resolved[RouteKey{VirtualHost: "v1", Route: "r1"}][model.FilterJwtAuth]
	require.Equal(t, "provB", r1.Filter.Name, "route-level attachment must win over vhost and route-config scopes")
	require.NotNil(t, r1.Settings)
	require.Equal(t, model.BehaviorDisable, r1.Settings.Behavior)

	r2 := resolved[RouteKey{VirtualHost: "v1", Route: "r2"}][model.FilterJwtAuth]
	require.Equal(t, "provB", r2.Filter.Name, "other routes in v1 must fall back to the vhost-level override")
	require.Nil(t, r2.Settings, "vhost-level attachment here has no per-scope settings")

	r3 := resolved[RouteKey{VirtualHost: "v2", Route: "r3"}][model.FilterJwtAuth]
	require.Equal(t, "provA", r3.Filter.Name, "routes in a vhost with no override must fall back to the route-config scope")
}

// TestBuildPerRouteOverride_JwtReferenceOnlyEmitsRequirementName covers
// spec.md's scenario 3: r1 (route-scoped disable) gets a disabled marker,
// r2 (falls back to v1's vhost-level override) references provB, and r3
// (falls back to the route-config-level base attachment, no override
// settings) references provA — each by the name of the filter that won
// at that route's most specific scope.
func TestBuildPerRouteOverride_JwtReferenceOnlyEmitsRequirementName(t *testing.T) {
	rc, attachments, filtersByID := buildScenario3(t)
	resolved := ResolveRouteFilters(rc, attachments, filtersByID)
	conv := filters.NewConverter(filters.NewSchemaRegistry())

	r1 := resolved[RouteKey{VirtualHost: "v1", Route: "r1"}][model.FilterJwtAuth]
	override, err := BuildPerRouteOverride(conv, r1)
	require.NoError(t, err)
	require.Equal(t, "envoy.filters.http.jwt_authn", override.HTTPFilterName)
	var r1Cfg jwtauthnv3.PerRouteConfig
	require.NoError(t, override.Config.UnmarshalTo(&r1Cfg))
	disabled, ok := r1Cfg.RequirementSpecifier.(*jwtauthnv3.PerRouteConfig_Disabled)
	require.True(t, ok, "route-level disable must emit a disabled marker, not a requirement_name")
	require.True(t, disabled.Disabled)

	r2 := resolved[RouteKey{VirtualHost: "v1", Route: "r2"}][model.FilterJwtAuth]
	override, err = BuildPerRouteOverride(conv, r2)
	require.NoError(t, err)
	var r2Cfg jwtauthnv3.PerRouteConfig
	require.NoError(t, override.Config.UnmarshalTo(&r2Cfg))
	ref, ok := r2Cfg.RequirementSpecifier.(*jwtauthnv3.PerRouteConfig_RequirementName)
	require.True(t, ok)
	require.Equal(t, "provB", ref.RequirementName, "other routes in v1 must reference the vhost-level override's filter")

	r3 := resolved[RouteKey{VirtualHost: "v2", Route: "r3"}][model.FilterJwtAuth]
	override, err = BuildPerRouteOverride(conv, r3)
	require.NoError(t, err)
	var r3Cfg jwtauthnv3.PerRouteConfig
	require.NoError(t, override.Config.UnmarshalTo(&r3Cfg))
	ref, ok = r3Cfg.RequirementSpecifier.(*jwtauthnv3.PerRouteConfig_RequirementName)
	require.True(t, ok)
	require.Equal(t, "provA", ref.RequirementName, "routes in other vhosts must reference the route-config-level base filter")
}

func TestResolveRouteFilters_NoAttachmentsYieldsNoEntries(t *testing.T) {
	rc, _, filtersByID := buildScenario3(t)
	resolved := ResolveRouteFilters(rc, nil, filtersByID)
	require.Empty(t, resolved)
}

func TestResolveRouteFilters_UnknownFilterIDIsSkipped(t *testing.T) {
	rc, _, _ := buildScenario3(t)
	ghost := model.NewFilterID()
	attachments := []*model.FilterAttachment{
		{FilterID: ghost, Scope: model.ScopeRouteConfig, ScopeID: string(rc.ID)},
	}
	resolved := ResolveRouteFilters(rc, attachments, map[model.FilterID]*model.Filter{})
	require.Empty(t, resolved, "an attachment referencing a filter absent from filtersByID must not produce a resolved entry")
}

func TestVhostNameFromScopeID(t *testing.T) {
	name, ok := vhostNameFromScopeID("rc1", "rc1/v1")
	require.True(t, ok)
	require.Equal(t, "v1", name)

	_, ok = vhostNameFromScopeID("rc1", "rc2/v1")
	require.False(t, ok)
}

func TestRouteNameFromScopeID(t *testing.T) {
	vhost, route, ok := routeNameFromScopeID("rc1", "rc1/v1/r1")
	require.True(t, ok)
	require.Equal(t, "v1", vhost)
	require.Equal(t, "r1", route)

	_, _, ok = routeNameFromScopeID("rc1", "rc1/v1")
	require.False(t, ok, "a scope_id with no route segment must not parse as route-scoped")
}
