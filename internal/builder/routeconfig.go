package builder

import (
	"fmt"
	"sort"

	routev3 "github.com/envoyproxy/go-control-plane/envoy/config/route/v3"
	typev3 "github.com/envoyproxy/go-control-plane/envoy/type/matcher/v3"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/flowmesh/controlplane/internal/filters"
	"github.com/flowmesh/controlplane/internal/inject"
	"github.com/flowmesh/controlplane/internal/model"
)

// BuildRouteConfig converts a stored RouteConfig into its RDS resource.
// perRoute is the result of inject.ResolveRouteFilters for this same
// RouteConfig; conv turns each ResolvedFilter into a protobuf Any for the
// route's TypedPerFilterConfig map. Both may be nil when the route config
// has no filter attachments at all.
func BuildRouteConfig(rc *model.RouteConfig, perRoute map[inject.RouteKey]map[model.FilterType]inject.ResolvedFilter, conv *filters.Converter) (*routev3.RouteConfiguration, error) {
	vhosts := make([]*routev3.VirtualHost, 0, len(rc.Spec.VirtualHosts))
	for _, vh := range rc.Spec.VirtualHosts {
		built, err := buildVirtualHost(vh, perRoute, conv)
		if err != nil {
			return nil, fmt.Errorf("builder: route_config %q: %w", rc.Name, err)
		}
		vhosts = append(vhosts, built)
	}
	return &routev3.RouteConfiguration{Name: rc.Name, VirtualHosts: vhosts}, nil
}

func buildVirtualHost(vh model.VirtualHost, perRoute map[inject.RouteKey]map[model.FilterType]inject.ResolvedFilter, conv *filters.Converter) (*routev3.VirtualHost, error) {
	routes := make([]*routev3.Route, 0, len(vh.Routes))
	for _, r := range vh.Routes {
		built, err := buildRoute(vh.Name, r, perRoute, conv)
		if err != nil {
			return nil, err
		}
		routes = append(routes, built)
	}
	return &routev3.VirtualHost{Name: vh.Name, Domains: vh.Domains, Routes: routes}, nil
}

func buildRoute(vhostName string, r model.Route, perRoute map[inject.RouteKey]map[model.FilterType]inject.ResolvedFilter, conv *filters.Converter) (*routev3.Route, error) {
	out := &routev3.Route{
		Name:  r.Name,
		Match: buildRouteMatch(r.Match),
	}
	switch r.Action.Kind {
	case model.ActionRedirect:
		out.Action = &routev3.Route_Redirect{Redirect: buildRedirectAction(r.Action)}
	default:
		out.Action = &routev3.Route_Route{Route: buildRouteAction(r.Action)}
	}

	key := inject.RouteKey{VirtualHost: vhostName, Route: r.Name}
	effective := perRoute[key]
	if len(effective) == 0 {
		return out, nil
	}

	types := make([]model.FilterType, 0, len(effective))
	for ft := range effective {
		types = append(types, ft)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, ft := range types {
		override, err := inject.BuildPerRouteOverride(conv, effective[ft])
		if err != nil {
			return nil, fmt.Errorf("route %q/%q: %w", vhostName, r.Name, err)
		}
		if override == nil {
			continue
		}
		if out.TypedPerFilterConfig == nil {
			out.TypedPerFilterConfig = make(map[string]*anypb.Any)
		}
		out.TypedPerFilterConfig[override.HTTPFilterName] = override.Config
	}
	return out, nil
}

func buildRouteMatch(m model.RouteMatch) *routev3.RouteMatch {
	rm := &routev3.RouteMatch{}
	switch m.Path.Kind {
	case model.PathExact:
		rm.PathSpecifier = &routev3.RouteMatch_Path{Path: m.Path.Value}
	case model.PathRegex:
		rm.PathSpecifier = &routev3.RouteMatch_SafeRegex{SafeRegex: regexMatcher(m.Path.Value)}
	case model.PathTemplate:
		rm.PathSpecifier = &routev3.RouteMatch_PathSeparatedPrefix{PathSeparatedPrefix: m.Path.Value}
	default:
		rm.PathSpecifier = &routev3.RouteMatch_Prefix{Prefix: m.Path.Value}
	}
	for _, h := range m.Headers {
		rm.Headers = append(rm.Headers, buildHeaderMatcher(h))
	}
	for _, q := range m.Query {
		rm.QueryParameters = append(rm.QueryParameters, buildQueryMatcher(q))
	}
	return rm
}

func buildRouteAction(a model.RouteAction) *routev3.RouteAction {
	out := &routev3.RouteAction{}
	switch a.Kind {
	case model.ActionWeightedCluster:
		clusters := make([]*routev3.WeightedCluster_ClusterWeight, 0, len(a.WeightedClusters))
		for _, wc := range a.WeightedClusters {
			clusters = append(clusters, &routev3.WeightedCluster_ClusterWeight{
				Name:   wc.ClusterName,
				Weight: weightValue(wc.Weight),
			})
		}
		out.ClusterSpecifier = &routev3.RouteAction_WeightedClusters{
			WeightedClusters: &routev3.WeightedCluster{Clusters: clusters},
		}
	default:
		out.ClusterSpecifier = &routev3.RouteAction_Cluster{Cluster: a.ClusterName}
	}
	return out
}

func buildRedirectAction(a model.RouteAction) *routev3.RedirectAction {
	out := &routev3.RedirectAction{HostRedirect: a.RedirectHost}
	if a.RedirectPathPrefix != "" {
		out.PathRewriteSpecifier = &routev3.RedirectAction_PrefixRewrite{PrefixRewrite: a.RedirectPathPrefix}
	}
	if a.RedirectResponseCode != 0 {
		out.ResponseCode = routev3.RedirectAction_RedirectResponseCode(a.RedirectResponseCode)
	}
	return out
}

func buildHeaderMatcher(h model.HeaderMatch) *routev3.HeaderMatcher {
	hm := &routev3.HeaderMatcher{Name: h.Name}
	if h.Present {
		hm.HeaderMatchSpecifier = &routev3.HeaderMatcher_PresentMatch{PresentMatch: true}
	} else {
		hm.HeaderMatchSpecifier = &routev3.HeaderMatcher_StringMatch{
			StringMatch: &typev3.StringMatcher{MatchPattern: &typev3.StringMatcher_Exact{Exact: h.Value}},
		}
	}
	return hm
}

func buildQueryMatcher(q model.QueryMatch) *routev3.QueryParameterMatcher {
	return &routev3.QueryParameterMatcher{
		Name: q.Name,
		QueryParameterMatchSpecifier: &routev3.QueryParameterMatcher_StringMatch{
			StringMatch: &typev3.StringMatcher{MatchPattern: &typev3.StringMatcher_Exact{Exact: q.Value}},
		},
	}
}

func regexMatcher(pattern string) *typev3.RegexMatcher {
	return &typev3.RegexMatcher{
		EngineType: &typev3.RegexMatcher_GoogleRe2{GoogleRe2: &typev3.RegexMatcher_GoogleRE2{}},
		Regex:      pattern,
	}
}

func weightValue(w uint32) *wrapperspb.UInt32Value {
	return wrapperspb.UInt32(w)
}
