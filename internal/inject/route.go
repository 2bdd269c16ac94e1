package inject

import (
	"fmt"

	"google.golang.org/protobuf/types/known/anypb"

	"github.com/flowmesh/controlplane/internal/filters"
	"github.com/flowmesh/controlplane/internal/model"
)

// ResolvedFilter pairs a Filter with the AttachmentSettings that applied
// at the scope that won for a given route.
type ResolvedFilter struct {
	Filter   *model.Filter
	Settings *model.AttachmentSettings
}

// RouteKey identifies one route within a RouteConfig for the purposes of
// the resolved-filter map.
type RouteKey struct {
	VirtualHost string
	Route       string
}

// ResolveRouteFilters computes, for every route in rc, the effective set
// of filters that apply to it once RouteConfig/VirtualHost/Route scope
// attachments are merged with "most specific wins" semantics (Route
// overrides VirtualHost overrides RouteConfig, per filter type).
//
// attachments must all belong to rc (callers fetch them via
// store.AttachmentRepository.ListByRouteConfig, which returns the
// RouteConfig-scope ones keyed by rc.ID together with the VirtualHost and
// Route ones); filtersByID resolves FilterID to the actual Filter row.
func ResolveRouteFilters(rc *model.RouteConfig, attachments []*model.FilterAttachment, filtersByID map[model.FilterID]*model.Filter) map[RouteKey]map[model.FilterType]ResolvedFilter {
	rcScoped := make([]*model.FilterAttachment, 0)
	vhScoped := make(map[string][]*model.FilterAttachment)
	routeScoped := make(map[RouteKey][]*model.FilterAttachment)

	rcIDStr := string(rc.ID)
	for _, a := range attachments {
		switch a.Scope {
		case model.ScopeRouteConfig:
			if a.ScopeID == rcIDStr {
				rcScoped = append(rcScoped, a)
			}
		case model.ScopeVirtualHost:
			vhName, ok := vhostNameFromScopeID(rcIDStr, a.ScopeID)
			if ok {
				vhScoped[vhName] = append(vhScoped[vhName], a)
			}
		case model.ScopeRoute:
			vhName, routeName, ok := routeNameFromScopeID(rcIDStr, a.ScopeID)
			if ok {
				key := RouteKey{VirtualHost: vhName, Route: routeName}
				routeScoped[key] = append(routeScoped[key], a)
			}
		}
	}

	result := make(map[RouteKey]map[model.FilterType]ResolvedFilter)
	for _, vh := range rc.Spec.VirtualHosts {
		for _, route := range vh.Routes {
			key := RouteKey{VirtualHost: vh.Name, Route: route.Name}
			effective := make(map[model.FilterType]ResolvedFilter)

			layer := func(atts []*model.FilterAttachment) {
				for _, a := range atts {
					f, ok := filtersByID[a.FilterID]
					if !ok {
						continue
					}
					effective[f.FilterType] = ResolvedFilter{Filter: f, Settings: a.Settings}
				}
			}
			layer(rcScoped)
			layer(vhScoped[vh.Name])
			layer(routeScoped[key])

			if len(effective) > 0 {
				result[key] = effective
			}
		}
	}
	return result
}

func vhostNameFromScopeID(rcID, scopeID string) (string, bool) {
	prefix := rcID + "/"
	if len(scopeID) <= len(prefix) || scopeID[:len(prefix)] != prefix {
		return "", false
	}
	return scopeID[len(prefix):], true
}

func routeNameFromScopeID(rcID, scopeID string) (vhost, route string, ok bool) {
	prefix := rcID + "/"
	if len(scopeID) <= len(prefix) || scopeID[:len(prefix)] != prefix {
		return "", "", false
	}
	rest := scopeID[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i], rest[i+1:], true
		}
	}
	return "", "", false
}

// PerRouteOverride is one TypedPerFilterConfig entry, keyed by the Envoy
// http_filter name it overrides.
type PerRouteOverride struct {
	HTTPFilterName string
	Config         *anypb.Any
}

// disableCapableTypes mirrors generate_disable_scoped_config: only these
// filter types have a well-known "disabled" per-route wire shape. Every
// other type either doesn't support per-route overrides at all, or (like
// CORS/HealthCheck) controls its on/off state somewhere other than
// TypedPerFilterConfig, so BehaviorDisable on them is a no-op.
var disableCapableTypes = map[model.FilterType]bool{
	model.FilterJwtAuth:    true,
	model.FilterCompressor: true,
	model.FilterMCP:        true,
	model.FilterRBAC:       true,
}

// BuildPerRouteOverride converts one ResolvedFilter into the Any its
// scope should carry, applying AttachmentSettings.Behavior:
//   - use_base (or no settings): convert the filter's own base spec
//     (full_config types convert it whole; reference_only types such as
//     JWT fall back to their own provider name, since the base spec
//     carries no requirement_name of its own)
//   - disable: a filter-specific "disabled" config, for the types that
//     have one; every other type yields (nil, nil), meaning "nothing to
//     attach at this scope" rather than an error
//   - override: convert settings.Config instead of the filter's base spec
//     (for reference_only types, settings.Config is expected to carry
//     {"requirement_name": "..."})
//
// Returns (nil, nil) when the filter type has no per-route representation
// at all (PerRouteBehavior disable_only/not_supported), consistent with
// Converter.ToPerRouteAny.
func BuildPerRouteOverride(conv *filters.Converter, rf ResolvedFilter) (*PerRouteOverride, error) {
	ft := rf.Filter.FilterType
	spec := rf.Filter.Spec

	if rf.Settings != nil {
		switch rf.Settings.Behavior {
		case model.BehaviorDisable:
			if !disableCapableTypes[ft] {
				return nil, nil
			}
			return buildDisableOverride(conv, ft)
		case model.BehaviorOverride:
			if rf.Settings.Config != nil {
				spec = rf.Settings.Config
			}
		}
	}

	meta, hasMeta := ft.Metadata()
	name := string(ft)
	if hasMeta {
		name = meta.HTTPFilterName
	}

	var any *anypb.Any
	var err error
	if hasMeta && meta.PerRouteBehavior == model.PerRouteReferenceOnly {
		any, err = conv.ToPerRouteReferenceAny(ft, spec, rf.Filter.Name)
	} else {
		any, err = conv.ToPerRouteAny(ft, spec)
	}
	if err != nil {
		return nil, fmt.Errorf("inject: building per-route config for filter %q: %w", rf.Filter.Name, err)
	}
	if any == nil {
		return nil, nil
	}
	return &PerRouteOverride{HTTPFilterName: name, Config: any}, nil
}

// buildDisableOverride returns the disabled-per-route Any that
// filters.Converter.ToPerRouteDisabledAny builds for ft, named after ft's
// HTTP filter — keeping this package free of direct go-control-plane
// imports.
func buildDisableOverride(conv *filters.Converter, ft model.FilterType) (*PerRouteOverride, error) {
	any, err := conv.ToPerRouteDisabledAny(ft)
	if err != nil {
		return nil, err
	}
	name := string(ft)
	if meta, ok := ft.Metadata(); ok {
		name = meta.HTTPFilterName
	}
	return &PerRouteOverride{HTTPFilterName: name, Config: any}, nil
}
