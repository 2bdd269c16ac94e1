package filters

import (
	"encoding/json"
	"fmt"

	compressorv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/compressor/v3"
	jwtauthnv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/jwt_authn/v3"
	rbacperroutev3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/rbac/v3"
	hcmv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/network/http_connection_manager/v3"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
)

// Converter turns a Filter's raw JSON spec into Envoy protobuf configs.
// Static (compile-time known) filter types dispatch to a hand-written
// builder; anything else is looked up in schemas, the MCP/custom-filter
// path.
type Converter struct {
	schemas *SchemaRegistry
}

func NewConverter(schemas *SchemaRegistry) *Converter {
	return &Converter{schemas: schemas}
}

// builder produces a proto.Message from a filter's decoded spec. The same
// builder serves the listener-level (base) config and the per-route
// config, since most filter types share one message shape for both
// positions (PerRouteBehavior decides whether the per-route Any is even
// used).
type builder func(spec map[string]any) (proto.Message, error)

var staticBuilders = map[model.FilterType]builder{
	model.FilterHeaderMutation: buildHeaderMutation,
	model.FilterJwtAuth:        buildJwtAuthn,
	model.FilterLocalRateLimit: buildLocalRateLimit,
	model.FilterRateLimit:      buildRateLimit,
	model.FilterCustomResponse: buildCustomResponse,
	model.FilterCORS:           buildCorsPolicy,
	model.FilterCompressor:     buildCompressor,
	model.FilterRBAC:           buildRBAC,
	model.FilterExtAuthz:       buildExtAuthz,
	model.FilterExtProc:        buildExtProc,
	model.FilterHealthCheck:    buildHealthCheck,
}

// ToListenerAny builds the base (listener/HCM-level) typed config for
// ft, returning the Envoy http_filter name it must be registered under.
func (c *Converter) ToListenerAny(ft model.FilterType, spec map[string]any) (name string, cfg *anypb.Any, err error) {
	meta, ok := ft.Metadata()
	if !ok {
		return c.toDynamicAny(ft, spec)
	}
	if meta.PerRouteBehavior == model.PerRouteNotSupported {
		return "", nil, apierr.Validationf("filter", "filter_type", "filter type %q is declared but has no xDS conversion (not supported)", ft)
	}
	build, ok := staticBuilders[ft]
	if !ok {
		return "", nil, apierr.Validationf("filter", "filter_type", "no static converter registered for %q", ft)
	}
	msg, err := build(spec)
	if err != nil {
		return "", nil, err
	}
	any, err := anypb.New(msg)
	if err != nil {
		return "", nil, apierr.Wrap(apierr.Internal, "filter", string(ft), err)
	}
	return meta.HTTPFilterName, any, nil
}

// ToPerRouteAny builds the TypedPerFilterConfig override for ft at a more
// specific scope. Only meaningful when PerRouteBehavior == full_config;
// reference_only types are built by ToPerRouteReferenceAny instead (the
// defaulted provider name it needs isn't derivable from spec alone), and
// disable_only/not_supported types return (nil, nil) since they either
// carry no per-route payload or aren't overridable at all (internal/inject
// enforces the behavior distinction).
func (c *Converter) ToPerRouteAny(ft model.FilterType, spec map[string]any) (*anypb.Any, error) {
	meta, ok := ft.Metadata()
	if !ok {
		_, any, err := c.toDynamicAny(ft, spec)
		return any, err
	}
	if meta.PerRouteBehavior != model.PerRouteFullConfig {
		return nil, nil
	}
	build, ok := staticBuilders[ft]
	if !ok {
		return nil, apierr.Validationf("filter", "filter_type", "no static converter registered for %q", ft)
	}
	msg, err := build(spec)
	if err != nil {
		return nil, err
	}
	any, err := anypb.New(msg)
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, "filter", string(ft), err)
	}
	return any, nil
}

// referenceSpec is the shape ToPerRouteReferenceAny decodes looking for an
// explicit override ({"requirement_name": "..."}); absence (the zero
// value) falls back to defaultName.
type referenceSpec struct {
	RequirementName string `json:"requirement_name"`
}

// ToPerRouteReferenceAny builds the {requirement_name: <provider-name>}
// per-route config spec.md 4.3 mandates for reference_only filter types
// (JWT is the only built-in one), mirroring original_source's
// JwtPerRouteConfig::RequirementName. spec is decoded for an explicit
// "requirement_name" override (the settings.Behavior == override case);
// when it carries none, defaultName is used instead — the filter's own
// name, so a route falling back to a reference_only filter's base spec
// (settings.Behavior == use_base, or no attachment settings at all) still
// references that specific filter rather than a shared generic name.
func (c *Converter) ToPerRouteReferenceAny(ft model.FilterType, spec map[string]any, defaultName string) (*anypb.Any, error) {
	var rs referenceSpec
	if err := decode(spec, &rs); err != nil {
		return nil, err
	}
	name := rs.RequirementName
	if name == "" {
		name = defaultName
	}
	switch ft {
	case model.FilterJwtAuth:
		msg := &jwtauthnv3.PerRouteConfig{
			RequirementSpecifier: &jwtauthnv3.PerRouteConfig_RequirementName{RequirementName: name},
		}
		any, err := anypb.New(msg)
		if err != nil {
			return nil, apierr.Wrap(apierr.Internal, "filter", string(ft), err)
		}
		return any, nil
	default:
		return nil, apierr.Validationf("filter", "filter_type", "filter type %q has no reference-only per-route shape", ft)
	}
}

// ToPerRouteDisabledAny builds the "disabled at this scope" per-route Any
// for the small set of filter types that have a well-known disabled wire
// shape (mirrors original_source's generate_disable_scoped_config). Only
// called for model.FilterJwtAuth, FilterCompressor, FilterRBAC and
// FilterMCP — internal/inject is the sole caller and only reaches it for
// those types.
func (c *Converter) ToPerRouteDisabledAny(ft model.FilterType) (*anypb.Any, error) {
	var msg proto.Message
	switch ft {
	case model.FilterJwtAuth:
		msg = &jwtauthnv3.PerRouteConfig{RequirementSpecifier: &jwtauthnv3.PerRouteConfig_Disabled{Disabled: true}}
	case model.FilterCompressor:
		msg = &compressorv3.CompressorPerRoute{Override: &compressorv3.CompressorPerRoute_Disabled{Disabled: true}}
	case model.FilterRBAC:
		// Absent Rbac means the filter performs no enforcement on this route.
		msg = &rbacperroutev3.RBACPerRoute{Rbac: nil}
	case model.FilterMCP:
		_, any, err := c.toDynamicAny(ft, map[string]any{"disabled": true})
		return any, err
	default:
		return nil, apierr.Validationf("filter", "filter_type", "filter type %q has no disabled per-route shape", ft)
	}
	any, err := anypb.New(msg)
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, "filter", string(ft), err)
	}
	return any, nil
}

// CreateEmptyListenerFilter builds a disabled placeholder HttpFilter for
// a type that is only ever configured per-route (RequiresListenerConfig
// == false but the filter must still appear, disabled, in the HCM's
// http_filters list for TypedPerFilterConfig overrides to take effect —
// the same "base filter present but inert" rule Envoy applies to every
// per-route filter). Types whose metadata sets RequiresListenerConfig get
// no placeholder: it returns nil, nil for them.
func (c *Converter) CreateEmptyListenerFilter(ft model.FilterType) (*hcmv3.HttpFilter, error) {
	if meta, ok := ft.Metadata(); ok && meta.RequiresListenerConfig {
		return nil, nil
	}
	name, any, err := c.ToListenerAny(ft, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("filters: building empty placeholder for %q: %w", ft, err)
	}
	return &hcmv3.HttpFilter{
		Name:       name,
		ConfigType: &hcmv3.HttpFilter_TypedConfig{TypedConfig: any},
		Disabled:   true,
	}, nil
}

// decode re-marshals spec (already decoded into map[string]any by the
// store layer) into dst via JSON, so each static builder can declare an
// ordinary tagged Go struct instead of doing manual map[string]any
// digging.
func decode(spec map[string]any, dst any) error {
	raw, err := json.Marshal(spec)
	if err != nil {
		return apierr.Validationf("filter", "spec", "spec is not valid JSON: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apierr.Validationf("filter", "spec", "spec does not match expected shape: %v", err)
	}
	return nil
}
