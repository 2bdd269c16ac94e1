package model

// FilterType enumerates the supported HTTP filter kinds. Each has fixed
// metadata (PerRouteBehavior, RequiresListenerConfig) looked up via
// Metadata() — the Go analogue of the Rust original's filter_registry().
type FilterType string

const (
	FilterHeaderMutation  FilterType = "HeaderMutation"
	FilterJwtAuth         FilterType = "JwtAuth"
	FilterLocalRateLimit  FilterType = "LocalRateLimit"
	FilterRateLimit       FilterType = "RateLimit"
	FilterCustomResponse  FilterType = "CustomResponse"
	FilterCORS            FilterType = "CORS"
	FilterCompressor      FilterType = "Compressor"
	FilterRBAC            FilterType = "RBAC"
	FilterOAuth2          FilterType = "OAuth2"
	FilterExtAuthz        FilterType = "ExtAuthz"
	FilterExtProc         FilterType = "ExtProc"
	FilterHealthCheck     FilterType = "HealthCheck"
	FilterMCP             FilterType = "MCP"
	FilterWASM            FilterType = "WASM"
)

// PerRouteBehavior controls how a filter type may be overridden at a more
// specific scope (RouteConfig/VirtualHost/Route).
type PerRouteBehavior string

const (
	PerRouteFullConfig     PerRouteBehavior = "full_config"
	PerRouteReferenceOnly  PerRouteBehavior = "reference_only"
	PerRouteDisableOnly    PerRouteBehavior = "disable_only"
	PerRouteNotSupported   PerRouteBehavior = "not_supported"
)

// FilterTypeMeta is the fixed, built-in metadata for a FilterType.
type FilterTypeMeta struct {
	Type                   FilterType
	HTTPFilterName         string // the Envoy http_filter "name" field, e.g. "envoy.filters.http.jwt_authn"
	PerRouteBehavior       PerRouteBehavior
	RequiresListenerConfig bool // cannot exist as an empty listener-level placeholder
}

// filterRegistry is the built-in, static metadata table. Dynamically
// registered (schema-driven) filter types are looked up through
// filters.SchemaRegistry instead; this table only covers FilterType
// values known to the Go code at compile time.
var filterRegistry = map[FilterType]FilterTypeMeta{
	FilterHeaderMutation: {FilterHeaderMutation, "envoy.filters.http.header_mutation", PerRouteFullConfig, false},
	FilterJwtAuth:        {FilterJwtAuth, "envoy.filters.http.jwt_authn", PerRouteReferenceOnly, true},
	FilterLocalRateLimit: {FilterLocalRateLimit, "envoy.filters.http.local_ratelimit", PerRouteFullConfig, false},
	FilterRateLimit:      {FilterRateLimit, "envoy.filters.http.ratelimit", PerRouteDisableOnly, false},
	FilterCustomResponse: {FilterCustomResponse, "envoy.filters.http.custom_response", PerRouteFullConfig, false},
	FilterCORS:           {FilterCORS, "envoy.filters.http.cors", PerRouteDisableOnly, false},
	FilterCompressor:     {FilterCompressor, "envoy.filters.http.compressor", PerRouteDisableOnly, false},
	FilterRBAC:           {FilterRBAC, "envoy.filters.http.rbac", PerRouteFullConfig, false},
	FilterOAuth2:         {FilterOAuth2, "envoy.filters.http.oauth2", PerRouteNotSupported, true},
	FilterExtAuthz:       {FilterExtAuthz, "envoy.filters.http.ext_authz", PerRouteFullConfig, true},
	FilterExtProc:        {FilterExtProc, "envoy.filters.http.ext_proc", PerRouteFullConfig, true},
	FilterHealthCheck:    {FilterHealthCheck, "envoy.filters.http.health_check", PerRouteDisableOnly, false},
	FilterMCP:            {FilterMCP, "envoy.filters.http.mcp", PerRouteDisableOnly, true},
	FilterWASM:           {FilterWASM, "envoy.filters.http.wasm", PerRouteNotSupported, true},
}

// Metadata returns the built-in metadata for ft, and ok=false if ft is
// not a statically known type (it may still be registered dynamically).
func (ft FilterType) Metadata() (FilterTypeMeta, bool) {
	m, ok := filterRegistry[ft]
	return m, ok
}

// AllFilterTypes returns every statically known filter type, sorted by
// name, for deterministic iteration (e.g. API listing, test fixtures).
func AllFilterTypes() []FilterType {
	return []FilterType{
		FilterCompressor, FilterCORS, FilterCustomResponse, FilterExtAuthz,
		FilterExtProc, FilterHeaderMutation, FilterHealthCheck, FilterJwtAuth,
		FilterLocalRateLimit, FilterMCP, FilterOAuth2, FilterRBAC,
		FilterRateLimit, FilterWASM,
	}
}
