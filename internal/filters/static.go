package filters

import (
	"time"

	mutationrulesv3 "github.com/envoyproxy/go-control-plane/envoy/config/common/mutation_rules/v3"
	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	rbacconfigv3 "github.com/envoyproxy/go-control-plane/envoy/config/rbac/v3"
	routev3 "github.com/envoyproxy/go-control-plane/envoy/config/route/v3"
	compressorv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/compressor/v3"
	customresponsev3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/custom_response/v3"
	extauthzv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/ext_authz/v3"
	extprocv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/ext_proc/v3"
	headermutationv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/header_mutation/v3"
	healthcheckv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/health_check/v3"
	localratelimitv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/local_ratelimit/v3"
	ratelimitv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/ratelimit/v3"
	gzipv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/compression/gzip/compressor/v3"
	policymatcherv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/rbac/v3"
	jwtauthnv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/jwt_authn/v3"
	matcherv3 "github.com/envoyproxy/go-control-plane/envoy/type/matcher/v3"
	typev3 "github.com/envoyproxy/go-control-plane/envoy/type/v3"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/flowmesh/controlplane/internal/apierr"
)

// headerMutationSpec is the JSON shape a Filter's Spec must match for
// model.FilterHeaderMutation. RequestAdd/ResponseAdd entries are applied
// in order; Remove entries name headers to strip.
type headerMutationSpec struct {
	RequestHeadersToAdd    []headerKV `json:"request_headers_to_add"`
	RequestHeadersToRemove []string   `json:"request_headers_to_remove"`
	ResponseHeadersToAdd   []headerKV `json:"response_headers_to_add"`
	ResponseHeadersToRemove []string  `json:"response_headers_to_remove"`
}

type headerKV struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Override bool   `json:"override"`
}

func appendActions(kvs []headerKV) []*mutationrulesv3.HeaderMutation {
	out := make([]*mutationrulesv3.HeaderMutation, 0, len(kvs))
	for _, kv := range kvs {
		action := corev3.HeaderValueOption_APPEND_IF_EXISTS_OR_ADD
		if kv.Override {
			action = corev3.HeaderValueOption_OVERWRITE_IF_EXISTS_OR_ADD
		}
		out = append(out, &mutationrulesv3.HeaderMutation{
			Action: &mutationrulesv3.HeaderMutation_Append{
				Append: &corev3.HeaderValueOption{
					Header:       &corev3.HeaderValue{Key: kv.Key, Value: kv.Value},
					AppendAction: action,
				},
			},
		})
	}
	return out
}

func removeActions(keys []string) []*mutationrulesv3.HeaderMutation {
	out := make([]*mutationrulesv3.HeaderMutation, 0, len(keys))
	for _, k := range keys {
		out = append(out, &mutationrulesv3.HeaderMutation{Action: &mutationrulesv3.HeaderMutation_Remove{Remove: k}})
	}
	return out
}

func buildHeaderMutation(spec map[string]any) (proto.Message, error) {
	var s headerMutationSpec
	if err := decode(spec, &s); err != nil {
		return nil, err
	}
	var reqMutations, respMutations []*mutationrulesv3.HeaderMutation
	reqMutations = append(reqMutations, appendActions(s.RequestHeadersToAdd)...)
	reqMutations = append(reqMutations, removeActions(s.RequestHeadersToRemove)...)
	respMutations = append(respMutations, appendActions(s.ResponseHeadersToAdd)...)
	respMutations = append(respMutations, removeActions(s.ResponseHeadersToRemove)...)
	return &headermutationv3.HeaderMutation{
		Mutations: &headermutationv3.Mutations{
			RequestMutations:  reqMutations,
			ResponseMutations: respMutations,
		},
	}, nil
}

// jwtAuthSpec configures model.FilterJwtAuth with a single provider
// validated against a remote JWKS endpoint — the common case for the
// gateways this system fronts, which trust one identity provider per
// route config.
type jwtAuthSpec struct {
	Issuer     string   `json:"issuer"`
	Audiences  []string `json:"audiences"`
	JwksURI    string   `json:"jwks_uri"`
	JwksCluster string  `json:"jwks_cluster"`
	Forward    bool     `json:"forward"`
}

const jwtProviderName = "default"

func buildJwtAuthn(spec map[string]any) (proto.Message, error) {
	var s jwtAuthSpec
	if err := decode(spec, &s); err != nil {
		return nil, err
	}
	if s.Issuer == "" || s.JwksURI == "" || s.JwksCluster == "" {
		return nil, apierr.Validationf("filter", "issuer", "jwt auth filter requires issuer, jwks_uri and jwks_cluster")
	}
	provider := &jwtauthnv3.JwtProvider{
		Issuer:    s.Issuer,
		Audiences: s.Audiences,
		Forward:   s.Forward,
		JwksSourceSpecifier: &jwtauthnv3.JwtProvider_RemoteJwks{
			RemoteJwks: &jwtauthnv3.RemoteJwks{
				HttpUri: &corev3.HttpUri{
					Uri: s.JwksURI,
					HttpUpstreamType: &corev3.HttpUri_Cluster{Cluster: s.JwksCluster},
					Timeout: durationpb.New(5 * time.Second),
				},
				CacheDuration: durationpb.New(5 * time.Minute),
			},
		},
	}
	return &jwtauthnv3.JwtAuthentication{
		Providers: map[string]*jwtauthnv3.JwtProvider{jwtProviderName: provider},
		Rules: []*jwtauthnv3.RequirementRule{{
			Match: &routev3.RouteMatch{PathSpecifier: &routev3.RouteMatch_Prefix{Prefix: "/"}},
			RequirementType: &jwtauthnv3.RequirementRule_Requires{
				Requires: &jwtauthnv3.JwtRequirement{
					RequiresType: &jwtauthnv3.JwtRequirement_ProviderName{ProviderName: jwtProviderName},
				},
			},
		}},
	}, nil
}

// localRateLimitSpec configures model.FilterLocalRateLimit: a token
// bucket enforced entirely within the Envoy worker, no external RLS.
type localRateLimitSpec struct {
	StatPrefix        string `json:"stat_prefix"`
	MaxTokens         uint32 `json:"max_tokens"`
	TokensPerFill     uint32 `json:"tokens_per_fill"`
	FillIntervalMs    uint32 `json:"fill_interval_ms"`
}

func buildLocalRateLimit(spec map[string]any) (proto.Message, error) {
	var s localRateLimitSpec
	if err := decode(spec, &s); err != nil {
		return nil, err
	}
	if s.MaxTokens == 0 {
		return nil, apierr.Validationf("filter", "max_tokens", "local rate limit requires max_tokens > 0")
	}
	if s.FillIntervalMs == 0 {
		s.FillIntervalMs = 1000
	}
	prefix := s.StatPrefix
	if prefix == "" {
		prefix = "local_rate_limiter"
	}
	return &localratelimitv3.LocalRateLimit{
		StatPrefix: prefix,
		TokenBucket: &typev3.TokenBucket{
			MaxTokens:     s.MaxTokens,
			TokensPerFill: wrapperspb.UInt32(orDefault(s.TokensPerFill, s.MaxTokens)),
			FillInterval:  durationpb.New(time.Duration(s.FillIntervalMs) * time.Millisecond),
		},
		FilterEnabled: &corev3.RuntimeFractionalPercent{
			DefaultValue: &typev3.FractionalPercent{Numerator: 100, Denominator: typev3.FractionalPercent_HUNDRED},
		},
		FilterEnforced: &corev3.RuntimeFractionalPercent{
			DefaultValue: &typev3.FractionalPercent{Numerator: 100, Denominator: typev3.FractionalPercent_HUNDRED},
		},
	}, nil
}

func orDefault(v, def uint32) uint32 {
	if v == 0 {
		return def
	}
	return v
}

// rateLimitSpec configures model.FilterRateLimit, the global-RLS-backed
// variant: the filter only carries the domain/cluster to call, the rate
// decision itself lives in the external rate limit service.
type rateLimitSpec struct {
	Domain      string `json:"domain"`
	ClusterName string `json:"cluster_name"`
	TimeoutMs   uint32 `json:"timeout_ms"`
}

func buildRateLimit(spec map[string]any) (proto.Message, error) {
	var s rateLimitSpec
	if err := decode(spec, &s); err != nil {
		return nil, err
	}
	if s.Domain == "" || s.ClusterName == "" {
		return nil, apierr.Validationf("filter", "domain", "rate limit filter requires domain and cluster_name")
	}
	timeout := uint32(20)
	if s.TimeoutMs > 0 {
		timeout = s.TimeoutMs
	}
	return &ratelimitv3.RateLimit{
		Domain:          s.Domain,
		Timeout:         durationpb.New(time.Duration(timeout) * time.Millisecond),
		FailureModeDeny: false,
		RateLimitService: &ratelimitv3.RateLimitServiceConfig{
			GrpcService: &corev3.GrpcService{
				TargetSpecifier: &corev3.GrpcService_EnvoyGrpc_{
					EnvoyGrpc: &corev3.GrpcService_EnvoyGrpc{ClusterName: s.ClusterName},
				},
			},
			TransportApiVersion: corev3.ApiVersion_V3,
		},
	}, nil
}

// customResponseSpec configures model.FilterCustomResponse: a single
// static local response used for every matched status code, the
// common case this system's learning pipeline needs (replacing upstream
// error bodies with a schema-conformant shape).
type customResponseSpec struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
	ContentType string `json:"content_type"`
}

func buildCustomResponse(spec map[string]any) (proto.Message, error) {
	var s customResponseSpec
	if err := decode(spec, &s); err != nil {
		return nil, err
	}
	if s.StatusCode == 0 {
		return nil, apierr.Validationf("filter", "status_code", "custom response filter requires status_code")
	}
	contentType := s.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	return &customresponsev3.CustomResponse{
		CustomResponseMatcher: &customresponsev3.CustomResponseMatcher{
			Matchers: []*customresponsev3.CustomResponseMatcher_Matcher{{
				StatusCode: uint32(s.StatusCode),
				Policy: &customresponsev3.CustomResponseMatcher_Matcher_LocalResponsePolicy{
					LocalResponsePolicy: &customresponsev3.LocalResponsePolicy{
						Body: &corev3.DataSource{
							Specifier: &corev3.DataSource_InlineString{InlineString: s.Body},
						},
						ResponseHeadersToAdd: []*corev3.HeaderValueOption{{
							Header: &corev3.HeaderValue{Key: "content-type", Value: contentType},
						}},
					},
				},
			}},
		},
	}, nil
}

// CORS carries no listener-level config in Envoy (policy lives on the
// route/virtual host); the filter only needs to be present, so the base
// config is an empty message. PerRouteBehavior is DisableOnly for this
// reason — there is no "full config" to override per route.
func buildCorsPolicy(_ map[string]any) (proto.Message, error) {
	return &emptypb.Empty{}, nil
}

// compressorSpec configures model.FilterCompressor using the gzip
// compression library, the default Envoy ships.
type compressorSpec struct {
	MinContentLength uint32 `json:"min_content_length"`
}

func buildCompressor(spec map[string]any) (proto.Message, error) {
	var s compressorSpec
	if err := decode(spec, &s); err != nil {
		return nil, err
	}
	gzipAny, err := anypb.New(&gzipv3.Gzip{})
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, "filter", "compressor", err)
	}
	return &compressorv3.Compressor{
		CompressorLibrary: &corev3.TypedExtensionConfig{
			Name:        "text_optimized",
			TypedConfig: gzipAny,
		},
		RequestDirectionConfig: &compressorv3.Compressor_RequestDirectionConfig{
			CommonConfig: &compressorv3.Compressor_CommonDirectionConfig{Enabled: &corev3.RuntimeFeatureFlag{DefaultValue: wrapperspb.Bool(true)}},
		},
		ResponseDirectionConfig: &compressorv3.Compressor_ResponseDirectionConfig{
			CommonConfig: &compressorv3.Compressor_CommonDirectionConfig{Enabled: &corev3.RuntimeFeatureFlag{DefaultValue: wrapperspb.Bool(true)}},
		},
	}, nil
}

// rbacSpec is deliberately small: a single allow-list of path prefixes,
// the shape the access-log learning pipeline and the operator tooling
// both produce (per-endpoint allow policies, not general CEL expressions).
type rbacSpec struct {
	Action          string   `json:"action"` // "allow" or "deny"
	AllowedPrefixes []string `json:"allowed_prefixes"`
}

func buildRBAC(spec map[string]any) (proto.Message, error) {
	var s rbacSpec
	if err := decode(spec, &s); err != nil {
		return nil, err
	}
	action := rbacconfigv3.RBAC_ALLOW
	if s.Action == "deny" {
		action = rbacconfigv3.RBAC_DENY
	}
	permissions := make([]*rbacconfigv3.Permission, 0, len(s.AllowedPrefixes))
	for _, prefix := range s.AllowedPrefixes {
		permissions = append(permissions, &rbacconfigv3.Permission{
			Rule: &rbacconfigv3.Permission_Header{
				Header: &routev3.HeaderMatcher{
					Name: ":path",
					HeaderMatchSpecifier: &routev3.HeaderMatcher_StringMatch{
						StringMatch: &matcherv3.StringMatcher{
							MatchPattern: &matcherv3.StringMatcher_Prefix{Prefix: prefix},
						},
					},
				},
			},
		})
	}
	return &policymatcherv3.RBAC{
		Rules: &rbacconfigv3.RBAC{
			Action: action,
			Policies: map[string]*rbacconfigv3.Policy{
				"default": {
					Permissions: permissions,
					Principals:  []*rbacconfigv3.Principal{{Identifier: &rbacconfigv3.Principal_Any{Any: true}}},
				},
			},
		},
	}, nil
}

// extAuthzSpec configures model.FilterExtAuthz against a gRPC
// authorization cluster (the common case; HTTP-service ext_authz is not
// modeled since nothing in this system needs it).
type extAuthzSpec struct {
	ClusterName      string `json:"cluster_name"`
	TimeoutMs        uint32 `json:"timeout_ms"`
	FailureModeAllow bool   `json:"failure_mode_allow"`
}

func buildExtAuthz(spec map[string]any) (proto.Message, error) {
	var s extAuthzSpec
	if err := decode(spec, &s); err != nil {
		return nil, err
	}
	if s.ClusterName == "" {
		return nil, apierr.Validationf("filter", "cluster_name", "ext_authz filter requires cluster_name")
	}
	timeout := uint32(200)
	if s.TimeoutMs > 0 {
		timeout = s.TimeoutMs
	}
	return &extauthzv3.ExtAuthz{
		Services: &extauthzv3.ExtAuthz_GrpcService{
			GrpcService: &corev3.GrpcService{
				TargetSpecifier: &corev3.GrpcService_EnvoyGrpc_{
					EnvoyGrpc: &corev3.GrpcService_EnvoyGrpc{ClusterName: s.ClusterName},
				},
				Timeout: durationpb.New(time.Duration(timeout) * time.Millisecond),
			},
		},
		FailureModeAllow: s.FailureModeAllow,
	}, nil
}

// extProcSpec configures model.FilterExtProc for body-capture sidechannel
// use (C7): BUFFERED mode so the processor sees the whole body, fail-open
// on timeout so a slow/unavailable processor never blocks traffic.
type extProcSpec struct {
	ClusterName   string `json:"cluster_name"`
	TimeoutMs     uint32 `json:"timeout_ms"`
	CaptureBody   bool   `json:"capture_body"`
}

func buildExtProc(spec map[string]any) (proto.Message, error) {
	var s extProcSpec
	if err := decode(spec, &s); err != nil {
		return nil, err
	}
	if s.ClusterName == "" {
		return nil, apierr.Validationf("filter", "cluster_name", "ext_proc filter requires cluster_name")
	}
	timeout := uint32(50)
	if s.TimeoutMs > 0 {
		timeout = s.TimeoutMs
	}
	bodyMode := extprocv3.ProcessingMode_NONE
	if s.CaptureBody {
		bodyMode = extprocv3.ProcessingMode_BUFFERED
	}
	return &extprocv3.ExternalProcessor{
		GrpcService: &corev3.GrpcService{
			TargetSpecifier: &corev3.GrpcService_EnvoyGrpc_{
				EnvoyGrpc: &corev3.GrpcService_EnvoyGrpc{ClusterName: s.ClusterName},
			},
		},
		ProcessingMode: &extprocv3.ProcessingMode{
			RequestBodyMode:  bodyMode,
			ResponseBodyMode: bodyMode,
		},
		MessageTimeout:   durationpb.New(time.Duration(timeout) * time.Millisecond),
		FailureModeAllow: true,
	}, nil
}

// healthCheckSpec configures model.FilterHealthCheck, the HTTP filter
// that answers a dedicated health-check path without hitting the
// upstream cluster.
type healthCheckSpec struct {
	Path          string `json:"path"`
	CacheTimeMs   uint32 `json:"cache_time_ms"`
}

func buildHealthCheck(spec map[string]any) (proto.Message, error) {
	var s healthCheckSpec
	if err := decode(spec, &s); err != nil {
		return nil, err
	}
	if s.Path == "" {
		s.Path = "/healthz"
	}
	hc := &healthcheckv3.HealthCheck{
		PassThroughMode: wrapperspb.Bool(false),
		Headers: []*routev3.HeaderMatcher{{
			Name: ":path",
			HeaderMatchSpecifier: &routev3.HeaderMatcher_StringMatch{
				StringMatch: &matcherv3.StringMatcher{MatchPattern: &matcherv3.StringMatcher_Exact{Exact: s.Path}},
			},
		}},
	}
	if s.CacheTimeMs > 0 {
		hc.CacheTime = durationpb.New(time.Duration(s.CacheTimeMs) * time.Millisecond)
	}
	return hc, nil
}
