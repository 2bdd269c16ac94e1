package filters

import (
	"testing"

	jwtauthnv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/jwt_authn/v3"
	localratelimitv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/local_ratelimit/v3"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/flowmesh/controlplane/internal/model"
)

func TestConverter_ToListenerAny_LocalRateLimit(t *testing.T) {
	c := NewConverter(NewSchemaRegistry())
	name, any, err := c.ToListenerAny(model.FilterLocalRateLimit, map[string]any{
		"stat_prefix": "ingress",
		"max_tokens":  100,
	})
	require.NoError(t, err)
	require.Equal(t, "envoy.filters.http.local_ratelimit", name)

	var msg localratelimitv3.LocalRateLimit
	require.NoError(t, any.UnmarshalTo(&msg))
	require.Equal(t, "ingress", msg.StatPrefix)
	require.EqualValues(t, 100, msg.TokenBucket.MaxTokens)
}

func TestConverter_ToListenerAny_LocalRateLimitRequiresMaxTokens(t *testing.T) {
	c := NewConverter(NewSchemaRegistry())
	_, _, err := c.ToListenerAny(model.FilterLocalRateLimit, map[string]any{"stat_prefix": "ingress"})
	require.Error(t, err)
}

func TestConverter_ToListenerAny_JwtAuth(t *testing.T) {
	c := NewConverter(NewSchemaRegistry())
	name, any, err := c.ToListenerAny(model.FilterJwtAuth, map[string]any{
		"issuer":       "https://issuer.example.com",
		"jwks_uri":     "https://issuer.example.com/jwks.json",
		"jwks_cluster": "jwks_upstream",
	})
	require.NoError(t, err)
	require.Equal(t, "envoy.filters.http.jwt_authn", name)

	var msg jwtauthnv3.JwtAuthentication
	require.NoError(t, any.UnmarshalTo(&msg))
	require.Contains(t, msg.Providers, "default")
	require.Equal(t, "https://issuer.example.com", msg.Providers["default"].Issuer)
}

func TestConverter_ToListenerAny_UnknownStaticTypeDispatchesDynamic(t *testing.T) {
	registry := NewSchemaRegistry()
	c := NewConverter(registry)
	name, any, err := c.ToListenerAny(model.FilterType("CustomWAF"), map[string]any{"block_mode": true})
	require.NoError(t, err)
	require.Contains(t, name, "CustomWAF")
	require.NotNil(t, any)
}

func TestConverter_ToListenerAny_WASMNotSupported(t *testing.T) {
	c := NewConverter(NewSchemaRegistry())
	_, _, err := c.ToListenerAny(model.FilterWASM, map[string]any{})
	require.Error(t, err, "a declared-but-unconvertible filter type must fail rather than silently produce an empty config")
}

func TestConverter_ToPerRouteAny_FullConfigTypeConverts(t *testing.T) {
	c := NewConverter(NewSchemaRegistry())
	any, err := c.ToPerRouteAny(model.FilterLocalRateLimit, map[string]any{"max_tokens": 10})
	require.NoError(t, err)
	require.NotNil(t, any)
}

func TestConverter_ToPerRouteAny_ReferenceOnlyTypeYieldsNil(t *testing.T) {
	c := NewConverter(NewSchemaRegistry())
	any, err := c.ToPerRouteAny(model.FilterJwtAuth, map[string]any{
		"issuer": "x", "jwks_uri": "y", "jwks_cluster": "z",
	})
	require.NoError(t, err)
	require.Nil(t, any, "jwt auth is reference_only so it has no per-route full-config payload")
}

func TestConverter_ToPerRouteReferenceAny_UsesDefaultNameWhenSpecHasNone(t *testing.T) {
	c := NewConverter(NewSchemaRegistry())
	any, err := c.ToPerRouteReferenceAny(model.FilterJwtAuth, map[string]any{
		"issuer": "x", "jwks_uri": "y", "jwks_cluster": "z",
	}, "provA")
	require.NoError(t, err)

	var msg jwtauthnv3.PerRouteConfig
	require.NoError(t, any.UnmarshalTo(&msg))
	ref, ok := msg.RequirementSpecifier.(*jwtauthnv3.PerRouteConfig_RequirementName)
	require.True(t, ok)
	require.Equal(t, "provA", ref.RequirementName)
}

func TestConverter_ToPerRouteReferenceAny_ExplicitOverrideWins(t *testing.T) {
	c := NewConverter(NewSchemaRegistry())
	any, err := c.ToPerRouteReferenceAny(model.FilterJwtAuth, map[string]any{"requirement_name": "provB"}, "provA")
	require.NoError(t, err)

	var msg jwtauthnv3.PerRouteConfig
	require.NoError(t, any.UnmarshalTo(&msg))
	ref, ok := msg.RequirementSpecifier.(*jwtauthnv3.PerRouteConfig_RequirementName)
	require.True(t, ok)
	require.Equal(t, "provB", ref.RequirementName)
}

func TestConverter_ToPerRouteReferenceAny_UnsupportedTypeErrors(t *testing.T) {
	c := NewConverter(NewSchemaRegistry())
	_, err := c.ToPerRouteReferenceAny(model.FilterLocalRateLimit, map[string]any{}, "x")
	require.Error(t, err)
}

func TestConverter_ToPerRouteDisabledAny_JwtAuth(t *testing.T) {
	c := NewConverter(NewSchemaRegistry())
	any, err := c.ToPerRouteDisabledAny(model.FilterJwtAuth)
	require.NoError(t, err)

	var msg jwtauthnv3.PerRouteConfig
	require.NoError(t, any.UnmarshalTo(&msg))
	disabled, ok := msg.RequirementSpecifier.(*jwtauthnv3.PerRouteConfig_Disabled)
	require.True(t, ok)
	require.True(t, disabled.Disabled)
}

func TestConverter_ToPerRouteDisabledAny_UnsupportedTypeErrors(t *testing.T) {
	c := NewConverter(NewSchemaRegistry())
	_, err := c.ToPerRouteDisabledAny(model.FilterLocalRateLimit)
	require.Error(t, err)
}

func TestConverter_CreateEmptyListenerFilter(t *testing.T) {
	c := NewConverter(NewSchemaRegistry())
	hf, err := c.CreateEmptyListenerFilter(model.FilterCORS)
	require.NoError(t, err)
	require.True(t, hf.Disabled)
	require.Equal(t, "envoy.filters.http.cors", hf.Name)
	require.NotNil(t, hf.GetTypedConfig())

	hf, err = c.CreateEmptyListenerFilter(model.FilterExtAuthz)
	require.NoError(t, err)
	require.Nil(t, hf, "a type that requires a listener config gets no empty placeholder")
}

func TestConverter_ToListenerAny_ProducesDeterministicBytes(t *testing.T) {
	c := NewConverter(NewSchemaRegistry())
	spec := map[string]any{"stat_prefix": "ingress", "max_tokens": 100}

	_, any1, err := c.ToListenerAny(model.FilterLocalRateLimit, spec)
	require.NoError(t, err)
	_, any2, err := c.ToListenerAny(model.FilterLocalRateLimit, spec)
	require.NoError(t, err)

	require.True(t, proto.Equal(any1, any2), "converting the same spec twice must yield an identical Any for ACK idempotency")
}
