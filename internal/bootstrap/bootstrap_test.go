package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/store"
	"github.com/flowmesh/controlplane/internal/store/memory"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidateBootstrapToken_Empty(t *testing.T) {
	require.Error(t, ValidateBootstrapToken(""))
}

func TestValidateBootstrapToken_TooShort(t *testing.T) {
	require.Error(t, ValidateBootstrapToken("short-secret"))
}

func TestValidateBootstrapToken_KnownPlaceholder(t *testing.T) {
	err := ValidateBootstrapToken("changeme" + "00000000000000000000000000")
	require.NoError(t, err, "only the exact placeholder strings are rejected, not values merely containing them")
	require.Error(t, ValidateBootstrapToken("replace-with-a-real-secret-value"))
}

func TestValidateBootstrapToken_ValidSecret(t *testing.T) {
	require.NoError(t, ValidateBootstrapToken("a-sufficiently-long-real-secret-value-1234"))
}

const testToken = "a-sufficiently-long-real-secret-value-1234"

func TestRun_SeedsDefaultsOnEmptyStore(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	require.NoError(t, Run(ctx, st, testToken, discardLog()))

	clusters, err := st.Clusters().List(ctx, store.AllTeams())
	require.NoError(t, err)
	require.Len(t, clusters, 2, "default gateway cluster + access log sink cluster")

	routeConfigs, err := st.RouteConfigs().List(ctx, store.AllTeams())
	require.NoError(t, err)
	require.Len(t, routeConfigs, 1)

	listeners, err := st.Listeners().List(ctx, store.AllTeams())
	require.NoError(t, err)
	require.Len(t, listeners, 1)
	require.True(t, listeners[0].IsSystem())
}

func TestRun_IssuesAdminTokenFindableByHash(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, Run(ctx, st, testToken, discardLog()))

	hash, err := authz.HashToken(testToken)
	require.NoError(t, err)
	tok, err := st.Tokens().GetByHash(ctx, hash)
	require.NoError(t, err)
	require.Contains(t, tok.Scopes, authz.ScopeAdminAll)
}

func TestRun_IdempotentAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, Run(ctx, st, testToken, discardLog()))
	require.NoError(t, Run(ctx, st, testToken, discardLog()), "re-running bootstrap with the same secret on an already-seeded store must not error")

	clusters, err := st.Clusters().List(ctx, store.AllTeams())
	require.NoError(t, err)
	require.Len(t, clusters, 2, "default gateway must not be seeded a second time")
}

func TestRun_SkipsSeedingWhenClustersAlreadyExist(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	// The first run seeds the defaults, so clusters already exist when
	// the second run checks.
	require.NoError(t, Run(ctx, st, testToken, discardLog()))
	clustersBefore, err := st.Clusters().List(ctx, store.AllTeams())
	require.NoError(t, err)

	require.NoError(t, Run(ctx, st, testToken, discardLog()))
	clustersAfter, err := st.Clusters().List(ctx, store.AllTeams())
	require.NoError(t, err)
	require.Equal(t, len(clustersBefore), len(clustersAfter))
}

func TestRun_RejectsInvalidToken(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	err := Run(ctx, st, "too-short", discardLog())
	require.Error(t, err)

	clusters, err2 := st.Clusters().List(ctx, store.AllTeams())
	require.NoError(t, err2)
	require.Empty(t, clusters, "a rejected bootstrap token must not seed any resources")
}
