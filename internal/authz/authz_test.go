package authz

import (
	"testing"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/stretchr/testify/require"
)

func ctxWithScopes(scopes ...string) Context {
	return NewContext(model.NewTokenID(), nil, nil, scopes)
}

func TestCheck_SuperuserBypassesEverything(t *testing.T) {
	ac := ctxWithScopes(ScopeAdminAll)
	require.NoError(t, Check(ac, Required("platform", ResClusters, ActionWrite)))
	require.NoError(t, Check(ac, RequiredOrgAdmin("acme")))
}

func TestCheck_ExactScopeGranted(t *testing.T) {
	ac := ctxWithScopes(Required("platform", ResClusters, ActionRead))
	require.NoError(t, Check(ac, Required("platform", ResClusters, ActionRead)))
}

func TestCheck_TeamScopeDoesNotCoverOtherTeam(t *testing.T) {
	ac := ctxWithScopes(Required("platform", ResClusters, ActionWrite))
	err := Check(ac, Required("other-team", ResClusters, ActionWrite))
	require.Error(t, err)
	require.Equal(t, apierr.Forbidden, apierr.KindOf(err))
}

func TestCheck_OrgAdminCoversOrgMember(t *testing.T) {
	ac := ctxWithScopes(RequiredOrgAdmin("acme"))
	// org-admin is not itself a "team:..." scope, so the covering rule
	// only applies through the org hierarchy check, not team-level covers.
	err := Check(ac, RequiredOrgMember("acme"))
	require.NoError(t, err)
}

func TestCheck_OrgAdminDoesNotCoverDifferentOrg(t *testing.T) {
	ac := ctxWithScopes(RequiredOrgAdmin("acme"))
	err := Check(ac, RequiredOrgAdmin("other"))
	require.Error(t, err)
}

func TestCheck_WriteCoversRead(t *testing.T) {
	ac := ctxWithScopes(Required("platform", ResClusters, ActionWrite))
	require.NoError(t, Check(ac, Required("platform", ResClusters, ActionRead)))
}

func TestCheck_ReadDoesNotCoverWrite(t *testing.T) {
	ac := ctxWithScopes(Required("platform", ResClusters, ActionRead))
	err := Check(ac, Required("platform", ResClusters, ActionWrite))
	require.Error(t, err)
}

func TestCheck_CPReadWriteShorthandCoversAnyTeamResource(t *testing.T) {
	ac := ctxWithScopes("cp:write")
	require.NoError(t, Check(ac, Required("any-team", ResListeners, ActionWrite)))
	require.NoError(t, Check(ac, Required("any-team", ResListeners, ActionRead)))
}

func TestCheck_GlobalResourceScopeRequiresAdminAll(t *testing.T) {
	ac := ctxWithScopes(RequiredGlobal(ResClusters, ActionWrite))
	err := Check(ac, RequiredGlobal(ResClusters, ActionWrite))
	require.Error(t, err, "a bare resource:action scope without admin:all must not grant access")
}

func TestCheckOrgDelete_RequiresAdminAllEvenForOrgAdmin(t *testing.T) {
	ac := ctxWithScopes(RequiredOrgAdmin("acme"))
	err := CheckOrgDelete(ac)
	require.Error(t, err)

	superuser := ctxWithScopes(ScopeAdminAll)
	require.NoError(t, CheckOrgDelete(superuser))
}

func TestHashToken_DeterministicAndVerifiable(t *testing.T) {
	h1, err := HashToken("a-token-value-that-is-long-enough")
	require.NoError(t, err)
	h2, err := HashToken("a-token-value-that-is-long-enough")
	require.NoError(t, err)
	require.Equal(t, h1, h2, "token digest must be deterministic so GetByHash can look up by equality")

	h3, err := HashToken("a-different-token-value")
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)
}
