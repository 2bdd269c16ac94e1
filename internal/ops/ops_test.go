package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/filters"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store/memory"
)

func testClusterSpec(addr string, port uint32) model.ClusterSpec {
	return model.ClusterSpec{
		Endpoints:       []model.Endpoint{{Kind: model.EndpointAddress, Address: addr, Port: port, Weight: 1}},
		ConnectTimeout:  5 * time.Second,
		DNSLookupFamily: model.DNSAuto,
		LBPolicy:        model.LBRoundRobin,
	}
}

func newDispatcher() *Dispatcher {
	return NewDispatcher(memory.New(), filters.NewSchemaRegistry(), nil)
}

func seedOrgAndTeam(t *testing.T, ctx context.Context, d *Dispatcher, orgName, teamName string) (model.OrgID, model.TeamID) {
	t.Helper()
	org := &model.Organization{ID: model.NewOrgID(), Name: orgName}
	require.NoError(t, d.Store.Orgs().Create(ctx, org))
	teamID := seedTeam(t, ctx, d, org.ID, teamName)
	return org.ID, teamID
}

// seedTeam adds another team to an already-created org, without creating
// a second Organization row under the same name.
func seedTeam(t *testing.T, ctx context.Context, d *Dispatcher, orgID model.OrgID, teamName string) model.TeamID {
	t.Helper()
	team := &model.Team{ID: model.NewTeamID(), OrgID: orgID, Name: teamName, OwnerUserID: model.NewUserID()}
	require.NoError(t, d.Store.Teams().Create(ctx, team))
	return team.ID
}

func superuserCtx() authz.Context {
	return authz.NewContext(model.NewTokenID(), nil, nil, []string{authz.ScopeAdminAll})
}

func TestCreateCluster_RequiresWriteScope(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher()
	_, teamID := seedOrgAndTeam(t, ctx, d, "acme", "payments")
	team, err := d.Store.Teams().Get(ctx, teamID)
	require.NoError(t, err)

	ac := authz.NewContext(model.NewTokenID(), nil, &team.OrgID, nil)
	_, err = d.CreateCluster(ctx, ac, CreateClusterRequest{Name: "svc", Team: "payments"})
	require.Error(t, err, "a caller with no team-write scope must be rejected")
}

func TestCreateCluster_SucceedsWithTeamWriteScope(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher()
	orgID, _ := seedOrgAndTeam(t, ctx, d, "acme", "payments")

	ac := authz.NewContext(model.NewTokenID(), nil, &orgID, []string{authz.Required("payments", authz.ResClusters, authz.ActionWrite)})
	res, err := d.CreateCluster(ctx, ac, CreateClusterRequest{
		Name: "svc", Team: "payments",
		Spec: testClusterSpec("10.0.0.1", 80),
	})
	require.NoError(t, err)
	require.Equal(t, "svc", res.Data.Name)
	require.NotNil(t, res.Data.TeamID)
}

func TestCreateCluster_GlobalResourceRequiresAdminAll(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher()
	orgID, _ := seedOrgAndTeam(t, ctx, d, "acme", "payments")

	ac := authz.NewContext(model.NewTokenID(), nil, &orgID, []string{authz.Required("payments", authz.ResClusters, authz.ActionWrite)})
	_, err := d.CreateCluster(ctx, ac, CreateClusterRequest{Name: "svc", Team: ""})
	require.Error(t, err, "a blank team (global/system resource) must require admin:all even if the caller has team-scoped write")

	_, err = d.CreateCluster(ctx, superuserCtx(), CreateClusterRequest{Name: "svc", Team: "", Spec: testClusterSpec("10.0.0.1", 80)})
	require.NoError(t, err)
}

func TestCreateCluster_OrgAdminCanCreateWithoutExplicitTeamScope(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher()
	orgID, _ := seedOrgAndTeam(t, ctx, d, "acme", "payments")

	ac := authz.NewContext(model.NewTokenID(), nil, &orgID, []string{authz.RequiredOrgAdmin("acme")})
	res, err := d.CreateCluster(ctx, ac, CreateClusterRequest{
		Name: "svc", Team: "payments",
		Spec: testClusterSpec("10.0.0.1", 80),
	})
	require.NoError(t, err, "org:<org>:admin must cover creating resources in any team in that org, the same as it already covers update/delete")
	require.Equal(t, "svc", res.Data.Name)
}

func TestCreateCluster_OrgAdminOfDifferentOrgIsForbidden(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher()
	_, _ = seedOrgAndTeam(t, ctx, d, "acme", "payments")
	otherOrgID, _ := seedOrgAndTeam(t, ctx, d, "other-co", "other-team")

	ac := authz.NewContext(model.NewTokenID(), nil, &otherOrgID, []string{authz.RequiredOrgAdmin("other-co")})
	_, err := d.CreateCluster(ctx, ac, CreateClusterRequest{Name: "svc", Team: "payments"})
	require.Error(t, err, "an org admin of a different org must not be able to create resources in acme's team \"payments\"")
}

func TestListClusters_TeamScopeOnlySeesGrantedTeams(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher()
	orgID, _ := seedOrgAndTeam(t, ctx, d, "acme", "payments")
	seedTeam(t, ctx, d, orgID, "search")

	_, err := d.CreateCluster(ctx, superuserCtx(), CreateClusterRequest{
		Name: "payments-svc", Team: "payments",
		Spec: testClusterSpec("10.0.0.1", 80),
	})
	require.NoError(t, err)
	_, err = d.CreateCluster(ctx, superuserCtx(), CreateClusterRequest{
		Name: "search-svc", Team: "search",
		Spec: testClusterSpec("10.0.0.2", 80),
	})
	require.NoError(t, err)

	ac := authz.NewContext(model.NewTokenID(), nil, &orgID, []string{authz.Required("payments", authz.ResClusters, authz.ActionRead)})
	clusters, err := d.ListClusters(ctx, ac)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	require.Equal(t, "payments-svc", clusters[0].Name)
}

func TestListClusters_OrgAdminSeesAllTeamsInOrg(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher()
	orgID, _ := seedOrgAndTeam(t, ctx, d, "acme", "payments")
	seedTeam(t, ctx, d, orgID, "search")

	d.CreateCluster(ctx, superuserCtx(), CreateClusterRequest{
		Name: "payments-svc", Team: "payments",
		Spec: testClusterSpec("10.0.0.1", 80),
	})
	d.CreateCluster(ctx, superuserCtx(), CreateClusterRequest{
		Name: "search-svc", Team: "search",
		Spec: testClusterSpec("10.0.0.2", 80),
	})

	ac := authz.NewContext(model.NewTokenID(), nil, &orgID, []string{authz.RequiredOrgAdmin("acme")})
	clusters, err := d.ListClusters(ctx, ac)
	require.NoError(t, err)
	require.Len(t, clusters, 2)
}

func TestUpdateCluster_IncrementsVersion(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher()
	orgID, _ := seedOrgAndTeam(t, ctx, d, "acme", "payments")
	ac := authz.NewContext(model.NewTokenID(), nil, &orgID, []string{authz.Required("payments", authz.ResClusters, authz.ActionWrite)})

	created, err := d.CreateCluster(ctx, ac, CreateClusterRequest{
		Name: "svc", Team: "payments",
		Spec: testClusterSpec("10.0.0.1", 80),
	})
	require.NoError(t, err)
	startVersion := created.Data.Version

	updated, err := d.UpdateCluster(ctx, ac, created.Data.ID, UpdateClusterRequest{
		Spec: testClusterSpec("10.0.0.2", 81),
	})
	require.NoError(t, err)
	require.Equal(t, startVersion+1, updated.Data.Version)
	require.Equal(t, "10.0.0.2", updated.Data.Spec.Endpoints[0].Address)
}

func TestDeleteCluster_RemovesFromList(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher()
	orgID, _ := seedOrgAndTeam(t, ctx, d, "acme", "payments")
	ac := authz.NewContext(model.NewTokenID(), nil, &orgID, []string{authz.Required("payments", authz.ResClusters, authz.ActionWrite)})

	created, err := d.CreateCluster(ctx, ac, CreateClusterRequest{
		Name: "svc", Team: "payments",
		Spec: testClusterSpec("10.0.0.1", 80),
	})
	require.NoError(t, err)

	require.NoError(t, d.DeleteCluster(ctx, ac, created.Data.ID))

	clusters, err := d.ListClusters(ctx, ac)
	require.NoError(t, err)
	require.Empty(t, clusters)
}

func TestResolveTeam_BlankNameYieldsNilTeamID(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher()
	id, err := d.resolveTeam(ctx, authz.Context{}, "")
	require.NoError(t, err)
	require.Nil(t, id)
}

func TestResolveTeam_NoOrgContextErrors(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher()
	_, err := d.resolveTeam(ctx, authz.Context{}, "payments")
	require.Error(t, err)
}
