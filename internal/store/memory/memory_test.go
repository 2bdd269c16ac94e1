package memory

import (
	"context"
	"testing"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
	"github.com/stretchr/testify/require"
)

func TestOrg_DeleteBlockedByTeams(t *testing.T) {
	ctx := context.Background()
	s := New()

	org := &model.Organization{ID: model.NewOrgID(), Name: "acme"}
	require.NoError(t, s.Orgs().Create(ctx, org))

	team := &model.Team{ID: model.NewTeamID(), OrgID: org.ID, Name: "platform"}
	require.NoError(t, s.Teams().Create(ctx, team))

	err := s.Orgs().Delete(ctx, org.ID)
	require.Error(t, err)
	require.Equal(t, apierr.Conflict, apierr.KindOf(err))

	require.NoError(t, s.Teams().Delete(ctx, team.ID))
	require.NoError(t, s.Orgs().Delete(ctx, org.ID))
}

func TestOrg_CreateDuplicateNameAlreadyExists(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Orgs().Create(ctx, &model.Organization{ID: model.NewOrgID(), Name: "acme"}))
	err := s.Orgs().Create(ctx, &model.Organization{ID: model.NewOrgID(), Name: "acme"})
	require.Error(t, err)
	require.Equal(t, apierr.AlreadyExists, apierr.KindOf(err))
}

func TestTeam_DeleteBlockedBySurvivingClusters(t *testing.T) {
	ctx := context.Background()
	s := New()
	org := &model.Organization{ID: model.NewOrgID(), Name: "acme"}
	require.NoError(t, s.Orgs().Create(ctx, org))
	team := &model.Team{ID: model.NewTeamID(), OrgID: org.ID, Name: "platform"}
	require.NoError(t, s.Teams().Create(ctx, team))

	cluster := &model.Cluster{ID: model.NewClusterID(), Name: "c1", TeamID: &team.ID, ServiceName: "c1"}
	require.NoError(t, s.Clusters().Create(ctx, cluster))

	err := s.Teams().Delete(ctx, team.ID)
	require.Error(t, err)
	require.Equal(t, apierr.Conflict, apierr.KindOf(err))
}

func TestLastOwner_CannotBeRemoved(t *testing.T) {
	ctx := context.Background()
	s := New()
	org := &model.Organization{ID: model.NewOrgID(), Name: "acme"}
	require.NoError(t, s.Orgs().Create(ctx, org))

	owner := &model.User{ID: model.NewUserID(), Email: "owner@acme.test"}
	require.NoError(t, s.Users().Create(ctx, owner))
	require.NoError(t, s.Users().AssignOrg(ctx, owner.ID, org.ID, model.OrgRoleOwner))

	err := s.Users().RemoveMembership(ctx, owner.ID, org.ID)
	require.Error(t, err)
	require.Equal(t, apierr.Conflict, apierr.KindOf(err))

	err = s.Users().SetRole(ctx, owner.ID, org.ID, model.OrgRoleAdmin)
	require.Error(t, err)
	require.Equal(t, apierr.Conflict, apierr.KindOf(err))
}

func TestLastOwner_SecondOwnerCanBeDowngraded(t *testing.T) {
	ctx := context.Background()
	s := New()
	org := &model.Organization{ID: model.NewOrgID(), Name: "acme"}
	require.NoError(t, s.Orgs().Create(ctx, org))

	owner1 := &model.User{ID: model.NewUserID(), Email: "owner1@acme.test"}
	owner2 := &model.User{ID: model.NewUserID(), Email: "owner2@acme.test"}
	require.NoError(t, s.Users().Create(ctx, owner1))
	require.NoError(t, s.Users().Create(ctx, owner2))
	require.NoError(t, s.Users().AssignOrg(ctx, owner1.ID, org.ID, model.OrgRoleOwner))
	require.NoError(t, s.Users().AssignOrg(ctx, owner2.ID, org.ID, model.OrgRoleOwner))

	require.NoError(t, s.Users().SetRole(ctx, owner2.ID, org.ID, model.OrgRoleAdmin))
	// now owner1 is the sole remaining Owner and cannot be removed
	err := s.Users().RemoveMembership(ctx, owner1.ID, org.ID)
	require.Error(t, err)
}

func TestCrossTenantGet_ReturnsNotFoundNotForbidden(t *testing.T) {
	ctx := context.Background()
	s := New()
	t1 := model.NewTeamID()
	t2 := model.NewTeamID()

	cluster := &model.Cluster{ID: model.NewClusterID(), Name: "c1", TeamID: &t2, ServiceName: "c1"}
	require.NoError(t, s.Clusters().Create(ctx, cluster))

	_, err := s.Clusters().Get(ctx, store.ScopeToTeams(t1), cluster.ID)
	require.Error(t, err)
	require.Equal(t, apierr.NotFound, apierr.KindOf(err))

	// admin-wide scope sees it fine
	got, err := s.Clusters().Get(ctx, store.AllTeams(), cluster.ID)
	require.NoError(t, err)
	require.Equal(t, cluster.Name, got.Name)
}

func TestClusterNameUnique_PerTeam(t *testing.T) {
	ctx := context.Background()
	s := New()
	t1 := model.NewTeamID()
	t2 := model.NewTeamID()

	require.NoError(t, s.Clusters().Create(ctx, &model.Cluster{ID: model.NewClusterID(), Name: "shared", TeamID: &t1, ServiceName: "shared"}))
	// same name, different team: fine
	require.NoError(t, s.Clusters().Create(ctx, &model.Cluster{ID: model.NewClusterID(), Name: "shared", TeamID: &t2, ServiceName: "shared"}))
	// same name, same team: AlreadyExists
	err := s.Clusters().Create(ctx, &model.Cluster{ID: model.NewClusterID(), Name: "shared", TeamID: &t1, ServiceName: "shared"})
	require.Error(t, err)
	require.Equal(t, apierr.AlreadyExists, apierr.KindOf(err))
}

func TestSystemCluster_ProtectedFromDeletion(t *testing.T) {
	ctx := context.Background()
	s := New()
	cluster := &model.Cluster{ID: model.NewClusterID(), Name: "default-gateway-cluster", ServiceName: "default-gateway-cluster"}
	require.NoError(t, s.Clusters().Create(ctx, cluster))

	err := s.Clusters().Delete(ctx, cluster.ID)
	require.Error(t, err)
	require.Equal(t, apierr.Forbidden, apierr.KindOf(err))
}

func TestAttach_IdempotentAttachDetach(t *testing.T) {
	ctx := context.Background()
	s := New()
	filterID := model.NewFilterID()

	created, err := s.Attachments().Attach(ctx, &model.FilterAttachment{FilterID: filterID, Scope: model.ScopeRoute, ScopeID: "rc1/vh1/r1"})
	require.NoError(t, err)
	require.True(t, created)

	created, err = s.Attachments().Attach(ctx, &model.FilterAttachment{FilterID: filterID, Scope: model.ScopeRoute, ScopeID: "rc1/vh1/r1"})
	require.NoError(t, err)
	require.False(t, created, "re-attach must be a no-op")

	require.NoError(t, s.Attachments().Detach(ctx, model.ScopeRoute, "rc1/vh1/r1", filterID))

	err = s.Attachments().Detach(ctx, model.ScopeRoute, "rc1/vh1/r1", filterID)
	require.Error(t, err)
	require.Equal(t, apierr.NotFound, apierr.KindOf(err))
}

func TestDeleteThenRecreate_SameNameSucceeds(t *testing.T) {
	ctx := context.Background()
	s := New()
	team := model.NewTeamID()
	c := &model.Cluster{ID: model.NewClusterID(), Name: "retry", TeamID: &team, ServiceName: "retry"}
	require.NoError(t, s.Clusters().Create(ctx, c))
	require.NoError(t, s.Clusters().Delete(ctx, c.ID))

	c2 := &model.Cluster{ID: model.NewClusterID(), Name: "retry", TeamID: &team, ServiceName: "retry"}
	require.NoError(t, s.Clusters().Create(ctx, c2))
}

func TestVersions_MonotonicPerResourceType(t *testing.T) {
	ctx := context.Background()
	s := New()
	v1, err := s.Versions().Next(ctx, store.ResourceCluster)
	require.NoError(t, err)
	v2, err := s.Versions().Next(ctx, store.ResourceCluster)
	require.NoError(t, err)
	require.Greater(t, v2, v1)

	cur, err := s.Versions().Current(ctx, store.ResourceCluster)
	require.NoError(t, err)
	require.Equal(t, v2, cur)

	// independent sequence per resource type
	routeV, err := s.Versions().Current(ctx, store.ResourceRouteConfig)
	require.NoError(t, err)
	require.Zero(t, routeV)
}

func TestOnChange_FiresOnMutation(t *testing.T) {
	ctx := context.Background()
	s := New()
	calls := 0
	s.OnChange(func() { calls++ })

	require.NoError(t, s.Orgs().Create(ctx, &model.Organization{ID: model.NewOrgID(), Name: "acme"}))
	require.Equal(t, 1, calls)
}
