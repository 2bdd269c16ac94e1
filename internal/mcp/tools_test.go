package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/filters"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/ops"
	"github.com/flowmesh/controlplane/internal/store/memory"
)

func findTool(t *testing.T, name string) toolEntry {
	t.Helper()
	for _, e := range registry {
		if e.tool.Name == name {
			return e
		}
	}
	t.Fatalf("tool %q not registered", name)
	return toolEntry{}
}

func toArgs(t *testing.T, v any) map[string]any {
	t.Helper()
	buf, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf, &out))
	return out
}

func superuserCtx() authz.Context {
	return authz.NewContext(model.NewTokenID(), nil, nil, []string{authz.ScopeAdminAll})
}

func TestArgHelpers(t *testing.T) {
	args := map[string]any{
		"name": "svc", "count": float64(3), "enabled": true,
		"tags": []any{"a", "b"},
	}
	require.Equal(t, "svc", argString(args, "name"))
	require.Equal(t, "", argString(args, "missing"))
	require.Equal(t, 3, argInt(args, "count"))
	require.Equal(t, 0, argInt(args, "missing"))
	require.True(t, argBool(args, "enabled"))
	require.Equal(t, []string{"a", "b"}, argStringSlice(args, "tags"))
	require.Nil(t, argStringSlice(args, "missing"))
}

func TestDecodeInto_RoundTripsClusterSpec(t *testing.T) {
	spec := model.ClusterSpec{
		Endpoints:       []model.Endpoint{{Kind: model.EndpointAddress, Address: "10.0.0.1", Port: 80, Weight: 1}},
		ConnectTimeout:  5 * time.Second,
		DNSLookupFamily: model.DNSAuto,
		LBPolicy:        model.LBRoundRobin,
	}
	args := map[string]any{"spec": toArgs(t, spec)}

	var got model.ClusterSpec
	require.NoError(t, decodeInto(args, "spec", &got))
	require.Equal(t, spec.Endpoints[0].Address, got.Endpoints[0].Address)
	require.Equal(t, spec.LBPolicy, got.LBPolicy)
}

func TestDecodeInto_MissingKeyErrors(t *testing.T) {
	var got model.ClusterSpec
	err := decodeInto(map[string]any{}, "spec", &got)
	require.Error(t, err)
}

func TestTool_CreateAndGetCluster(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	d := ops.NewDispatcher(st, filters.NewSchemaRegistry(), nil)
	ac := superuserCtx()

	createEntry := findTool(t, "cp_create_cluster")
	spec := model.ClusterSpec{
		Endpoints:       []model.Endpoint{{Kind: model.EndpointAddress, Address: "10.0.0.1", Port: 80, Weight: 1}},
		ConnectTimeout:  5 * time.Second,
		DNSLookupFamily: model.DNSAuto,
		LBPolicy:        model.LBRoundRobin,
	}
	result, err := createEntry.handle(ctx, d, ac, map[string]any{
		"name": "svc",
		"team": "",
		"spec": toArgs(t, spec),
	})
	require.NoError(t, err)
	created := result.(*model.Cluster)
	require.Equal(t, "svc", created.Name)

	getEntry := findTool(t, "cp_get_cluster")
	got, err := getEntry.handle(ctx, d, ac, map[string]any{"id": string(created.ID)})
	require.NoError(t, err)
	require.Equal(t, created.ID, got.(*model.Cluster).ID)
}

func TestTool_DeleteCluster(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	d := ops.NewDispatcher(st, filters.NewSchemaRegistry(), nil)
	ac := superuserCtx()

	createEntry := findTool(t, "cp_create_cluster")
	spec := model.ClusterSpec{
		Endpoints:       []model.Endpoint{{Kind: model.EndpointAddress, Address: "10.0.0.1", Port: 80, Weight: 1}},
		ConnectTimeout:  5 * time.Second,
		DNSLookupFamily: model.DNSAuto,
		LBPolicy:        model.LBRoundRobin,
	}
	result, err := createEntry.handle(ctx, d, ac, map[string]any{"name": "svc", "team": "", "spec": toArgs(t, spec)})
	require.NoError(t, err)
	created := result.(*model.Cluster)

	deleteEntry := findTool(t, "cp_delete_cluster")
	_, err = deleteEntry.handle(ctx, d, ac, map[string]any{"id": string(created.ID)})
	require.NoError(t, err)

	listEntry := findTool(t, "cp_list_clusters")
	listResult, err := listEntry.handle(ctx, d, ac, map[string]any{})
	require.NoError(t, err)
	require.Empty(t, listResult)
}

func TestTool_GetCluster_UnknownIDReturnsError(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	d := ops.NewDispatcher(st, filters.NewSchemaRegistry(), nil)

	getEntry := findTool(t, "cp_get_cluster")
	_, err := getEntry.handle(ctx, d, superuserCtx(), map[string]any{"id": string(model.NewClusterID())})
	require.Error(t, err)
}
