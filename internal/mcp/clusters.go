package mcp

import (
	"context"

	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/ops"
	gomcp "github.com/mark3labs/mcp-go/mcp"
)

func init() {
	register(toolEntry{
		tool: gomcp.NewTool("cp_list_clusters",
			gomcp.WithDescription("List upstream clusters visible to the caller, across every team they have read access to."),
		),
		requiredScope: "clusters:read",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			return d.ListClusters(ctx, ac)
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_get_cluster",
			gomcp.WithDescription("Get a single cluster by ID."),
			gomcp.WithString("id", gomcp.Required(), gomcp.Description("Cluster ID (UUID).")),
		),
		requiredScope: "clusters:read",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			return d.GetCluster(ctx, ac, model.ClusterID(argString(args, "id")))
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_create_cluster",
			gomcp.WithDescription("Create a new upstream cluster (a named group of endpoints Envoy load-balances across)."),
			gomcp.WithString("name", gomcp.Required(), gomcp.Description("Unique cluster name within its team.")),
			gomcp.WithString("team", gomcp.Required(), gomcp.Description("Owning team name, or empty for a global/system cluster (requires admin:all).")),
			gomcp.WithString("serviceName", gomcp.Description("Logical service name; defaults to name.")),
			gomcp.WithObject("spec", gomcp.Required(), gomcp.Description("ClusterSpec: endpoints, lbPolicy, upstreamProtocol, dnsLookupFamily, healthCheck, circuitBreakers.")),
		),
		requiredScope: "clusters:write",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			var spec model.ClusterSpec
			if err := decodeInto(args, "spec", &spec); err != nil {
				return nil, err
			}
			res, err := d.CreateCluster(ctx, ac, ops.CreateClusterRequest{
				Name:        argString(args, "name"),
				Team:        argString(args, "team"),
				ServiceName: argString(args, "serviceName"),
				Spec:        spec,
			})
			if err != nil {
				return nil, err
			}
			return res.Data, nil
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_update_cluster",
			gomcp.WithDescription("Replace a cluster's spec and, optionally, its service name."),
			gomcp.WithString("id", gomcp.Required(), gomcp.Description("Cluster ID (UUID).")),
			gomcp.WithString("serviceName", gomcp.Description("New service name; omit to leave unchanged.")),
			gomcp.WithObject("spec", gomcp.Required(), gomcp.Description("Replacement ClusterSpec.")),
		),
		requiredScope: "clusters:write",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			var spec model.ClusterSpec
			if err := decodeInto(args, "spec", &spec); err != nil {
				return nil, err
			}
			res, err := d.UpdateCluster(ctx, ac, model.ClusterID(argString(args, "id")), ops.UpdateClusterRequest{
				ServiceName: argString(args, "serviceName"),
				Spec:        spec,
			})
			if err != nil {
				return nil, err
			}
			return res.Data, nil
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_delete_cluster",
			gomcp.WithDescription("Delete a cluster. Fails if any listener or route still references it."),
			gomcp.WithString("id", gomcp.Required(), gomcp.Description("Cluster ID (UUID).")),
		),
		requiredScope: "clusters:write",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			return nil, d.DeleteCluster(ctx, ac, model.ClusterID(argString(args, "id")))
		},
	})
}
