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
		tool: gomcp.NewTool("cp_list_routes",
			gomcp.WithDescription("List route configurations visible to the caller."),
		),
		requiredScope: "routes:read",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			return d.ListRouteConfigs(ctx, ac)
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_get_route",
			gomcp.WithDescription("Get a single route configuration by ID."),
			gomcp.WithString("id", gomcp.Required(), gomcp.Description("RouteConfig ID (UUID).")),
		),
		requiredScope: "routes:read",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			return d.GetRouteConfig(ctx, ac, model.RouteConfigID(argString(args, "id")))
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_create_route",
			gomcp.WithDescription("Create a new route configuration: a named list of virtual hosts, each with domains and ordered routes."),
			gomcp.WithString("name", gomcp.Required(), gomcp.Description("Unique route config name within its team.")),
			gomcp.WithString("team", gomcp.Required(), gomcp.Description("Owning team name, or empty for a global route config.")),
			gomcp.WithObject("spec", gomcp.Required(), gomcp.Description("RouteConfigSpec: virtualHosts, each with domains and an ordered routes list (match + action).")),
		),
		requiredScope: "routes:write",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			var spec model.RouteConfigSpec
			if err := decodeInto(args, "spec", &spec); err != nil {
				return nil, err
			}
			res, err := d.CreateRouteConfig(ctx, ac, ops.CreateRouteConfigRequest{
				Name: argString(args, "name"),
				Team: argString(args, "team"),
				Spec: spec,
			})
			if err != nil {
				return nil, err
			}
			return res.Data, nil
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_update_route",
			gomcp.WithDescription("Replace a route configuration's spec."),
			gomcp.WithString("id", gomcp.Required(), gomcp.Description("RouteConfig ID (UUID).")),
			gomcp.WithObject("spec", gomcp.Required(), gomcp.Description("Replacement RouteConfigSpec.")),
		),
		requiredScope: "routes:write",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			var spec model.RouteConfigSpec
			if err := decodeInto(args, "spec", &spec); err != nil {
				return nil, err
			}
			res, err := d.UpdateRouteConfig(ctx, ac, model.RouteConfigID(argString(args, "id")), spec)
			if err != nil {
				return nil, err
			}
			return res.Data, nil
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_delete_route",
			gomcp.WithDescription("Delete a route configuration. Fails if any listener still references it."),
			gomcp.WithString("id", gomcp.Required(), gomcp.Description("RouteConfig ID (UUID).")),
		),
		requiredScope: "routes:write",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			return nil, d.DeleteRouteConfig(ctx, ac, model.RouteConfigID(argString(args, "id")))
		},
	})
}
