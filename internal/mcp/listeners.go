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
		tool: gomcp.NewTool("cp_list_listeners",
			gomcp.WithDescription("List network listeners visible to the caller."),
		),
		requiredScope: "listeners:read",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			return d.ListListeners(ctx, ac)
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_get_listener",
			gomcp.WithDescription("Get a single listener by ID."),
			gomcp.WithString("id", gomcp.Required(), gomcp.Description("Listener ID (UUID).")),
		),
		requiredScope: "listeners:read",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			return d.GetListener(ctx, ac, model.ListenerID(argString(args, "id")))
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_create_listener",
			gomcp.WithDescription("Create a new listener (a network entry point binding an address and port to a filter chain)."),
			gomcp.WithString("name", gomcp.Required(), gomcp.Description("Unique listener name within its team.")),
			gomcp.WithString("team", gomcp.Required(), gomcp.Description("Owning team name, or empty for a global listener.")),
			gomcp.WithString("address", gomcp.Required(), gomcp.Description("Bind address, e.g. '0.0.0.0'.")),
			gomcp.WithNumber("port", gomcp.Required(), gomcp.Description("Bind port, 1024-65535.")),
			gomcp.WithString("protocol", gomcp.Description("L4 protocol: 'tcp' or 'udp'. Defaults to tcp."), gomcp.Enum("tcp", "udp")),
			gomcp.WithString("dataplaneId", gomcp.Description("Dataplane this listener is pinned to, if any.")),
			gomcp.WithObject("spec", gomcp.Required(), gomcp.Description("ListenerSpec: filterChains, each with networkFilters (typically an http_connection_manager referencing a route config by name).")),
		),
		requiredScope: "listeners:write",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			var spec model.ListenerSpec
			if err := decodeInto(args, "spec", &spec); err != nil {
				return nil, err
			}
			res, err := d.CreateListener(ctx, ac, ops.CreateListenerRequest{
				Name:        argString(args, "name"),
				Team:        argString(args, "team"),
				Address:     argString(args, "address"),
				Port:        uint32(argInt(args, "port")),
				Protocol:    model.ListenerProtocol(argString(args, "protocol")),
				Spec:        spec,
				DataplaneID: argString(args, "dataplaneId"),
			})
			if err != nil {
				return nil, err
			}
			return res.Data, nil
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_update_listener",
			gomcp.WithDescription("Replace a listener's filter-chain spec."),
			gomcp.WithString("id", gomcp.Required(), gomcp.Description("Listener ID (UUID).")),
			gomcp.WithObject("spec", gomcp.Required(), gomcp.Description("Replacement ListenerSpec.")),
		),
		requiredScope: "listeners:write",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			var spec model.ListenerSpec
			if err := decodeInto(args, "spec", &spec); err != nil {
				return nil, err
			}
			res, err := d.UpdateListener(ctx, ac, model.ListenerID(argString(args, "id")), spec)
			if err != nil {
				return nil, err
			}
			return res.Data, nil
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_delete_listener",
			gomcp.WithDescription("Delete a listener."),
			gomcp.WithString("id", gomcp.Required(), gomcp.Description("Listener ID (UUID).")),
		),
		requiredScope: "listeners:write",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			return nil, d.DeleteListener(ctx, ac, model.ListenerID(argString(args, "id")))
		},
	})
}
