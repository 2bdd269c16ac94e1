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
		tool: gomcp.NewTool("cp_list_filters",
			gomcp.WithDescription("List HTTP filters visible to the caller."),
		),
		requiredScope: "filters:read",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			return d.ListFilters(ctx, ac)
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_get_filter",
			gomcp.WithDescription("Get a single HTTP filter by ID."),
			gomcp.WithString("id", gomcp.Required(), gomcp.Description("Filter ID (UUID).")),
		),
		requiredScope: "filters:read",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			return d.GetFilter(ctx, ac, model.FilterID(argString(args, "id")))
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_create_filter",
			gomcp.WithDescription("Create a new HTTP filter definition. Filters are always team-scoped and attached separately via cp_attach_filter."),
			gomcp.WithString("name", gomcp.Required(), gomcp.Description("Unique filter name within its team.")),
			gomcp.WithString("team", gomcp.Required(), gomcp.Description("Owning team name.")),
			gomcp.WithString("filterType", gomcp.Required(), gomcp.Description("Filter type, e.g. 'HeaderMutation', 'JwtAuth', 'LocalRateLimit', 'RateLimit', 'CustomResponse', 'CORS', 'Compressor', 'RBAC', 'OAuth2', 'ExtAuthz', 'ExtProc', 'HealthCheck', 'MCP', 'WASM', or a registered dynamic type name.")),
			gomcp.WithString("description", gomcp.Description("Human-readable description.")),
			gomcp.WithObject("spec", gomcp.Required(), gomcp.Description("Filter-type-specific configuration, validated against the type's schema when one is registered.")),
		),
		requiredScope: "filters:write",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			spec, _ := args["spec"].(map[string]any)
			res, err := d.CreateFilter(ctx, ac, ops.CreateFilterRequest{
				Name:        argString(args, "name"),
				Team:        argString(args, "team"),
				FilterType:  model.FilterType(argString(args, "filterType")),
				Description: argString(args, "description"),
				Spec:        spec,
			})
			if err != nil {
				return nil, err
			}
			return res.Data, nil
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_update_filter",
			gomcp.WithDescription("Replace a filter's spec and, optionally, its description."),
			gomcp.WithString("id", gomcp.Required(), gomcp.Description("Filter ID (UUID).")),
			gomcp.WithString("description", gomcp.Description("New description; omit to leave unchanged.")),
			gomcp.WithObject("spec", gomcp.Required(), gomcp.Description("Replacement filter spec.")),
		),
		requiredScope: "filters:write",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			spec, _ := args["spec"].(map[string]any)
			res, err := d.UpdateFilter(ctx, ac, model.FilterID(argString(args, "id")), spec, argString(args, "description"))
			if err != nil {
				return nil, err
			}
			return res.Data, nil
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_delete_filter",
			gomcp.WithDescription("Delete a filter. Fails if it is still attached anywhere."),
			gomcp.WithString("id", gomcp.Required(), gomcp.Description("Filter ID (UUID).")),
		),
		requiredScope: "filters:write",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			return nil, d.DeleteFilter(ctx, ac, model.FilterID(argString(args, "id")))
		},
	})
}
