package mcp

import (
	"context"

	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/ops"
	gomcp "github.com/mark3labs/mcp-go/mcp"
)

func init() {
	register(toolEntry{
		tool: gomcp.NewTool("cp_list_aggregated_schemas",
			gomcp.WithDescription("List aggregated request/response schemas inferred from completed learning sessions."),
		),
		requiredScope: "aggregated_schemas:read",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			return d.ListAggregatedSchemas(ctx, ac)
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_get_aggregated_schema",
			gomcp.WithDescription("Get the aggregated schema for a specific team, path, and HTTP method."),
			gomcp.WithString("team", gomcp.Required(), gomcp.Description("Team name that owns the sampled route.")),
			gomcp.WithString("path", gomcp.Required(), gomcp.Description("Request path the schema was inferred for.")),
			gomcp.WithString("method", gomcp.Required(), gomcp.Description("HTTP method, e.g. 'GET', 'POST'.")),
		),
		requiredScope: "aggregated_schemas:read",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			return d.GetAggregatedSchema(ctx, ac, argString(args, "team"), argString(args, "path"), argString(args, "method"))
		},
	})
}
