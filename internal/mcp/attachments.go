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
		tool: gomcp.NewTool("cp_attach_filter",
			gomcp.WithDescription("Attach a filter at listener, route-config, virtual-host, or route scope. Idempotent: attaching the same filter at the same scope twice is a no-op."),
			gomcp.WithString("scope", gomcp.Required(), gomcp.Description("Attachment scope."), gomcp.Enum("listener", "route_config", "virtual_host", "route")),
			gomcp.WithString("scopeId", gomcp.Required(), gomcp.Description("ID of the listener/route-config/virtual-host/route the filter attaches to.")),
			gomcp.WithString("filterId", gomcp.Required(), gomcp.Description("Filter ID (UUID) to attach.")),
			gomcp.WithString("behavior", gomcp.Description("How this attachment relates to a filter already attached higher up the chain: 'use_base' (default), 'disable', or 'override'."), gomcp.Enum("use_base", "disable", "override")),
			gomcp.WithObject("config", gomcp.Description("Override configuration; only meaningful when behavior is 'override'.")),
		),
		requiredScope: "filters:write",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			var settings *model.AttachmentSettings
			if behavior := argString(args, "behavior"); behavior != "" {
				config, _ := args["config"].(map[string]any)
				settings = &model.AttachmentSettings{Behavior: model.AttachmentBehavior(behavior), Config: config}
			}
			res, err := d.AttachFilter(ctx, ac, ops.AttachFilterRequest{
				Scope:    model.AttachmentScope(argString(args, "scope")),
				ScopeID:  argString(args, "scopeId"),
				FilterID: model.FilterID(argString(args, "filterId")),
				Settings: settings,
			})
			if err != nil {
				return nil, err
			}
			return res.Data, nil
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_detach_filter",
			gomcp.WithDescription("Detach a filter from a given scope."),
			gomcp.WithString("scope", gomcp.Required(), gomcp.Enum("listener", "route_config", "virtual_host", "route")),
			gomcp.WithString("scopeId", gomcp.Required()),
			gomcp.WithString("filterId", gomcp.Required()),
		),
		requiredScope: "filters:write",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			scope := model.AttachmentScope(argString(args, "scope"))
			scopeID := argString(args, "scopeId")
			filterID := model.FilterID(argString(args, "filterId"))
			return nil, d.DetachFilter(ctx, ac, scope, scopeID, filterID)
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_list_attachments",
			gomcp.WithDescription("List filter attachments at a given scope."),
			gomcp.WithString("scope", gomcp.Required(), gomcp.Enum("listener", "route_config", "virtual_host", "route")),
			gomcp.WithString("scopeId", gomcp.Required()),
		),
		requiredScope: "filters:read",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			scope := model.AttachmentScope(argString(args, "scope"))
			return d.ListAttachments(ctx, scope, argString(args, "scopeId"))
		},
	})
}
