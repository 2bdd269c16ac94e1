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
		tool: gomcp.NewTool("cp_list_learning_sessions",
			gomcp.WithDescription("List traffic-learning sessions visible to the caller."),
		),
		requiredScope: "learning_sessions:read",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			return d.ListLearningSessions(ctx, ac)
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_get_learning_session",
			gomcp.WithDescription("Get a single learning session by ID."),
			gomcp.WithString("id", gomcp.Required(), gomcp.Description("LearningSession ID (UUID).")),
		),
		requiredScope: "learning_sessions:read",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			return d.GetLearningSession(ctx, ac, model.LearningSessionID(argString(args, "id")))
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_create_learning_session",
			gomcp.WithDescription("Create a traffic-learning session that samples live requests matching a route pattern in order to infer an AggregatedSchema."),
			gomcp.WithString("team", gomcp.Required(), gomcp.Description("Owning team name.")),
			gomcp.WithString("routeConfigName", gomcp.Description("Route config to sample within, if narrowing by route.")),
			gomcp.WithString("routePattern", gomcp.Description("Path pattern to match, e.g. '/v1/orders/*'.")),
			gomcp.WithString("clusterName", gomcp.Description("Cluster to sample responses from, if narrowing by cluster.")),
			gomcp.WithArray("httpMethods", gomcp.Description("HTTP methods to sample; empty means all methods.")),
			gomcp.WithNumber("targetSampleCount", gomcp.Description("Number of samples to capture before the session auto-completes.")),
			gomcp.WithBoolean("captureBody", gomcp.Description("Whether to capture request/response bodies in addition to headers.")),
		),
		requiredScope: "learning_sessions:write",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			res, err := d.CreateLearningSession(ctx, ac, ops.CreateLearningSessionRequest{
				Team:              argString(args, "team"),
				RouteConfigName:   argString(args, "routeConfigName"),
				RoutePattern:      argString(args, "routePattern"),
				ClusterName:       argString(args, "clusterName"),
				HTTPMethods:       argStringSlice(args, "httpMethods"),
				TargetSampleCount: argInt(args, "targetSampleCount"),
				CaptureBody:       argBool(args, "captureBody"),
			})
			if err != nil {
				return nil, err
			}
			return res.Data, nil
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_activate_learning_session",
			gomcp.WithDescription("Activate a pending learning session so the extproc sampler starts capturing matching traffic."),
			gomcp.WithString("id", gomcp.Required(), gomcp.Description("LearningSession ID (UUID).")),
		),
		requiredScope: "learning_sessions:write",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			res, err := d.ActivateLearningSession(ctx, ac, model.LearningSessionID(argString(args, "id")))
			if err != nil {
				return nil, err
			}
			return res.Data, nil
		},
	})

	register(toolEntry{
		tool: gomcp.NewTool("cp_cancel_learning_session",
			gomcp.WithDescription("Cancel an active or pending learning session."),
			gomcp.WithString("id", gomcp.Required(), gomcp.Description("LearningSession ID (UUID).")),
		),
		requiredScope: "learning_sessions:write",
		handle: func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error) {
			res, err := d.CancelLearningSession(ctx, ac, model.LearningSessionID(argString(args, "id")))
			if err != nil {
				return nil, err
			}
			return res.Data, nil
		},
	})
}
