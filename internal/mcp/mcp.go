// Package mcp exposes internal/ops as a set of Model Context Protocol
// tools: one descriptor plus one handler per control-plane operation,
// so an LLM-driven client (an operator's agent, a CI bot) can drive
// the same cluster/listener/route/filter/learning-session/schema
// surface internal/api does over REST. The wire transport itself
// (stdio/SSE framing, JSON-RPC plumbing) is handled by
// github.com/mark3labs/mcp-go/server and is not reimplemented here.
//
// Grounded on original_source/src/mcp/{handler,tools/*}.rs for which
// tools exist, their names, and their input shapes, and on
// giantswarm-mcp-kubernetes for the Go tool-registration idiom (one
// constructor function per tool, registered against a single server
// instance rather than a hand-rolled JSON-RPC switch).
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/ops"
	gomcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// handlerFunc is implemented by every tool: it receives the call's
// JSON arguments (already type-asserted to a map) and the dispatcher,
// and returns whatever internal/ops returned, marshaled to the tool
// result's text content.
type handlerFunc func(ctx context.Context, d *ops.Dispatcher, ac authz.Context, args map[string]any) (any, error)

// toolEntry binds a descriptor to its handler. requiredScope is
// documentation only: MCP runs no check of its own and relies on
// whatever checks the internal/ops method behind each tool makes (the
// same methods internal/api calls). Some of those methods, such as
// ListAttachments, GetLearningSession, GetOrg, GetTeam and ListTeams,
// check no scope.
type toolEntry struct {
	tool          gomcp.Tool
	requiredScope string
	handle        handlerFunc
}

var registry []toolEntry

func register(e toolEntry) { registry = append(registry, e) }

// NewServer builds an MCP server bound to a single caller's
// authz.Context. Unlike REST, an MCP session has no per-call
// Authorization header, so (mirroring the original handler's
// per-connection scopes field) the caller's identity and scopes are
// fixed for the session's lifetime at construction time.
func NewServer(d *ops.Dispatcher, ac authz.Context, log *slog.Logger) *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer("flowmesh-controlplane", "1.0.0")
	for _, entry := range registry {
		entry := entry
		srv.AddTool(entry.tool, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
			args, _ := req.Params.Arguments.(map[string]any)
			result, err := entry.handle(ctx, d, ac, args)
			if err != nil {
				if log != nil {
					log.Warn("mcp tool call failed", "tool", entry.tool.Name, "error", err)
				}
				return gomcp.NewToolResultError(err.Error()), nil
			}
			if result == nil {
				return gomcp.NewToolResultText("ok"), nil
			}
			body, err := json.Marshal(result)
			if err != nil {
				return gomcp.NewToolResultError(err.Error()), nil
			}
			return gomcp.NewToolResultText(string(body)), nil
		})
	}
	return srv
}
