// Package mcp exposes movement memory to coaching assistants over the Model
// Context Protocol.
package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("MovementMemory", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Movement memory server. Look up per-exercise training history, progression trends, "+
			"confidence, personal records and next-session targets. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetMovementMemory, Handler: h.getMovementMemory},
		server.ServerTool{Tool: toolGetNextSuggestion, Handler: h.getNextSuggestion},
		server.ServerTool{Tool: toolListMovementMemories, Handler: h.listMovementMemories},
		server.ServerTool{Tool: toolGetCoachContext, Handler: h.getCoachContext},
	)

	s.AddResources(
		server.ServerResource{Resource: resMemoryOverview, Handler: h.memoryOverview},
	)

	return s
}

type handlers struct {
	ds  DataSource
	log *slog.Logger
}

var resMemoryOverview = mcp.NewResource(
	"movemem://memory_overview",
	"Memory Overview",
	mcp.WithResourceDescription("Trend, confidence and exposure count of every tracked exercise"),
	mcp.WithMIMEType("application/json"),
)
