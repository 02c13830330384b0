package mcp

import (
	"log/slog"

	"github.com/dikshantks/trino-mcp-server/internal/core/port"
	"github.com/dikshantks/trino-mcp-server/internal/core/service"
	"github.com/dikshantks/trino-mcp-server/internal/diagnose"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

const serverName = "trino"

// NewServer creates an MCPServer with the nine Trino tools and logging hooks.
func NewServer(version string, explorer *service.ExplorerService, query *service.QueryService, info diagnose.Info, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
		server.WithHooks(ToolCallHooks(logger, tracer, inst)),
	)

	RegisterTools(s, explorer, query, info)

	return s
}
