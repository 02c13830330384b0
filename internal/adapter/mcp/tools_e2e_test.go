package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dikshantks/trino-mcp-server/internal/adapter/trino"
	"github.com/dikshantks/trino-mcp-server/internal/audit"
	"github.com/dikshantks/trino-mcp-server/internal/core/domain"
	"github.com/dikshantks/trino-mcp-server/internal/core/service"
	"github.com/dikshantks/trino-mcp-server/internal/diagnose"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupE2E starts a Trino testcontainer with the built-in tpch catalog and
// returns a fully wired MCP server backed by the real driver.
func setupE2E(t *testing.T) *server.MCPServer {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "trinodb/trino:451",
			ExposedPorts: []string{"8080/tcp"},
			WaitingFor: wait.ForLog("SERVER STARTED").
				WithStartupTimeout(3 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	params := trino.Params{
		Host:    host,
		Port:    mappedPort.Int(),
		User:    "test",
		Catalog: "tpch",
		Schema:  "tiny",
	}
	client, err := trino.NewClient(params, 30*time.Second)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	querySvc := service.NewQueryService(domain.NewGate(), client, audit.NoopAuditor{}, logger, 100, nil, nil)
	explorerSvc := service.NewExplorerService(client, client,
		service.Defaults{Catalog: "tpch", Schema: "tiny"}, 100)

	info := diagnose.Info{
		Host:    host,
		Port:    mappedPort.Int(),
		User:    "test",
		Catalog: "tpch",
		Schema:  "tiny",
	}

	s := server.NewMCPServer("test-e2e", "0.0.1", server.WithToolCapabilities(true))
	RegisterTools(s, explorerSvc, querySvc, info)
	return s
}

func TestE2E_MCPTools(t *testing.T) {
	s := setupE2E(t)

	t.Run("test_connection", func(t *testing.T) {
		result := callToolE2E(t, s, "test_connection", nil)
		require.False(t, result.IsError, "unexpected error: %s", toolText(result))
		assert.Contains(t, toolText(result), "✅ Connection Test Successful!")
	})

	t.Run("list_catalogs", func(t *testing.T) {
		result := callToolE2E(t, s, "list_catalogs", nil)
		require.False(t, result.IsError, "unexpected error: %s", toolText(result))
		assert.Contains(t, toolText(result), "tpch")
		assert.Contains(t, toolText(result), "system")
	})

	t.Run("list_schemas", func(t *testing.T) {
		result := callToolE2E(t, s, "list_schemas", nil)
		require.False(t, result.IsError, "unexpected error: %s", toolText(result))
		assert.Contains(t, toolText(result), "✅ Schemas in tpch:")
		assert.Contains(t, toolText(result), "tiny")
	})

	t.Run("list_tables", func(t *testing.T) {
		result := callToolE2E(t, s, "list_tables", nil)
		require.False(t, result.IsError, "unexpected error: %s", toolText(result))
		text := toolText(result)
		assert.Contains(t, text, "✅ Tables in tpch.tiny:")
		assert.Contains(t, text, "orders")
		assert.Contains(t, text, "nation")
	})

	t.Run("describe_table", func(t *testing.T) {
		result := callToolE2E(t, s, "describe_table", map[string]any{"table": "nation"})
		require.False(t, result.IsError, "unexpected error: %s", toolText(result))
		text := toolText(result)
		assert.Contains(t, text, "✅ Structure of tpch.tiny.nation:")
		assert.Contains(t, text, "nationkey")
	})

	t.Run("table_stats", func(t *testing.T) {
		result := callToolE2E(t, s, "table_stats", map[string]any{"table": "nation"})
		require.False(t, result.IsError, "unexpected error: %s", toolText(result))
		text := toolText(result)
		assert.Contains(t, text, "✅ Statistics for tpch.tiny.nation:")
		assert.Contains(t, text, "📊 Total Rows: 25")
	})

	t.Run("sample_table", func(t *testing.T) {
		result := callToolE2E(t, s, "sample_table", map[string]any{"table": "region", "limit": "3"})
		require.False(t, result.IsError, "unexpected error: %s", toolText(result))
		text := toolText(result)
		assert.Contains(t, text, "✅ Sample from tpch.tiny.region:")
		assert.Contains(t, text, "Showing 3 row(s)")
	})

	t.Run("run_query", func(t *testing.T) {
		result := callToolE2E(t, s, "run_query", map[string]any{
			"sql": "SELECT name FROM tpch.tiny.region ORDER BY name",
		})
		require.False(t, result.IsError, "unexpected error: %s", toolText(result))
		text := toolText(result)
		assert.Contains(t, text, "AFRICA")
		assert.Contains(t, text, "Showing 5 row(s)")
	})

	t.Run("run_query/rejects_insert", func(t *testing.T) {
		result := callToolE2E(t, s, "run_query", map[string]any{
			"sql": "INSERT INTO tpch.tiny.nation VALUES (99, 'X', 0, '')",
		})
		assert.True(t, result.IsError)
		assert.Contains(t, toolText(result), "Only read-only queries are allowed")
	})

	t.Run("run_query/syntax_error", func(t *testing.T) {
		result := callToolE2E(t, s, "run_query", map[string]any{
			"sql": "SELECT FROM WHERE",
		})
		assert.True(t, result.IsError)
		assert.Contains(t, toolText(result), "❌")
	})
}

var e2eSessionCounter atomic.Int64

// callToolE2E is like callTool but uses a unique session ID per call,
// allowing multiple calls against the same MCP server without "session already exists" errors.
func callToolE2E(t *testing.T, s *server.MCPServer, toolName string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	sessionID := fmt.Sprintf("e2e-%d", e2eSessionCounter.Add(1))
	session := server.NewInProcessSession(sessionID, nil)
	require.NoError(t, s.RegisterSession(ctx, session))
	sessionCtx := s.WithContext(ctx, session)

	// Initialize session.
	initBytes, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": "init", "method": "initialize",
		"params": map[string]any{
			"protocolVersion": "2025-03-26",
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "test-e2e", "version": "1.0"},
		},
	})
	s.HandleMessage(sessionCtx, initBytes)

	// Call tool.
	reqBytes, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": "call-1", "method": "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": args,
		},
	})
	resp := s.HandleMessage(sessionCtx, reqBytes)
	respBytes, _ := json.Marshal(resp)

	var rpc struct {
		Result *mcp.CallToolResult       `json:"result"`
		Error  *struct{ Message string } `json:"error,omitempty"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &rpc))
	require.Nil(t, rpc.Error, "unexpected RPC error: %v", rpc.Error)
	require.NotNil(t, rpc.Result)
	return rpc.Result
}
