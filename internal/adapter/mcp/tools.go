package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/dikshantks/trino-mcp-server/internal/core/domain"
	"github.com/dikshantks/trino-mcp-server/internal/core/service"
	"github.com/dikshantks/trino-mcp-server/internal/diagnose"
	"github.com/dikshantks/trino-mcp-server/internal/render"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Tool descriptions
const (
	descRunQuery = "Execute a read-only SQL query on Trino (SELECT, SHOW, DESCRIBE only). " +
		"Mutating statements are rejected before reaching the engine."

	descListCatalogs = "Show all available catalogs in Trino. " +
		"Call this first to discover the connected data sources."

	descListSchemas = "Show all schemas in a specific catalog, or the default catalog when omitted."

	descListTables = "Show all tables in a catalog.schema. " +
		"Missing catalog or schema fall back to the configured defaults."

	descDescribeTable = "Describe the structure of a table including columns and their types."

	descListColumns = "Show columns of a specific table with detailed information."

	descTableStats = "Get basic statistics about a table: exact row count plus the engine's column statistics."

	descSampleTable = "Get a sample of rows from a table. The limit defaults to 10 and is capped at 100."

	descTestConnection = "Test the connection to the Trino server and report configuration, " +
		"server version, and reachability. Use this to diagnose connection issues."
)

// handlers binds the services and the connection facts used in diagnostics.
type handlers struct {
	explorer *service.ExplorerService
	query    *service.QueryService
	info     diagnose.Info
}

func RegisterTools(s *server.MCPServer, explorer *service.ExplorerService, query *service.QueryService, info diagnose.Info) {
	h := &handlers{explorer: explorer, query: query, info: info}

	s.AddTool(
		mcp.NewTool("run_query",
			mcp.WithDescription(descRunQuery),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description("SQL query to execute (read-only statements only)"),
			),
		),
		h.runQuery,
	)

	s.AddTool(
		mcp.NewTool("list_catalogs",
			mcp.WithDescription(descListCatalogs),
		),
		h.listCatalogs,
	)

	s.AddTool(
		mcp.NewTool("list_schemas",
			mcp.WithDescription(descListSchemas),
			mcp.WithString("catalog",
				mcp.Description("Catalog name (optional, defaults to the configured catalog)"),
			),
		),
		h.listSchemas,
	)

	s.AddTool(
		mcp.NewTool("list_tables",
			mcp.WithDescription(descListTables),
			mcp.WithString("catalog",
				mcp.Description("Catalog name (optional)"),
			),
			mcp.WithString("schema",
				mcp.Description("Schema name (optional)"),
			),
		),
		h.listTables,
	)

	s.AddTool(
		mcp.NewTool("describe_table",
			mcp.WithDescription(descDescribeTable),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description("Name of the table to describe"),
			),
			mcp.WithString("catalog",
				mcp.Description("Catalog name (optional)"),
			),
			mcp.WithString("schema",
				mcp.Description("Schema name (optional)"),
			),
		),
		h.describeTable,
	)

	s.AddTool(
		mcp.NewTool("list_columns",
			mcp.WithDescription(descListColumns),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description("Name of the table"),
			),
			mcp.WithString("catalog",
				mcp.Description("Catalog name (optional)"),
			),
			mcp.WithString("schema",
				mcp.Description("Schema name (optional)"),
			),
		),
		h.listColumns,
	)

	s.AddTool(
		mcp.NewTool("table_stats",
			mcp.WithDescription(descTableStats),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description("Name of the table"),
			),
			mcp.WithString("catalog",
				mcp.Description("Catalog name (optional)"),
			),
			mcp.WithString("schema",
				mcp.Description("Schema name (optional)"),
			),
		),
		h.tableStats,
	)

	s.AddTool(
		mcp.NewTool("sample_table",
			mcp.WithDescription(descSampleTable),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description("Name of the table to sample"),
			),
			mcp.WithString("limit",
				mcp.Description("Number of rows to fetch (default 10, max 100)"),
			),
			mcp.WithString("catalog",
				mcp.Description("Catalog name (optional)"),
			),
			mcp.WithString("schema",
				mcp.Description("Schema name (optional)"),
			),
		),
		h.sampleTable,
	)

	s.AddTool(
		mcp.NewTool("test_connection",
			mcp.WithDescription(descTestConnection),
		),
		h.testConnection,
	)
}

func (h *handlers) runQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sql := stringArg(request, "sql")
	if sql == "" {
		return mcp.NewToolResultError("❌ Error: Query is required"), nil
	}

	ctx = service.WithToolName(ctx, "run_query")
	rs, err := h.query.Run(ctx, sql)
	if err != nil {
		return h.failure(err, "Executing query: "+truncate(sql, 100)), nil
	}

	table := render.Table(rs, h.query.MaxRows())
	return mcp.NewToolResultText("✅ Query executed successfully:\n\n" + table), nil
}

func (h *handlers) listCatalogs(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rs, err := h.explorer.ListCatalogs(ctx)
	if err != nil {
		return h.failure(err, "Showing catalogs"), nil
	}
	return mcp.NewToolResultText("✅ Available catalogs:\n\n" + render.Table(rs, h.query.MaxRows())), nil
}

func (h *handlers) listSchemas(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	catalog := stringArg(request, "catalog")
	rs, resolved, err := h.explorer.ListSchemas(ctx, catalog)
	if err != nil {
		return h.failure(err, "Showing schemas in catalog: "+catalog), nil
	}
	text := fmt.Sprintf("✅ Schemas in %s:\n\n%s", resolved, render.Table(rs, h.query.MaxRows()))
	return mcp.NewToolResultText(text), nil
}

func (h *handlers) listTables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rs, scope, err := h.explorer.ListTables(ctx, stringArg(request, "catalog"), stringArg(request, "schema"))
	if err != nil {
		return h.failure(err, "Showing tables"), nil
	}
	text := fmt.Sprintf("✅ Tables in %s:\n\n%s", scope, render.Table(rs, h.query.MaxRows()))
	return mcp.NewToolResultText(text), nil
}

func (h *handlers) describeTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rs, fullTable, err := h.explorer.DescribeTable(ctx,
		stringArg(request, "catalog"), stringArg(request, "schema"), stringArg(request, "table"))
	if err != nil {
		return h.failure(err, "Describing table"), nil
	}
	text := fmt.Sprintf("✅ Structure of %s:\n\n%s", fullTable, render.Table(rs, 1000))
	return mcp.NewToolResultText(text), nil
}

func (h *handlers) listColumns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rs, fullTable, err := h.explorer.ListColumns(ctx,
		stringArg(request, "catalog"), stringArg(request, "schema"), stringArg(request, "table"))
	if err != nil {
		return h.failure(err, "Showing columns"), nil
	}
	text := fmt.Sprintf("✅ Columns in %s:\n\n%s", fullTable, render.Table(rs, 1000))
	return mcp.NewToolResultText(text), nil
}

func (h *handlers) tableStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.explorer.TableStats(ctx,
		stringArg(request, "catalog"), stringArg(request, "schema"), stringArg(request, "table"))
	if err != nil {
		return h.failure(err, "Getting table stats"), nil
	}
	text := fmt.Sprintf("✅ Statistics for %s:\n\n📊 Total Rows: %s\n\n📈 Column Statistics:\n%s",
		stats.Table, render.GroupDigits(stats.RowCount), render.Table(stats.Stats, 1000))
	return mcp.NewToolResultText(text), nil
}

func (h *handlers) sampleTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rs, fullTable, limit, err := h.explorer.SampleTable(ctx,
		stringArg(request, "catalog"), stringArg(request, "schema"),
		stringArg(request, "table"), stringArg(request, "limit"))
	if err != nil {
		return h.failure(err, "Sampling table"), nil
	}
	text := fmt.Sprintf("✅ Sample from %s:\n\n%s", fullTable, render.Table(rs, limit))
	return mcp.NewToolResultText(text), nil
}

func (h *handlers) testConnection(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	version, err := h.explorer.TestConnection(ctx)
	if err != nil {
		return h.failure(err, "Testing connection"), nil
	}

	auth := "Disabled"
	if h.info.AuthEnabled {
		auth = "Enabled (BasicAuth)"
	}
	protocol := "HTTP"
	if h.info.TLS {
		protocol = "HTTPS"
	}
	text := fmt.Sprintf(`✅ Connection Test Successful!

📊 Server Information:
- Host: %s:%d
- User: %s
- Catalog: %s
- Schema: %s
- Version: %s
- Authentication: %s
- Protocol: %s

✅ Test query executed successfully`,
		h.info.Host, h.info.Port, h.info.User, h.info.Catalog, h.info.Schema, version, auth, protocol)
	return mcp.NewToolResultText(text), nil
}

// failure maps an error to its user-facing text block. Gate rejections get
// the fixed policy message; invalid-argument errors get a plain error line;
// everything else goes through the taxonomy.
func (h *handlers) failure(err error, context string) *mcp.CallToolResult {
	switch {
	case errors.Is(err, service.ErrRejected):
		return mcp.NewToolResultError(diagnose.PolicyMessage())
	case isUserError(err):
		return mcp.NewToolResultError("❌ Error: " + err.Error())
	default:
		return mcp.NewToolResultError(diagnose.Message(err, context, h.info))
	}
}

func isUserError(err error) bool {
	return errors.Is(err, domain.ErrEmptyTable) ||
		errors.Is(err, domain.ErrInvalidIdentifier) ||
		errors.Is(err, service.ErrInvalidLimit)
}

func stringArg(request mcp.CallToolRequest, key string) string {
	v, _ := request.GetArguments()[key].(string)
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
