package trino

import (
	"context"
	"fmt"

	"github.com/dikshantks/trino-mcp-server/internal/core/port"
)

// Execute opens a fresh connection, runs the statement, fetches at most
// rowLimit rows, and closes the connection whether or not the query
// succeeded. The engine error is returned verbatim for the tool boundary to
// classify.
func (c *Client) Execute(ctx context.Context, query string, rowLimit int) (*port.ResultSet, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	db, err := c.openDB()
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows, rowLimit)
}

// Ping reports reachability by running the cheapest possible statement.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Execute(ctx, "SELECT 1", 1)
	return err
}

// Version returns the engine version string, or a placeholder when the
// version function is unavailable (some gateways disallow it).
func (c *Client) Version(ctx context.Context) (string, error) {
	rs, err := c.Execute(ctx, "SELECT version()", 1)
	if err != nil || len(rs.Rows) == 0 || len(rs.Rows[0]) == 0 {
		return "Unable to retrieve version", err
	}
	return fmt.Sprintf("%v", rs.Rows[0][0]), nil
}
