package trino

import (
	"database/sql"
	"fmt"

	"github.com/dikshantks/trino-mcp-server/internal/core/port"
)

// scanRows drains at most rowLimit rows from the cursor into a ResultSet.
// Byte slices are copied to strings: the driver may reuse the backing array
// between Next calls, and downstream rendering wants text anyway.
func scanRows(rows *sql.Rows, rowLimit int) (*port.ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading column names: %w", err)
	}

	rs := &port.ResultSet{Columns: cols}
	for len(rs.Rows) < rowLimit && rows.Next() {
		values := make([]any, len(cols))
		targets := make([]any, len(cols))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return rs, nil
}
