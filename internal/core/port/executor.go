package port

import "context"

// ResultSet holds the column names and at most rowLimit rows fetched from
// one executed statement. It lives for a single execute-and-render cycle.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// QueryExecutor runs one statement against the engine. Implementations open
// a fresh connection per call and close it unconditionally before returning.
// Errors are returned verbatim; classification happens at the tool boundary.
type QueryExecutor interface {
	Execute(ctx context.Context, sql string, rowLimit int) (*ResultSet, error)
}

// EngineProber checks engine reachability and reports server information.
// Used by the startup probe and the test_connection tool.
type EngineProber interface {
	Ping(ctx context.Context) error
	Version(ctx context.Context) (string, error)
}
