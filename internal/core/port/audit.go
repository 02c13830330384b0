package port

import "context"

// AuditEntry represents one executed (or attempted) statement.
type AuditEntry struct {
	Tool         string
	SQL          string
	RowsReturned int
	DurationMS   int64
	Err          error
}

// QueryAuditor records query audit events. Implementations must be safe for
// concurrent use: tool invocations may run in parallel.
type QueryAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}
