package port

import "github.com/dikshantks/trino-mcp-server/internal/core/domain"

// QueryValidator decides whether a SQL statement may be forwarded to the
// engine. It never returns an error: every statement gets a decision.
type QueryValidator interface {
	Validate(sql string) domain.Decision
}
