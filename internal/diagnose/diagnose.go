// Package diagnose maps engine and connection failures into a small set of
// self-contained diagnostic messages with remediation hints.
//
// Classification matches substrings of the lowercased error text. This is a
// heuristic: the Trino driver does not expose a stable error-kind taxonomy
// through database/sql, so text matching is the best signal available. The
// heuristic is isolated here so it can be swapped for structured codes if
// the driver ever grows them.
package diagnose

import (
	"fmt"
	"strings"

	"github.com/dikshantks/trino-mcp-server/internal/core/domain"
)

// Kind is the failure category assigned to an error.
type Kind string

const (
	KindConnection     Kind = "connection"
	KindAuthentication Kind = "authentication"
	KindQuery          Kind = "query"
	KindGeneric        Kind = "generic"
)

// Info carries the connection facts echoed into remediation text. It is a
// value copied from the startup configuration; diagnose never reads ambient
// state.
type Info struct {
	Host        string
	Port        int
	User        string
	Catalog     string
	Schema      string
	AuthEnabled bool
	TLS         bool
}

// Classify assigns a failure category by inspecting the error text.
func Classify(err error) Kind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection") || strings.Contains(msg, "connect"):
		return KindConnection
	case strings.Contains(msg, "authentication") || strings.Contains(msg, "unauthorized"):
		return KindAuthentication
	case strings.Contains(msg, "syntax") || strings.Contains(msg, "parse"):
		return KindQuery
	default:
		return KindGeneric
	}
}

// Message formats a failure as one self-contained text block with a failure
// marker and remediation steps for its category. context describes what was
// being attempted.
func Message(err error, context string, info Info) string {
	switch Classify(err) {
	case KindConnection:
		return fmt.Sprintf(`❌ Connection Error: Cannot connect to Trino server

Details: %v

Troubleshooting:
1. Verify Trino server is running:
   curl http://%s:%d/v1/info

2. Check environment variables:
   - TRINO_HOST=%s
   - TRINO_PORT=%d
   - TRINO_USER=%s

3. For remote servers, ensure SSH tunnel is active (if required)

4. For Docker, verify network configuration:
   - Use 'host.docker.internal' for localhost connections
   - On Linux, add: --add-host=host.docker.internal:host-gateway
   - Check Docker network mode settings

5. Check firewall rules and network connectivity`,
			err, info.Host, info.Port, info.Host, info.Port, info.User)

	case KindAuthentication:
		return fmt.Sprintf(`❌ Authentication Error: Failed to authenticate with Trino

Details: %v

Troubleshooting:
1. Verify TRINO_USER is correct: %s
2. If using password authentication, check TRINO_PASSWORD is set correctly
3. Verify user has read permissions on catalog: %s
4. Check Trino server authentication configuration`,
			err, info.User, info.Catalog)

	case KindQuery:
		return fmt.Sprintf(`❌ Query Error: SQL syntax or parsing error

Details: %v

Troubleshooting:
1. Check SQL syntax for Trino-specific requirements
2. Verify table/schema/catalog names are correct
3. Ensure proper quoting for identifiers with special characters
4. Check Trino SQL documentation for supported syntax`, err)

	default:
		if context == "" {
			context = "No additional context"
		}
		return fmt.Sprintf(`❌ Error: %v

Context: %s

For more help, check:
- Trino server logs
- Network connectivity
- Environment variable configuration`, err, context)
	}
}

// PolicyMessage is the fixed rejection text for statements refused by the
// read-only gate. It names the allowed keyword set and is produced without
// any engine round trip.
func PolicyMessage() string {
	return "❌ Error: Only read-only queries are allowed (" +
		strings.Join(domain.AllowedPrefixes, ", ") + ")"
}
