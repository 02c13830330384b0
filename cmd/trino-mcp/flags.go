package main

import (
	"flag"
	"io"

	"github.com/dikshantks/trino-mcp-server/internal/config"
)

// parseFlags parses CLI arguments into config.Overrides. Only flags the
// caller actually set become non-nil, so defaults and env vars survive.
func parseFlags(args []string) (config.Overrides, error) {
	var o config.Overrides

	fs := flag.NewFlagSet("trino-mcp", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	host := fs.String("host", "", "Trino coordinator host (overrides TRINO_HOST)")
	port := fs.Int("port", 0, "Trino coordinator port (overrides TRINO_PORT)")
	user := fs.String("user", "", "Trino user (overrides TRINO_USER)")
	password := fs.String("password", "", "Trino password (overrides TRINO_PASSWORD)")
	useTLS := fs.Bool("https", false, "use HTTPS to reach Trino (overrides TRINO_USE_HTTPS)")
	catalog := fs.String("catalog", "", "default catalog (overrides TRINO_CATALOG)")
	schema := fs.String("schema", "", "default schema (overrides TRINO_SCHEMA)")
	maxRows := fs.Int("max-rows", 0, "row cap for raw queries (overrides MAX_ROWS)")
	queryTimeout := fs.Duration("query-timeout", 0, "per-query timeout (overrides QUERY_TIMEOUT)")
	gateRules := fs.String("gate-rules", "", "YAML file extending the read-only gate (overrides GATE_RULES_FILE)")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	transport := fs.String("transport", "", "transport: stdio or http (overrides TRANSPORT)")
	httpAddr := fs.String("http-addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	httpBearer := fs.String("http-bearer-token", "", "bearer token for HTTP transport (overrides HTTP_BEARER_TOKEN)")
	otelEnabled := fs.Bool("otel", false, "enable OpenTelemetry tracing and metrics")
	auditLog := fs.String("audit-log", "", "append NDJSON audit entries to this file")

	if err := fs.Parse(args); err != nil {
		return o, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			o.Host = host
		case "port":
			o.Port = port
		case "user":
			o.User = user
		case "password":
			o.Password = password
		case "https":
			o.UseTLS = useTLS
		case "catalog":
			o.Catalog = catalog
		case "schema":
			o.Schema = schema
		case "max-rows":
			o.MaxRows = maxRows
		case "query-timeout":
			o.QueryTimeout = queryTimeout
		case "gate-rules":
			o.GateRulesFile = gateRules
		case "log-level":
			o.LogLevel = logLevel
		case "transport":
			o.Transport = transport
		case "http-addr":
			o.HTTPAddr = httpAddr
		case "http-bearer-token":
			o.HTTPBearer = httpBearer
		}
	})

	o.OTelEnabled = *otelEnabled
	o.AuditLog = *auditLog

	return o, nil
}
