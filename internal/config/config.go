// Package config resolves process-wide settings once at startup from
// environment variables and CLI flag overrides. The resulting value is
// immutable and passed into constructors; nothing reads env vars after Load.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Trino connection.
	Host     string
	Port     int
	User     string
	Password string
	UseTLS   bool

	// Default namespace for unqualified table references.
	Catalog string
	Schema  string

	// Query behavior.
	MaxRows      int
	QueryTimeout time.Duration

	// Optional gate extensions (YAML file, see internal/policy).
	GateRulesFile string

	// Logging.
	LogLevel slog.Level

	// Transport.
	Transport       string // "stdio" (default) or "http"
	HTTPAddr        string // listen address for HTTP transport (default ":8080")
	HTTPBearerToken string // required when transport=http

	// Observability.
	OTelEnabled bool

	// CLI-only fields (not settable via env vars).
	AuditLog string // path to NDJSON audit log file
}

// Overrides holds CLI flag values that override environment variables.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	Host          *string
	Port          *int
	User          *string
	Password      *string
	UseTLS        *bool
	Catalog       *string
	Schema        *string
	MaxRows       *int
	QueryTimeout  *time.Duration
	GateRulesFile *string
	LogLevel      *string
	Transport     *string
	HTTPAddr      *string
	HTTPBearer    *string
	OTelEnabled   bool
	AuditLog      string
}

// Load builds a Config from environment variables, then applies CLI
// overrides, then validates the result.
func Load(overrides Overrides) (*Config, error) {
	cfg := defaults()

	if err := loadEnvVars(cfg); err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Host:         os.Getenv("TRINO_HOST"),
		Port:         8088,
		User:         "trino",
		Catalog:      "tpch",
		Schema:       "tiny",
		MaxRows:      100,
		QueryTimeout: 30 * time.Second,
		Transport:    "stdio",
		HTTPAddr:     ":8080",
	}
}

func loadEnvVars(cfg *Config) error {
	if v := os.Getenv("TRINO_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 65535 {
			return fmt.Errorf("invalid TRINO_PORT value %q: must be a port number", v)
		}
		cfg.Port = n
	}

	if v := os.Getenv("TRINO_USER"); v != "" {
		cfg.User = v
	}
	cfg.Password = os.Getenv("TRINO_PASSWORD")

	if v := os.Getenv("TRINO_USE_HTTPS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TRINO_USE_HTTPS value %q: %w", v, err)
		}
		cfg.UseTLS = b
	}

	if v := os.Getenv("TRINO_CATALOG"); v != "" {
		cfg.Catalog = v
	}
	if v := os.Getenv("TRINO_SCHEMA"); v != "" {
		cfg.Schema = v
	}

	if v := os.Getenv("MAX_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid MAX_ROWS value %q: must be a positive integer", v)
		}
		cfg.MaxRows = n
	}

	if v := os.Getenv("QUERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid QUERY_TIMEOUT value %q: %w", v, err)
		}
		cfg.QueryTimeout = d
	}

	cfg.GateRulesFile = os.Getenv("GATE_RULES_FILE")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	if v := os.Getenv("TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.HTTPBearerToken = os.Getenv("HTTP_BEARER_TOKEN")

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OTEL_ENABLED value %q: %w", v, err)
		}
		cfg.OTelEnabled = b
	}

	return nil
}

func applyOverrides(cfg *Config, o Overrides) error {
	if o.Host != nil {
		cfg.Host = *o.Host
	}
	if o.Port != nil {
		if *o.Port < 1 || *o.Port > 65535 {
			return fmt.Errorf("invalid --port value: must be a port number")
		}
		cfg.Port = *o.Port
	}
	if o.User != nil {
		cfg.User = *o.User
	}
	if o.Password != nil {
		cfg.Password = *o.Password
	}
	if o.UseTLS != nil {
		cfg.UseTLS = *o.UseTLS
	}
	if o.Catalog != nil {
		cfg.Catalog = *o.Catalog
	}
	if o.Schema != nil {
		cfg.Schema = *o.Schema
	}
	if o.MaxRows != nil {
		if *o.MaxRows <= 0 {
			return fmt.Errorf("invalid --max-rows value: must be a positive integer")
		}
		cfg.MaxRows = *o.MaxRows
	}
	if o.QueryTimeout != nil {
		cfg.QueryTimeout = *o.QueryTimeout
	}
	if o.GateRulesFile != nil {
		cfg.GateRulesFile = *o.GateRulesFile
	}
	if o.LogLevel != nil {
		level, err := parseLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if o.Transport != nil {
		cfg.Transport = *o.Transport
	}
	if o.HTTPAddr != nil {
		cfg.HTTPAddr = *o.HTTPAddr
	}
	if o.HTTPBearer != nil {
		cfg.HTTPBearerToken = *o.HTTPBearer
	}

	cfg.AuditLog = o.AuditLog
	cfg.OTelEnabled = cfg.OTelEnabled || o.OTelEnabled

	return nil
}

func validate(cfg *Config) error {
	if cfg.Host == "" {
		return fmt.Errorf("TRINO_HOST is required (set via env var or --host flag)")
	}
	if cfg.User == "" {
		return fmt.Errorf("TRINO_USER must not be empty")
	}
	if cfg.QueryTimeout <= 0 {
		return fmt.Errorf("QUERY_TIMEOUT must be positive")
	}

	switch cfg.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid TRANSPORT value %q: must be \"stdio\" or \"http\"", cfg.Transport)
	}

	if cfg.Transport == "http" && cfg.HTTPBearerToken == "" {
		return fmt.Errorf("HTTP_BEARER_TOKEN is required when transport is \"http\"")
	}

	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}
