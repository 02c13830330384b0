package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dikshantks/trino-mcp-server/internal/adapter/mcp"
	"github.com/dikshantks/trino-mcp-server/internal/adapter/trino"
	"github.com/dikshantks/trino-mcp-server/internal/audit"
	"github.com/dikshantks/trino-mcp-server/internal/config"
	"github.com/dikshantks/trino-mcp-server/internal/core/domain"
	"github.com/dikshantks/trino-mcp-server/internal/core/port"
	"github.com/dikshantks/trino-mcp-server/internal/core/service"
	"github.com/dikshantks/trino-mcp-server/internal/diagnose"
	"github.com/dikshantks/trino-mcp-server/internal/policy"
	"github.com/dikshantks/trino-mcp-server/internal/telemetry"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	overrides, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr — stdout is reserved for the MCP stdio transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	logger.Info("starting trino-mcp",
		slog.String("version", version),
		slog.String("host", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		slog.String("user", cfg.User),
		slog.String("catalog", cfg.Catalog),
		slog.String("schema", cfg.Schema),
		slog.Bool("auth", cfg.Password != ""),
		slog.Bool("https", cfg.UseTLS),
		slog.Int("max_rows", cfg.MaxRows),
		slog.String("query_timeout", cfg.QueryTimeout.String()),
		slog.String("log_level", cfg.LogLevel.String()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Observability (optional).
	var tracer trace.Tracer
	var inst port.Instrumentation = telemetry.NoopInstruments()
	if cfg.OTelEnabled {
		provider, err := telemetry.Init(ctx, "trino-mcp-server", version)
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Error("telemetry shutdown", slog.String("error", err.Error()))
			}
		}()
		tracer = otel.Tracer("github.com/dikshantks/trino-mcp-server")
		inst = telemetry.NewInstruments()
	}

	// Domain: the read-only gate, optionally extended from a rules file.
	gate := domain.NewGate()
	if cfg.GateRulesFile != "" {
		rules, err := policy.LoadFromFile(cfg.GateRulesFile)
		if err != nil {
			return fmt.Errorf("loading gate rules: %w", err)
		}
		if err := rules.Apply(gate); err != nil {
			return fmt.Errorf("applying gate rules: %w", err)
		}
		logger.Info("gate rules loaded", slog.String("file", cfg.GateRulesFile))
	}

	// Adapter: one fresh engine connection per call, no pooling.
	client, err := trino.NewClient(trino.Params{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		UseTLS:   cfg.UseTLS,
		Catalog:  cfg.Catalog,
		Schema:   cfg.Schema,
	}, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("configuring trino client: %w", err)
	}

	var auditor port.QueryAuditor = audit.NoopAuditor{}
	if cfg.AuditLog != "" {
		fileAuditor, err := audit.NewFileAuditor(cfg.AuditLog)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		defer fileAuditor.Close()
		auditor = fileAuditor
		logger.Info("audit log enabled", slog.String("file", cfg.AuditLog))
	}

	// Services.
	querySvc := service.NewQueryService(gate, client, auditor, logger, cfg.MaxRows, tracer, inst)
	explorerSvc := service.NewExplorerService(client, client, service.Defaults{
		Catalog: cfg.Catalog,
		Schema:  cfg.Schema,
	}, cfg.MaxRows)

	info := diagnose.Info{
		Host:        cfg.Host,
		Port:        cfg.Port,
		User:        cfg.User,
		Catalog:     cfg.Catalog,
		Schema:      cfg.Schema,
		AuthEnabled: cfg.Password != "",
		TLS:         cfg.UseTLS,
	}

	mcpServer := mcp.NewServer(version, explorerSvc, querySvc, info, logger, tracer, inst)

	// Startup probe: non-fatal, the real check is the test_connection tool.
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := client.Ping(probeCtx); err != nil {
		logger.Warn("could not connect to Trino on startup; will retry when tools are used",
			slog.String("error", err.Error()))
	} else {
		logger.Info("connected to Trino")
	}
	cancel()

	switch cfg.Transport {
	case "http":
		return serveHTTP(ctx, mcpServer, cfg, logger)
	default:
		return serveStdio(ctx, mcpServer, logger)
	}
}

func serveStdio(ctx context.Context, mcpServer *mcpserver.MCPServer, logger *slog.Logger) error {
	stdioServer := mcpserver.NewStdioServer(mcpServer)

	logger.Info("serving MCP over stdio")
	if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("stdio server: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func serveHTTP(ctx context.Context, mcpServer *mcpserver.MCPServer, cfg *config.Config, logger *slog.Logger) error {
	httpTransport := mcpserver.NewStreamableHTTPServer(mcpServer)

	mux := http.NewServeMux()
	mux.Handle("/mcp", bearerAuthMiddleware(httpTransport, cfg.HTTPBearerToken))
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: recoveryMiddleware(mux, logger),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving MCP over HTTP", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
