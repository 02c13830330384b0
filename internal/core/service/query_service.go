package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dikshantks/trino-mcp-server/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ErrRejected marks statements refused by the read-only gate. The tool
// boundary maps it to the fixed policy message; it is never forwarded to
// the engine.
var ErrRejected = errors.New("rejected by read-only gate")

type toolNameKey struct{}

// WithToolName returns a context carrying the MCP tool name for audit logging.
func WithToolName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, toolNameKey{}, name)
}

func toolNameFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(toolNameKey{}).(string); ok {
		return v
	}
	return ""
}

// QueryService runs caller-supplied SQL through the gate and, when allowed,
// through the executor with the raw-query row cap.
type QueryService struct {
	validator port.QueryValidator
	executor  port.QueryExecutor
	auditor   port.QueryAuditor
	logger    *slog.Logger
	maxRows   int
	tracer    trace.Tracer
	inst      port.Instrumentation
}

func NewQueryService(validator port.QueryValidator, executor port.QueryExecutor, auditor port.QueryAuditor, logger *slog.Logger, maxRows int, tracer trace.Tracer, inst port.Instrumentation) *QueryService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &QueryService{
		validator: validator,
		executor:  executor,
		auditor:   auditor,
		logger:    logger,
		maxRows:   maxRows,
		tracer:    tracer,
		inst:      inst,
	}
}

// Run validates the statement and, if allowed, executes it. A rejected
// statement returns ErrRejected without any engine contact.
func (s *QueryService) Run(ctx context.Context, sql string) (*port.ResultSet, error) {
	ctx, span := s.tracer.Start(ctx, "QueryService.Run",
		trace.WithAttributes(
			attribute.String("db.system", "trino"),
			attribute.String("db.operation.name", "query"),
			attribute.String("db.statement", sql),
		),
	)
	defer span.End()

	decision := s.validator.Validate(sql)
	if !decision.Allowed {
		s.logger.WarnContext(ctx, "query rejected by gate",
			slog.String("db.statement", sql),
			slog.String("reason", decision.Reason),
		)
		err := fmt.Errorf("%w: %s", ErrRejected, decision.Reason)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementQueryErrors(ctx)
		return nil, err
	}

	start := time.Now()
	rs, err := s.executor.Execute(ctx, sql, s.maxRows)
	durationMS := time.Since(start).Milliseconds()

	s.inst.RecordQueryDuration(ctx, float64(durationMS))

	rowsReturned := 0
	if rs != nil {
		rowsReturned = len(rs.Rows)
	}
	s.auditor.Record(ctx, port.AuditEntry{
		Tool:         toolNameFromCtx(ctx),
		SQL:          sql,
		RowsReturned: rowsReturned,
		DurationMS:   durationMS,
		Err:          err,
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementQueryErrors(ctx)
		return nil, err
	}

	s.inst.IncrementQueryCount(ctx)
	span.SetAttributes(attribute.Int("db.response.rows", rowsReturned))
	return rs, nil
}

// MaxRows is the row cap applied to raw queries.
func (s *QueryService) MaxRows() int { return s.maxRows }
