package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dikshantks/trino-mcp-server/internal/core/domain"
	"github.com/dikshantks/trino-mcp-server/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor records every statement it receives and replies from a
// per-statement script.
type fakeExecutor struct {
	mu       sync.Mutex
	calls    []executedCall
	results  map[string]*port.ResultSet
	fallback *port.ResultSet
	err      error
}

type executedCall struct {
	sql      string
	rowLimit int
}

func (f *fakeExecutor) Execute(_ context.Context, sql string, rowLimit int) (*port.ResultSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, executedCall{sql: sql, rowLimit: rowLimit})
	if f.err != nil {
		return nil, f.err
	}
	if rs, ok := f.results[sql]; ok {
		return rs, nil
	}
	if f.fallback != nil {
		return f.fallback, nil
	}
	return &port.ResultSet{Columns: []string{"col"}, Rows: [][]any{{"value"}}}, nil
}

func (f *fakeExecutor) executed() []executedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]executedCall(nil), f.calls...)
}

type fakeProber struct {
	version string
	pingErr error
}

func (f *fakeProber) Ping(context.Context) error { return f.pingErr }

func (f *fakeProber) Version(context.Context) (string, error) {
	if f.version == "" {
		return "", errors.New("version unavailable")
	}
	return f.version, nil
}

// memAuditor captures audit entries in memory.
type memAuditor struct {
	mu      sync.Mutex
	entries []port.AuditEntry
}

func (a *memAuditor) Record(_ context.Context, entry port.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *memAuditor) Close() error { return nil }

func (a *memAuditor) recorded() []port.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]port.AuditEntry(nil), a.entries...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newQueryService(exec *fakeExecutor, auditor *memAuditor, maxRows int) *QueryService {
	return NewQueryService(domain.NewGate(), exec, auditor, discardLogger(), maxRows, nil, nil)
}

func TestQueryService_Run_AllowedQuery(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{fallback: &port.ResultSet{
		Columns: []string{"id"},
		Rows:    [][]any{{int64(1)}, {int64(2)}},
	}}
	auditor := &memAuditor{}
	svc := newQueryService(exec, auditor, 100)

	rs, err := svc.Run(context.Background(), "SELECT id FROM orders")
	require.NoError(t, err)
	require.NotNil(t, rs)
	assert.Len(t, rs.Rows, 2)

	calls := exec.executed()
	require.Len(t, calls, 1)
	assert.Equal(t, "SELECT id FROM orders", calls[0].sql)
	assert.Equal(t, 100, calls[0].rowLimit)
}

func TestQueryService_Run_RejectedQueryNeverReachesEngine(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{}
	auditor := &memAuditor{}
	svc := newQueryService(exec, auditor, 100)

	rs, err := svc.Run(context.Background(), "DROP TABLE orders")
	require.Error(t, err)
	assert.Nil(t, rs)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Empty(t, exec.executed(), "rejected statement must not be executed")
	assert.Empty(t, auditor.recorded(), "rejection happens before the audit point")
}

func TestQueryService_Run_RejectionReasonInError(t *testing.T) {
	t.Parallel()

	svc := newQueryService(&fakeExecutor{}, &memAuditor{}, 100)

	_, err := svc.Run(context.Background(), "DELETE FROM orders")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DELETE FROM")
}

func TestQueryService_Run_ExecutorErrorPropagates(t *testing.T) {
	t.Parallel()

	engineErr := errors.New("connection refused")
	exec := &fakeExecutor{err: engineErr}
	auditor := &memAuditor{}
	svc := newQueryService(exec, auditor, 100)

	_, err := svc.Run(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, engineErr)

	entries := auditor.recorded()
	require.Len(t, entries, 1)
	assert.Equal(t, "SELECT 1", entries[0].SQL)
	assert.Equal(t, engineErr, entries[0].Err)
	assert.Zero(t, entries[0].RowsReturned)
}

func TestQueryService_Run_AuditsSuccessWithToolName(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{fallback: &port.ResultSet{
		Columns: []string{"n"},
		Rows:    [][]any{{int64(1)}},
	}}
	auditor := &memAuditor{}
	svc := newQueryService(exec, auditor, 100)

	ctx := WithToolName(context.Background(), "run_query")
	_, err := svc.Run(ctx, "SELECT 1")
	require.NoError(t, err)

	entries := auditor.recorded()
	require.Len(t, entries, 1)
	assert.Equal(t, "run_query", entries[0].Tool)
	assert.Equal(t, 1, entries[0].RowsReturned)
	assert.NoError(t, entries[0].Err)
}

func TestQueryService_MaxRows(t *testing.T) {
	t.Parallel()

	svc := newQueryService(&fakeExecutor{}, &memAuditor{}, 42)
	assert.Equal(t, 42, svc.MaxRows())
}
