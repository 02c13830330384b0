package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dikshantks/trino-mcp-server/internal/core/domain"
	"github.com/dikshantks/trino-mcp-server/internal/core/port"
)

// ErrInvalidLimit marks a sample_table limit that did not parse as an
// integer. No statement is executed for it.
var ErrInvalidLimit = errors.New("invalid limit value")

const (
	// metadataRowLimit bounds DESCRIBE, SHOW COLUMNS, and SHOW STATS
	// output: wide tables can carry well over a hundred columns.
	metadataRowLimit = 1000

	defaultSampleLimit = 10
	maxSampleLimit     = 100
)

// Defaults are the catalog and schema filled in when a tool call omits them.
type Defaults struct {
	Catalog string
	Schema  string
}

// TableStats bundles the two statements behind the table_stats tool.
type TableStats struct {
	Table    string
	RowCount int64
	Stats    *port.ResultSet
}

// ExplorerService implements the catalog/schema/table metadata operations by
// generating engine statements from validated identifiers.
type ExplorerService struct {
	executor port.QueryExecutor
	prober   port.EngineProber
	defaults Defaults
	maxRows  int
}

func NewExplorerService(executor port.QueryExecutor, prober port.EngineProber, defaults Defaults, maxRows int) *ExplorerService {
	return &ExplorerService{
		executor: executor,
		prober:   prober,
		defaults: defaults,
		maxRows:  maxRows,
	}
}

func (s *ExplorerService) ListCatalogs(ctx context.Context) (*port.ResultSet, error) {
	return s.executor.Execute(ctx, "SHOW CATALOGS", s.maxRows)
}

// ListSchemas lists schemas in the given catalog, or in the connection's
// default catalog when none is supplied. Returns the catalog name the
// listing is scoped to.
func (s *ExplorerService) ListSchemas(ctx context.Context, catalog string) (*port.ResultSet, string, error) {
	catalog = strings.TrimSpace(catalog)
	if catalog == "" {
		rs, err := s.executor.Execute(ctx, "SHOW SCHEMAS", s.maxRows)
		return rs, s.defaults.Catalog, err
	}
	if err := domain.ValidateIdentifier(catalog); err != nil {
		return nil, "", err
	}
	rs, err := s.executor.Execute(ctx, "SHOW SCHEMAS FROM "+catalog, s.maxRows)
	return rs, catalog, err
}

// ListTables lists tables in catalog.schema, defaulting missing parts.
// Returns the "catalog.schema" scope string.
func (s *ExplorerService) ListTables(ctx context.Context, catalog, schema string) (*port.ResultSet, string, error) {
	catalog = firstNonEmpty(strings.TrimSpace(catalog), s.defaults.Catalog)
	schema = firstNonEmpty(strings.TrimSpace(schema), s.defaults.Schema)
	for _, part := range []string{catalog, schema} {
		if err := domain.ValidateIdentifier(part); err != nil {
			return nil, "", err
		}
	}
	scope := catalog + "." + schema
	rs, err := s.executor.Execute(ctx, "SHOW TABLES FROM "+scope, s.maxRows)
	return rs, scope, err
}

func (s *ExplorerService) DescribeTable(ctx context.Context, catalog, schema, table string) (*port.ResultSet, string, error) {
	ref, err := s.resolve(catalog, schema, table)
	if err != nil {
		return nil, "", err
	}
	rs, err := s.executor.Execute(ctx, "DESCRIBE "+ref.String(), metadataRowLimit)
	return rs, ref.String(), err
}

func (s *ExplorerService) ListColumns(ctx context.Context, catalog, schema, table string) (*port.ResultSet, string, error) {
	ref, err := s.resolve(catalog, schema, table)
	if err != nil {
		return nil, "", err
	}
	rs, err := s.executor.Execute(ctx, "SHOW COLUMNS FROM "+ref.String(), metadataRowLimit)
	return rs, ref.String(), err
}

// TableStats fetches the exact row count and the engine's column statistics.
func (s *ExplorerService) TableStats(ctx context.Context, catalog, schema, table string) (*TableStats, error) {
	ref, err := s.resolve(catalog, schema, table)
	if err != nil {
		return nil, err
	}

	countRS, err := s.executor.Execute(ctx, "SELECT COUNT(*) AS row_count FROM "+ref.String(), 1)
	if err != nil {
		return nil, err
	}
	var rowCount int64
	if len(countRS.Rows) > 0 && len(countRS.Rows[0]) > 0 {
		rowCount = toInt64(countRS.Rows[0][0])
	}

	statsRS, err := s.executor.Execute(ctx, "SHOW STATS FOR "+ref.String(), metadataRowLimit)
	if err != nil {
		return nil, err
	}

	return &TableStats{Table: ref.String(), RowCount: rowCount, Stats: statsRS}, nil
}

// SampleTable fetches up to limit rows from the table. The limit is supplied
// as text, defaults to 10, and is clamped to 100; non-numeric text is an
// error with no statement executed. Returns the table name and the
// effective limit alongside the rows.
func (s *ExplorerService) SampleTable(ctx context.Context, catalog, schema, table, limit string) (*port.ResultSet, string, int, error) {
	ref, err := s.resolve(catalog, schema, table)
	if err != nil {
		return nil, "", 0, err
	}

	n, err := parseSampleLimit(limit)
	if err != nil {
		return nil, "", 0, err
	}

	sql := fmt.Sprintf("SELECT * FROM %s LIMIT %d", ref.String(), n)
	rs, err := s.executor.Execute(ctx, sql, n)
	return rs, ref.String(), n, err
}

// TestConnection probes the engine: version lookup is best-effort, the
// SELECT 1 round trip is the actual reachability check.
func (s *ExplorerService) TestConnection(ctx context.Context) (string, error) {
	version, _ := s.prober.Version(ctx)
	if _, err := s.executor.Execute(ctx, "SELECT 1 AS test", 1); err != nil {
		return "", err
	}
	return version, nil
}

func (s *ExplorerService) resolve(catalog, schema, table string) (domain.TableRef, error) {
	return domain.ResolveTableRef(catalog, schema, table, s.defaults.Catalog, s.defaults.Schema)
}

func parseSampleLimit(limit string) (int, error) {
	limit = strings.TrimSpace(limit)
	if limit == "" {
		return defaultSampleLimit, nil
	}
	n, err := strconv.Atoi(limit)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLimit, limit)
	}
	if n > maxSampleLimit {
		n = maxSampleLimit
	}
	return n, nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		parsed, _ := strconv.ParseInt(n, 10, 64)
		return parsed
	default:
		return 0
	}
}

func firstNonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
