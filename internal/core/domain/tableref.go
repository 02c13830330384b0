package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrEmptyTable        = errors.New("table name is required")
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// Identifier parts are interpolated into generated SQL without engine-side
// quoting, so the allowed character set is deliberately strict.
var identPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateIdentifier checks a single catalog, schema, or table name part.
func ValidateIdentifier(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("%w: %q (allowed: letters, digits, underscore)", ErrInvalidIdentifier, name)
	}
	return nil
}

// TableRef is a fully-qualified table reference. Missing catalog or schema
// parts are filled from the configured defaults at construction time.
type TableRef struct {
	Catalog string
	Schema  string
	Table   string
}

// ResolveTableRef builds a TableRef from caller-supplied parts, defaulting
// catalog and schema, and validating every part before it can reach a
// generated statement.
func ResolveTableRef(catalog, schema, table, defaultCatalog, defaultSchema string) (TableRef, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return TableRef{}, ErrEmptyTable
	}

	ref := TableRef{
		Catalog: firstNonEmpty(strings.TrimSpace(catalog), defaultCatalog),
		Schema:  firstNonEmpty(strings.TrimSpace(schema), defaultSchema),
		Table:   table,
	}

	for _, part := range []string{ref.Catalog, ref.Schema, ref.Table} {
		if err := ValidateIdentifier(part); err != nil {
			return TableRef{}, err
		}
	}
	return ref, nil
}

// String renders the reference as catalog.schema.table for interpolation
// into SHOW COLUMNS, DESCRIBE, SELECT COUNT(*) and similar statements.
func (r TableRef) String() string {
	return r.Catalog + "." + r.Schema + "." + r.Table
}

func firstNonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
