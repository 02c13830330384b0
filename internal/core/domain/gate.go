package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Decision is the outcome of validating a SQL statement against the
// read-only gate. A rejected decision carries a human-readable reason.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func reject(reason string) Decision { return Decision{Reason: reason} }

// forbiddenRule pairs a display name with its word-boundary-anchored pattern.
// Patterns are matched against the uppercased normalized statement.
type forbiddenRule struct {
	name string
	re   *regexp.Regexp
}

// The canonical mutation patterns. Word boundaries keep identifiers that
// merely contain a verb (a column named "updates", a table named
// "deleted_records") from triggering a match on their own.
var canonicalForbidden = []forbiddenRule{
	{"INSERT INTO", regexp.MustCompile(`\bINSERT\s+INTO\b`)},
	{"UPDATE ... SET", regexp.MustCompile(`\bUPDATE\s+\w+\s+SET\b`)},
	{"DELETE FROM", regexp.MustCompile(`\bDELETE\s+FROM\b`)},
	{"CREATE TABLE/VIEW/SCHEMA/DATABASE", regexp.MustCompile(`\bCREATE\s+(TABLE|VIEW|SCHEMA|DATABASE)\b`)},
	{"DROP TABLE/VIEW/SCHEMA/DATABASE", regexp.MustCompile(`\bDROP\s+(TABLE|VIEW|SCHEMA|DATABASE)\b`)},
	{"ALTER TABLE/VIEW/SCHEMA/DATABASE", regexp.MustCompile(`\bALTER\s+(TABLE|VIEW|SCHEMA|DATABASE)\b`)},
	{"MERGE INTO", regexp.MustCompile(`\bMERGE\s+INTO\b`)},
	{"TRUNCATE TABLE", regexp.MustCompile(`\bTRUNCATE\s+TABLE\b`)},
	{"GRANT ... ON", regexp.MustCompile(`\bGRANT\s+\w+\s+ON\b`)},
	{"REVOKE ... ON", regexp.MustCompile(`\bREVOKE\s+\w+\s+ON\b`)},
}

// AllowedPrefixes are the leading keywords a statement may start with after
// normalization. Exported so the policy-rejection message and tool
// descriptions can name them without drifting out of sync.
var AllowedPrefixes = []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "DESC", "EXPLAIN", "VALUES"}

var (
	lineComments   = regexp.MustCompile(`--[^\n]*`)
	blockComments  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// Normalize strips line and block comments from a SQL statement, collapses
// whitespace runs to single spaces, and trims. It is recomputed on every
// validation call and is idempotent.
func Normalize(sql string) string {
	s := lineComments.ReplaceAllString(sql, "")
	s = blockComments.ReplaceAllString(s, "")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Gate classifies SQL text as safe to forward to the engine or not. It is a
// lexical guardrail against accidental mutation, not a parser and not a
// trust boundary against a hostile caller with engine access: engine-specific
// mutating procedures outside the pattern list will pass it.
//
// Validate is a pure function of the statement and the gate's rule set.
// It performs no I/O and never panics.
type Gate struct {
	forbidden []forbiddenRule
	prefixes  []string
}

// NewGate returns a gate with the canonical forbidden patterns and allowed
// prefixes. Extensions only ever add rules; the canonical set cannot be
// removed.
func NewGate() *Gate {
	return &Gate{
		forbidden: append([]forbiddenRule(nil), canonicalForbidden...),
		prefixes:  append([]string(nil), AllowedPrefixes...),
	}
}

// ExtendForbidden registers an additional forbidden pattern. The expression
// is matched case-insensitively against the uppercased normalized statement,
// so it should be written in uppercase (e.g. `\bCALL\s+SYSTEM\b`).
func (g *Gate) ExtendForbidden(name, expr string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("compiling forbidden pattern %q: %w", name, err)
	}
	g.forbidden = append(g.forbidden, forbiddenRule{name: name, re: re})
	return nil
}

// ExtendPrefixes registers additional allowed leading keywords.
func (g *Gate) ExtendPrefixes(prefixes ...string) {
	for _, p := range prefixes {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			g.prefixes = append(g.prefixes, p)
		}
	}
}

// Validate decides whether a raw SQL statement may be forwarded. The
// forbidden scan runs before the prefix check and short-circuits on the
// first match, so a mutating statement is named by the pattern it matched
// even if it also fails the prefix check.
func (g *Gate) Validate(raw string) Decision {
	normalized := Normalize(raw)
	upper := strings.ToUpper(normalized)

	for _, rule := range g.forbidden {
		if rule.re.MatchString(upper) {
			return reject("forbidden pattern: " + rule.name)
		}
	}

	head := upper
	if strings.HasPrefix(head, "(") {
		// Parenthesized CTEs and subqueries: check the first keyword inside.
		head = strings.TrimLeft(head, "( ")
	}
	for _, prefix := range g.prefixes {
		if strings.HasPrefix(head, prefix) {
			return allow()
		}
	}

	return reject("does not start with an allowed keyword")
}
