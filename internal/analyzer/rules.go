package analyzer

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/animals/internal/migration"
)

// Rule inspects one parsed statement at a time.
type Rule interface {
	// ID returns a unique kebab-case identifier for this rule.
	ID() string
	// Check examines a single parsed statement and returns any findings.
	Check(stmt *pg_query.RawStmt, ctx *RuleContext) []Finding
}

// RuleContext provides contextual information to rules during analysis.
type RuleContext struct {
	Migration       *migration.Migration
	TargetPGVersion int
	StmtIndex       int
	SQL             string
	// Stmts is every statement of the migration, for rules that look ahead.
	Stmts []*pg_query.RawStmt

	createdTables map[string]bool
}

// CreatedEarlier reports whether table was created by a statement that
// precedes the current one in the same migration, and is therefore empty.
func (c *RuleContext) CreatedEarlier(table string) bool {
	return c.createdTables[table]
}

// Registry holds a collection of rules.
type Registry struct {
	rules []Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a rule to the registry.
func (r *Registry) Register(rule Rule) {
	r.rules = append(r.rules, rule)
}

// Rules returns all registered rules.
func (r *Registry) Rules() []Rule {
	return r.rules
}

// TableName extracts a qualified table name from a RangeVar.
func TableName(rv *pg_query.RangeVar) string {
	if rv == nil {
		return "<unknown>"
	}

	if rv.Schemaname != "" {
		return rv.Schemaname + "." + rv.Relname
	}

	return rv.Relname
}
