package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/animals/internal/analyzer"
)

// CreateIndexRule flags CREATE INDEX without CONCURRENTLY on an existing table.
type CreateIndexRule struct{}

// NewCreateIndexRule creates a new CreateIndexRule.
func NewCreateIndexRule() *CreateIndexRule { return &CreateIndexRule{} }

// ID returns the rule identifier.
func (r *CreateIndexRule) ID() string { return "create-index-not-concurrent" }

// Check examines a statement for non-concurrent CREATE INDEX.
func (r *CreateIndexRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_IndexStmt)
	if !ok {
		return nil
	}

	idx := node.IndexStmt
	table := analyzer.TableName(idx.Relation)

	if idx.Concurrent || ctx.CreatedEarlier(table) {
		return nil
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.High,
		Table:      table,
		Message:    "CREATE INDEX without CONCURRENTLY blocks writes to the table while the index builds",
		Suggestion: "Use CREATE INDEX CONCURRENTLY in a migration of its own",
		LockType:   "SHARE",
		StmtIndex:  ctx.StmtIndex,
	}}
}
