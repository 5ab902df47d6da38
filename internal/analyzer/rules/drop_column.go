package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/animals/internal/analyzer"
)

// DropColumnRule flags ALTER TABLE ... DROP COLUMN.
type DropColumnRule struct{}

// NewDropColumnRule creates a new DropColumnRule.
func NewDropColumnRule() *DropColumnRule { return &DropColumnRule{} }

// ID returns the rule identifier.
func (r *DropColumnRule) ID() string { return "drop-column" }

// Check examines every DROP COLUMN in an ALTER TABLE statement.
func (r *DropColumnRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_AlterTableStmt)
	if !ok {
		return nil
	}

	alt := node.AlterTableStmt
	var findings []analyzer.Finding

	for _, cmd := range alterCommands(alt, pg_query.AlterTableType_AT_DropColumn) {
		findings = append(findings, analyzer.Finding{
			Rule:       r.ID(),
			Severity:   analyzer.High,
			Table:      analyzer.TableName(alt.Relation),
			Message:    "DROP COLUMN " + cmd.Name + " discards its data and breaks code still selecting it",
			Suggestion: "Stop reading the column in application code first, then drop it in a later release",
			LockType:   "ACCESS EXCLUSIVE",
			StmtIndex:  ctx.StmtIndex,
		})
	}

	return findings
}
