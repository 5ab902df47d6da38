package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/animals/internal/analyzer"
)

const pgVersionSafeNonVolatileDefault = 11

// AddColumnRule flags ADD COLUMN forms that rewrite or fail on a populated table:
// a volatile DEFAULT (any DEFAULT before PG 11), or NOT NULL without a DEFAULT.
type AddColumnRule struct{}

// NewAddColumnRule creates a new AddColumnRule.
func NewAddColumnRule() *AddColumnRule { return &AddColumnRule{} }

// ID returns the rule identifier.
func (r *AddColumnRule) ID() string { return "add-column" }

// Check examines every ADD COLUMN in an ALTER TABLE statement.
func (r *AddColumnRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_AlterTableStmt)
	if !ok {
		return nil
	}

	alt := node.AlterTableStmt
	table := analyzer.TableName(alt.Relation)

	if ctx.CreatedEarlier(table) {
		return nil
	}

	var findings []analyzer.Finding

	for _, cmd := range alterCommands(alt, pg_query.AlterTableType_AT_AddColumn) {
		colDef := columnDef(cmd)
		if colDef == nil {
			continue
		}

		if f := r.checkColumn(colDef, table, ctx); f != nil {
			findings = append(findings, *f)
		}
	}

	return findings
}

func (r *AddColumnRule) checkColumn(colDef *pg_query.ColumnDef, table string, ctx *analyzer.RuleContext) *analyzer.Finding {
	defaultExpr := findConstraint(colDef, pg_query.ConstrType_CONSTR_DEFAULT)

	if defaultExpr == nil {
		if findConstraint(colDef, pg_query.ConstrType_CONSTR_NOTNULL) == nil {
			return nil
		}

		return &analyzer.Finding{
			Rule:       r.ID(),
			Severity:   analyzer.High,
			Table:      table,
			Message:    "ADD COLUMN " + colDef.Colname + " NOT NULL without DEFAULT fails if the table has rows",
			Suggestion: "Add the column as nullable, backfill, then SET NOT NULL",
			LockType:   "ACCESS EXCLUSIVE",
			StmtIndex:  ctx.StmtIndex,
		}
	}

	if ctx.TargetPGVersion >= pgVersionSafeNonVolatileDefault && !isVolatileDefault(defaultExpr.RawExpr) {
		return nil
	}

	msg := "ADD COLUMN with volatile DEFAULT rewrites the entire table"
	if ctx.TargetPGVersion < pgVersionSafeNonVolatileDefault {
		msg = "ADD COLUMN with DEFAULT rewrites the entire table on PG < 11"
	}

	return &analyzer.Finding{
		Rule:       r.ID(),
		Severity:   analyzer.High,
		Table:      table,
		Message:    msg,
		Suggestion: "Add column without DEFAULT, then backfill in batches",
		LockType:   "ACCESS EXCLUSIVE",
		StmtIndex:  ctx.StmtIndex,
	}
}

// isVolatileDefault treats constants and casts of constants as stable and
// everything else (now(), gen_random_uuid(), ...) as volatile.
func isVolatileDefault(node *pg_query.Node) bool {
	if node == nil {
		return false
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_AConst:
		return false
	case *pg_query.Node_TypeCast:
		if n.TypeCast.Arg != nil {
			if _, ok := n.TypeCast.Arg.Node.(*pg_query.Node_AConst); ok {
				return false
			}
		}

		return true
	default:
		return true
	}
}
