package rules

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/animals/internal/analyzer"
)

// DropTableRule flags DROP TABLE and TRUNCATE.
type DropTableRule struct{}

// NewDropTableRule creates a new DropTableRule.
func NewDropTableRule() *DropTableRule { return &DropTableRule{} }

// ID returns the rule identifier.
func (r *DropTableRule) ID() string { return "drop-table" }

// Check examines a statement for DROP TABLE or TRUNCATE.
func (r *DropTableRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	var (
		tables []string
		msg    string
	)

	switch node := stmt.Stmt.Node.(type) {
	case *pg_query.Node_DropStmt:
		if node.DropStmt.RemoveType != pg_query.ObjectType_OBJECT_TABLE {
			return nil
		}

		tables = dropTableNames(node.DropStmt)
		msg = "DROP TABLE permanently deletes the table and all of its rows"
	case *pg_query.Node_TruncateStmt:
		for _, rel := range node.TruncateStmt.Relations {
			if rv, ok := rel.Node.(*pg_query.Node_RangeVar); ok {
				tables = append(tables, analyzer.TableName(rv.RangeVar))
			}
		}

		msg = "TRUNCATE removes every row from the table"
	default:
		return nil
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.Critical,
		Table:      strings.Join(tables, ", "),
		Message:    msg,
		Suggestion: "Take a backup and confirm no application code still reads the table",
		LockType:   "ACCESS EXCLUSIVE",
		StmtIndex:  ctx.StmtIndex,
	}}
}

func dropTableNames(drop *pg_query.DropStmt) []string {
	var tables []string

	for _, obj := range drop.Objects {
		list, ok := obj.Node.(*pg_query.Node_List)
		if !ok {
			continue
		}

		var parts []string

		for _, item := range list.List.Items {
			if s, ok := item.Node.(*pg_query.Node_String_); ok {
				parts = append(parts, s.String_.Sval)
			}
		}

		if len(parts) > 0 {
			tables = append(tables, strings.Join(parts, "."))
		}
	}

	return tables
}
